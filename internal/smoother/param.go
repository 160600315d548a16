// Package smoother ramps control values and crossfades signal paths so that
// parameter edits between blocks never produce audible steps.
package smoother

import "math"

// DefaultSmoothSeconds is the ramp length used by DefaultConfig.
const DefaultSmoothSeconds = 0.015

// Config controls how long a Param takes to reach a new target.
type Config struct {
	SmoothSeconds float32
}

func DefaultConfig() Config {
	return Config{SmoothSeconds: DefaultSmoothSeconds}
}

// Param is a scalar that moves linearly toward its target over a fixed
// number of frames. Once remaining reaches zero, current equals target.
type Param struct {
	current    float32
	target     float32
	remaining  int
	increment  float32
	rampFrames int
	cfg        Config
}

// NewParam returns a settled Param holding value.
func NewParam(value float32, cfg Config, sampleRate int) Param {
	p := Param{current: value, target: value, cfg: cfg}
	p.rampFrames = rampFrames(cfg.SmoothSeconds, sampleRate)
	return p
}

func rampFrames(seconds float32, sampleRate int) int {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(math.Round(float64(seconds) * float64(sampleRate)))
}

// SetValue starts a ramp toward v. Setting the value it already holds
// settles immediately.
func (p *Param) SetValue(v float32) {
	p.target = v
	if v == p.current || p.rampFrames == 0 {
		p.current = v
		p.remaining = 0
		p.increment = 0
		return
	}
	p.remaining = p.rampFrames
	p.increment = (v - p.current) / float32(p.rampFrames)
}

// Next advances the ramp by one frame and returns the new value.
func (p *Param) Next() float32 {
	if p.remaining == 0 {
		return p.current
	}
	p.remaining--
	if p.remaining == 0 {
		p.current = p.target
	} else {
		p.current += p.increment
	}
	return p.current
}

func (p *Param) IsSmoothing() bool { return p.remaining > 0 }

// Value returns the current, possibly mid-ramp, value.
func (p *Param) Value() float32 { return p.current }

func (p *Param) TargetValue() float32 { return p.target }

// Remaining returns the frames left in the current ramp.
func (p *Param) Remaining() int { return p.remaining }

// Reset jumps to the target.
func (p *Param) Reset() {
	p.current = p.target
	p.remaining = 0
	p.increment = 0
}

// UpdateSampleRate recomputes the ramp length. A ramp in progress restarts
// from the current value so it still lasts the configured time.
func (p *Param) UpdateSampleRate(sampleRate int) {
	p.rampFrames = rampFrames(p.cfg.SmoothSeconds, sampleRate)
	if p.remaining > 0 {
		p.SetValue(p.target)
	}
}
