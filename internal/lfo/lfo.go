package lfo

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the LFO shape.
type Waveform int

const (
	Saw      Waveform = iota // falls from +1 to -1
	Square                   // +1 for the first half cycle, -1 after
	Triangle                 // -1 up to +1 and back
	Random                   // sample-and-hold, new value each cycle
	Ramp                     // rises from -1 to +1 then wraps
)

func (w Waveform) String() string {
	switch w {
	case Saw:
		return "saw"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Random:
		return "random"
	case Ramp:
		return "ramp"
	default:
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
}

// ParseWaveform accepts the names returned by String.
func ParseWaveform(name string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "saw":
		return Saw, nil
	case "square", "sqr":
		return Square, nil
	case "triangle", "tri":
		return Triangle, nil
	case "random", "rnd":
		return Random, nil
	case "ramp", "wrap":
		return Ramp, nil
	default:
		return 0, fmt.Errorf("unknown lfo waveform %q (expected saw|square|triangle|random|ramp)", name)
	}
}

// LFO is a low-frequency oscillator. It runs on the control goroutine and
// is advanced by elapsed wall or render time rather than per sample.
type LFO struct {
	depth    float64
	rateHz   float64
	waveform Waveform
	phase    float64 // [0, 1)
	held     float64
	seed     uint64
}

// Set configures the LFO parameters. Unknown waveforms fall back to Triangle.
func (l *LFO) Set(depth, rateHz float64, waveform Waveform) {
	l.depth = depth
	l.rateHz = rateHz
	if waveform < Saw || waveform > Ramp {
		waveform = Triangle
	}
	l.waveform = waveform
}

func (l *LFO) Waveform() Waveform { return l.waveform }

func (l *LFO) Phase() float64 { return l.phase }

// Value returns the output at the current phase in [-depth, +depth].
func (l *LFO) Value() float64 {
	var v float64
	switch l.waveform {
	case Saw:
		v = 1 - 2*l.phase
	case Square:
		if l.phase < 0.5 {
			v = 1
		} else {
			v = -1
		}
	case Random:
		v = l.held
	case Ramp:
		v = 2*l.phase - 1
	default:
		if l.phase < 0.5 {
			v = 4*l.phase - 1
		} else {
			v = 3 - 4*l.phase
		}
	}
	return v * l.depth
}

// Advance returns the value at the current phase, then moves the phase
// forward by seconds. Returns 0 if depth or rate is zero.
func (l *LFO) Advance(seconds float64) float64 {
	if !l.Active() || seconds < 0 {
		return 0
	}
	v := l.Value()
	next := l.phase + l.rateHz*seconds
	if next >= 1 {
		next -= math.Floor(next)
		if l.waveform == Random {
			l.held = l.nextRandom()
		}
	}
	l.phase = next
	return v
}

// Sample advances by one frame at sampleRate.
func (l *LFO) Sample(sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return l.Advance(1 / sampleRate)
}

// nextRandom is an xorshift64 step mapped onto [-1, 1).
func (l *LFO) nextRandom() float64 {
	if l.seed == 0 {
		l.seed = 0x9e3779b97f4a7c15
	}
	l.seed ^= l.seed << 13
	l.seed ^= l.seed >> 7
	l.seed ^= l.seed << 17
	return float64(l.seed>>11)/(1<<53)*2 - 1
}

// Active returns true if the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

// Reset zeros the LFO phase and the held random value.
func (l *LFO) Reset() {
	l.phase = 0
	l.held = 0
	l.seed = 0
}

// Sweep maps a unit-depth LFO onto [Low, High], e.g. a filter cutoff range.
type Sweep struct {
	Low, High float64
	lfo       LFO
}

// NewSweep returns a sweep that starts at the waveform's phase-0 value.
func NewSweep(low, high, rateHz float64, waveform Waveform) *Sweep {
	s := &Sweep{Low: low, High: high}
	s.lfo.Set(1, rateHz, waveform)
	return s
}

// Advance returns the current position in [Low, High] and moves the sweep
// forward by seconds. A stopped sweep sits at the middle of the range.
func (s *Sweep) Advance(seconds float64) float64 {
	v := s.lfo.Advance(seconds)
	return s.Low + (v+1)/2*(s.High-s.Low)
}

func (s *Sweep) Reset() { s.lfo.Reset() }
