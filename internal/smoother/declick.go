package smoother

import "math"

// DefaultFadeSeconds is the crossfade length used by DefaultDeclickConfig.
const DefaultFadeSeconds = 0.010

type DeclickConfig struct {
	FadeSeconds float32
}

func DefaultDeclickConfig() DeclickConfig {
	return DeclickConfig{FadeSeconds: DefaultFadeSeconds}
}

// Declicker crossfades between a bypass (dry) path and a processed (wet)
// path when a processor is enabled or disabled. progress is 0 when fully
// disabled and 1 when fully enabled; it moves toward the target by one step
// per frame.
type Declicker struct {
	enabled  bool
	progress float32
	step     float32
	cfg      DeclickConfig
}

// NewDeclicker returns a declicker settled in the given state.
func NewDeclicker(enabled bool, cfg DeclickConfig, sampleRate int) Declicker {
	d := Declicker{enabled: enabled, cfg: cfg}
	if enabled {
		d.progress = 1
	}
	d.UpdateSampleRate(sampleRate)
	return d
}

// UpdateSampleRate recomputes the per-frame step. Progress is kept.
func (d *Declicker) UpdateSampleRate(sampleRate int) {
	frames := rampFrames(d.cfg.FadeSeconds, sampleRate)
	if frames <= 0 {
		d.step = 1
		return
	}
	d.step = 1 / float32(frames)
}

// FadeTo sets the target state. Reversing mid-fade continues from the
// current progress.
func (d *Declicker) FadeTo(enabled bool) {
	d.enabled = enabled
}

// TargetEnabled returns the state the declicker is fading toward.
func (d *Declicker) TargetEnabled() bool { return d.enabled }

// Disabled reports a declicker settled in the disabled state.
func (d *Declicker) Disabled() bool { return !d.enabled && d.progress <= 0 }

// Enabled reports a declicker settled in the enabled state.
func (d *Declicker) Enabled() bool { return d.enabled && d.progress >= 1 }

func (d *Declicker) IsFading() bool { return !d.Disabled() && !d.Enabled() }

func (d *Declicker) Progress() float32 { return d.progress }

// ResetToTarget jumps to the target state.
func (d *Declicker) ResetToTarget() {
	if d.enabled {
		d.progress = 1
	} else {
		d.progress = 0
	}
}

// advance moves progress one frame toward the target.
func (d *Declicker) advance() {
	if d.enabled {
		d.progress += d.step
		if d.progress > 1 {
			d.progress = 1
		}
		return
	}
	d.progress -= d.step
	if d.progress < 0 {
		d.progress = 0
	}
}

// EqualPowerGains returns the dry and wet gains of the 3 dB crossfade law at
// progress p.
func EqualPowerGains(p float32) (dry, wet float32) {
	a := float64(p) * (math.Pi / 2)
	return float32(math.Cos(a)), float32(math.Sin(a))
}

// Crossfade blends dry into wet in place for the first frames frames.
// A settled enabled declicker leaves wet untouched; a settled disabled one
// copies dry. A missing dry channel counts as silence.
func (d *Declicker) Crossfade(dry, wet [][]float32, frames int) {
	if d.Enabled() {
		return
	}
	for i := 0; i < frames; i++ {
		if d.IsFading() {
			d.advance()
		}
		dg, wg := EqualPowerGains(d.progress)
		for ch, out := range wet {
			var x float32
			if ch < len(dry) && dry[ch] != nil {
				x = dry[ch][i]
			}
			out[i] = x*dg + out[i]*wg
		}
	}
}
