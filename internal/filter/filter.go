package filter

import (
	"math"

	"github.com/cbegin/wavesynth-go/internal/node"
	"github.com/cbegin/wavesynth-go/internal/smoother"
)

const (
	MinCutoff = 20
	MaxCutoff = 20000

	// GainEpsilon is the amplitude below which the filter treats its output
	// as silent.
	GainEpsilon = 1e-5

	// coefficients are recomputed at this frame interval while the cutoff ramps
	coeffInterval = 16

	// Channels is the number of inputs and outputs.
	Channels = 2
)

// Params holds the filter settings.
type Params struct {
	CutoffHz  float32
	Gain      float32 // linear amplitude
	Enabled   bool
	Smoothing smoother.Config
	Declick   smoother.DeclickConfig
}

func DefaultParams() Params {
	return Params{
		CutoffHz:  1000,
		Gain:      1,
		Enabled:   true,
		Smoothing: smoother.DefaultConfig(),
		Declick:   smoother.DefaultDeclickConfig(),
	}
}

// PatchKind tags a Filter parameter change.
type PatchKind int

const (
	CutoffChanged PatchKind = iota
	GainChanged
	EnabledChanged
)

// Patch is a single Filter parameter change, applied between blocks.
type Patch struct {
	Kind    PatchKind
	Value   float32
	Enabled bool
}

func SetCutoff(hz float32) Patch {
	return Patch{Kind: CutoffChanged, Value: hz}
}

func SetGain(amp float32) Patch {
	return Patch{Kind: GainChanged, Value: amp}
}

func SetEnabled(enabled bool) Patch {
	return Patch{Kind: EnabledChanged, Enabled: enabled}
}

// ClampCutoff limits hz to [MinCutoff, MaxCutoff]. NaN maps to MinCutoff.
func ClampCutoff(hz float32) float32 {
	if !(hz >= MinCutoff) {
		return MinCutoff
	}
	if hz > MaxCutoff {
		return MaxCutoff
	}
	return hz
}

// ClampGain rejects negative gains and snaps values below GainEpsilon to 0.
func ClampGain(amp float32) float32 {
	if !(amp >= GainEpsilon) {
		return 0
	}
	return amp
}

// onePole is a first-order low-pass section: z1 = a0*x + b1*z1.
type onePole struct {
	a0, b1, z1 float32
}

func (f *onePole) setCutoff(hz, sampleRateRecip float32) {
	f.b1 = float32(math.Exp(-2 * math.Pi * float64(hz) * float64(sampleRateRecip)))
	f.a0 = 1 - f.b1
}

func (f *onePole) copyCutoff(o *onePole) {
	f.a0 = o.a0
	f.b1 = o.b1
}

func (f *onePole) process(x float32) float32 {
	f.z1 = f.a0*x + f.b1*f.z1
	return f.z1
}

func (f *onePole) reset() { f.z1 = 0 }

// Filter is a stereo one-pole low-pass with a stereo-linked cutoff, smoothed
// cutoff and gain, and a declicked enable switch.
type Filter struct {
	left, right     onePole
	cutoff          smoother.Param
	gain            smoother.Buffer
	declick         smoother.Declicker
	sampleRateRecip float32
}

// New builds a filter for the given stream. Buffers are sized from
// info.MaxBlockFrames.
func New(params Params, info node.StreamInfo) *Filter {
	cutoff := ClampCutoff(params.CutoffHz)
	f := &Filter{
		cutoff:          smoother.NewParam(cutoff, params.Smoothing, info.SampleRate),
		gain:            smoother.NewBuffer(ClampGain(params.Gain), params.Smoothing, info),
		declick:         smoother.NewDeclicker(params.Enabled, params.Declick, info.SampleRate),
		sampleRateRecip: info.SampleRateRecip(),
	}
	f.left.setCutoff(cutoff, f.sampleRateRecip)
	f.right.copyCutoff(&f.left)
	return f
}

// ApplyPatch applies one queued change.
func (f *Filter) ApplyPatch(p Patch) {
	switch p.Kind {
	case CutoffChanged:
		f.cutoff.SetValue(ClampCutoff(p.Value))
	case GainChanged:
		f.gain.SetValue(ClampGain(p.Value))
	case EnabledChanged:
		f.declick.FadeTo(p.Enabled)
	}
}

// NewStream recomputes everything that depends on the sample rate. It may
// allocate and must not run on the audio goroutine.
func (f *Filter) NewStream(info node.StreamInfo) {
	f.sampleRateRecip = info.SampleRateRecip()
	f.cutoff.UpdateSampleRate(info.SampleRate)
	f.gain.UpdateStream(info)
	f.declick.UpdateSampleRate(info.SampleRate)
	f.left.setCutoff(f.cutoff.TargetValue(), f.sampleRateRecip)
	f.right.copyCutoff(&f.left)
}

func (f *Filter) Cutoff() float32 { return f.cutoff.Value() }

func (f *Filter) TargetCutoff() float32 { return f.cutoff.TargetValue() }

func (f *Filter) Gain() float32 { return f.gain.Value() }

func (f *Filter) TargetGain() float32 { return f.gain.TargetValue() }

// Enabled reports the state the filter is in or fading toward.
func (f *Filter) Enabled() bool { return f.declick.TargetEnabled() }

// Memory returns the left and right filter state.
func (f *Filter) Memory() (left, right float32) { return f.left.z1, f.right.z1 }

// Coefficients returns the left channel's a0 and b1.
func (f *Filter) Coefficients() (a0, b1 float32) { return f.left.a0, f.left.b1 }

// Reset clears the filter memory and settles every smoother.
func (f *Filter) Reset() {
	f.left.reset()
	f.right.reset()
	f.cutoff.Reset()
	f.gain.Reset()
	f.declick.ResetToTarget()
}

// Process filters frames frames of inputs into outputs. Both slices hold
// Channels channels; a nil input channel counts as silence. inSilence flags
// inputs known to be all zero. frames must not exceed the stream's
// MaxBlockFrames.
func (f *Filter) Process(inputs, outputs [][]float32, frames int, inSilence node.SilenceMask) node.Status {
	if f.declick.Disabled() {
		return node.BypassStatus()
	}

	gainSilent := !f.gain.IsSmoothing() && f.gain.TargetValue() < GainEpsilon
	if gainSilent || inSilence.AllChannelsSilent(Channels) {
		// later blocks must not resume from stale memory
		f.Reset()
		return node.ClearStatus()
	}

	if frames > f.gain.Cap() {
		frames = f.gain.Cap()
	}
	inL, inR := channel(inputs, 0, frames), channel(inputs, 1, frames)
	outL, outR := outputs[0][:frames], outputs[1][:frames]
	gain := f.gain.Fill(frames)

	if f.cutoff.IsSmoothing() {
		for i := 0; i < frames; i++ {
			hz := f.cutoff.Next()
			if i&(coeffInterval-1) == 0 {
				f.left.setCutoff(hz, f.sampleRateRecip)
				f.right.copyCutoff(&f.left)
			}
			outL[i] = f.left.process(sample(inL, i)) * gain[i]
			outR[i] = f.right.process(sample(inR, i)) * gain[i]
		}
	} else {
		f.left.setCutoff(f.cutoff.TargetValue(), f.sampleRateRecip)
		f.right.copyCutoff(&f.left)
		for i := 0; i < frames; i++ {
			outL[i] = f.left.process(sample(inL, i)) * gain[i]
			outR[i] = f.right.process(sample(inR, i)) * gain[i]
		}
	}

	f.declick.Crossfade(inputs, outputs[:Channels], frames)
	return node.Modified(node.NoneSilent)
}

func channel(bufs [][]float32, ch, frames int) []float32 {
	if ch >= len(bufs) || bufs[ch] == nil {
		return nil
	}
	return bufs[ch][:frames]
}

func sample(buf []float32, i int) float32 {
	if buf == nil {
		return 0
	}
	return buf[i]
}
