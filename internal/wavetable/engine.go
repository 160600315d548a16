package wavetable

import "github.com/cbegin/wavesynth-go/internal/node"

// SamplerConfig binds one sampler of a Bank to a waveform and a ratio of
// the bank's base frequency.
type SamplerConfig struct {
	Kind       Kind
	Multiplier float32
}

// Params controls an oscillator bank.
type Params struct {
	BaseFrequency float32
	Enabled       bool
	Samplers      []SamplerConfig
}

// DefaultParams returns the three-oscillator voice: a sub-octave square,
// a slightly sharp sine and a slightly flat triangle.
func DefaultParams() Params {
	return Params{
		BaseFrequency: 440,
		Enabled:       true,
		Samplers: []SamplerConfig{
			{Kind: Square, Multiplier: 0.15},
			{Kind: Sine, Multiplier: 1.2},
			{Kind: Triangle, Multiplier: 0.9},
		},
	}
}

// PatchKind tags a Bank parameter change.
type PatchKind int

const (
	BaseFrequencyChanged PatchKind = iota
	EnabledChanged
	MultiplierChanged
)

// Patch is a single Bank parameter change, applied between blocks.
type Patch struct {
	Kind    PatchKind
	Value   float32
	Enabled bool
	Index   int // sampler index for MultiplierChanged
}

func SetBaseFrequency(hz float32) Patch {
	return Patch{Kind: BaseFrequencyChanged, Value: hz}
}

func SetEnabled(enabled bool) Patch {
	return Patch{Kind: EnabledChanged, Enabled: enabled}
}

func SetMultiplier(index int, m float32) Patch {
	return Patch{Kind: MultiplierChanged, Index: index, Value: m}
}

// Bank mixes N samplers with equal weight. Samplers of the same kind share
// one table; only the kinds in use are built.
type Bank struct {
	tables        [numKinds]*Table
	samplers      []Sampler
	baseFrequency float32
	lastControl   float32
	enabled       bool
}

// New builds the tables and samplers for params. An empty sampler list is
// replaced by a single sine at the base frequency.
func New(params Params, info node.StreamInfo) *Bank {
	cfgs := params.Samplers
	if len(cfgs) == 0 {
		cfgs = []SamplerConfig{{Kind: Sine, Multiplier: 1}}
	}
	b := &Bank{
		samplers:      make([]Sampler, len(cfgs)),
		baseFrequency: params.BaseFrequency,
		enabled:       params.Enabled,
	}
	for i, c := range cfgs {
		kind := c.Kind
		if kind < 0 || kind >= numKinds {
			kind = Sine
		}
		if b.tables[kind] == nil {
			b.tables[kind] = Build(kind)
		}
		b.samplers[i] = NewSampler(kind, c.Multiplier, params.BaseFrequency, info.SampleRate)
	}
	return b
}

// Len returns the number of samplers.
func (b *Bank) Len() int { return len(b.samplers) }

// Sampler exposes sampler i for inspection.
func (b *Bank) Sampler(i int) *Sampler { return &b.samplers[i] }

// Table returns the shared table for kind, or nil when no sampler uses it.
func (b *Bank) Table(kind Kind) *Table {
	if kind < 0 || kind >= numKinds {
		return nil
	}
	return b.tables[kind]
}

func (b *Bank) BaseFrequency() float32 { return b.baseFrequency }

func (b *Bank) Enabled() bool { return b.enabled }

// SetBaseFrequency retunes every sampler and restarts their cycles.
func (b *Bank) SetBaseFrequency(hz float32) {
	b.baseFrequency = hz
	for i := range b.samplers {
		b.samplers[i].SetBaseFrequency(hz)
	}
}

// ApplyPatch applies one queued change.
func (b *Bank) ApplyPatch(p Patch) {
	switch p.Kind {
	case BaseFrequencyChanged:
		if p.Value > 0 {
			b.SetBaseFrequency(p.Value)
		}
	case EnabledChanged:
		b.enabled = p.Enabled
	case MultiplierChanged:
		if p.Index >= 0 && p.Index < len(b.samplers) {
			b.samplers[p.Index].SetFrequencyMultiplier(p.Value)
		}
	}
}

// NewStream propagates a new sample rate. Phases are kept.
func (b *Bank) NewStream(info node.StreamInfo) {
	for i := range b.samplers {
		b.samplers[i].SetSampleRate(info.SampleRate)
	}
}

// Process renders len(dst) frames. ctrl, when non-nil, carries one
// frequency per frame from a sequencer: a new positive value retunes the
// bank (restarting the cycle) and zero means silence for that frame. A
// value equal to the previous one does not retune, so a SetBaseFrequency
// patch holds until the control value changes.
func (b *Bank) Process(ctrl, dst []float32) node.Status {
	if !b.enabled {
		return node.ClearStatus()
	}
	n := float32(len(b.samplers))
	silent := true
	for i := range dst {
		if ctrl != nil {
			c := ctrl[i]
			if c != b.lastControl {
				b.lastControl = c
				if c > 0 {
					b.SetBaseFrequency(c)
				}
			}
			if c <= 0 {
				dst[i] = 0
				continue
			}
		}
		var sum float32
		for j := range b.samplers {
			s := &b.samplers[j]
			sum += s.Sample(b.tables[s.kind])
		}
		v := sum / n
		dst[i] = v
		if v != 0 {
			silent = false
		}
	}
	if silent {
		return node.Modified(node.MonoSilent)
	}
	return node.Modified(node.NoneSilent)
}
