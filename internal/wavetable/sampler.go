package wavetable

import "math"

// Sampler is a phase accumulator reading a Table with linear interpolation.
// phase is measured in table positions and stays in [0, Resolution).
type Sampler struct {
	kind          Kind
	sampleRate    uint32
	baseFrequency float32
	multiplier    float32
	phase         float64
	delta         float64 // table positions per frame
}

func NewSampler(kind Kind, multiplier, baseFrequency float32, sampleRate int) Sampler {
	s := Sampler{
		kind:          kind,
		baseFrequency: baseFrequency,
		multiplier:    multiplier,
	}
	if sampleRate > 0 {
		s.sampleRate = uint32(sampleRate)
	}
	s.updateDelta()
	return s
}

func (s *Sampler) Kind() Kind { return s.kind }

func (s *Sampler) Phase() float64 { return s.phase }

// Increment returns the phase advance per frame in table positions.
func (s *Sampler) Increment() float64 { return s.delta }

// Frequency returns the sampler's effective frequency in Hz.
func (s *Sampler) Frequency() float32 { return s.baseFrequency * s.multiplier }

func (s *Sampler) updateDelta() {
	if s.sampleRate == 0 {
		s.delta = 0
		return
	}
	s.delta = Resolution * float64(s.baseFrequency) * float64(s.multiplier) / float64(s.sampleRate)
}

// SetBaseFrequency changes the base frequency and restarts the cycle.
func (s *Sampler) SetBaseFrequency(freq float32) {
	s.phase = 0
	s.baseFrequency = freq
	s.updateDelta()
}

// SetSampleRate changes the sample rate without touching the phase.
func (s *Sampler) SetSampleRate(sampleRate int) {
	if sampleRate < 0 {
		sampleRate = 0
	}
	s.sampleRate = uint32(sampleRate)
	s.updateDelta()
}

// SetFrequencyMultiplier changes the ratio to the base frequency without
// touching the phase.
func (s *Sampler) SetFrequencyMultiplier(m float32) {
	s.multiplier = m
	s.updateDelta()
}

// Sample returns the interpolated value at the current phase and advances
// the phase by one frame. The result lies between the two neighbouring
// table values. Nothing is band-limited: increments above Resolution/2 alias.
func (s *Sampler) Sample(t *Table) float32 {
	i0 := int(s.phase)
	i1 := i0 + 1
	if i1 == Resolution {
		i1 = 0
	}
	frac := s.phase - float64(i0)
	v := float64(t[i0])*(1-frac) + float64(t[i1])*frac

	s.phase = wrapPhase(s.phase + s.delta)
	return float32(v)
}

func wrapPhase(p float64) float64 {
	if p >= 0 && p < Resolution {
		return p
	}
	p = math.Mod(p, Resolution)
	if p < 0 {
		p += Resolution
	}
	if p >= Resolution || math.IsNaN(p) {
		p = 0
	}
	return p
}
