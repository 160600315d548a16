package main

import (
	"fmt"
	"strconv"
	"strings"

	intseq "github.com/cbegin/wavesynth-go/internal/sequencer"
	intwt "github.com/cbegin/wavesynth-go/internal/wavetable"
)

// parseSequence reads "hz:ms" entries separated by commas; "rest:ms" (or
// "-:ms") is a pause. An empty string yields the default phrase.
func parseSequence(text string) ([]intseq.Step, error) {
	if strings.TrimSpace(text) == "" {
		return intseq.DefaultSteps(), nil
	}
	var steps []intseq.Step
	for _, field := range strings.Split(text, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		pitch, dur, ok := strings.Cut(field, ":")
		if !ok {
			return nil, fmt.Errorf("step %q: expected hz:ms", field)
		}
		ms, err := strconv.ParseUint(strings.TrimSpace(dur), 10, 32)
		if err != nil || ms == 0 {
			return nil, fmt.Errorf("step %q: duration must be a positive integer", field)
		}
		pitch = strings.ToLower(strings.TrimSpace(pitch))
		if pitch == "rest" || pitch == "-" {
			steps = append(steps, intseq.Pause(uint32(ms)))
			continue
		}
		hz, err := strconv.ParseFloat(pitch, 32)
		if err != nil || hz <= 0 {
			return nil, fmt.Errorf("step %q: frequency must be positive", field)
		}
		steps = append(steps, intseq.Note(float32(hz), uint32(ms)))
	}
	return steps, nil
}

// parseOscillators reads "kind:multiplier" entries separated by commas.
// An empty string yields the default bank.
func parseOscillators(text string) ([]intwt.SamplerConfig, error) {
	if strings.TrimSpace(text) == "" {
		return intwt.DefaultParams().Samplers, nil
	}
	var out []intwt.SamplerConfig
	for _, field := range strings.Split(text, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		name, mult, ok := strings.Cut(field, ":")
		if !ok {
			mult = "1"
		}
		kind, err := intwt.ParseKind(name)
		if err != nil {
			return nil, err
		}
		m, err := strconv.ParseFloat(strings.TrimSpace(mult), 32)
		if err != nil {
			return nil, fmt.Errorf("oscillator %q: bad multiplier: %w", field, err)
		}
		out = append(out, intwt.SamplerConfig{Kind: kind, Multiplier: float32(m)})
	}
	return out, nil
}
