package lfo

import (
	"math"
	"testing"
)

func TestLFOTriangleBasicShape(t *testing.T) {
	l := &LFO{}
	l.Set(1.0, 1.0, Triangle) // 1 Hz, depth 1

	sr := 100.0 // 100 samples per cycle
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = l.Sample(sr)
	}

	if math.Abs(samples[0]-(-1.0)) > 0.05 {
		t.Errorf("triangle at phase 0: got %f, want -1.0", samples[0])
	}
	if math.Abs(samples[25]) > 0.05 {
		t.Errorf("triangle at phase 0.25: got %f, want ~0", samples[25])
	}
	if math.Abs(samples[50]-1.0) > 0.05 {
		t.Errorf("triangle at phase 0.5: got %f, want 1.0", samples[50])
	}
}

func TestLFOSquareShape(t *testing.T) {
	l := &LFO{}
	l.Set(2.0, 1.0, Square)

	sr := 100.0
	v := l.Sample(sr)
	if math.Abs(v-2.0) > 0.01 {
		t.Errorf("square first half: got %f, want 2.0", v)
	}
	for i := 1; i < 50; i++ {
		l.Sample(sr)
	}
	v = l.Sample(sr)
	if math.Abs(v-(-2.0)) > 0.01 {
		t.Errorf("square second half: got %f, want -2.0", v)
	}
}

func TestLFOSawAndRamp(t *testing.T) {
	l := &LFO{}
	l.Set(1.0, 1.0, Saw)
	if v := l.Sample(100); math.Abs(v-1.0) > 0.05 {
		t.Errorf("saw at phase 0: got %f, want 1.0", v)
	}

	l.Reset()
	l.Set(1.0, 1.0, Ramp)
	if v := l.Advance(0.75); v != -1 {
		t.Errorf("ramp at phase 0: got %f, want -1", v)
	}
	if v := l.Advance(0.5); math.Abs(v-0.5) > 1e-9 {
		t.Errorf("ramp at phase 0.75: got %f, want 0.5", v)
	}
	if p := l.Phase(); math.Abs(p-0.25) > 1e-9 {
		t.Errorf("phase should wrap to 0.25, got %f", p)
	}
}

func TestLFOInactiveReturnsZero(t *testing.T) {
	cases := []struct {
		name          string
		depth, rateHz float64
	}{
		{"zero depth", 0, 5},
		{"zero rate", 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := &LFO{}
			l.Set(tc.depth, tc.rateHz, Triangle)
			if v := l.Sample(44100); v != 0 {
				t.Errorf("got %f, want 0", v)
			}
			if l.Active() {
				t.Error("LFO should not be active")
			}
		})
	}
}

func TestLFOUnknownWaveformFallsBack(t *testing.T) {
	l := &LFO{}
	l.Set(1, 1, Waveform(42))
	if l.Waveform() != Triangle {
		t.Fatalf("waveform = %v, want triangle", l.Waveform())
	}
}

func TestLFORandomHoldsPerCycle(t *testing.T) {
	l := &LFO{}
	l.Set(1.0, 10.0, Random)

	sr := 1000.0
	seen := map[float64]bool{}
	for i := 0; i < 500; i++ {
		v := l.Sample(sr)
		if math.Abs(v) > 1.0 {
			t.Fatalf("random sample exceeds depth: %f", v)
		}
		seen[v] = true
	}
	// 5 cycles: the initial zero plus one held value per completed cycle
	if len(seen) < 3 || len(seen) > 6 {
		t.Fatalf("distinct held values = %d", len(seen))
	}
}

func TestParseWaveform(t *testing.T) {
	for w := Saw; w <= Ramp; w++ {
		got, err := ParseWaveform(w.String())
		if err != nil || got != w {
			t.Fatalf("ParseWaveform(%q) = %v, %v", w.String(), got, err)
		}
	}
	if _, err := ParseWaveform("sine"); err == nil {
		t.Fatal("expected an error for an unknown waveform")
	}
}

func TestSweepMapsRange(t *testing.T) {
	s := NewSweep(20, 1500, 0.5, Ramp)
	if v := s.Advance(1); v != 20 {
		t.Fatalf("ramp sweep should start at Low, got %f", v)
	}
	if v := s.Advance(0.5); math.Abs(v-760) > 1e-9 {
		t.Fatalf("half way: got %f, want 760", v)
	}
	if v := s.Advance(1); math.Abs(v-1130) > 1e-9 {
		t.Fatalf("three quarters: got %f, want 1130", v)
	}
	if v := s.Advance(0); math.Abs(v-390) > 1e-9 {
		t.Fatalf("after the wrap: got %f, want 390", v)
	}

	stopped := NewSweep(100, 300, 0, Triangle)
	if v := stopped.Advance(1); v != 200 {
		t.Fatalf("stopped sweep = %f, want the midpoint", v)
	}
}
