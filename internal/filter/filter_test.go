package filter

import (
	"math"
	"testing"

	"github.com/cbegin/wavesynth-go/internal/node"
	"github.com/cbegin/wavesynth-go/internal/smoother"
)

func stereo(frames int, v float32) [][]float32 {
	bufs := [][]float32{make([]float32, frames), make([]float32, frames)}
	for _, b := range bufs {
		for i := range b {
			b[i] = v
		}
	}
	return bufs
}

func run(f *Filter, in, out [][]float32, frames int) node.Status {
	st := f.Process(in, out, frames, node.NoneSilent)
	node.Apply(st, in, out, frames)
	return st
}

func TestFilterSilentGainClearsMemory(t *testing.T) {
	info := node.NewStreamInfo(48000, 256)
	f := New(DefaultParams(), info)
	in := stereo(256, 0.8)
	out := stereo(256, 0)

	run(f, in, out, 256)
	if l, r := f.Memory(); l == 0 || r == 0 {
		t.Fatalf("filter memory should be primed, got %f %f", l, r)
	}

	f.ApplyPatch(SetGain(0))
	// 15 ms at 48 kHz is 720 frames
	for i := 0; i < 3; i++ {
		if st := run(f, in, out, 256); st.Kind != node.OutputsModified {
			t.Fatalf("block %d during the gain ramp: %v", i, st.Kind)
		}
	}
	if f.Gain() != 0 {
		t.Fatalf("gain should have settled at 0, got %f", f.Gain())
	}

	out = stereo(256, 1)
	st := run(f, in, out, 256)
	if st.Kind != node.ClearAllOutputs {
		t.Fatalf("status = %v, want clear", st.Kind)
	}
	for ch := range out {
		for i, v := range out[ch] {
			if v != 0 {
				t.Fatalf("out[%d][%d] = %f, want 0", ch, i, v)
			}
		}
	}
	if l, r := f.Memory(); l != 0 || r != 0 {
		t.Fatalf("z1 = (%f, %f), want exact zero", l, r)
	}
}

func TestFilterSilentInputClears(t *testing.T) {
	f := New(DefaultParams(), node.NewStreamInfo(48000, 64))
	in := stereo(64, 0.5)
	out := stereo(64, 0)
	run(f, in, out, 64)

	f.ApplyPatch(SetCutoff(5000))
	st := f.Process(stereo(64, 0), out, 64, node.StereoSilent)
	if st.Kind != node.ClearAllOutputs {
		t.Fatalf("status = %v, want clear", st.Kind)
	}
	if l, r := f.Memory(); l != 0 || r != 0 {
		t.Fatalf("memory not reset: %f %f", l, r)
	}
	if f.Cutoff() != 5000 {
		t.Fatalf("cutoff smoother should be settled at 5000, got %f", f.Cutoff())
	}
}

func TestFilterDeclickBound(t *testing.T) {
	const (
		sr     = 48000
		block  = 64
		dc     = 0.5
		fadeMS = 10
	)
	params := DefaultParams()
	// dry 0.5 against a settled wet 0.25 keeps the two paths apart
	params.CutoffHz = 200
	params.Gain = 0.5
	params.Declick = smoother.DeclickConfig{FadeSeconds: fadeMS / 1000.0}
	f := New(params, node.NewStreamInfo(sr, block))
	in := stereo(block, dc)
	out := stereo(block, 0)

	var left []float32
	step := func(blocks int) {
		for i := 0; i < blocks; i++ {
			run(f, in, out, block)
			left = append(left, out[0]...)
		}
	}
	step(10)
	left = left[:0]

	// every toggle lands before the 480-frame fade completes
	f.ApplyPatch(SetEnabled(false))
	step(2)
	f.ApplyPatch(SetEnabled(true))
	step(2)
	f.ApplyPatch(SetEnabled(false))
	step(3)
	f.ApplyPatch(SetEnabled(true))
	step(12)

	fadeFrames := float64(sr * fadeMS / 1000)
	bound := 2 * dc * (math.Pi / 2) / fadeFrames
	var worst float64
	for i := 1; i < len(left); i++ {
		if d := math.Abs(float64(left[i] - left[i-1])); d > worst {
			worst = d
		}
	}
	if worst > bound {
		t.Fatalf("largest step %g exceeds equal-power bound %g", worst, bound)
	}
	var peak float32
	for _, v := range left {
		peak = max(peak, v)
	}
	if peak < 0.45 {
		t.Fatalf("crossfade peak %f never moved toward the dry level", peak)
	}
	if last := left[len(left)-1]; math.Abs(float64(last)-dc*0.5) > 1e-3 {
		t.Fatalf("settled output %f, want wet level %f", last, dc*0.5)
	}
	if !f.Enabled() || f.declick.IsFading() {
		t.Fatal("filter should end settled enabled")
	}
}

func TestFilterBypassWhenDisabled(t *testing.T) {
	params := DefaultParams()
	params.Enabled = false
	f := New(params, node.NewStreamInfo(44100, 32))
	in := stereo(32, 0.25)
	out := stereo(32, 0)
	if st := run(f, in, out, 32); st.Kind != node.Bypass {
		t.Fatalf("status = %v, want bypass", st.Kind)
	}
	if out[0][31] != 0.25 || out[1][0] != 0.25 {
		t.Fatal("bypass should pass the input through")
	}
}

func TestFilterClampsPatches(t *testing.T) {
	params := DefaultParams()
	params.CutoffHz = 1
	f := New(params, node.NewStreamInfo(48000, 64))
	if f.TargetCutoff() != MinCutoff {
		t.Fatalf("construction cutoff = %f, want %d", f.TargetCutoff(), MinCutoff)
	}
	cases := []struct {
		in, want float32
	}{
		{5, MinCutoff},
		{1e6, MaxCutoff},
		{float32(math.NaN()), MinCutoff},
		{440, 440},
	}
	for _, tc := range cases {
		f.ApplyPatch(SetCutoff(tc.in))
		if got := f.TargetCutoff(); got != tc.want {
			t.Errorf("SetCutoff(%f): target %f, want %f", tc.in, got, tc.want)
		}
	}
	f.ApplyPatch(SetGain(-3))
	if f.TargetGain() != 0 {
		t.Fatalf("negative gain should clamp to 0, got %f", f.TargetGain())
	}
	f.ApplyPatch(SetGain(GainEpsilon / 2))
	if f.TargetGain() != 0 {
		t.Fatalf("gain below epsilon should snap to 0, got %f", f.TargetGain())
	}
}

func TestFilterCoefficientCadence(t *testing.T) {
	const sr = 48000
	info := node.NewStreamInfo(sr, 64)
	f := New(DefaultParams(), info)
	f.ApplyPatch(SetCutoff(8000))

	ref := smoother.NewParam(DefaultParams().CutoffHz, smoother.DefaultConfig(), sr)
	ref.SetValue(8000)
	want := func(nexts int) float32 {
		var v float32
		for i := 0; i < nexts; i++ {
			v = ref.Next()
		}
		var p onePole
		p.setCutoff(v, info.SampleRateRecip())
		return p.b1
	}

	in := stereo(64, 0.3)
	out := stereo(64, 0)
	// frames 0 and 16 of a block recompute the coefficients
	run(f, in, out, 16)
	if _, b1 := f.Coefficients(); b1 != want(1) {
		t.Fatalf("b1 after 16 frames = %f, want the value from frame 0", b1)
	}
	run(f, in, out, 17)
	if _, b1 := f.Coefficients(); b1 != want(32) {
		t.Fatalf("b1 after 17 more frames = %f, want the value from frame 16", b1)
	}
	if f.right.b1 != f.left.b1 || f.right.a0 != f.left.a0 {
		t.Fatal("right channel must share the left coefficients")
	}
}

func TestFilterNewStreamUpdatesCoefficients(t *testing.T) {
	f := New(DefaultParams(), node.NewStreamInfo(48000, 64))
	_, before := f.Coefficients()
	f.NewStream(node.NewStreamInfo(96000, 128))
	_, after := f.Coefficients()
	if after <= before {
		t.Fatalf("b1 should grow with the sample rate: %f -> %f", before, after)
	}
	in := stereo(128, 0.1)
	out := stereo(128, 0)
	if st := run(f, in, out, 128); st.Kind != node.OutputsModified {
		t.Fatalf("status = %v", st.Kind)
	}
}
