package voice

import (
	"math"
	"testing"

	"github.com/cbegin/wavesynth-go/internal/filter"
	"github.com/cbegin/wavesynth-go/internal/node"
	"github.com/cbegin/wavesynth-go/internal/sequencer"
	"github.com/cbegin/wavesynth-go/internal/smoother"
	"github.com/cbegin/wavesynth-go/internal/wavetable"
)

func energy(buf []float32) float64 {
	var sum float64
	for _, s := range buf {
		sum += float64(s) * float64(s)
	}
	return sum
}

func TestVoiceDefaultRendersAudio(t *testing.T) {
	v := New(DefaultParams(), node.NewStreamInfo(48000, 512))
	buf := make([]float32, 48000/4*2)
	v.Process(buf)
	if energy(buf) == 0 {
		t.Fatal("expected non-silent output from the default voice")
	}
	for i := 0; i < len(buf); i += 2 {
		if buf[i] != buf[i+1] {
			t.Fatalf("frame %d: left %f != right %f", i/2, buf[i], buf[i+1])
		}
		if math.IsNaN(float64(buf[i])) || math.Abs(float64(buf[i])) > 1 {
			t.Fatalf("frame %d out of range: %f", i/2, buf[i])
		}
	}
	if got := v.FramesRendered(); got != 48000/4 {
		t.Fatalf("frames rendered = %d", got)
	}
}

func TestVoicePauseIsSilent(t *testing.T) {
	params := DefaultParams()
	params.Steps = []sequencer.Step{sequencer.Pause(500)}
	v := New(params, node.NewStreamInfo(48000, 256))
	buf := make([]float32, 2048)
	for i := range buf {
		buf[i] = 1
	}
	v.Process(buf)
	if energy(buf) != 0 {
		t.Fatal("a pause must render silence")
	}
}

func TestVoiceBlockSizeDoesNotChangeOutput(t *testing.T) {
	params := DefaultParams()
	a := New(params, node.NewStreamInfo(44100, 64))
	b := New(params, node.NewStreamInfo(44100, 64))

	whole := make([]float32, 3000*2)
	a.Process(whole)

	chunked := make([]float32, 0, len(whole))
	buf := make([]float32, 37*2)
	for len(chunked) < len(whole) {
		n := min(len(buf), len(whole)-len(chunked))
		b.Process(buf[:n])
		chunked = append(chunked, buf[:n]...)
	}
	for i := range whole {
		if whole[i] != chunked[i] {
			t.Fatalf("sample %d: %f vs %f", i, whole[i], chunked[i])
		}
	}
}

func TestVoiceOddLengthClearsTail(t *testing.T) {
	v := New(DefaultParams(), node.NewStreamInfo(48000, 64))
	buf := []float32{9, 9, 9, 9, 9}
	v.Process(buf)
	if buf[4] != 0 {
		t.Fatalf("trailing half frame = %f, want 0", buf[4])
	}
}

func TestVoicePatchesLastWriteWins(t *testing.T) {
	v := New(DefaultParams(), node.NewStreamInfo(48000, 64))
	v.PushFilter(filter.SetCutoff(100))
	v.PushFilter(filter.SetCutoff(5000))
	v.PushBank(wavetable.SetMultiplier(0, 0.5))
	v.PushBank(wavetable.SetMultiplier(0, 2))
	v.Process(make([]float32, 128))

	if got := v.filt.TargetCutoff(); got != 5000 {
		t.Fatalf("cutoff target = %f, want 5000", got)
	}
	if got := v.bank.Sampler(0).Frequency(); got != 880 {
		t.Fatalf("sampler 0 frequency = %f, want 880", got)
	}
}

func TestVoiceQueueFullDropsPatch(t *testing.T) {
	params := DefaultParams()
	params.QueueSize = 2
	v := New(params, node.NewStreamInfo(48000, 64))
	if !v.PushFilter(filter.SetGain(0.5)) || !v.PushFilter(filter.SetGain(0.25)) {
		t.Fatal("first two patches should fit")
	}
	if v.PushFilter(filter.SetGain(0)) {
		t.Fatal("third patch should be rejected")
	}
	v.Process(make([]float32, 2))
	if !v.PushFilter(filter.SetGain(1)) {
		t.Fatal("draining a block should free the queue")
	}
}

func TestVoiceFilterBypassPassesBankThrough(t *testing.T) {
	params := DefaultParams()
	params.Sequenced = false
	params.Filter.Enabled = false
	params.Filter.Declick = smoother.DeclickConfig{}
	v := New(params, node.NewStreamInfo(48000, 128))

	ref := wavetable.New(params.Bank, node.NewStreamInfo(48000, 128))
	want := make([]float32, 300)
	ref.Process(nil, want)

	buf := make([]float32, 300*2)
	v.Process(buf)
	for i := range want {
		if buf[i*2] != want[i] || buf[i*2+1] != want[i] {
			t.Fatalf("frame %d: got (%f, %f), want %f", i, buf[i*2], buf[i*2+1], want[i])
		}
	}
}

func TestVoiceBankDisabledIsSilent(t *testing.T) {
	v := New(DefaultParams(), node.NewStreamInfo(48000, 128))
	v.PushBank(wavetable.SetEnabled(false))
	buf := make([]float32, 512)
	v.Process(buf)
	if energy(buf) != 0 {
		t.Fatal("disabled bank should render silence")
	}
}

func TestVoiceCountsLoopsAndSteps(t *testing.T) {
	params := DefaultParams()
	params.Steps = []sequencer.Step{sequencer.Note(100, 1), sequencer.Pause(1), sequencer.Note(200, 1)}
	v := New(params, node.NewStreamInfo(1000, 64))
	v.Process(make([]float32, 7*2))
	if v.Loops() != 2 {
		t.Fatalf("loops = %d, want 2", v.Loops())
	}
	if v.Step() != 1 {
		t.Fatalf("step = %d, want 1", v.Step())
	}

	v.PushSequencer(sequencer.RestartPatch())
	v.Process(make([]float32, 0))
	v.Process(make([]float32, 2))
	if v.Step() != 1 {
		t.Fatalf("step after restart and one frame = %d, want 1", v.Step())
	}
}

func TestVoiceNewStreamResizes(t *testing.T) {
	v := New(DefaultParams(), node.NewStreamInfo(48000, 64))
	v.NewStream(node.NewStreamInfo(96000, 256))
	if info := v.StreamInfo(); info.SampleRate != 96000 || info.MaxBlockFrames != 256 {
		t.Fatalf("stream info = %+v", info)
	}
	buf := make([]float32, 1024)
	v.Process(buf)
	if energy(buf) == 0 {
		t.Fatal("expected audio after a new stream")
	}
}

func TestVoiceProcessDoesNotAllocate(t *testing.T) {
	v := New(DefaultParams(), node.NewStreamInfo(48000, 256))
	buf := make([]float32, 600*2)
	steps := []sequencer.Step{sequencer.Note(330, 20), sequencer.Pause(5)}
	v.Process(buf)

	var i int
	allocs := testing.AllocsPerRun(200, func() {
		i++
		v.PushFilter(filter.SetCutoff(float32(200 + i%50*100)))
		v.PushFilter(filter.SetEnabled(i%7 != 0))
		v.PushBank(wavetable.SetMultiplier(1, float32(1+i%3)))
		if i%10 == 0 {
			v.PushSequencer(sequencer.SetSteps(steps))
		}
		v.Process(buf)
	})
	if allocs != 0 {
		t.Fatalf("allocs per Process = %v, want 0", allocs)
	}
}

func BenchmarkVoiceProcess(b *testing.B) {
	v := New(DefaultParams(), node.NewStreamInfo(48000, 512))
	buf := make([]float32, 512*2)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v.Process(buf)
	}
}
