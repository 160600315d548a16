// Package voice wires a Sequencer, an oscillator Bank and a Filter into one
// stereo voice and feeds them patches from the control goroutine.
package voice

import (
	"sync/atomic"

	"github.com/cbegin/wavesynth-go/internal/filter"
	"github.com/cbegin/wavesynth-go/internal/node"
	"github.com/cbegin/wavesynth-go/internal/patch"
	"github.com/cbegin/wavesynth-go/internal/sequencer"
	"github.com/cbegin/wavesynth-go/internal/wavetable"
)

// Channels is the number of interleaved output channels.
const Channels = filter.Channels

// Params configures a Voice.
type Params struct {
	// Steps drives the bank's base frequency when Sequenced is set.
	Steps     []sequencer.Step
	Sequenced bool
	Bank      wavetable.Params
	Filter    filter.Params
	// QueueSize is the minimum capacity of each patch queue.
	QueueSize int
}

func DefaultParams() Params {
	return Params{
		Steps:     sequencer.DefaultSteps(),
		Sequenced: true,
		Bank:      wavetable.DefaultParams(),
		Filter:    filter.DefaultParams(),
		QueueSize: patch.DefaultCapacity,
	}
}

// Voice renders Sequencer -> Bank -> Filter. Process runs on the audio
// goroutine; the Push methods run on a single control goroutine.
type Voice struct {
	info      node.StreamInfo
	sequenced bool

	seq  *sequencer.Sequencer
	bank *wavetable.Bank
	filt *filter.Filter

	seqPatches    *patch.Queue[sequencer.Patch]
	bankPatches   *patch.Queue[wavetable.Patch]
	filterPatches *patch.Queue[filter.Patch]
	// bound once so draining does not allocate
	applySeq    func(sequencer.Patch)
	applyBank   func(wavetable.Patch)
	applyFilter func(filter.Patch)

	ctrl []float32
	mono []float32
	in   [][]float32
	out  [][]float32

	frames atomic.Uint64
	loops  atomic.Uint64
	step   atomic.Int64
}

// New builds a voice and sizes every buffer from info.MaxBlockFrames.
func New(params Params, info node.StreamInfo) *Voice {
	info = node.NewStreamInfo(info.SampleRate, info.MaxBlockFrames)
	v := &Voice{
		info:          info,
		sequenced:     params.Sequenced,
		bank:          wavetable.New(params.Bank, info),
		filt:          filter.New(params.Filter, info),
		seqPatches:    patch.New[sequencer.Patch](params.QueueSize),
		bankPatches:   patch.New[wavetable.Patch](params.QueueSize),
		filterPatches: patch.New[filter.Patch](params.QueueSize),
	}
	v.seq = sequencer.New(params.Steps, sequencer.Options{OnEvent: v.onSequencerEvent})
	v.applySeq = v.seq.ApplyPatch
	v.applyBank = v.bank.ApplyPatch
	v.applyFilter = v.filt.ApplyPatch
	v.allocate(info.MaxBlockFrames)
	return v
}

func (v *Voice) allocate(frames int) {
	v.ctrl = make([]float32, frames)
	v.mono = make([]float32, frames)
	v.in = [][]float32{v.mono, v.mono}
	v.out = [][]float32{make([]float32, frames), make([]float32, frames)}
}

func (v *Voice) onSequencerEvent(kind sequencer.EventKind) {
	switch kind {
	case sequencer.EventLoopCompleted:
		v.loops.Add(1)
	case sequencer.EventStepChanged:
		v.step.Store(int64(v.seq.Index()))
	}
}

// StreamInfo returns the current stream configuration.
func (v *Voice) StreamInfo() node.StreamInfo { return v.info }

// NewStream reconfigures the voice for a new stream. It allocates and must
// not run concurrently with Process.
func (v *Voice) NewStream(info node.StreamInfo) {
	info = node.NewStreamInfo(info.SampleRate, info.MaxBlockFrames)
	if info.MaxBlockFrames != v.info.MaxBlockFrames {
		v.allocate(info.MaxBlockFrames)
	}
	v.info = info
	v.bank.NewStream(info)
	v.filt.NewStream(info)
}

// PushSequencer queues a sequencer patch. It returns false when the queue
// is full and the patch was dropped.
func (v *Voice) PushSequencer(p sequencer.Patch) bool { return v.seqPatches.Push(p) }

// PushBank queues an oscillator bank patch.
func (v *Voice) PushBank(p wavetable.Patch) bool { return v.bankPatches.Push(p) }

// PushFilter queues a filter patch.
func (v *Voice) PushFilter(p filter.Patch) bool { return v.filterPatches.Push(p) }

// FramesRendered returns the number of frames produced so far.
func (v *Voice) FramesRendered() uint64 { return v.frames.Load() }

// Loops returns how many times the sequence has wrapped around.
func (v *Voice) Loops() uint64 { return v.loops.Load() }

// Step returns the index of the sequencer step currently playing.
func (v *Voice) Step() int { return int(v.step.Load()) }

// Process fills dst with interleaved stereo frames. It never allocates or
// blocks.
func (v *Voice) Process(dst []float32) {
	for len(dst) >= Channels {
		frames := min(len(dst)/Channels, v.info.MaxBlockFrames)
		v.processBlock(frames)
		for i := 0; i < frames; i++ {
			dst[i*2] = v.out[0][i]
			dst[i*2+1] = v.out[1][i]
		}
		dst = dst[frames*Channels:]
		v.frames.Add(uint64(frames))
	}
	clear(dst)
}

func (v *Voice) drain() {
	v.seqPatches.Drain(v.applySeq)
	v.bankPatches.Drain(v.applyBank)
	v.filterPatches.Drain(v.applyFilter)
}

func (v *Voice) processBlock(frames int) {
	v.drain()

	mono := v.mono[:frames]
	var ctrl []float32
	if v.sequenced {
		ctrl = v.ctrl[:frames]
		v.seq.Process(v.info.SampleRate, ctrl)
	}

	inSilence := node.NoneSilent
	st := v.bank.Process(ctrl, mono)
	switch {
	case st.Kind != node.OutputsModified:
		clear(mono)
		inSilence = node.StereoSilent
	case st.Silence.IsChannelSilent(0):
		inSilence = node.StereoSilent
	}

	st = v.filt.Process(v.in, v.out, frames, inSilence)
	node.Apply(st, v.in, v.out, frames)
}
