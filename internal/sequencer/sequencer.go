package sequencer

import (
	"math"

	"github.com/cbegin/wavesynth-go/internal/node"
)

// DefaultPauseMS is the length of the pause substituted for an empty sequence.
const DefaultPauseMS = 1000

// frameEpsilon absorbs float error when converting a step duration to whole
// frames.
const frameEpsilon = 1e-6

// Step is one entry of a cyclic sequence: a note at Frequency Hz, or a pause
// when HasFrequency is false.
type Step struct {
	Frequency    float32
	HasFrequency bool
	DurationMS   uint32
}

// Note returns a step sounding hz for ms milliseconds.
func Note(hz float32, ms uint32) Step {
	return Step{Frequency: hz, HasFrequency: true, DurationMS: ms}
}

// Pause returns a silent step of ms milliseconds.
func Pause(ms uint32) Step {
	return Step{DurationMS: ms}
}

// Value is the control value emitted while the step plays: its frequency,
// or 0 for a pause.
func (s Step) Value() float32 {
	if !s.HasFrequency {
		return 0
	}
	return s.Frequency
}

// Seconds returns the step duration in seconds.
func (s Step) Seconds() float64 {
	return float64(s.DurationMS) / 1000
}

// Frames returns the whole number of frames the step lasts at sampleRate.
// The fractional remainder is dropped.
func (s Step) Frames(sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	return int(math.Floor(float64(s.DurationMS)*float64(sampleRate)/1000 + frameEpsilon))
}

// DefaultSteps returns the demo phrase: A4, A3 and E4 separated by rests.
func DefaultSteps() []Step {
	return []Step{
		Note(440, 1000),
		Pause(500),
		Note(220, 500),
		Pause(250),
		Note(330, 500),
		Pause(250),
	}
}

var defaultPause = []Step{Pause(DefaultPauseMS)}

// FrequencyToVoltage maps 20 Hz..20 kHz linearly onto [-1, 1], clamped.
func FrequencyToVoltage(hz float32) float32 {
	v := 2*(hz-20)/19980 - 1
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventStepChanged EventKind = iota
	EventLoopCompleted
)

type Options struct {
	// OnEvent is called from the audio thread; it must not block.
	OnEvent func(EventKind)
}

// PatchKind tags a Sequencer change.
type PatchKind int

const (
	StepsChanged PatchKind = iota
	Restart
)

// Patch is a single Sequencer change, applied between blocks. Steps is
// owned by the sequencer once pushed.
type Patch struct {
	Kind  PatchKind
	Steps []Step
}

func SetSteps(steps []Step) Patch {
	return Patch{Kind: StepsChanged, Steps: steps}
}

func RestartPatch() Patch {
	return Patch{Kind: Restart}
}

// Sequencer walks a cyclic list of steps and produces one control value per
// frame. Leftover time at a step boundary is dropped, not carried over.
type Sequencer struct {
	steps   []Step
	index   int
	elapsed int // frames into steps[index], counted at rate
	rate    int
	onEvent func(EventKind)
}

// New returns a sequencer at the first step. An empty list is replaced by a
// single default pause.
func New(steps []Step, opts Options) *Sequencer {
	s := &Sequencer{onEvent: opts.OnEvent}
	s.setSteps(steps)
	return s
}

func (s *Sequencer) setSteps(steps []Step) {
	if len(steps) == 0 {
		steps = defaultPause
	}
	s.steps = steps
	s.index = 0
	s.elapsed = 0
}

// Steps returns the active sequence. Callers must not modify it.
func (s *Sequencer) Steps() []Step { return s.steps }

// Index returns the current step index.
func (s *Sequencer) Index() int { return s.index }

// Elapsed returns the time spent in the current step, in seconds.
func (s *Sequencer) Elapsed() float64 {
	if s.rate <= 0 {
		return 0
	}
	return float64(s.elapsed) / float64(s.rate)
}

// ElapsedFrames returns the frames emitted so far for the current step.
func (s *Sequencer) ElapsedFrames() int { return s.elapsed }

// setRate rescales the elapsed frame count when the sample rate changes.
func (s *Sequencer) setRate(sampleRate int) {
	if sampleRate == s.rate {
		return
	}
	if s.rate > 0 && s.elapsed > 0 {
		s.elapsed = int(math.Round(float64(s.elapsed) * float64(sampleRate) / float64(s.rate)))
	}
	s.rate = sampleRate
}

// ApplyPatch applies one queued change.
func (s *Sequencer) ApplyPatch(p Patch) {
	switch p.Kind {
	case StepsChanged:
		s.setSteps(p.Steps)
	case Restart:
		s.index = 0
		s.elapsed = 0
	}
}

func (s *Sequencer) advance() {
	s.elapsed = 0
	s.index++
	if s.index >= len(s.steps) {
		s.index = 0
		s.emit(EventLoopCompleted)
	}
	s.emit(EventStepChanged)
}

func (s *Sequencer) emit(kind EventKind) {
	if s.onEvent != nil {
		s.onEvent(kind)
	}
}

// Emit returns how many of the next frames carry the current step's value,
// never crossing a step boundary. When the step ends within frames, the
// sequencer moves to the next step. A zero count with frames > 0 means the
// step had no whole frame left; the caller should call again.
func (s *Sequencer) Emit(sampleRate, frames int) (int, float32) {
	if frames <= 0 || sampleRate <= 0 {
		return 0, 0
	}
	s.setRate(sampleRate)
	step := s.steps[s.index]
	value := step.Value()

	remaining := max(0, step.Frames(sampleRate)-s.elapsed)
	if remaining > frames {
		s.elapsed += frames
		return frames, value
	}
	n := remaining
	s.advance()
	return n, value
}

// Process fills dst with control values, splitting it across as many step
// boundaries as needed. If a full cycle of steps yields no frames (every
// step shorter than one frame) one frame of the current value is forced.
func (s *Sequencer) Process(sampleRate int, dst []float32) node.Status {
	pos := 0
	stalled := 0
	silent := true
	for pos < len(dst) {
		n, v := s.Emit(sampleRate, len(dst)-pos)
		if n == 0 {
			if sampleRate <= 0 {
				clear(dst[pos:])
				break
			}
			stalled++
			if stalled <= len(s.steps) {
				continue
			}
			n = 1
		}
		stalled = 0
		fill := dst[pos : pos+n]
		for i := range fill {
			fill[i] = v
		}
		if v != 0 {
			silent = false
		}
		pos += n
	}
	if silent {
		return node.Modified(node.MonoSilent)
	}
	return node.Modified(node.NoneSilent)
}
