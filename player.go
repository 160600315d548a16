package wavesynth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	intaudio "github.com/cbegin/wavesynth-go/internal/audio"
	intfilter "github.com/cbegin/wavesynth-go/internal/filter"
	intnode "github.com/cbegin/wavesynth-go/internal/node"
	intseq "github.com/cbegin/wavesynth-go/internal/sequencer"
	intvoice "github.com/cbegin/wavesynth-go/internal/voice"
	intwt "github.com/cbegin/wavesynth-go/internal/wavetable"
)

// ErrStreamStopped is returned by Err and Monitor when the output stream
// stopped on its own. It is fatal; the caller should exit.
var ErrStreamStopped = intaudio.ErrStreamStopped

type PlayerOption func(*playerConfig)

type playerConfig struct {
	voice       intvoice.Params
	logger      *log.Logger
	sampleTap   func([]float32)
	blockFrames int
	bufferSize  time.Duration
	duration    time.Duration
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		voice:       intvoice.DefaultParams(),
		logger:      log.Default(),
		blockFrames: intnode.DefaultMaxBlockFrames,
	}
}

// WithVoiceParams replaces the default sequence, oscillator bank and filter.
func WithVoiceParams(params intvoice.Params) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.voice = params
	}
}

// WithLogger sets where recoverable host problems are reported.
func WithLogger(logger *log.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// WithBlockFrames sets the largest block the voice processes at once.
func WithBlockFrames(frames int) PlayerOption {
	return func(cfg *playerConfig) {
		if frames > 0 {
			cfg.blockFrames = frames
		}
	}
}

// WithBufferSize sets the device buffer length.
func WithBufferSize(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bufferSize = d
	}
}

// WithDuration ends playback after d of audio has been generated.
func WithDuration(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.duration = d
	}
}

// Controller turns control-thread edits into patches for a voice. Its
// methods must be called from one goroutine at a time.
type Controller struct {
	voice   *intvoice.Voice
	logger  *log.Logger
	dropped atomic.Uint64

	mu            sync.Mutex
	cutoff        float32
	gain          float32
	filterEnabled bool
	oscEnabled    bool
	baseFrequency float32
}

func newController(v *intvoice.Voice, params intvoice.Params, logger *log.Logger) *Controller {
	return &Controller{
		voice:         v,
		logger:        logger,
		cutoff:        intfilter.ClampCutoff(params.Filter.CutoffHz),
		gain:          intfilter.ClampGain(params.Filter.Gain),
		filterEnabled: params.Filter.Enabled,
		oscEnabled:    params.Bank.Enabled,
		baseFrequency: params.Bank.BaseFrequency,
	}
}

func (c *Controller) drop(what string) {
	n := c.dropped.Add(1)
	c.logger.Printf("wavesynth: %s patch queue full, dropped update (%d total)", what, n)
}

// SetCutoff moves the filter cutoff, clamped to 20 Hz..20 kHz.
func (c *Controller) SetCutoff(hz float32) {
	hz = intfilter.ClampCutoff(hz)
	c.mu.Lock()
	c.cutoff = hz
	c.mu.Unlock()
	if !c.voice.PushFilter(intfilter.SetCutoff(hz)) {
		c.drop("filter")
	}
}

// SetGain sets the filter output amplitude. Negative values mute.
func (c *Controller) SetGain(amp float32) {
	amp = intfilter.ClampGain(amp)
	c.mu.Lock()
	c.gain = amp
	c.mu.Unlock()
	if !c.voice.PushFilter(intfilter.SetGain(amp)) {
		c.drop("filter")
	}
}

// SetFilterEnabled crossfades the filter in or out.
func (c *Controller) SetFilterEnabled(enabled bool) {
	c.mu.Lock()
	c.filterEnabled = enabled
	c.mu.Unlock()
	if !c.voice.PushFilter(intfilter.SetEnabled(enabled)) {
		c.drop("filter")
	}
}

// SetOscillatorEnabled switches the oscillator bank on or off.
func (c *Controller) SetOscillatorEnabled(enabled bool) {
	c.mu.Lock()
	c.oscEnabled = enabled
	c.mu.Unlock()
	if !c.voice.PushBank(intwt.SetEnabled(enabled)) {
		c.drop("oscillator")
	}
}

// SetBaseFrequency retunes the oscillator bank. With a running sequence the
// override holds until the sequence emits a different value, so a sequence
// repeating one note keeps it.
func (c *Controller) SetBaseFrequency(hz float32) error {
	if !(hz > 0) || math.IsInf(float64(hz), 0) {
		return fmt.Errorf("base frequency must be positive, got %v", hz)
	}
	c.mu.Lock()
	c.baseFrequency = hz
	c.mu.Unlock()
	if !c.voice.PushBank(intwt.SetBaseFrequency(hz)) {
		c.drop("oscillator")
	}
	return nil
}

// SetMultiplier changes the frequency ratio of oscillator index.
func (c *Controller) SetMultiplier(index int, m float32) {
	if !c.voice.PushBank(intwt.SetMultiplier(index, m)) {
		c.drop("oscillator")
	}
}

// SetSequence replaces the step sequence and restarts it. The slice is
// copied.
func (c *Controller) SetSequence(steps []intseq.Step) {
	owned := append([]intseq.Step(nil), steps...)
	if !c.voice.PushSequencer(intseq.SetSteps(owned)) {
		c.drop("sequencer")
	}
}

// RestartSequence jumps back to the first step.
func (c *Controller) RestartSequence() {
	if !c.voice.PushSequencer(intseq.RestartPatch()) {
		c.drop("sequencer")
	}
}

// Cutoff returns the last requested cutoff.
func (c *Controller) Cutoff() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cutoff
}

// Gain returns the last requested filter gain.
func (c *Controller) Gain() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gain
}

func (c *Controller) FilterEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filterEnabled
}

func (c *Controller) OscillatorEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.oscEnabled
}

func (c *Controller) BaseFrequency() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseFrequency
}

// Dropped returns how many patches were lost to a full queue.
func (c *Controller) Dropped() uint64 { return c.dropped.Load() }

// Loops returns how many times the sequence has wrapped around.
func (c *Controller) Loops() uint64 { return c.voice.Loops() }

// Step returns the index of the sequence step currently playing.
func (c *Controller) Step() int { return c.voice.Step() }

// FramesRendered returns the number of frames the voice has produced.
func (c *Controller) FramesRendered() uint64 { return c.voice.FramesRendered() }

// source adapts the voice to the audio stream and ends it after limit
// frames when limit is positive.
type source struct {
	voice     *intvoice.Voice
	sampleTap func([]float32)
	limit     uint64
}

func (s *source) Process(dst []float32) {
	s.voice.Process(dst)
	if s.sampleTap != nil {
		s.sampleTap(dst)
	}
}

func (s *source) Finished() bool {
	return s.limit > 0 && s.voice.FramesRendered() >= s.limit
}

// Player plays one voice through the default audio device.
type Player struct {
	*Controller

	mu         sync.Mutex
	sampleRate int
	cfg        playerConfig
	src        *source
	audio      *intaudio.Player
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	v := intvoice.New(cfg.voice, intnode.NewStreamInfo(sampleRate, cfg.blockFrames))
	src := &source{voice: v, sampleTap: cfg.sampleTap}
	if cfg.duration > 0 {
		src.limit = uint64(cfg.duration.Seconds() * float64(sampleRate))
	}
	return &Player{
		Controller: newController(v, cfg.voice, cfg.logger),
		sampleRate: sampleRate,
		cfg:        cfg,
		src:        src,
	}, nil
}

func (p *Player) SampleRate() int { return p.sampleRate }

// Play opens the audio stream on first use and starts or resumes it.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		backend, err := intaudio.NewPlayer(p.sampleRate, p.src, p.cfg.blockFrames, p.cfg.bufferSize)
		if err != nil {
			return fmt.Errorf("wavesynth: %w", err)
		}
		p.audio = backend
	}
	p.audio.Play()
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

// Stop closes the stream. A later Play opens a new one and the voice
// continues where it left off.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	return err
}

// Err reports a fatal stream fault, or nil.
func (p *Player) Err() error {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return nil
	}
	return a.Err()
}

// Finished reports that a WithDuration limit was reached and the stream
// drained.
func (p *Player) Finished() bool {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	return a != nil && a.Finished()
}

// Monitor polls the stream every interval until ctx is done, playback
// finishes, or the stream faults. Only the fault is returned as an error.
func (p *Player) Monitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := p.Err(); err != nil {
			return err
		}
		if p.Finished() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// PlaybackPosition returns the current output position of the audio driver
// in frames, i.e. what the listener actually hears right now.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	pos := a.Position()
	return int64(pos.Seconds() * float64(p.sampleRate))
}
