package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// ErrStreamStopped reports that the output stream stopped while it was
// supposed to be playing. It is not recoverable.
var ErrStreamStopped = errors.New("audio: stream stopped unexpectedly")

// BytesPerFrame is the size of one interleaved stereo float32 frame.
const BytesPerFrame = 8

type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// StreamReader converts a SampleSource into little-endian float32 stereo
// bytes. Read is called from a single audio goroutine.
type StreamReader struct {
	source SampleSource
	buf    []float32
	done   atomic.Bool
}

// NewStreamReader preallocates room for maxFrames frames per Read. Larger
// reads grow the buffer once.
func NewStreamReader(source SampleSource, maxFrames int) *StreamReader {
	if maxFrames < 0 {
		maxFrames = 0
	}
	return &StreamReader{source: source, buf: make([]float32, maxFrames*2)}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	if r.done.Load() {
		return 0, io.EOF
	}
	frames := len(p) / BytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	buf := r.buf[:need]
	r.source.Process(buf)
	for i, s := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	n := frames * BytesPerFrame
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		r.done.Store(true)
		return n, io.EOF
	}
	return n, nil
}

// Finished reports whether the source signalled its end.
func (r *StreamReader) Finished() bool { return r.done.Load() }

func (r *StreamReader) Close() error { return nil }

// Player streams a SampleSource to the shared ebiten audio context.
type Player struct {
	player     *ebitaudio.Player
	reader     *StreamReader
	sampleRate int

	mu      sync.Mutex
	started bool
	paused  bool
	closed  bool
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// NewPlayer opens a stream at sampleRate. bufferSize sets the device
// buffer length; zero keeps ebiten's default.
func NewPlayer(sampleRate int, source SampleSource, maxFrames int, bufferSize time.Duration) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source, maxFrames)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("audio: open player: %w", err)
	}
	if bufferSize > 0 {
		pl.SetBufferSize(bufferSize)
	}
	return &Player{
		player:     pl,
		reader:     reader,
		sampleRate: sampleRate,
	}, nil
}

func (p *Player) SampleRate() int { return p.sampleRate }

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.started = true
	p.paused = false
	p.player.Play()
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.paused = true
	p.player.Pause()
}

func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Finished reports that a FinishingSource ran out and the stream drained.
func (p *Player) Finished() bool {
	return p.reader.Finished() && !p.player.IsPlaying()
}

// Err returns ErrStreamStopped when the stream is no longer playing although
// it was started, not paused and its source has not finished.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.paused || p.closed {
		return nil
	}
	if p.player.IsPlaying() || p.reader.Finished() {
		return nil
	}
	return ErrStreamStopped
}

// Position returns the current playback position (what the listener actually hears).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("audio: close player: %w", err)
	}
	return p.reader.Close()
}
