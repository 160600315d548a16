package smoother

import "github.com/cbegin/wavesynth-go/internal/node"

// Buffer is a Param that renders a whole block of per-frame values into
// storage sized once from the stream's maximum block length.
type Buffer struct {
	Param
	buf []float32
	// frames of buf already holding the settled value
	settled int
}

func NewBuffer(value float32, cfg Config, info node.StreamInfo) Buffer {
	return Buffer{
		Param: NewParam(value, cfg, info.SampleRate),
		buf:   make([]float32, info.MaxBlockFrames),
	}
}

// Cap returns the largest block Fill can serve.
func (b *Buffer) Cap() int { return len(b.buf) }

// SetValue starts a ramp toward v.
func (b *Buffer) SetValue(v float32) {
	b.Param.SetValue(v)
	b.settled = 0
}

// Reset jumps to the target.
func (b *Buffer) Reset() {
	b.Param.Reset()
	b.settled = 0
}

// Fill returns one smoothed value per frame for the next frames frames,
// advancing the ramp. frames is clamped to Cap. The slice is reused by the
// next call.
func (b *Buffer) Fill(frames int) []float32 {
	if frames > len(b.buf) {
		frames = len(b.buf)
	}
	if !b.IsSmoothing() {
		if b.settled < frames {
			v := b.Value()
			for i := b.settled; i < frames; i++ {
				b.buf[i] = v
			}
			b.settled = frames
		}
		return b.buf[:frames]
	}
	for i := 0; i < frames; i++ {
		b.buf[i] = b.Next()
	}
	b.settled = 0
	return b.buf[:frames]
}

// UpdateStream applies a new stream configuration. It may allocate and must
// not run on the audio goroutine.
func (b *Buffer) UpdateStream(info node.StreamInfo) {
	if info.MaxBlockFrames != len(b.buf) {
		b.buf = make([]float32, info.MaxBlockFrames)
		b.settled = 0
	}
	b.Param.UpdateSampleRate(info.SampleRate)
}
