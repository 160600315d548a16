package wavesynth

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	intnode "github.com/cbegin/wavesynth-go/internal/node"
	intvoice "github.com/cbegin/wavesynth-go/internal/voice"
)

// Renderer runs a voice without an audio device. Patches pushed through the
// embedded Controller take effect at the next block, as in real time.
type Renderer struct {
	*Controller
	sampleRate int
}

func NewRenderer(sampleRate int, opts ...PlayerOption) (*Renderer, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	v := intvoice.New(cfg.voice, intnode.NewStreamInfo(sampleRate, cfg.blockFrames))
	return &Renderer{
		Controller: newController(v, cfg.voice, cfg.logger),
		sampleRate: sampleRate,
	}, nil
}

func (r *Renderer) SampleRate() int { return r.sampleRate }

// Process fills dst with the next interleaved stereo frames.
func (r *Renderer) Process(dst []float32) {
	r.voice.Process(dst)
}

// Render returns the next frames frames as interleaved stereo.
func (r *Renderer) Render(frames int) []float32 {
	if frames < 0 {
		frames = 0
	}
	out := make([]float32, frames*intvoice.Channels)
	r.voice.Process(out)
	return out
}

// RenderSamples renders seconds of the voice described by params as
// interleaved stereo.
func RenderSamples(params intvoice.Params, sampleRate int, seconds float64) ([]float32, error) {
	r, err := NewRenderer(sampleRate, WithVoiceParams(params), WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		return nil, err
	}
	return r.Render(int(math.Round(float64(sampleRate) * seconds))), nil
}

// WAVBitDepth is the PCM sample size written by WriteWAV.
const WAVBitDepth = 16

const wavFormatPCM = 1

// WriteWAV encodes interleaved float samples as 16-bit PCM. Samples are
// clipped to [-1, 1].
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate, channels int) error {
	if channels <= 0 {
		return errors.New("channels must be positive")
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("sample count %d is not a multiple of %d channels", len(samples), channels)
	}
	enc := wav.NewEncoder(w, sampleRate, WAVBitDepth, channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: WAVBitDepth,
	}
	const scale = 1<<(WAVBitDepth-1) - 1
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		buf.Data[i] = int(math.Round(v * scale))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WriteWAVFile writes samples to path, replacing any existing file.
func WriteWAVFile(path string, samples []float32, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, samples, sampleRate, channels); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadWAV decodes a PCM WAV stream into interleaved floats in [-1, 1].
func ReadWAV(r io.ReadSeeker) (samples []float32, sampleRate, channels int, err error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, 0, errors.New("not a valid wav stream")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read wav: %w", err)
	}
	bits := int(dec.BitDepth)
	if bits == 0 {
		return nil, 0, 0, errors.New("wav stream has no bit depth")
	}
	scale := float64(int(1)<<(bits-1) - 1)
	samples = make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(float64(v) / scale)
	}
	return samples, int(dec.SampleRate), int(dec.NumChans), nil
}
