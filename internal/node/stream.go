package node

// DefaultMaxBlockFrames bounds the frames a processor sees in one call.
const DefaultMaxBlockFrames = 1024

// StreamInfo describes the running stream. It changes only between blocks,
// when the host (re)configures its output.
type StreamInfo struct {
	SampleRate     int
	MaxBlockFrames int
}

// NewStreamInfo fills in defaults for non-positive fields.
func NewStreamInfo(sampleRate, maxBlockFrames int) StreamInfo {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if maxBlockFrames <= 0 {
		maxBlockFrames = DefaultMaxBlockFrames
	}
	return StreamInfo{SampleRate: sampleRate, MaxBlockFrames: maxBlockFrames}
}

// SampleRateRecip returns 1/SampleRate.
func (s StreamInfo) SampleRateRecip() float32 {
	return float32(1.0 / float64(s.SampleRate))
}
