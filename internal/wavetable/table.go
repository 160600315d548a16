package wavetable

import (
	"fmt"
	"math"
	"strings"
)

const twoPi = math.Pi * 2

// Resolution is the number of samples in one table cycle.
const Resolution = 64

// Kind selects the waveform a Sampler reads.
type Kind int

const (
	Sine Kind = iota
	Square
	Triangle
	Saw
	numKinds
)

func (k Kind) String() string {
	switch k {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Saw:
		return "saw"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts the names returned by String.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin":
		return Sine, nil
	case "square", "sqr":
		return Square, nil
	case "triangle", "tri":
		return Triangle, nil
	case "saw":
		return Saw, nil
	default:
		return 0, fmt.Errorf("unknown waveform %q (expected sine|square|triangle|saw)", name)
	}
}

// Table holds one cycle of a waveform in [-1, 1].
type Table [Resolution]float32

// Build generates the table for kind. Unknown kinds produce a sine.
func Build(kind Kind) *Table {
	t := new(Table)
	const half = Resolution / 2
	switch kind {
	case Square:
		for i := range t {
			if i < half {
				t[i] = -1
			} else {
				t[i] = 1
			}
		}
	case Triangle:
		// rise from -1 to 1 over the first half, then mirror
		slope := 2.0 / float64(half)
		for i := 0; i <= half; i++ {
			t[i] = float32(-1 + float64(i)*slope)
		}
		for i := half + 1; i < Resolution; i++ {
			t[i] = t[Resolution-i]
		}
	case Saw:
		slope := 2.0 / float64(Resolution)
		for i := range t {
			t[i] = float32(-1 + float64(i)*slope)
		}
	default:
		for i := range t {
			t[i] = float32(math.Sin(twoPi * float64(i) / float64(Resolution)))
		}
	}
	return t
}
