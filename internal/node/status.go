package node

// MaxChannels is the widest channel layout a SilenceMask can describe.
const MaxChannels = 64

// SilenceMask has bit i set when channel i holds only zeros.
type SilenceMask uint64

const (
	NoneSilent   SilenceMask = 0
	MonoSilent   SilenceMask = 0b1
	StereoSilent SilenceMask = 0b11
)

// IsChannelSilent reports whether channel i is flagged silent.
func (m SilenceMask) IsChannelSilent(i int) bool {
	if i < 0 || i >= MaxChannels {
		return false
	}
	return m&(1<<uint(i)) != 0
}

// AllChannelsSilent reports whether the first n channels are flagged silent.
func (m SilenceMask) AllChannelsSilent(n int) bool {
	if n <= 0 {
		return true
	}
	if n > MaxChannels {
		n = MaxChannels
	}
	want := SilenceMask(1)<<uint(n) - 1
	return m&want == want
}

// SetChannel flags or clears channel i.
func (m *SilenceMask) SetChannel(i int, silent bool) {
	if i < 0 || i >= MaxChannels {
		return
	}
	if silent {
		*m |= 1 << uint(i)
	} else {
		*m &^= 1 << uint(i)
	}
}

// StatusKind tells the host what a processor did with its outputs.
type StatusKind int

const (
	// Bypass means the outputs were not touched; the host passes inputs through.
	Bypass StatusKind = iota
	// ClearAllOutputs means every output is silent; the host zeroes them.
	ClearAllOutputs
	// OutputsModified means the outputs were written; see Status.Silence.
	OutputsModified
)

func (k StatusKind) String() string {
	switch k {
	case Bypass:
		return "bypass"
	case ClearAllOutputs:
		return "clear"
	case OutputsModified:
		return "modified"
	default:
		return "unknown"
	}
}

// Status is returned once per processed block.
type Status struct {
	Kind    StatusKind
	Silence SilenceMask
}

func BypassStatus() Status { return Status{Kind: Bypass} }

func ClearStatus() Status { return Status{Kind: ClearAllOutputs} }

// Modified reports written outputs with the given silence mask.
func Modified(silence SilenceMask) Status {
	return Status{Kind: OutputsModified, Silence: silence}
}

// Apply resolves a status into the outputs the way the host graph would:
// bypass copies inputs across (silence where an input is missing), clear
// zeroes every output, modified leaves the outputs alone.
func Apply(st Status, inputs, outputs [][]float32, frames int) {
	switch st.Kind {
	case Bypass:
		for ch, out := range outputs {
			out = out[:frames]
			if ch < len(inputs) && inputs[ch] != nil {
				copy(out, inputs[ch][:frames])
				continue
			}
			clear(out)
		}
	case ClearAllOutputs:
		for _, out := range outputs {
			clear(out[:frames])
		}
	}
}
