package node

import "testing"

func TestSilenceMaskChannels(t *testing.T) {
	var m SilenceMask
	m.SetChannel(1, true)
	if m.IsChannelSilent(0) || !m.IsChannelSilent(1) {
		t.Fatalf("unexpected mask %b", m)
	}
	if m.AllChannelsSilent(2) {
		t.Fatalf("mask %b should not report both channels silent", m)
	}
	m.SetChannel(0, true)
	if !m.AllChannelsSilent(2) || m != StereoSilent {
		t.Fatalf("mask %b should be stereo silent", m)
	}
	m.SetChannel(1, false)
	if m != MonoSilent {
		t.Fatalf("mask %b, want %b", m, MonoSilent)
	}
	if !(^SilenceMask(0)).AllChannelsSilent(MaxChannels) {
		t.Fatal("full mask should report all channels silent")
	}
}

func TestApplyStatus(t *testing.T) {
	in := [][]float32{{1, 2, 3}, nil}
	cases := []struct {
		name string
		st   Status
		want [2][]float32
	}{
		{"bypass", BypassStatus(), [2][]float32{{1, 2, 3}, {0, 0, 0}}},
		{"clear", ClearStatus(), [2][]float32{{0, 0, 0}, {0, 0, 0}}},
		{"modified", Modified(NoneSilent), [2][]float32{{9, 9, 9}, {9, 9, 9}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := [][]float32{{9, 9, 9}, {9, 9, 9}}
			Apply(tc.st, in, out, 3)
			for ch := range out {
				for i, v := range out[ch] {
					if v != tc.want[ch][i] {
						t.Fatalf("out[%d][%d] = %v, want %v", ch, i, v, tc.want[ch][i])
					}
				}
			}
		})
	}
}
