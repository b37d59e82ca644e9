package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	cases := []struct {
		spec    string
		want    ChannelID
		wantErr bool
	}{
		{"ch1.cc7", ChannelID{Type: EventCC, Channel: 1, Control: 7}, false},
		{"ch0.note_off", ChannelID{Type: EventNoteOff, Channel: 0, Control: 0}, false},
		{"ch0.note", ChannelID{Type: EventNote, Channel: 0, Control: 0}, false},
		{"ch2.rpn1", ChannelID{Type: EventRPN, Channel: 2, Control: 1}, false},
		{"ch15.pitch", ChannelID{Type: EventPitchbend, Channel: 15, Control: 0}, false},
		{"ch16.cc0", ChannelID{}, true},
		{"chX.cc0", ChannelID{}, true},
		{"ch1.bogus", ChannelID{}, true},
		{"ch1", ChannelID{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.spec, func(t *testing.T) {
			got, err := ParseSpec(tc.spec)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestChannelIDPackRoundTrip(t *testing.T) {
	id := ChannelID{Type: EventCC, Channel: 9, Control: 1000}
	assert.Equal(t, id, Unpack(id.Pack()))
}

func TestChannelIDPackIsEightBytes(t *testing.T) {
	// compile-time-ish assertion: the packed form must fit the 64-bit
	// {type:8, channel:8, control:16, reserved:32} layout from spec.md §6.
	id := ChannelID{Type: 0xFF, Channel: 0xFF, Control: 0xFFFF}
	packed := id.Pack()
	assert.Equal(t, uint64(0xFFFFFFFF00000000), packed)
}
