package dnswire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNameRoundTrip covers invariant 1 from spec.md §8: for every sequence
// of labels each <=63 bytes whose total encoded length <=255,
// decode(encode(name)) == name.
func TestNameRoundTrip(t *testing.T) {
	cases := []string{
		"host.local.",
		"_apple-midi._udp.local.",
		"a.b.c.local.",
		".",
	}
	for _, name := range cases {
		t.Run(name, func(t *testing.T) {
			encoded, err := EncodeName(name)
			require.NoError(t, err)

			decoded, consumed, err := DecodeName(encoded, 0)
			require.NoError(t, err)
			assert.Equal(t, len(encoded), consumed)
			assert.Equal(t, name, decoded)
		})
	}
}

func TestEncodeName_RejectsOversizeLabel(t *testing.T) {
	_, err := EncodeName("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.local")
	assert.Error(t, err)
}

// TestDecodeName_CompressionPointer exercises following a single backref
// pointer into an earlier part of the buffer, as used throughout the mDNS
// announce packet (spec.md §4.2 / S6).
func TestDecodeName_CompressionPointer(t *testing.T) {
	base, err := EncodeName("host.local.")
	require.NoError(t, err)

	ptr := Pointer(0)
	msg := append(append([]byte{}, base...), ptr[:]...)

	name, consumed, err := DecodeName(msg, len(base))
	require.NoError(t, err)
	assert.Equal(t, "host.local.", name)
	assert.Equal(t, 2, consumed, "consumed must stop at the pointer, not follow it")
}

// TestDecodeName_RejectsPointerCycle covers invariant 2: no infinite
// pointer loop hangs decoding.
func TestDecodeName_RejectsPointerCycle(t *testing.T) {
	msg := make([]byte, 4)
	ptr := Pointer(0)
	copy(msg[0:2], ptr[:])
	copy(msg[2:4], ptr[:])

	_, _, err := DecodeName(msg, 2)
	assert.Error(t, err)
}

func TestDecodeName_RejectsPointerPastPacket(t *testing.T) {
	msg := []byte{0xC0, 0xFF}
	_, _, err := DecodeName(msg, 0)
	assert.Error(t, err)
}

func TestDecodeName_RejectsLabelPastPacket(t *testing.T) {
	msg := []byte{10, 'a', 'b'}
	_, _, err := DecodeName(msg, 0)
	assert.Error(t, err)
}

func TestEncodeOwnerName(t *testing.T) {
	domain, err := EncodeName("_apple-midi._udp.local.")
	require.NoError(t, err)

	owner, err := EncodeOwnerName("sess", "_apple-midi._udp.local.")
	require.NoError(t, err)

	name, consumed, err := DecodeName(owner, 0)
	require.NoError(t, err)
	assert.Equal(t, "sess._apple-midi._udp.local.", name)
	assert.Equal(t, len(owner), consumed)
	assert.Equal(t, len(owner), 1+len("sess")+len(domain))
}
