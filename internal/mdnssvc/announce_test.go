package mdnssvc

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildAnnounce_S6 covers scenario S6 from spec.md §8: a single-address
// announce packet must begin with the exact 12-byte header
// 00 00 84 00 00 00 00 04 00 00 00 01 and contain, in order, SRV/TXT/PTR/PTR/A.
func TestBuildAnnounce_S6(t *testing.T) {
	packet, err := BuildAnnounce("host", "sess", 5004, []net.IP{net.ParseIP("192.0.2.7")}, nil)
	require.NoError(t, err)

	wantHeader := []byte{0x00, 0x00, 0x84, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x01}
	assert.Equal(t, wantHeader, packet[:12])

	announcements, err := ParseAnnounce(packet, "not-host")
	require.NoError(t, err)
	require.Len(t, announcements, 1)
	assert.Equal(t, "sess", announcements[0].SessionName)
	assert.Equal(t, 5004, announcements[0].ControlPort)
}

// TestParseAnnounce_SelfFiltered verifies the loopback self-filter: when the
// SRV target matches our own mdnsName, the record is not reported.
func TestParseAnnounce_SelfFiltered(t *testing.T) {
	packet, err := BuildAnnounce("host", "sess", 5004, []net.IP{net.ParseIP("192.0.2.7")}, nil)
	require.NoError(t, err)

	announcements, err := ParseAnnounce(packet, "host")
	require.NoError(t, err)
	assert.Empty(t, announcements)
}

func TestBuildDetach(t *testing.T) {
	packet, err := BuildDetach("sess")
	require.NoError(t, err)
	wantHeader := []byte{0x00, 0x00, 0x84, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}
	assert.Equal(t, wantHeader, packet[:12])
}

func TestBuildAnnounce_MultipleAddresses(t *testing.T) {
	packet, err := BuildAnnounce("host", "sess", 5004,
		[]net.IP{net.ParseIP("192.0.2.7"), net.ParseIP("192.0.2.8")}, nil)
	require.NoError(t, err)

	announcements, err := ParseAnnounce(packet, "other")
	require.NoError(t, err)
	require.Len(t, announcements, 1)
	assert.Equal(t, "sess", announcements[0].SessionName)
}
