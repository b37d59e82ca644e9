package applemidi

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjbishop/rtpmidi/internal/peer"
)

func TestPeerMatch_LiteralMatch(t *testing.T) {
	var reg peer.Registry
	patterns := []string{"studio-session"}

	invites := PeerMatch(&reg, &patterns, "studio-session", net.ParseIP("10.0.0.9"), 5004, 1, "a")
	require.Len(t, invites, 1)
	assert.Equal(t, 5004, invites[0].Dest.Port)

	idx := reg.Find(&net.UDPAddr{IP: net.ParseIP("10.0.0.9"), Port: 5005})
	require.NotEqual(t, -1, idx)
	assert.True(t, reg.All()[idx].Learned)
	assert.False(t, reg.All()[idx].Connected)
}

func TestPeerMatch_WildcardClonesLiteral(t *testing.T) {
	var reg peer.Registry
	patterns := []string{"*"}

	invites := PeerMatch(&reg, &patterns, "anything", net.ParseIP("10.0.0.9"), 5004, 1, "a")
	require.Len(t, invites, 1)
	assert.Contains(t, patterns, "anything")
	assert.Contains(t, patterns, "*")
}

func TestPeerMatch_ConnectedPeerNotReinvited(t *testing.T) {
	var reg peer.Registry
	patterns := []string{"studio-session"}
	reg.Push(&net.UDPAddr{IP: net.ParseIP("10.0.0.9"), Port: 5005}, true, true, 0)

	invites := PeerMatch(&reg, &patterns, "studio-session", net.ParseIP("10.0.0.9"), 5004, 1, "a")
	assert.Empty(t, invites)
}

func TestPeerMatch_NoMatchNoWildcard(t *testing.T) {
	var reg peer.Registry
	patterns := []string{"other-session"}

	invites := PeerMatch(&reg, &patterns, "studio-session", net.ParseIP("10.0.0.9"), 5004, 1, "a")
	assert.Empty(t, invites)
}
