package peer

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: port}
}

// TestPushDedup covers invariant 7: pushing the same (addr, len) twice
// leaves peers length unchanged and refreshes Connected.
func TestPushDedup(t *testing.T) {
	var r Registry
	idx1 := r.Push(addr(40000), true, false, -1)
	idx2 := r.Push(addr(40000), true, true, -1)

	assert.Equal(t, idx1, idx2)
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.All()[idx1].Connected)
}

func TestPushDistinctAddressesGrowRegistry(t *testing.T) {
	var r Registry
	r.Push(addr(40000), true, true, -1)
	r.Push(addr(40001), true, true, -1)
	assert.Equal(t, 2, r.Len())
}

func TestLeave_LearnedDeactivates(t *testing.T) {
	var r Registry
	idx := r.Push(addr(40000), true, true, -1)
	r.Leave(idx)
	assert.False(t, r.All()[idx].Active)
}

func TestLeave_ConfiguredOnlyDisconnects(t *testing.T) {
	var r Registry
	idx := r.Push(addr(40000), false, true, -1)
	r.Leave(idx)
	assert.True(t, r.All()[idx].Active)
	assert.False(t, r.All()[idx].Connected)
}

func TestSendableRequiresActiveAndConnected(t *testing.T) {
	p := Peer{Active: true, Connected: false}
	assert.False(t, p.Sendable())
	p.Connected = true
	assert.True(t, p.Sendable())
}

func TestExpireSilent(t *testing.T) {
	var r Registry
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	restore := now
	now = func() time.Time { return fixed }
	defer func() { now = restore }()

	idx := r.Push(addr(40000), true, true, -1)
	require.True(t, r.All()[idx].Active)

	now = func() time.Time { return fixed.Add(31 * time.Second) }
	r.ExpireSilent(30 * time.Second)
	assert.False(t, r.All()[idx].Active)
}

func TestExpireSilent_DoesNotTouchConfiguredPeers(t *testing.T) {
	var r Registry
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	restore := now
	now = func() time.Time { return fixed }
	defer func() { now = restore }()

	idx := r.Push(addr(40000), false, true, -1)
	now = func() time.Time { return fixed.Add(time.Hour) }
	r.ExpireSilent(30 * time.Second)
	assert.True(t, r.All()[idx].Active)
}
