package backend

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjbishop/rtpmidi/internal/protocol"
)

func TestChannelIDRoundTrips(t *testing.T) {
	assert.True(t, channelIDRoundTrips())
}

func TestStart_DirectMode_BindsDataSocket(t *testing.T) {
	b := New(zerolog.Nop())
	inst := b.AddInstance("direct")
	require.NoError(t, inst.ConfigureInstance("mode", "direct"))
	require.NoError(t, inst.ConfigureInstance("bind", "127.0.0.1:0"))

	require.NoError(t, b.Start())
	defer b.Shutdown()

	assert.NotZero(t, inst.SSRC())
	assert.NotNil(t, inst.dataSock)
	assert.Nil(t, inst.controlSock)
	assert.NotZero(t, inst.dataSock.Port())
}

func TestStart_AppleMode_ControlSocketIsDataMinusOne(t *testing.T) {
	b := New(zerolog.Nop())
	inst := b.AddInstance("apple")
	require.NoError(t, inst.ConfigureInstance("mode", "apple"))
	require.NoError(t, inst.ConfigureInstance("bind", "127.0.0.1:0"))

	require.NoError(t, b.Start())
	defer b.Shutdown()

	require.NotNil(t, inst.dataSock)
	require.NotNil(t, inst.controlSock)
	assert.Equal(t, inst.dataSock.Port()-1, inst.controlSock.Port())
}

func TestStart_PreservesExplicitSSRC(t *testing.T) {
	b := New(zerolog.Nop())
	inst := b.AddInstance("direct")
	require.NoError(t, inst.ConfigureInstance("mode", "direct"))
	require.NoError(t, inst.ConfigureInstance("bind", "127.0.0.1:0"))
	require.NoError(t, inst.ConfigureInstance("ssrc", "0xCAFEBABE"))

	require.NoError(t, b.Start())
	defer b.Shutdown()

	assert.Equal(t, uint32(0xCAFEBABE), inst.SSRC())
}

func TestStart_RejectsUnconfiguredInstance(t *testing.T) {
	b := New(zerolog.Nop())
	b.AddInstance("nothing-set")

	err := b.Start()
	assert.Error(t, err)
}

func TestStart_RejectsDoubleStart(t *testing.T) {
	b := New(zerolog.Nop())
	inst := b.AddInstance("direct")
	require.NoError(t, inst.ConfigureInstance("mode", "direct"))
	require.NoError(t, inst.ConfigureInstance("bind", "127.0.0.1:0"))

	require.NoError(t, b.Start())
	defer b.Shutdown()

	assert.Error(t, b.Start())
}

func TestShutdown_ReleasesSocketsAndAllowsRestart(t *testing.T) {
	b := New(zerolog.Nop())
	inst := b.AddInstance("direct")
	require.NoError(t, inst.ConfigureInstance("mode", "direct"))
	require.NoError(t, inst.ConfigureInstance("bind", "127.0.0.1:0"))

	require.NoError(t, b.Start())
	b.Shutdown()

	assert.Nil(t, inst.dataSock)
	assert.False(t, b.started)

	// A fresh Start after Shutdown must succeed (sockets are rebound).
	require.NoError(t, b.Start())
	b.Shutdown()
}

func TestInterval_ZeroWhenDue(t *testing.T) {
	b := New(zerolog.Nop())

	orig := now
	defer func() { now = orig }()

	fixed := time.Unix(1000, 0)
	now = func() time.Time { return fixed }

	b.lastService = fixed.Add(-protocol.ServiceInterval)
	assert.Equal(t, time.Duration(0), b.Interval())
}

func TestInterval_RemainderWhenNotDue(t *testing.T) {
	b := New(zerolog.Nop())

	orig := now
	defer func() { now = orig }()

	fixed := time.Unix(2000, 0)
	now = func() time.Time { return fixed }

	b.lastService = fixed.Add(-200 * time.Millisecond)
	assert.Equal(t, protocol.ServiceInterval-200*time.Millisecond, b.Interval())
}
