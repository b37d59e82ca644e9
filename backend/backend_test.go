package backend

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_MDNSName(t *testing.T) {
	b := New(zerolog.Nop())
	require.NoError(t, b.Configure("mdns-name", "studio.local"))
	assert.Equal(t, "studio.local", b.mdnsName)

	b2 := New(zerolog.Nop())
	assert.Error(t, b2.Configure("mdns-name", ""), "empty name must be rejected")
	assert.Error(t, b2.Configure("mdns-name", "-bad.local"), "a name violating RFC 1035 labels must be rejected")
}

func TestConfigure_MDNSNameAlreadySet(t *testing.T) {
	b := New(zerolog.Nop())
	require.NoError(t, b.Configure("mdns-name", "studio.local"))
	assert.Error(t, b.Configure("mdns-name", "other.local"))
}

func TestConfigure_Interface(t *testing.T) {
	b := New(zerolog.Nop())
	require.NoError(t, b.Configure("mdns-interface", "eth0"))
	require.NoError(t, b.Configure("mdns-interface", "eth1"))
	assert.Equal(t, []string{"eth0", "eth1"}, b.ifaceFilter)
}

func TestConfigure_Detect(t *testing.T) {
	b := New(zerolog.Nop())
	require.NoError(t, b.Configure("detect", "off"))
	assert.False(t, b.detect)
	require.NoError(t, b.Configure("detect", "true"))
	assert.True(t, b.detect)
	assert.Error(t, b.Configure("detect", "sideways"))
}

func TestConfigure_UnknownOption(t *testing.T) {
	b := New(zerolog.Nop())
	assert.Error(t, b.Configure("bogus", "value"))
}
