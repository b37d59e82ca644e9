package rtperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMalformedPacketError(t *testing.T) {
	cause := fmt.Errorf("short read")
	err := &MalformedPacketError{Operation: "parse command section", Offset: 4, Message: "truncated event", Err: cause}

	assert.Contains(t, err.Error(), "parse command section")
	assert.Contains(t, err.Error(), "offset 4")
	assert.Contains(t, err.Error(), "truncated event")
	assert.ErrorIs(t, err, cause)
}

func TestMalformedPacketError_NoCause(t *testing.T) {
	err := &MalformedPacketError{Operation: "decode name", Offset: 12, Message: "pointer out of range"}
	assert.NotContains(t, err.Error(), "<nil>")
	assert.Contains(t, err.Error(), "pointer out of range")
}

func TestTransmitError(t *testing.T) {
	cause := fmt.Errorf("network unreachable")
	err := &TransmitError{Operation: "send invite", Err: cause, Details: "control socket"}
	assert.Contains(t, err.Error(), "send invite")
	assert.Contains(t, err.Error(), "control socket")
	assert.True(t, errors.Is(err, cause))
}

func TestAllocationError(t *testing.T) {
	cause := fmt.Errorf("out of memory")
	err := &AllocationError{Operation: "grow peer list", Err: cause}
	assert.Contains(t, err.Error(), "grow peer list")
	assert.ErrorIs(t, err, cause)
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Option: "mode", Value: "bogus", Message: "unknown instance mode"}
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "bogus")
	assert.Contains(t, err.Error(), "unknown instance mode")
}

func TestFatalError(t *testing.T) {
	cause := fmt.Errorf("address already in use")
	err := &FatalError{Operation: "bind data socket", Err: cause}
	assert.Contains(t, err.Error(), "bind data socket")
	assert.ErrorIs(t, err, cause)
}
