package epn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjbishop/rtpmidi/internal/midi"
)

// TestNRPNReassembly covers invariant 5 and scenario S5: feeding
// 99=H, 98=L, 6=V_hi, 38=V_lo on a channel yields exactly one NRPN event.
func TestNRPNReassembly(t *testing.T) {
	var m Machine

	_, ok := m.Handle(3, 99, 0x10)
	assert.False(t, ok)
	_, ok = m.Handle(3, 98, 0x20)
	assert.False(t, ok)
	_, ok = m.Handle(3, 6, 0x40)
	assert.False(t, ok)
	ev, ok := m.Handle(3, 38, 0x01)
	require.True(t, ok)

	assert.Equal(t, uint8(3), ev.Channel)
	assert.Equal(t, midi.EventNRPN, ev.Type)
	assert.Equal(t, uint16(0x0820), ev.Control)
	assert.InDelta(t, float64(0x2001)/16383.0, ev.Value, 1e-9)
}

// TestFamilySwitchToRPN covers invariant 5's second clause: after an NRPN
// param-hi/lo pair, switching to an RPN sequence yields only an RPN event.
func TestFamilySwitchToRPN(t *testing.T) {
	var m Machine

	_, ok := m.Handle(0, 99, 0x01) // NRPN hi
	assert.False(t, ok)
	_, ok = m.Handle(0, 98, 0x02) // NRPN lo
	assert.False(t, ok)

	_, ok = m.Handle(0, 101, 127) // RPN family switch, null value
	assert.False(t, ok)
	_, ok = m.Handle(0, 101, 0x00) // RPN hi
	assert.False(t, ok)
	_, ok = m.Handle(0, 100, 0x05) // RPN lo
	assert.False(t, ok)
	_, ok = m.Handle(0, 6, 0x10)
	assert.False(t, ok)
	ev, ok := m.Handle(0, 38, 0x00)
	require.True(t, ok)
	assert.Equal(t, midi.EventRPN, ev.Type)
}

func TestValueLoWithoutHiIsIgnored(t *testing.T) {
	var m Machine
	_, ok := m.Handle(1, 99, 1)
	assert.False(t, ok)
	_, ok = m.Handle(1, 98, 1)
	assert.False(t, ok)
	_, ok = m.Handle(1, 38, 1) // no value-hi yet
	assert.False(t, ok)
}

func TestValueHiWithoutBothParamHalvesIgnored(t *testing.T) {
	var m Machine
	_, ok := m.Handle(2, 99, 1) // only param-hi latched
	assert.False(t, ok)
	_, ok = m.Handle(2, 6, 1)
	assert.False(t, ok, "value-hi must be ignored until both param halves are valid")
}

func TestChannelsAreIndependent(t *testing.T) {
	var m Machine
	m.Handle(0, 99, 1)
	m.Handle(0, 98, 1)
	_, ok := m.Handle(1, 6, 1) // different channel, no param latched
	assert.False(t, ok)
}
