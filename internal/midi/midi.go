// Package midi holds the MIDI channel-voice status-byte table used by the
// RTP-MIDI command-section decoder to size each event without a type tag on
// the wire.
package midi

// Status bytes for MIDI channel voice messages (channel bits masked off).
const (
	StatusNoteOff         byte = 0x80
	StatusNoteOn          byte = 0x90
	StatusPolyAftertouch  byte = 0xA0
	StatusControlChange   byte = 0xB0
	StatusProgramChange   byte = 0xC0
	StatusChannelPressure byte = 0xD0
	StatusPitchBend       byte = 0xE0
	StatusSystemExclusive byte = 0xF0
)

// DataLength returns the number of data bytes that follow a channel-voice
// status byte (not counting the status byte itself), or -1 for statuses
// whose length is variable/not applicable here (SysEx and system messages).
func DataLength(status byte) int {
	switch status & 0xF0 {
	case StatusNoteOff, StatusNoteOn, StatusPolyAftertouch, StatusControlChange, StatusPitchBend:
		return 2
	case StatusProgramChange, StatusChannelPressure:
		return 1
	default:
		return -1
	}
}

// IsChannelVoice reports whether status is a channel-voice message (top
// nibble 0x8-0xE), as opposed to a system message (0xF0-0xFF).
func IsChannelVoice(status byte) bool {
	return status >= StatusNoteOff && status < StatusSystemExclusive
}

// EventType identifies the kind of channel event a ChannelID addresses.
// The seven values that correspond to a real wire status byte reuse that
// status byte's value directly; RPN/NRPN have no status byte of their own
// (they are transmitted as a CC burst) and use sentinel values instead.
type EventType uint8

const (
	EventNoteOff    EventType = StatusNoteOff
	EventNote       EventType = StatusNoteOn
	EventPressure   EventType = StatusPolyAftertouch
	EventCC         EventType = StatusControlChange
	EventProgram    EventType = StatusProgramChange
	EventAftertouch EventType = StatusChannelPressure
	EventPitchbend  EventType = StatusPitchBend
	EventRPN        EventType = 0xF1
	EventNRPN       EventType = 0xF2
)

// String returns the channel-spec keyword for the event type, matching the
// tokens accepted by ParseSpec.
func (t EventType) String() string {
	switch t {
	case EventNoteOff:
		return "note_off"
	case EventNote:
		return "note"
	case EventPressure:
		return "pressure"
	case EventCC:
		return "cc"
	case EventProgram:
		return "program"
	case EventAftertouch:
		return "aftertouch"
	case EventPitchbend:
		return "pitch"
	case EventRPN:
		return "rpn"
	case EventNRPN:
		return "nrpn"
	default:
		return "unknown"
	}
}

// DataBytes reports how many MIDI data bytes (after the status byte) an
// event of this type carries on the wire. RPN/NRPN report 0 since they
// never appear as a status byte themselves.
func (t EventType) DataBytes() int {
	switch t {
	case EventAftertouch, EventProgram:
		return 1
	case EventNoteOff, EventNote, EventPressure, EventCC, EventPitchbend:
		return 2
	default:
		return 0
	}
}
