package rtpmidi

import (
	"github.com/mattjbishop/rtpmidi/internal/midi"
	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

// Event is one outbound or decoded channel update, addressed by the same
// {type, channel, control} triple as midi.ChannelID.
type Event struct {
	Channel uint8
	Type    midi.EventType
	Control uint16
	Value   float64 // normalized 0..1
}

// commandFlagZ marks the first event in the list as carrying an explicit
// delta-time byte. Every event this encoder writes includes one, per the
// per-event rules in spec.md §4.3, so it is always set.
const commandFlagZ = 0x20
const commandFlagB = 0x80

// EncodeEvents appends the command-section header and the serialized form
// of events to buf, stopping (and reporting how many events were actually
// written) if the total length would exceed maxLen (the 1500-byte
// protocol.PacketBuffer when called from EncodePacket) — the remainder of the batch is dropped, matching
// spec.md §4.3's "partial batch is transmitted, not discarded" rule.
func EncodeEvents(buf []byte, events []Event, epnTxShort bool, maxLen int) (out []byte, encoded int) {
	var data []byte
	for _, e := range events {
		enc := encodeEvent(e, epnTxShort)
		if len(buf)+reserveLen(len(data)+len(enc))+len(data)+len(enc) > maxLen {
			break
		}
		data = append(data, enc...)
		encoded++
	}

	out = appendCommandHeader(buf, len(data))
	out = append(out, data...)
	return out, encoded
}

// reserveLen returns the number of header bytes needed to declare a command
// section of n bytes: 1 when it fits a 4-bit length, 2 (extended) otherwise.
func reserveLen(n int) int {
	if n <= 0x0F {
		return 1
	}
	return 2
}

func appendCommandHeader(buf []byte, length int) []byte {
	if length <= 0x0F {
		return append(buf, byte(commandFlagZ|length))
	}
	hi := byte((length >> 8) & 0x0F)
	lo := byte(length & 0xFF)
	return append(buf, commandFlagB|commandFlagZ|hi, lo)
}

func encodeEvent(e Event, epnTxShort bool) []byte {
	switch e.Type {
	case midi.EventRPN, midi.EventNRPN:
		return encodeEPNBurst(e, epnTxShort)
	case midi.EventPitchbend:
		v := uint16(e.Value * 16383.0)
		return []byte{0, byte(midi.StatusPitchBend) | e.Channel, byte(v & 0x7F), byte((v >> 7) & 0x7F)}
	case midi.EventAftertouch, midi.EventProgram:
		return []byte{0, byte(e.Type) | e.Channel, byte(e.Value * 127.0)}
	default:
		return []byte{0, byte(e.Type) | e.Channel, byte(e.Control), byte(e.Value * 127.0)}
	}
}

func encodeEPNBurst(e Event, epnTxShort bool) []byte {
	hiCC, loCC := byte(101), byte(100)
	if e.Type == midi.EventNRPN {
		hiCC, loCC = 99, 98
	}
	status := byte(midi.StatusControlChange) | e.Channel
	v := uint16(e.Value * 16383.0)

	out := []byte{
		0, status, hiCC, byte((e.Control >> 7) & 0x7F),
		0, status, loCC, byte(e.Control & 0x7F),
		0, status, 6, byte((v >> 7) & 0x7F),
		0, status, 38, byte(v & 0x7F),
	}
	if !epnTxShort {
		out = append(out, 0, status, 101, 127, 0, status, 100, 127)
	}
	return out
}

// DecodeEvents parses the command section (header included) of an
// RTP-MIDI payload. It maintains running status across events and honors
// the two permitted abbreviations from spec.md §4.3: the first event's
// delta-time may be absent, and the last event may be truncated (silently
// dropped rather than erroring).
func DecodeEvents(payload []byte) ([]Event, error) {
	if len(payload) == 0 {
		return nil, &rtperrors.MalformedPacketError{Operation: "decode command section", Offset: 0, Message: "empty command section"}
	}

	length := int(payload[0] & 0x0F)
	offset := 1
	hasZ := payload[0]&commandFlagZ != 0
	if payload[0]&commandFlagB != 0 {
		if len(payload) < 2 {
			return nil, &rtperrors.MalformedPacketError{Operation: "decode command section", Offset: 0, Message: "missing extended length byte"}
		}
		length = (length << 8) | int(payload[1])
		offset = 2
	}

	end := offset + length
	if end > len(payload) {
		end = len(payload)
	}

	var events []Event
	var status byte
	decodeTime := hasZ

	for offset < end {
		if decodeTime {
			for offset < end && payload[offset]&0x80 != 0 {
				offset++
			}
			offset++
		}
		if offset >= end {
			break
		}

		if payload[offset]&0x80 != 0 {
			status = payload[offset]
			offset++
		}
		if offset >= end {
			break
		}

		eventType := midi.EventType(status & 0xF0)
		channel := status & 0x0F

		if eventType == midi.EventAftertouch || eventType == midi.EventProgram {
			events = append(events, Event{Channel: channel, Type: eventType, Value: float64(payload[offset]) / 127.0})
			offset++
		} else {
			if offset+1 >= end {
				break // truncated last event, tolerated per spec.md §4.3
			}
			if eventType == midi.EventPitchbend {
				lo, hi := payload[offset], payload[offset+1]
				events = append(events, Event{Channel: channel, Type: eventType, Value: float64(uint16(hi)<<7|uint16(lo)) / 16383.0})
			} else {
				control, value := payload[offset], payload[offset+1]
				events = append(events, Event{Channel: channel, Type: eventType, Control: uint16(control), Value: float64(value) / 127.0})
			}
			offset += 2
		}

		decodeTime = true
	}

	return events, nil
}

// FoldNoteOff rewrites NoteOff events to Note with value 0 in place, unless
// noteOff is true (meaning the host wants NoteOff surfaced as-is), per
// spec.md §4.3's decode-side note_off policy.
func FoldNoteOff(events []Event, noteOff bool) {
	if noteOff {
		return
	}
	for i := range events {
		if events[i].Type == midi.EventNoteOff {
			events[i].Type = midi.EventNote
			events[i].Value = 0
		}
	}
}

// IsEPNControl reports whether control is one of the CC numbers the EPN
// state machine consumes (98..101, 6, 38).
func IsEPNControl(control uint16) bool {
	return (control >= 98 && control <= 101) || control == 6 || control == 38
}
