package midi

import (
	"strconv"
	"strings"

	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

// ChannelID is the packed 64-bit channel identifier spec.md §6 describes:
// {type:8, channel:8, control:16, reserved:32}. It round-trips through
// Pack/Unpack rather than a Go struct tag union, since the wire contract is
// "exactly 8 bytes", not a particular in-memory layout.
type ChannelID struct {
	Type    EventType
	Channel uint8
	Control uint16
}

// Pack folds the identifier into the 64-bit form used as a map key by the
// host-facing channel table.
func (c ChannelID) Pack() uint64 {
	return uint64(c.Type)<<56 | uint64(c.Channel)<<48 | uint64(c.Control)<<32
}

// Unpack reconstructs a ChannelID from its packed form.
func Unpack(v uint64) ChannelID {
	return ChannelID{
		Type:    EventType(v >> 56),
		Channel: uint8(v >> 48),
		Control: uint16(v >> 32),
	}
}

// ParseSpec parses a channel specifier of the form "ch<N>.<type><M>", where
// N is 0..15 and M is an optional decimal control/parameter number
// (default 0). Recognized type tokens are cc, note, note_off, rpn, nrpn,
// pressure, pitch, aftertouch, program. note_off is checked before note
// since it is a prefix match candidate.
func ParseSpec(spec string) (ChannelID, error) {
	const chPrefix = "ch"
	if !strings.HasPrefix(spec, chPrefix) {
		return ChannelID{}, &rtperrors.ConfigurationError{Option: "channel", Value: spec, Message: "missing ch<N> prefix"}
	}

	rest := spec[len(chPrefix):]
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return ChannelID{}, &rtperrors.ConfigurationError{Option: "channel", Value: spec, Message: "missing '.' separator"}
	}

	channelNum, err := strconv.Atoi(rest[:dot])
	if err != nil || channelNum < 0 || channelNum > 15 {
		return ChannelID{}, &rtperrors.ConfigurationError{Option: "channel", Value: spec, Message: "channel number must be 0..15"}
	}

	typeSpec := rest[dot+1:]
	eventType, token, err := parseEventType(typeSpec)
	if err != nil {
		return ChannelID{}, &rtperrors.ConfigurationError{Option: "channel", Value: spec, Message: err.Error()}
	}

	controlStr := typeSpec[len(token):]
	control := uint16(0)
	if controlStr != "" {
		n, err := strconv.Atoi(controlStr)
		if err != nil || n < 0 || n > 0xFFFF {
			return ChannelID{}, &rtperrors.ConfigurationError{Option: "channel", Value: spec, Message: "invalid control/parameter number"}
		}
		control = uint16(n)
	}

	return ChannelID{Type: eventType, Channel: uint8(channelNum), Control: control}, nil
}

// eventTokens is checked in order; note_off must precede note since both
// share the "note" prefix.
var eventTokens = []struct {
	token string
	typ   EventType
}{
	{"note_off", EventNoteOff},
	{"note", EventNote},
	{"cc", EventCC},
	{"rpn", EventRPN},
	{"nrpn", EventNRPN},
	{"pressure", EventPressure},
	{"pitch", EventPitchbend},
	{"aftertouch", EventAftertouch},
	{"program", EventProgram},
}

func parseEventType(s string) (EventType, string, error) {
	for _, e := range eventTokens {
		if strings.HasPrefix(s, e.token) {
			return e.typ, e.token, nil
		}
	}
	return 0, "", typeTokenError{s}
}

type typeTokenError struct{ s string }

func (e typeTokenError) Error() string { return "unrecognized channel type token in " + e.s }
