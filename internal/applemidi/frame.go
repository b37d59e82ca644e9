// Package applemidi implements the AppleMIDI session control protocol from
// spec.md §4.5: the shared command frame, the clock-sync frame, and the
// invite/accept/reject/leave/sync handshake rules, ported from the
// original rtpmidi_applecommand()/rtpmidi_handle_applemidi().
package applemidi

import (
	"encoding/binary"
	"strings"

	"github.com/mattjbishop/rtpmidi/internal/protocol"
	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

// FrameLen is the fixed size of the control frame before the optional
// session-name C string: res1(2) + command(2) + version(4) + token(4) +
// ssrc(4).
const FrameLen = 16

// Frame is the shared AppleMIDI control-plane frame carried by invite,
// accept, reject and leave commands.
type Frame struct {
	Command protocol.AppleMIDICommand
	Version uint32
	Token   uint32
	SSRC    uint32
	Name    string // sent with invite and accept frames
}

// Encode appends the wire form of f. Name, if non-empty, is written as a
// NUL-terminated C string after the fixed header.
func (f Frame) Encode() []byte {
	buf := make([]byte, 0, FrameLen+len(f.Name)+1)
	var tmp [FrameLen]byte
	binary.BigEndian.PutUint16(tmp[0:2], protocol.AppleMIDIMagic)
	binary.BigEndian.PutUint16(tmp[2:4], uint16(f.Command))
	binary.BigEndian.PutUint32(tmp[4:8], f.Version)
	binary.BigEndian.PutUint32(tmp[8:12], f.Token)
	binary.BigEndian.PutUint32(tmp[12:16], f.SSRC)
	buf = append(buf, tmp[:]...)
	if f.Name != "" {
		buf = append(buf, []byte(f.Name)...)
		buf = append(buf, 0)
	}
	return buf
}

// DecodeFrame reads the fixed header and, when bytes follow it (whatever
// the command), a NUL-terminated session name. Version is validated to be exactly 2, per
// spec.md §4.5 ("every command except sync and feedback").
func DecodeFrame(buf []byte) (Frame, error) {
	if len(buf) < FrameLen {
		return Frame{}, &rtperrors.MalformedPacketError{Operation: "decode applemidi frame", Offset: 0, Message: "frame shorter than fixed header"}
	}
	if binary.BigEndian.Uint16(buf[0:2]) != protocol.AppleMIDIMagic {
		return Frame{}, &rtperrors.MalformedPacketError{Operation: "decode applemidi frame", Offset: 0, Message: "bad magic"}
	}

	f := Frame{
		Command: protocol.AppleMIDICommand(binary.BigEndian.Uint16(buf[2:4])),
		Version: binary.BigEndian.Uint32(buf[4:8]),
		Token:   binary.BigEndian.Uint32(buf[8:12]),
		SSRC:    binary.BigEndian.Uint32(buf[12:16]),
	}

	if f.Command != protocol.CommandSync && f.Command != protocol.CommandFeedback && f.Version != protocol.AppleMIDIVersion {
		return Frame{}, &rtperrors.MalformedPacketError{Operation: "decode applemidi frame", Offset: 4, Message: "unexpected protocol version"}
	}

	if len(buf) > FrameLen {
		name, err := decodeCString(buf[FrameLen:])
		if err != nil || !protocol.ValidateSessionName(name) {
			// spec.md §4.5: an unterminated or non-printable session name is
			// treated as unnamed, not a hard decode failure.
			f.Name = ""
		} else {
			f.Name = name
		}
	}

	return f, nil
}

func decodeCString(buf []byte) (string, error) {
	idx := -1
	for i, b := range buf {
		if b == 0 {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", &rtperrors.MalformedPacketError{Operation: "decode c string", Offset: 0, Message: "unterminated session name"}
	}
	return strings.TrimRight(string(buf[:idx]), "\x00"), nil
}
