// Package rtpmidi implements the RTP-MIDI wire codec from spec.md §4.3: the
// 12-byte RTP header, the command-section header, and the per-event
// encoding/decoding rules (RFC 6295), ported from the original
// rtpmidi_set()/rtpmidi_parse().
package rtpmidi

import (
	"encoding/binary"

	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

// HeaderLen is the fixed size of the RTP header in front of every packet.
const HeaderLen = 12

// HeaderMagic is the required value of the first header byte (V=2, P=0,
// X=0, CC=0).
const HeaderMagic byte = 0x80

// PayloadType is the RTP-MIDI payload type carried in the low 7 bits of
// the second header byte.
const PayloadType byte = 0x61

// MarkerBit is set in direct mode and cleared in apple mode; some
// receivers mishandle the marker bit per RFC and this asymmetry is kept
// for compatibility, matching the original source.
const MarkerBit byte = 0x80

// Header is the 12-byte RTP header carried by every RTP-MIDI datagram.
type Header struct {
	MPT       byte
	Sequence  uint16
	Timestamp uint32
	SSRC      uint32
}

// Encode appends the wire form of h to buf.
func (h Header) Encode(buf []byte) []byte {
	var tmp [HeaderLen]byte
	tmp[0] = HeaderMagic
	tmp[1] = h.MPT
	binary.BigEndian.PutUint16(tmp[2:4], h.Sequence)
	binary.BigEndian.PutUint32(tmp[4:8], h.Timestamp)
	binary.BigEndian.PutUint32(tmp[8:12], h.SSRC)
	return append(buf, tmp[:]...)
}

// DecodeHeader reads the 12-byte RTP header from the start of frame and
// validates the magic byte and payload type, per spec.md §6's receive-side
// disambiguation rule.
func DecodeHeader(frame []byte) (Header, error) {
	if len(frame) < HeaderLen {
		return Header{}, &rtperrors.MalformedPacketError{Operation: "decode rtp header", Offset: 0, Message: "frame shorter than header"}
	}
	if frame[0] != HeaderMagic {
		return Header{}, &rtperrors.MalformedPacketError{Operation: "decode rtp header", Offset: 0, Message: "bad header magic"}
	}
	if frame[1]&0x7F != PayloadType {
		return Header{}, &rtperrors.MalformedPacketError{Operation: "decode rtp header", Offset: 1, Message: "unexpected payload type"}
	}
	return Header{
		MPT:       frame[1],
		Sequence:  binary.BigEndian.Uint16(frame[2:4]),
		Timestamp: binary.BigEndian.Uint32(frame[4:8]),
		SSRC:      binary.BigEndian.Uint32(frame[8:12]),
	}, nil
}
