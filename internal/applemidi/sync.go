package applemidi

import (
	"encoding/binary"

	"github.com/mattjbishop/rtpmidi/internal/protocol"
	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

// SyncFrameLen is the fixed wire size of a clock-sync frame: res1(2) +
// command(2) + ssrc(4) + count(1) + padding(3) + 3x timestamp(8).
const SyncFrameLen = 2 + 2 + 4 + 1 + 3 + 3*8

// SyncFrame is the CK clock-sync frame from spec.md §4.5.
type SyncFrame struct {
	SSRC  uint32
	Count uint8
	TS    [3]uint64
}

// Encode appends the wire form of the sync frame.
func (s SyncFrame) Encode() []byte {
	buf := make([]byte, SyncFrameLen)
	binary.BigEndian.PutUint16(buf[0:2], protocol.AppleMIDIMagic)
	binary.BigEndian.PutUint16(buf[2:4], uint16(protocol.CommandSync))
	binary.BigEndian.PutUint32(buf[4:8], s.SSRC)
	buf[8] = s.Count
	// buf[9:12] padding, left zero
	binary.BigEndian.PutUint64(buf[12:20], s.TS[0])
	binary.BigEndian.PutUint64(buf[20:28], s.TS[1])
	binary.BigEndian.PutUint64(buf[28:36], s.TS[2])
	return buf
}

// DecodeSyncFrame reads a CK frame.
func DecodeSyncFrame(buf []byte) (SyncFrame, error) {
	if len(buf) < SyncFrameLen {
		return SyncFrame{}, &rtperrors.MalformedPacketError{Operation: "decode sync frame", Offset: 0, Message: "frame shorter than sync frame"}
	}
	return SyncFrame{
		SSRC:  binary.BigEndian.Uint32(buf[4:8]),
		Count: buf[8],
		TS: [3]uint64{
			binary.BigEndian.Uint64(buf[12:20]),
			binary.BigEndian.Uint64(buf[20:28]),
			binary.BigEndian.Uint64(buf[28:36]),
		},
	}, nil
}

// Respond computes the next sync frame to send in reply to an inbound one,
// per spec.md §4.5's three-step handshake: count 0->1 (we are the
// receiver), 1->2 (we initiated), 2 is final (no reply). now10 is the
// current time in 100us ticks (mm_timestamp()*10 in the original).
func (s SyncFrame) Respond(now10 uint64) (SyncFrame, bool) {
	switch s.Count {
	case 0:
		out := s
		out.Count = 1
		out.TS[1] = now10
		return out, true
	case 1:
		out := s
		out.Count = 2
		out.TS[2] = now10
		return out, true
	default:
		return SyncFrame{}, false
	}
}
