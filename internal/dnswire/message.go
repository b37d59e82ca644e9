package dnswire

import "encoding/binary"

// Header is the fixed 12-byte DNS message header per RFC 1035 §4.1.1.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Encode appends the header's wire form to buf.
func (h Header) Encode(buf []byte) []byte {
	var tmp [12]byte
	binary.BigEndian.PutUint16(tmp[0:2], h.ID)
	binary.BigEndian.PutUint16(tmp[2:4], h.Flags)
	binary.BigEndian.PutUint16(tmp[4:6], h.QDCount)
	binary.BigEndian.PutUint16(tmp[6:8], h.ANCount)
	binary.BigEndian.PutUint16(tmp[8:10], h.NSCount)
	binary.BigEndian.PutUint16(tmp[10:12], h.ARCount)
	return append(buf, tmp[:]...)
}

// DecodeHeader reads the 12-byte header at the start of msg.
func DecodeHeader(msg []byte) (Header, error) {
	if len(msg) < 12 {
		return Header{}, errShortHeader
	}
	return Header{
		ID:      binary.BigEndian.Uint16(msg[0:2]),
		Flags:   binary.BigEndian.Uint16(msg[2:4]),
		QDCount: binary.BigEndian.Uint16(msg[4:6]),
		ANCount: binary.BigEndian.Uint16(msg[6:8]),
		NSCount: binary.BigEndian.Uint16(msg[8:10]),
		ARCount: binary.BigEndian.Uint16(msg[10:12]),
	}, nil
}

var errShortHeader = shortHeaderError{}

type shortHeaderError struct{}

func (shortHeaderError) Error() string { return "dnswire: message shorter than 12-byte header" }

// RRHeaderLen is the fixed size of a resource record header excluding the
// owner name: type(2) + class(2) + ttl(4) + rdlength(2).
const RRHeaderLen = 10

// PushRR appends an optional encoded owner name (pass nil to rely on a
// compression pointer the caller already wrote) followed by the 10-byte
// fixed RR header {type, class, ttl, rdlength} in network byte order,
// mirroring the original dns_push_rr(): rdlength is written as 0 and the
// returned offset lets the caller patch it once RDATA has been appended.
//
// Returns the updated buffer and the byte offset of the 2-byte rdlength
// field within it, for use with PatchRDLength.
func PushRR(buf []byte, encodedName []byte, rtype, class uint16, ttl uint32) ([]byte, int) {
	if encodedName != nil {
		buf = append(buf, encodedName...)
	}
	var tmp [RRHeaderLen]byte
	binary.BigEndian.PutUint16(tmp[0:2], rtype)
	binary.BigEndian.PutUint16(tmp[2:4], class)
	binary.BigEndian.PutUint32(tmp[4:8], ttl)
	binary.BigEndian.PutUint16(tmp[8:10], 0)
	buf = append(buf, tmp[:]...)
	return buf, len(buf) - 2
}

// PatchRDLength writes the RDATA length into the rdlength field at offset
// (as returned by PushRR) once the caller knows how many RDATA bytes follow.
func PatchRDLength(buf []byte, rdlengthOffset int, rdataLen int) {
	binary.BigEndian.PutUint16(buf[rdlengthOffset:rdlengthOffset+2], uint16(rdataLen))
}

// Pointer encodes a 14-bit compression pointer to targetOffset per RFC 1035
// §4.1.4.
func Pointer(targetOffset int) [2]byte {
	v := uint16(0xC000) | uint16(targetOffset&0x3FFF)
	var out [2]byte
	binary.BigEndian.PutUint16(out[:], v)
	return out
}
