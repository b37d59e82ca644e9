package mdnssvc

import (
	"encoding/binary"
	"net"
	"strings"

	"github.com/mattjbishop/rtpmidi/internal/dnswire"
	"github.com/mattjbishop/rtpmidi/internal/protocol"
	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

// Announcement is a discovered AppleMIDI session advertised via an SRV
// record under _apple-midi._udp.local., per spec.md §4.2.
type Announcement struct {
	SessionName string
	ControlPort int
	Source      net.IP
}

// rr is a decoded resource record and the offset immediately following it.
type rr struct {
	name     string
	rtype    uint16
	rdata    []byte
	rdataOff int
	next     int
}

func decodeRR(msg []byte, offset int) (rr, error) {
	name, consumed, err := dnswire.DecodeName(msg, offset)
	if err != nil {
		return rr{}, err
	}
	pos := offset + consumed
	if pos+10 > len(msg) {
		return rr{}, &rtperrors.MalformedPacketError{Operation: "decode rr", Offset: pos, Message: "truncated rr header"}
	}
	rtype := binary.BigEndian.Uint16(msg[pos : pos+2])
	pos += 8 // type(2) + class(2) + ttl(4)
	rdlength := binary.BigEndian.Uint16(msg[pos : pos+2])
	pos += 2
	if pos+int(rdlength) > len(msg) {
		return rr{}, &rtperrors.MalformedPacketError{Operation: "decode rr", Offset: pos, Message: "rdata extends past packet"}
	}
	return rr{
		name:     name,
		rtype:    rtype,
		rdata:    msg[pos : pos+int(rdlength)],
		rdataOff: pos,
		next:     pos + int(rdlength),
	}, nil
}

func skipQuestion(msg []byte, offset int) (int, error) {
	_, consumed, err := dnswire.DecodeName(msg, offset)
	if err != nil {
		return 0, err
	}
	pos := offset + consumed + 4 // qtype(2) + qclass(2)
	if pos > len(msg) {
		return 0, &rtperrors.MalformedPacketError{Operation: "skip question", Offset: offset, Message: "truncated question"}
	}
	return pos, nil
}

// ParseAnnounce decodes an inbound multicast packet and reports every SRV
// record it finds under _apple-midi._udp.local. whose target does not begin
// with our own mdnsName (the loopback self-filter from spec.md §4.2).
// Each qualifying SRV record yields one Announcement carrying the session
// name and the advertised control port; Source is left unset for the caller
// (Service.Drain) to fill in from the datagram's sender.
func ParseAnnounce(msg []byte, mdnsName string) ([]Announcement, error) {
	hdr, err := dnswire.DecodeHeader(msg)
	if err != nil {
		return nil, &rtperrors.MalformedPacketError{Operation: "decode mdns header", Offset: 0, Message: err.Error()}
	}

	pos := 12
	for i := uint16(0); i < hdr.QDCount; i++ {
		pos, err = skipQuestion(msg, pos)
		if err != nil {
			return nil, err
		}
	}

	var out []Announcement
	total := int(hdr.ANCount) + int(hdr.NSCount) + int(hdr.ARCount)
	for i := 0; i < total; i++ {
		record, err := decodeRR(msg, pos)
		if err != nil {
			return nil, err
		}
		pos = record.next

		if record.rtype != uint16(protocol.RecordTypeSRV) {
			continue
		}
		if !strings.HasSuffix(record.name, "."+protocol.MDNSDomain) && record.name != protocol.MDNSDomain {
			continue
		}

		sessionName := firstLabel(record.name)

		if len(record.rdata) < 6 {
			continue
		}
		port := int(binary.BigEndian.Uint16(record.rdata[4:6]))
		target, _, err := dnswire.DecodeName(msg, record.rdataOff+6)
		if err != nil {
			continue
		}
		if strings.HasPrefix(target, mdnsName+".") {
			continue // our own announcement, ignore
		}

		out = append(out, Announcement{SessionName: sessionName, ControlPort: port})
	}
	return out, nil
}

// firstLabel returns the first length-prefixed label of a dotted name —
// the DNS-SD service instance name, not copied out of the packet buffer
// since DecodeName has already materialized it as a Go string.
func firstLabel(name string) string {
	idx := strings.IndexByte(name, '.')
	if idx < 0 {
		return name
	}
	return name[:idx]
}
