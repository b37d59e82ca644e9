// Package mdnssvc implements the mDNS service: building the announce and
// detach packets, parsing incoming discovery traffic, and driving the two
// (IPv4/IPv6) multicast sockets — the "mDNS service" component of
// SPEC_FULL.md §2. Byte layout follows spec.md §4.2 and its scenario S6,
// ported from the original rtpmidi_mdns_announce()/rtpmidi_mdns_detach().
package mdnssvc

import (
	"net"

	"github.com/mattjbishop/rtpmidi/internal/dnswire"
	"github.com/mattjbishop/rtpmidi/internal/protocol"
)

// BuildAnnounce constructs the mDNS response packet advertising an
// AppleMIDI session per spec.md §4.2:
//  1. SRV  <instance>._apple-midi._udp.local. -> {0,0,controlPort,<mdnsName>.local.}  TTL 120
//  2. TXT  (same owner, compressed)            -> empty string                       TTL 4500
//  3. PTR  _services._dns-sd._udp.local.       -> _apple-midi._udp.local. (compressed) TTL 4500
//  4. PTR  _apple-midi._udp.local. (compressed)-> <instance>.... (compressed)          TTL 4500
//  5..n A/AAAA <mdnsName>.local. -> each local address, TTL 120 (first literal, rest compressed)
func BuildAnnounce(mdnsName, instance string, controlPort int, v4Addrs, v6Addrs []net.IP) ([]byte, error) {
	addrCount := len(v4Addrs) + len(v6Addrs)

	hdr := dnswire.Header{
		Flags:   protocol.ResponseFlags,
		ANCount: 4,
		ARCount: uint16(addrCount),
	}
	buf := hdr.Encode(make([]byte, 0, protocol.PacketBuffer))

	ownerName, err := dnswire.EncodeOwnerName(instance, protocol.MDNSDomain)
	if err != nil {
		return nil, err
	}
	owner1Offset := len(buf)

	// domainOffset is where the bare "_apple-midi._udp.local." label
	// sequence begins inside owner1 — right after the single instance
	// label byte-length prefix.
	domainOffset := owner1Offset + 1 + len(instance)

	hostName, err := dnswire.EncodeName(mdnsName + ".local.")
	if err != nil {
		return nil, err
	}

	// Answer 1: SRV
	buf, rdOff := dnswire.PushRR(buf, ownerName, uint16(protocol.RecordTypeSRV), uint16(protocol.ClassIN), protocol.TTLSRV)
	rdStart := len(buf)
	buf = append(buf, 0, 0) // priority
	buf = append(buf, 0, 0) // weight
	buf = append(buf, byte(controlPort>>8), byte(controlPort))
	buf = append(buf, hostName...)
	dnswire.PatchRDLength(buf, rdOff, len(buf)-rdStart)

	// Answer 2: empty TXT, owner backref to answer 1's full owner name.
	owner1Ptr := dnswire.Pointer(owner1Offset)
	buf, rdOff = dnswire.PushRR(buf, owner1Ptr[:], uint16(protocol.RecordTypeTXT), uint16(protocol.ClassIN), protocol.TTLTXT)
	rdStart = len(buf)
	buf = append(buf, 0)
	dnswire.PatchRDLength(buf, rdOff, len(buf)-rdStart)

	// Answer 3: dns-sd PTR, owner literal, rdata compressed to the domain
	// suffix inside owner1.
	dnssdName, err := dnswire.EncodeName(protocol.DNSSDDomain)
	if err != nil {
		return nil, err
	}
	buf, rdOff = dnswire.PushRR(buf, dnssdName, uint16(protocol.RecordTypePTR), uint16(protocol.ClassIN), protocol.TTLPTR)
	rdStart = len(buf)
	domainPtr := dnswire.Pointer(domainOffset)
	buf = append(buf, domainPtr[:]...)
	dnswire.PatchRDLength(buf, rdOff, len(buf)-rdStart)

	// Answer 4: apple-midi PTR, owner compressed to the domain suffix,
	// rdata compressed to owner1's full name.
	buf, rdOff = dnswire.PushRR(buf, domainPtr[:], uint16(protocol.RecordTypePTR), uint16(protocol.ClassIN), protocol.TTLPTR)
	rdStart = len(buf)
	buf = append(buf, owner1Ptr[:]...)
	dnswire.PatchRDLength(buf, rdOff, len(buf)-rdStart)

	// Additional: A/AAAA records, one per local address. The first address
	// record's owner is written literally; subsequent ones point back to it.
	var hostOffset = -1
	appendAddr := func(ip net.IP, rtype protocol.RecordType) error {
		var ownerBytes []byte
		if hostOffset < 0 {
			hostOffset = len(buf)
			ownerBytes = hostName
		} else {
			ptr := dnswire.Pointer(hostOffset)
			ownerBytes = ptr[:]
		}
		buf2, rdO := dnswire.PushRR(buf, ownerBytes, uint16(rtype), uint16(protocol.ClassIN), protocol.TTLAddress)
		buf = buf2
		rdS := len(buf)
		buf = append(buf, []byte(ip)...)
		dnswire.PatchRDLength(buf, rdO, len(buf)-rdS)
		return nil
	}
	for _, ip := range v4Addrs {
		if err := appendAddr(ip.To4(), protocol.RecordTypeA); err != nil {
			return nil, err
		}
	}
	for _, ip := range v6Addrs {
		if err := appendAddr(ip.To16(), protocol.RecordTypeAAAA); err != nil {
			return nil, err
		}
	}

	return buf, nil
}

// BuildDetach constructs the single-answer TTL=0 PTR response sent on
// shutdown per spec.md §4.2.
func BuildDetach(instance string) ([]byte, error) {
	hdr := dnswire.Header{Flags: protocol.ResponseFlags, ANCount: 1}
	buf := hdr.Encode(make([]byte, 0, 64))

	ownerName, err := dnswire.EncodeName(protocol.MDNSDomain)
	if err != nil {
		return nil, err
	}
	buf, rdOff := dnswire.PushRR(buf, ownerName, uint16(protocol.RecordTypePTR), uint16(protocol.ClassIN), protocol.TTLDetach)
	rdStart := len(buf)
	target, err := dnswire.EncodeOwnerName(instance, protocol.MDNSDomain)
	if err != nil {
		return nil, err
	}
	buf = append(buf, target...)
	dnswire.PatchRDLength(buf, rdOff, len(buf)-rdStart)

	return buf, nil
}
