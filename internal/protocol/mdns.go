// Package protocol defines the wire-level constants shared by the DNS/mDNS
// codec, the RTP-MIDI codec, and the AppleMIDI session layer, per
// SPEC_FULL.md §6 ("Constants") and the RFCs named throughout spec.md:
// RFC 1035 (DNS), RFC 6762 (mDNS), RFC 6763 (DNS-SD), RFC 2782 (SRV), and
// RFC 6295 (RTP-MIDI payload format).
package protocol

import (
	"net"
	"time"
)

// mDNS transport constants per RFC 6762 §5.
const (
	// MDNSPort is the mDNS port number (5353) per RFC 6762 §5.
	MDNSPort = 5353

	// MulticastAddrIPv4 is the mDNS IPv4 multicast address per RFC 6762 §5.
	MulticastAddrIPv4 = "224.0.0.251"

	// MulticastAddrIPv6 is the mDNS IPv6 multicast address per RFC 6762 §5.
	MulticastAddrIPv6 = "ff02::fb"
)

// MulticastGroupIPv4 returns the mDNS IPv4 multicast group address.
func MulticastGroupIPv4() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(MulticastAddrIPv4), Port: MDNSPort}
}

// MulticastGroupIPv6 returns the mDNS IPv6 multicast group address.
func MulticastGroupIPv6() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(MulticastAddrIPv6), Port: MDNSPort}
}

// RecordType represents a DNS resource record type per RFC 1035 §3.2.2.
type RecordType uint16

const (
	// RecordTypeA is an IPv4 address record per RFC 1035 §3.4.1.
	RecordTypeA RecordType = 1
	// RecordTypeAAAA is an IPv6 address record per RFC 3596 §2.1.
	RecordTypeAAAA RecordType = 28
	// RecordTypePTR is a pointer/domain name record per RFC 1035 §3.3.12.
	RecordTypePTR RecordType = 12
	// RecordTypeTXT is a text strings record per RFC 1035 §3.3.14.
	RecordTypeTXT RecordType = 16
	// RecordTypeSRV is a service location record per RFC 2782.
	RecordTypeSRV RecordType = 33
	// RecordTypeANY requests all record types per RFC 1035 §3.2.3.
	RecordTypeANY RecordType = 255
)

// String returns the human-readable name for a RecordType.
func (rt RecordType) String() string {
	switch rt {
	case RecordTypeA:
		return "A"
	case RecordTypeAAAA:
		return "AAAA"
	case RecordTypePTR:
		return "PTR"
	case RecordTypeTXT:
		return "TXT"
	case RecordTypeSRV:
		return "SRV"
	case RecordTypeANY:
		return "ANY"
	default:
		return "UNKNOWN"
	}
}

// DNSClass represents a DNS class per RFC 1035 §3.2.4.
type DNSClass uint16

// ClassIN is the Internet (IN) class per RFC 1035 §3.2.4.
const ClassIN DNSClass = 1

// DNS header flag bits per RFC 1035 §4.1.1.
const (
	FlagQR uint16 = 1 << 15 // Query/Response
	FlagAA uint16 = 1 << 10 // Authoritative Answer
)

// ResponseFlags is the flag word used on every mDNS announce/detach
// response: QR=1 (response), AA=1 (authoritative) — 0x8400, matching the
// literal byte sequence in spec.md scenario S6.
const ResponseFlags uint16 = FlagQR | FlagAA

// DNS name constraints per RFC 1035 §3.1.
const (
	// MaxLabelLength is the maximum length of a single DNS label.
	MaxLabelLength = 63
	// MaxNameLength is the maximum total length of a dotted DNS name.
	MaxNameLength = 255
	// MaxCompressionHops bounds the number of pointer hops followed while
	// decoding a name, rejecting cyclic/malicious compression pointers per
	// the Design Note in spec.md §9.
	MaxCompressionHops = 128
)

// CompressionMask identifies a compression pointer: the top two bits of the
// length byte are both set per RFC 1035 §4.1.4.
const CompressionMask byte = 0xC0

// Resource record TTLs, taken from spec.md §4.2/§8 S6 rather than generic
// RFC 6762 guidance: SRV/PTR/TXT records use 4500s except the SRV record
// itself, which spec.md fixes at 120s; address records also use 120s.
const (
	TTLSRV     uint32 = 120
	TTLTXT     uint32 = 4500
	TTLPTR     uint32 = 4500
	TTLAddress uint32 = 120
	TTLDetach  uint32 = 0
)

// Well-known DNS-SD domain names per spec.md §6.
const (
	MDNSDomain  = "_apple-midi._udp.local."
	DNSSDDomain = "_services._dns-sd._udp.local."
)

// Service timing constants per spec.md §4.7/§6.
const (
	// ServiceInterval is the default cadence of the service tick (sync,
	// re-invite, announce bookkeeping).
	ServiceInterval = time.Second
	// AnnounceInterval is the default cadence of mDNS re-announcement.
	AnnounceInterval = 90 * time.Second
	// ReinviteInterval is the cadence at which unconnected configured
	// AppleMIDI peers are re-invited.
	ReinviteInterval = 10 * time.Second
	// PeerTimeout is the SPEC_FULL.md §9(a) addition: a learned peer that
	// has not been heard from in this long is expired.
	PeerTimeout = 30 * time.Second
)

// PacketBuffer is the fixed outbound datagram buffer size (bytes), large
// enough for any single RTP-MIDI or AppleMIDI datagram per spec.md §6.
const PacketBuffer = 1500

// RTP-MIDI / AppleMIDI wire constants per spec.md §4.3/§4.5/§6.
const (
	// RTPVersionFlags is the fixed RTP header octet vpxcc=0x80 (version 2,
	// no padding, no extension, no CSRC).
	RTPVersionFlags byte = 0x80
	// RTPPayloadType is the low 7 bits of the RTP-MIDI payload type octet.
	RTPPayloadType byte = 0x61
	// RTPMarkerBit is set in direct mode and cleared in apple mode.
	RTPMarkerBit byte = 0x80

	// AppleMIDIMagic is the 16-bit value 0xFFFF that begins every AppleMIDI
	// control-frame, disambiguating it from RTP-MIDI traffic.
	AppleMIDIMagic uint16 = 0xFFFF
	// AppleMIDIVersion is the only session-protocol version this backend
	// speaks.
	AppleMIDIVersion uint32 = 2
)

// AppleMIDI command codes per spec.md §4.5, encoded as their two-character
// ASCII wire value (e.g. "IN" = 0x494E).
type AppleMIDICommand uint16

const (
	CommandInvite   AppleMIDICommand = 0x494E // "IN"
	CommandAccept   AppleMIDICommand = 0x4F4B // "OK"
	CommandReject   AppleMIDICommand = 0x4E4F // "NO"
	CommandLeave    AppleMIDICommand = 0x4259 // "BY"
	CommandSync     AppleMIDICommand = 0x434B // "CK"
	CommandFeedback AppleMIDICommand = 0x5253 // "RS"
)

func (c AppleMIDICommand) String() string {
	switch c {
	case CommandInvite:
		return "invite"
	case CommandAccept:
		return "accept"
	case CommandReject:
		return "reject"
	case CommandLeave:
		return "leave"
	case CommandSync:
		return "sync"
	case CommandFeedback:
		return "feedback"
	default:
		return "unknown"
	}
}
