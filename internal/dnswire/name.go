// Package dnswire implements the DNS wire-format primitives shared by the
// mDNS announce/detach/parse paths: name encoding and compression-pointer
// decoding (RFC 1035 §3.1, §4.1.4) and resource-record header push/patch.
// This is the "DNS codec" component named in SPEC_FULL.md §2.
package dnswire

import (
	"strings"

	"github.com/mattjbishop/rtpmidi/internal/protocol"
	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

// DecodeName reconstructs a dotted DNS name starting at offset in msg,
// following compression pointers (RFC 1035 §4.1.4) as needed. It returns the
// reconstructed name (with a trailing dot, e.g. "host.local.") and the
// number of wire bytes consumed in msg up to — but not through — the first
// pointer encountered, so the caller can advance its own parse cursor past
// the name as it appeared inline (spec.md §4.1).
//
// Fails with MalformedPacketError when a pointer targets at or past the end
// of the packet, a label would extend past the packet, or more than
// protocol.MaxCompressionHops pointers are followed (cycle protection).
func DecodeName(msg []byte, offset int) (name string, consumed int, err error) {
	var labels []string
	pos := offset
	consumedSet := false
	hops := 0

	for {
		if pos >= len(msg) {
			return "", 0, &rtperrors.MalformedPacketError{
				Operation: "decode name", Offset: pos, Message: "label extends past packet",
			}
		}

		length := msg[pos]

		if length == 0 {
			pos++
			if !consumedSet {
				consumed = pos - offset
			}
			break
		}

		if length&protocol.CompressionMask == protocol.CompressionMask {
			if pos+1 >= len(msg) {
				return "", 0, &rtperrors.MalformedPacketError{
					Operation: "decode name", Offset: pos, Message: "truncated compression pointer",
				}
			}
			ptr := int(length&^protocol.CompressionMask)<<8 | int(msg[pos+1])
			if ptr >= len(msg) {
				return "", 0, &rtperrors.MalformedPacketError{
					Operation: "decode name", Offset: pos, Message: "compression pointer target beyond packet length",
				}
			}
			if !consumedSet {
				consumed = pos + 2 - offset
				consumedSet = true
			}
			hops++
			if hops > protocol.MaxCompressionHops {
				return "", 0, &rtperrors.MalformedPacketError{
					Operation: "decode name", Offset: pos, Message: "too many compression hops (possible cycle)",
				}
			}
			pos = ptr
			continue
		}

		end := pos + 1 + int(length)
		if end > len(msg) {
			return "", 0, &rtperrors.MalformedPacketError{
				Operation: "decode name", Offset: pos, Message: "label extends past packet",
			}
		}
		labels = append(labels, string(msg[pos+1:end]))
		pos = end
	}

	if len(labels) == 0 {
		return ".", consumed, nil
	}
	return strings.Join(labels, ".") + ".", consumed, nil
}

// EncodeName tokenizes name on "." and emits length-prefixed labels
// terminated by a zero byte. It never emits a compression pointer — per
// spec.md §4.1, "No compression on encode." A trailing dot on name is
// tolerated and ignored.
func EncodeName(name string) ([]byte, error) {
	name = strings.TrimSuffix(name, ".")

	var labels []string
	if name != "" {
		labels = strings.Split(name, ".")
	}

	wireLen := 1
	for _, l := range labels {
		if len(l) > protocol.MaxLabelLength {
			return nil, &rtperrors.ConfigurationError{
				Option: "name", Value: name,
				Message: "label exceeds 63 bytes",
			}
		}
		wireLen += 1 + len(l)
	}
	if wireLen > protocol.MaxNameLength {
		return nil, &rtperrors.ConfigurationError{
			Option: "name", Value: name, Message: "name exceeds 255 bytes on the wire",
		}
	}

	out := make([]byte, 0, wireLen)
	for _, l := range labels {
		out = append(out, byte(len(l)))
		out = append(out, l...)
	}
	out = append(out, 0)
	return out, nil
}

// EncodeOwnerName builds the owner name for a DNS-SD service instance:
// instance is emitted as a single label exactly as given — per RFC 6763
// §4.3 a service instance name may contain arbitrary characters including
// dots and spaces, so it is never split on "." the way EncodeName splits a
// host name — followed by the (dot-split, normally encoded) serviceDomain.
func EncodeOwnerName(instance, serviceDomain string) ([]byte, error) {
	if len(instance) > protocol.MaxLabelLength {
		return nil, &rtperrors.ConfigurationError{
			Option: "instance", Value: instance, Message: "instance name exceeds 63 bytes",
		}
	}
	rest, err := EncodeName(serviceDomain)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 1+len(instance)+len(rest))
	out = append(out, byte(len(instance)))
	out = append(out, instance...)
	out = append(out, rest...)

	if len(out) > protocol.MaxNameLength {
		return nil, &rtperrors.ConfigurationError{
			Option: "instance", Value: instance, Message: "owner name exceeds 255 bytes on the wire",
		}
	}
	return out, nil
}
