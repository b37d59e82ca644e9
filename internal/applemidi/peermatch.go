package applemidi

import (
	"net"

	"github.com/mattjbishop/rtpmidi/internal/peer"
	"github.com/mattjbishop/rtpmidi/internal/protocol"
)

// Invitation is one outbound invite the caller's service loop should send.
type Invitation struct {
	Dest  *net.UDPAddr
	Frame Frame
}

// sameFamily reports whether two addresses are both IPv4 or both IPv6.
func sameFamily(a, b net.IP) bool {
	return (a.To4() != nil) == (b.To4() != nil)
}

// PeerMatch implements spec.md §4.6's invite-matching algorithm, invoked
// whenever an mDNS SRV discovery reports a session. patterns holds the
// instance's invite list (literal names or "*"); a first-sight wildcard
// match is converted into an explicit literal entry so later matches for
// the same session are stable, per spec.md §4.6's closing paragraph.
func PeerMatch(reg *peer.Registry, patterns *[]string, sessionName string, source net.IP, controlPort int, ourSSRC uint32, ourName string) []Invitation {
	return peerMatch(reg, patterns, sessionName, source, controlPort, ourSSRC, ourName, true)
}

func peerMatch(reg *peer.Registry, patterns *[]string, sessionName string, source net.IP, controlPort int, ourSSRC uint32, ourName string, allowWildcard bool) []Invitation {
	var out []Invitation

	for i, pattern := range *patterns {
		if pattern == "*" || pattern != sessionName {
			continue
		}

		idx := reg.FindByInvite(i)
		if idx >= 0 {
			p := reg.All()[idx]
			if p.Connected {
				continue
			}
			if !sameFamily(p.Addr.IP, source) {
				continue
			}
			reg.UpdateAddr(idx, &net.UDPAddr{IP: source, Port: controlPort + 1})
			reg.Touch(idx)
		} else {
			reg.Push(&net.UDPAddr{IP: source, Port: controlPort + 1}, true, false, i)
		}

		out = append(out, Invitation{
			Dest:  &net.UDPAddr{IP: source, Port: controlPort},
			Frame: Frame{Command: protocol.CommandInvite, Version: protocol.AppleMIDIVersion, Token: NewToken(), SSRC: ourSSRC, Name: ourName},
		})
		return out
	}

	if !allowWildcard {
		return out
	}

	for _, pattern := range *patterns {
		if pattern != "*" {
			continue
		}
		*patterns = append(*patterns, sessionName)
		return peerMatch(reg, patterns, sessionName, source, controlPort, ourSSRC, ourName, false)
	}

	return out
}
