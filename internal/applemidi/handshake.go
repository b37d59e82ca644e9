package applemidi

import (
	"crypto/rand"
	"encoding/binary"
	"net"

	"github.com/mattjbishop/rtpmidi/internal/peer"
	"github.com/mattjbishop/rtpmidi/internal/protocol"
)

// NewToken generates a fresh 32-bit correlation token. Tokens are not
// reused to correlate requests and responses beyond a single exchange, per
// spec.md §4.5.
func NewToken() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(buf[:])
}

// matchAccept implements spec.md §4.5's invite-acceptance rule: an empty
// pattern accepts nothing, "*" accepts anything, anything else must match
// exactly.
func matchAccept(pattern, name string) bool {
	if pattern == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	return pattern == name
}

// HandleInvite decides the response to an inbound invite, per spec.md
// §4.5. If the invite arrived on the data socket and was accepted, the
// peer is registered as {learned=1, connected=1, invite_ref=-1}.
func HandleInvite(reg *peer.Registry, accept string, in Frame, src *net.UDPAddr, onDataSocket bool, ourSSRC uint32, ourName string) Frame {
	if !matchAccept(accept, in.Name) {
		return Frame{Command: protocol.CommandReject, Version: protocol.AppleMIDIVersion, Token: in.Token, SSRC: ourSSRC}
	}

	if onDataSocket {
		reg.Push(src, true, true, -1)
	}
	return Frame{Command: protocol.CommandAccept, Version: protocol.AppleMIDIVersion, Token: in.Token, SSRC: ourSSRC, Name: ourName}
}

// HandleAccept implements spec.md §4.5's accept handling. On the data
// socket the peer becomes a negotiated partner. On the control socket, it
// computes the data endpoint (source port + 1) and returns an invite frame
// to send there, with inviteFrame.Token already filled via NewToken().
func HandleAccept(reg *peer.Registry, src *net.UDPAddr, onDataSocket bool, ourSSRC uint32, ourName string) (dataAddr *net.UDPAddr, inviteFrame Frame, shouldInvite bool) {
	if onDataSocket {
		reg.Push(src, true, true, -1)
		return nil, Frame{}, false
	}

	dataAddr = &net.UDPAddr{IP: src.IP, Port: src.Port + 1, Zone: src.Zone}
	return dataAddr, Frame{Command: protocol.CommandInvite, Version: protocol.AppleMIDIVersion, Token: NewToken(), SSRC: ourSSRC, Name: ourName}, true
}

// HandleLeave implements spec.md §4.5's leave handling: leave arrives on
// the control port but identifies the peer by its data port
// (source_port+1) — a protocol fact, not a bug, so the +1 is applied here
// at the handler boundary rather than inside the registry.
func HandleLeave(reg *peer.Registry, controlSrc *net.UDPAddr) {
	dataAddr := &net.UDPAddr{IP: controlSrc.IP, Port: controlSrc.Port + 1, Zone: controlSrc.Zone}
	idx := reg.Find(dataAddr)
	reg.Leave(idx)
}
