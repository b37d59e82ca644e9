// Package nbsocket provides non-blocking UDP datagram sockets for the
// single-threaded cooperative concurrency model described in SPEC_FULL.md §5:
// every instance and mDNS socket is driven by an external readiness poll, so
// sendto/recvfrom must never block, and EAGAIN/EWOULDBLOCK must surface as a
// sentinel the caller treats as "drained," never as a failure.
//
// Platform-specific files (socket_linux.go, socket_darwin.go,
// socket_windows.go) implement the raw syscalls; this file holds the
// family-agnostic wrapper and shared helpers.
package nbsocket

import (
	"errors"
	"net"
)

// ErrWouldBlock is returned by Recv/Send when the underlying socket would
// have blocked. Callers use this as the terminator of a drain loop, not as
// an error to log.
var ErrWouldBlock = errors.New("nbsocket: operation would block")

// Family selects the address family a Socket is bound to. mDNS keeps
// separate v4 and v6 sockets per SPEC_FULL.md's Dual-family Design Note;
// AppleMIDI/RTP-MIDI instance sockets use whichever family their configured
// bind address resolves to.
type Family int

const (
	// FamilyV4 selects IPv4 (AF_INET).
	FamilyV4 Family = iota
	// FamilyV6 selects IPv6 (AF_INET6).
	FamilyV6
)

// Socket is a non-blocking UDP datagram socket with SO_REUSEADDR/
// SO_REUSEPORT set (where the platform supports it) so multiple processes —
// or multiple instances within this process — can share a port the way
// Avahi/Bonjour-style daemons do.
type Socket struct {
	fd     int
	family Family
	port   int
}

// Open creates and binds a non-blocking UDP socket. host may be empty to
// bind the wildcard address; port 0 asks the kernel for an ephemeral port —
// Port() reports the bound value afterward.
func Open(family Family, host string, port int) (*Socket, error) {
	return openSocket(family, host, port)
}

// Port returns the bound local port, useful after binding with port 0.
func (s *Socket) Port() int {
	return s.port
}

// Family reports the socket's address family.
func (s *Socket) Family() Family {
	return s.family
}

// JoinMulticast joins the socket's family-appropriate multicast group on
// every usable interface in ifaces (nil means "all interfaces").
func (s *Socket) JoinMulticast(group net.IP, ifaces []net.Interface) error {
	return s.joinMulticast(group, ifaces)
}

// SendTo transmits packet to dest without blocking. A would-block condition
// returns ErrWouldBlock, which callers drop without logging or retrying;
// any other error is a TransmitFailed case (SPEC_FULL.md §7) the caller logs
// and does not retry inline.
func (s *Socket) SendTo(packet []byte, dest *net.UDPAddr) error {
	return s.sendTo(packet, dest)
}

// RecvFrom reads one datagram into buf without blocking. When no datagram is
// pending it returns (0, nil, ErrWouldBlock) — the caller's drain loop stops
// there, exactly mirroring the C source's EAGAIN/EWOULDBLOCK check.
func (s *Socket) RecvFrom(buf []byte) (int, *net.UDPAddr, error) {
	return s.recvFrom(buf)
}

// Close releases the socket's file descriptor. Safe to call once; SPEC_FULL
// §5 Resource Lifecycle requires sockets be released unconditionally at
// shutdown.
func (s *Socket) Close() error {
	return s.closeSocket()
}
