package mdnssvc

import (
	"net"

	"github.com/rs/zerolog"

	"github.com/mattjbishop/rtpmidi/internal/nbsocket"
	"github.com/mattjbishop/rtpmidi/internal/protocol"
)

// Service owns the two backend-global multicast sockets (IPv4 and IPv6)
// described in spec.md §3: "Either may be absent; at least one must be
// present if any AppleMIDI instance exists, else discovery is disabled with
// a warning."
type Service struct {
	v4  *nbsocket.Socket
	v6  *nbsocket.Socket
	log zerolog.Logger
}

// New opens the IPv4 and/or IPv6 mDNS multicast sockets and joins the
// 224.0.0.251 / ff02::fb groups on ifaces. A failure on one family is
// logged as a warning and that family is left nil; Service.Ready reports
// whether at least one socket came up, per the partial-failure semantics of
// spec.md §7.
func New(log zerolog.Logger, ifaces []net.Interface) *Service {
	svc := &Service{log: log}

	if sock, err := openJoined(nbsocket.FamilyV4, net.ParseIP(protocol.MulticastAddrIPv4), ifaces); err != nil {
		log.Warn().Err(err).Msg("mdns: ipv4 multicast socket unavailable")
	} else {
		svc.v4 = sock
	}

	if sock, err := openJoined(nbsocket.FamilyV6, net.ParseIP(protocol.MulticastAddrIPv6), ifaces); err != nil {
		log.Warn().Err(err).Msg("mdns: ipv6 multicast socket unavailable")
	} else {
		svc.v6 = sock
	}

	if svc.v4 == nil && svc.v6 == nil {
		log.Warn().Msg("mdns: discovery disabled, no multicast socket available on either family")
	}

	return svc
}

func openJoined(family nbsocket.Family, group net.IP, ifaces []net.Interface) (*nbsocket.Socket, error) {
	sock, err := nbsocket.Open(family, "", protocol.MDNSPort)
	if err != nil {
		return nil, err
	}
	if err := sock.JoinMulticast(group, ifaces); err != nil {
		_ = sock.Close()
		return nil, err
	}
	return sock, nil
}

// Ready reports whether at least one multicast socket is active.
func (s *Service) Ready() bool {
	return s.v4 != nil || s.v6 != nil
}

// FDs returns the underlying sockets for the host's readiness poller,
// skipping absent families.
func (s *Service) FDs() []*nbsocket.Socket {
	var out []*nbsocket.Socket
	if s.v4 != nil {
		out = append(out, s.v4)
	}
	if s.v6 != nil {
		out = append(out, s.v6)
	}
	return out
}

// Broadcast sends packet to both multicast groups; a failure on one socket
// is logged and does not prevent the send on the other, per spec.md §4.2
// ("Transmit").
func (s *Service) Broadcast(packet []byte) {
	if s.v4 != nil {
		if err := s.v4.SendTo(packet, protocol.MulticastGroupIPv4()); err != nil && err != nbsocket.ErrWouldBlock {
			s.log.Info().Err(err).Msg("mdns: ipv4 broadcast failed")
		}
	}
	if s.v6 != nil {
		if err := s.v6.SendTo(packet, protocol.MulticastGroupIPv6()); err != nil && err != nbsocket.ErrWouldBlock {
			s.log.Info().Err(err).Msg("mdns: ipv6 broadcast failed")
		}
	}
}

// Drain reads every pending datagram from both sockets (stopping at
// ErrWouldBlock on each, per the non-blocking drain model of spec.md §5),
// parses it, and invokes handle once per discovered SRV announcement.
func (s *Service) Drain(mdnsName string, handle func(Announcement)) {
	for _, sock := range []*nbsocket.Socket{s.v4, s.v6} {
		if sock == nil {
			continue
		}
		buf := make([]byte, protocol.PacketBuffer*6)
		for {
			n, src, err := sock.RecvFrom(buf)
			if err == nbsocket.ErrWouldBlock {
				break
			}
			if err != nil {
				s.log.Info().Err(err).Msg("mdns: receive failed")
				break
			}
			announcements, err := ParseAnnounce(buf[:n], mdnsName)
			if err != nil {
				s.log.Info().Err(err).Msg("mdns: malformed packet dropped")
				continue
			}
			for _, a := range announcements {
				if src != nil {
					a.Source = src.IP
				}
				handle(a)
			}
		}
	}
}

// Close releases both sockets, tolerating either being absent.
func (s *Service) Close() {
	if s.v4 != nil {
		_ = s.v4.Close()
	}
	if s.v6 != nil {
		_ = s.v6.Close()
	}
}
