//go:build darwin

package nbsocket

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// openSocket mirrors socket_linux.go's steps; macOS has native SO_REUSEPORT
// support (BSD semantics) so no ENOPROTOOPT fallback is needed, matching the
// asymmetry already present between the teacher's socket_linux.go and
// socket_darwin.go.
func openSocket(family Family, host string, port int) (*Socket, error) {
	domain := unix.AF_INET
	if family == FamilyV6 {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("nbsocket: socket: %w", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("nbsocket: set nonblocking: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("nbsocket: SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("nbsocket: SO_REUSEPORT: %w", err)
	}

	sa, err := toSockaddr(family, host, port)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("nbsocket: bind %s:%d: %w", host, port, err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("nbsocket: getsockname: %w", err)
	}

	return &Socket{fd: fd, family: family, port: portOf(bound)}, nil
}

// joinMulticast on BSD/macOS identifies the IPv4 interface side of an
// IP_ADD_MEMBERSHIP request by local address rather than ifindex (unlike
// Linux's ip_mreqn), so we resolve each candidate interface's first IPv4
// address before joining.
func (s *Socket) joinMulticast(group net.IP, ifaces []net.Interface) error {
	if len(ifaces) == 0 {
		all, err := net.Interfaces()
		if err != nil {
			return fmt.Errorf("nbsocket: list interfaces: %w", err)
		}
		ifaces = all
	}

	joined := 0
	var lastErr error
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if s.family == FamilyV4 {
			ifaceAddr := firstIPv4(iface)
			if ifaceAddr == nil {
				continue
			}
			mreq := &unix.IPMreq{}
			copy(mreq.Multiaddr[:], group.To4())
			copy(mreq.Interface[:], ifaceAddr.To4())
			if err := unix.SetsockoptIPMreq(s.fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq); err != nil {
				lastErr = err
				continue
			}
		} else {
			var addr [16]byte
			copy(addr[:], group.To16())
			mreq := &unix.IPv6Mreq{Multiaddr: addr, Interface: uint32(iface.Index)}
			if err := unix.SetsockoptIPv6Mreq(s.fd, unix.IPPROTO_IPV6, unix.IPV6_JOIN_GROUP, mreq); err != nil {
				lastErr = err
				continue
			}
		}
		joined++
	}
	if joined == 0 {
		if lastErr != nil {
			return fmt.Errorf("nbsocket: join multicast on no interfaces: %w", lastErr)
		}
		return fmt.Errorf("nbsocket: no usable multicast interfaces")
	}
	return nil
}

func firstIPv4(iface net.Interface) net.IP {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4
		}
	}
	return nil
}

func (s *Socket) sendTo(packet []byte, dest *net.UDPAddr) error {
	sa, err := udpAddrToSockaddr(s.family, dest)
	if err != nil {
		return err
	}
	err = unix.Sendto(s.fd, packet, 0, sa)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return ErrWouldBlock
	}
	if err != nil {
		return fmt.Errorf("nbsocket: sendto %s: %w", dest, err)
	}
	return nil
}

func (s *Socket) recvFrom(buf []byte) (int, *net.UDPAddr, error) {
	n, from, err := unix.Recvfrom(s.fd, buf, 0)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, nil, ErrWouldBlock
	}
	if err != nil {
		return 0, nil, fmt.Errorf("nbsocket: recvfrom: %w", err)
	}
	return n, sockaddrToUDPAddr(from), nil
}

func (s *Socket) closeSocket() error {
	return unix.Close(s.fd)
}

func toSockaddr(family Family, host string, port int) (unix.Sockaddr, error) {
	if family == FamilyV4 {
		sa := &unix.SockaddrInet4{Port: port}
		if host != "" {
			ip := net.ParseIP(host).To4()
			if ip == nil {
				return nil, fmt.Errorf("nbsocket: invalid IPv4 address %q", host)
			}
			copy(sa.Addr[:], ip)
		}
		return sa, nil
	}
	sa := &unix.SockaddrInet6{Port: port}
	if host != "" {
		ip := net.ParseIP(host).To16()
		if ip == nil {
			return nil, fmt.Errorf("nbsocket: invalid IPv6 address %q", host)
		}
		copy(sa.Addr[:], ip)
	}
	return sa, nil
}

func udpAddrToSockaddr(family Family, addr *net.UDPAddr) (unix.Sockaddr, error) {
	if family == FamilyV4 {
		ip := addr.IP.To4()
		if ip == nil {
			return nil, fmt.Errorf("nbsocket: destination %s is not IPv4", addr)
		}
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip)
		return sa, nil
	}
	ip := addr.IP.To16()
	if ip == nil {
		return nil, fmt.Errorf("nbsocket: destination %s is not IPv6", addr)
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], ip)
	return sa, nil
}

func sockaddrToUDPAddr(sa unix.Sockaddr) *net.UDPAddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, v.Addr[:])
		return &net.UDPAddr{IP: ip, Port: v.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, v.Addr[:])
		return &net.UDPAddr{IP: ip, Port: v.Port}
	default:
		return nil
	}
}

func portOf(sa unix.Sockaddr) int {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return v.Port
	case *unix.SockaddrInet6:
		return v.Port
	default:
		return 0
	}
}
