//go:build windows

package nbsocket

import (
	"fmt"
	"net"

	"golang.org/x/sys/windows"
)

// openSocket mirrors the Linux/macOS implementations using
// golang.org/x/sys/windows. Windows has no SO_REUSEPORT (only SO_REUSEADDR,
// whose semantics already permit multiple binds to the same port — see the
// teacher's socket_windows.go for the same observation) and no SetNonblock
// helper, so non-blocking mode is set via the FIONBIO ioctl.
func openSocket(family Family, host string, port int) (*Socket, error) {
	domain := windows.AF_INET
	if family == FamilyV6 {
		domain = windows.AF_INET6
	}

	fd, err := windows.Socket(domain, windows.SOCK_DGRAM, windows.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("nbsocket: socket: %w", err)
	}

	nonblocking := uint32(1)
	if err := windows.Ioctlsocket(fd, windows.FIONBIO, &nonblocking); err != nil {
		_ = windows.Closesocket(fd)
		return nil, fmt.Errorf("nbsocket: set nonblocking: %w", err)
	}

	if err := windows.SetsockoptInt(fd, windows.SOL_SOCKET, windows.SO_REUSEADDR, 1); err != nil {
		_ = windows.Closesocket(fd)
		return nil, fmt.Errorf("nbsocket: SO_REUSEADDR: %w", err)
	}

	sa, err := toSockaddr(family, host, port)
	if err != nil {
		_ = windows.Closesocket(fd)
		return nil, err
	}
	if err := windows.Bind(fd, sa); err != nil {
		_ = windows.Closesocket(fd)
		return nil, fmt.Errorf("nbsocket: bind %s:%d: %w", host, port, err)
	}

	bound, err := windows.Getsockname(fd)
	if err != nil {
		_ = windows.Closesocket(fd)
		return nil, fmt.Errorf("nbsocket: getsockname: %w", err)
	}

	return &Socket{fd: int(fd), family: family, port: portOf(bound)}, nil
}

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
			mreq := &windows.IPMreq{}
			copy(mreq.Multiaddr[:], group.To4())
			if err := windows.SetsockoptIPMreq(windows.Handle(s.fd), windows.IPPROTO_IP, windows.IP_ADD_MEMBERSHIP, mreq); err != nil {
				lastErr = err
				continue
			}
		} else {
			mreq := &windows.IPv6Mreq{}
			copy(mreq.Multiaddr[:], group.To16())
			mreq.Interface = uint32(iface.Index)
			if err := windows.SetsockoptIPv6Mreq(windows.Handle(s.fd), windows.IPPROTO_IPV6, windows.IPV6_JOIN_GROUP, mreq); err != nil {
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

func (s *Socket) sendTo(packet []byte, dest *net.UDPAddr) error {
	sa, err := udpAddrToSockaddr(s.family, dest)
	if err != nil {
		return err
	}
	err = windows.Sendto(windows.Handle(s.fd), packet, 0, sa)
	if err == windows.WSAEWOULDBLOCK {
		return ErrWouldBlock
	}
	if err != nil {
		return fmt.Errorf("nbsocket: sendto %s: %w", dest, err)
	}
	return nil
}

func (s *Socket) recvFrom(buf []byte) (int, *net.UDPAddr, error) {
	n, from, err := windows.Recvfrom(windows.Handle(s.fd), buf, 0)
	if err == windows.WSAEWOULDBLOCK {
		return 0, nil, ErrWouldBlock
	}
	if err != nil {
		return 0, nil, fmt.Errorf("nbsocket: recvfrom: %w", err)
	}
	return n, sockaddrToUDPAddr(from), nil
}

func (s *Socket) closeSocket() error {
	return windows.Closesocket(windows.Handle(s.fd))
}

func toSockaddr(family Family, host string, port int) (windows.Sockaddr, error) {
	if family == FamilyV4 {
		sa := &windows.SockaddrInet4{Port: port}
		if host != "" {
			ip := net.ParseIP(host).To4()
			if ip == nil {
				return nil, fmt.Errorf("nbsocket: invalid IPv4 address %q", host)
			}
			copy(sa.Addr[:], ip)
		}
		return sa, nil
	}
	sa := &windows.SockaddrInet6{Port: port}
	if host != "" {
		ip := net.ParseIP(host).To16()
		if ip == nil {
			return nil, fmt.Errorf("nbsocket: invalid IPv6 address %q", host)
		}
		copy(sa.Addr[:], ip)
	}
	return sa, nil
}

func udpAddrToSockaddr(family Family, addr *net.UDPAddr) (windows.Sockaddr, error) {
	if family == FamilyV4 {
		ip := addr.IP.To4()
		if ip == nil {
			return nil, fmt.Errorf("nbsocket: destination %s is not IPv4", addr)
		}
		sa := &windows.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip)
		return sa, nil
	}
	ip := addr.IP.To16()
	if ip == nil {
		return nil, fmt.Errorf("nbsocket: destination %s is not IPv6", addr)
	}
	sa := &windows.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], ip)
	return sa, nil
}

func sockaddrToUDPAddr(sa windows.Sockaddr) *net.UDPAddr {
	switch v := sa.(type) {
	case *windows.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, v.Addr[:])
		return &net.UDPAddr{IP: ip, Port: v.Port}
	case *windows.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, v.Addr[:])
		return &net.UDPAddr{IP: ip, Port: v.Port}
	default:
		return nil
	}
}

func portOf(sa windows.Sockaddr) int {
	switch v := sa.(type) {
	case *windows.SockaddrInet4:
		return v.Port
	case *windows.SockaddrInet6:
		return v.Port
	default:
		return 0
	}
}
