package backend

import (
	"errors"
	"net"
	"time"

	"github.com/mattjbishop/rtpmidi/internal/iface"
	"github.com/mattjbishop/rtpmidi/internal/mdnssvc"
	"github.com/mattjbishop/rtpmidi/internal/midi"
	"github.com/mattjbishop/rtpmidi/internal/nbsocket"
	"github.com/mattjbishop/rtpmidi/internal/protocol"
	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

var (
	errAlreadyStarted       = errors.New("backend: already started")
	errUnconfiguredInstance = errors.New("backend: an instance was never given a mode")
	errChannelIDSize        = errors.New("backend: packed channel identifier does not round-trip through Pack/Unpack")
	errNotStarted           = errors.New("backend: instance has no socket, Start was never called")
)

// channelIDRoundTrips is the load-time invariant spec.md §9's "Tagged
// union for channel identifier" design note calls for. The 8-byte size is
// already guaranteed by the Go type system (Pack returns uint64); what's
// worth checking at load is that Pack/Unpack actually agree, since that is
// the part a future field-width change could silently break.
func channelIDRoundTrips() bool {
	probe := midi.ChannelID{Type: 0xFF, Channel: 0xFF, Control: 0xFFFF}
	return midi.Unpack(probe.Pack()) == probe
}

// Start binds every instance's socket(s), brings up mDNS discovery if any
// instance needs it, and assigns a random SSRC to instances that did not
// configure one, per spec.md §6/§3. Start returns failure only for bind
// failure or an invariant violation at load, per spec.md §7's Fatal class;
// everything else is recoverable.
func (b *Backend) Start() error {
	if b.started {
		return &rtperrors.FatalError{Operation: "start", Err: errAlreadyStarted}
	}

	if !channelIDRoundTrips() {
		return &rtperrors.FatalError{Operation: "start", Err: errChannelIDSize}
	}

	if !b.mdnsNameSet {
		b.mdnsName = resolveMDNSName(b)
		b.mdnsNameSet = true
	}

	for _, inst := range b.instances {
		if inst.mode == ModeUnconfigured {
			return &rtperrors.FatalError{Operation: "start", Err: errUnconfiguredInstance}
		}
		if inst.ssrc == 0 {
			inst.ssrc = randomSSRC()
		}

		dataSock, err := nbsocket.Open(familyFor(inst.bindHost), inst.bindHost, inst.bindPort)
		if err != nil {
			return &rtperrors.FatalError{Operation: "bind data socket", Err: err}
		}
		inst.dataSock = dataSock

		if inst.mode == ModeApple {
			controlSock, err := nbsocket.Open(familyFor(inst.bindHost), inst.bindHost, dataSock.Port()-1)
			if err != nil {
				_ = dataSock.Close()
				return &rtperrors.FatalError{Operation: "bind control socket", Err: err}
			}
			inst.controlSock = controlSock
		}
	}

	if b.needMDNS() {
		ifaces, err := ifacesFor(b)
		if err != nil {
			b.log.Warn().Err(err).Msg("backend: interface enumeration failed, mdns discovery disabled")
		} else {
			b.mdns = mdnssvc.New(b.log, ifaces)
			v4, v6, err := iface.Addresses(ifaces)
			if err != nil {
				b.log.Warn().Err(err).Msg("backend: address enumeration failed")
			}
			b.addressesV4, b.addressesV6 = v4, v6
			if len(b.addressesV4)+len(b.addressesV6) == 0 {
				b.log.Warn().Msg("backend: no local addresses found for mdns announce")
			}
		}
	}

	b.started = true
	return nil
}

// Shutdown releases every instance's sockets and the mDNS service,
// unconditionally and regardless of prior partial failure, per spec.md §5's
// resource-lifecycle rule. Apple-mode instances send a detach announce
// first so peers stop treating the session as live.
func (b *Backend) Shutdown() {
	for _, inst := range b.instances {
		if inst.mode == ModeApple && b.mdns != nil && b.mdns.Ready() {
			if packet, err := mdnssvc.BuildDetach(inst.Name); err == nil {
				b.mdns.Broadcast(packet)
			}
		}
		if inst.dataSock != nil {
			_ = inst.dataSock.Close()
			inst.dataSock = nil
		}
		if inst.controlSock != nil {
			_ = inst.controlSock.Close()
			inst.controlSock = nil
		}
	}
	if b.mdns != nil {
		b.mdns.Close()
		b.mdns = nil
	}
	b.started = false
}

// Interval reports how long the host should wait before calling Process
// again, per spec.md §4.7's `interval()`.
func (b *Backend) Interval() time.Duration {
	elapsed := now().Sub(b.lastService)
	if elapsed >= protocol.ServiceInterval {
		return 0
	}
	return protocol.ServiceInterval - elapsed
}

func familyFor(host string) nbsocket.Family {
	if host == "" {
		return nbsocket.FamilyV4
	}
	ip := net.ParseIP(host)
	if ip != nil && ip.To4() == nil {
		return nbsocket.FamilyV6
	}
	return nbsocket.FamilyV4
}

// now is a seam so tests can avoid real wall-clock dependence.
var now = time.Now
