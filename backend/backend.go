// Package backend implements the host-facing contract of spec.md §6: a
// process-wide singleton owning global mDNS discovery state plus a set of
// per-instance RTP-MIDI/AppleMIDI state machines, all driven synchronously
// by an external non-blocking readiness poll per spec.md §5. There are no
// internal goroutines or locks — every entry point below assumes it is
// called from the host's single driving thread, the same cooperative model
// the original rtpmidi_service() loop used.
package backend

import (
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattjbishop/rtpmidi/internal/iface"
	"github.com/mattjbishop/rtpmidi/internal/mdnssvc"
	"github.com/mattjbishop/rtpmidi/internal/protocol"
	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

// Backend is the process-wide singleton from spec.md §3's "Backend-global
// state": the mDNS name, interface filter, gathered local addresses, and
// the mDNS service, constructed once at load and threaded through every
// instance operation.
type Backend struct {
	log zerolog.Logger

	mdnsName    string
	mdnsNameSet bool
	ifaceFilter []string
	detect      bool

	addressesV4 []net.IP
	addressesV6 []net.IP

	mdns *mdnssvc.Service

	instances []*Instance

	lastService time.Time
	started     bool
}

// New constructs an unconfigured Backend. Configure and ConfigureInstance
// calls must run before Start.
func New(log zerolog.Logger) *Backend {
	return &Backend{log: log}
}

// Configure applies a global option per spec.md §6: mdns-name,
// mdns-interface, detect.
func (b *Backend) Configure(option, value string) error {
	switch option {
	case "mdns-name":
		if b.mdnsNameSet {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "mdns-name already configured"}
		}
		if err := protocol.ValidateName(value); err != nil {
			return err
		}
		b.mdnsName = value
		b.mdnsNameSet = true

	case "mdns-interface":
		b.ifaceFilter = append(b.ifaceFilter, value)

	case "detect":
		switch value {
		case "on", "true":
			b.detect = true
		case "off", "false":
			b.detect = false
		default:
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "detect must be on or off"}
		}

	default:
		return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "unknown global option"}
	}
	return nil
}

// AddInstance registers a new, unconfigured instance identified by name
// (used both as the mDNS service-instance label and for diagnostics) and
// returns it for ConfigureInstance calls.
func (b *Backend) AddInstance(name string) *Instance {
	inst := newInstance(name, b.log)
	b.instances = append(b.instances, inst)
	return inst
}

// Instances returns every registered instance, in registration order.
func (b *Backend) Instances() []*Instance {
	return b.instances
}

// anyApple reports whether at least one instance is configured for apple
// mode, gating whether mDNS discovery is required at all per spec.md §3.
func (b *Backend) anyApple() bool {
	for _, inst := range b.instances {
		if inst.mode == ModeApple {
			return true
		}
	}
	return false
}

// needMDNS mirrors anyApple under the name Start uses, kept distinct so
// future non-apple discovery users (none today) don't have to read through
// Start's body.
func (b *Backend) needMDNS() bool {
	return b.anyApple()
}

func resolveMDNSName(b *Backend) string {
	if b.mdnsNameSet {
		return b.mdnsName
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "rtpmidi"
}

func ifacesFor(b *Backend) ([]net.Interface, error) {
	return iface.Resolve(b.ifaceFilter)
}
