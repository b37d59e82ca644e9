package backend

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattjbishop/rtpmidi/internal/epn"
	"github.com/mattjbishop/rtpmidi/internal/midi"
	"github.com/mattjbishop/rtpmidi/internal/nbsocket"
	"github.com/mattjbishop/rtpmidi/internal/peer"
	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
)

// Mode is an instance's configured wire dialect, per spec.md §3.
type Mode int

const (
	ModeUnconfigured Mode = iota
	ModeDirect
	ModeApple
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeApple:
		return "apple"
	default:
		return "unconfigured"
	}
}

// Instance is the per-instance state from spec.md §3: one RTP-MIDI or
// AppleMIDI session, its sockets, its peer registry, and its EPN
// reassembly buffers.
type Instance struct {
	Name string

	log zerolog.Logger

	mode Mode
	ssrc uint32
	seq  uint16

	bindHost string
	bindPort int

	dataSock    *nbsocket.Socket
	controlSock *nbsocket.Socket

	acceptPattern string
	invites       []string
	learnPeers    bool
	epnTxShort    bool
	noteOff       bool

	peers peer.Registry
	epn   epn.Machine

	lastAnnounce  time.Time
	lastReinvite  time.Time
}

func newInstance(name string, log zerolog.Logger) *Instance {
	// noteOff defaults to false: spec.md §3 says unconfigured note_off
	// folds incoming 0x80 events to 0x90/value-0 before dispatch.
	return &Instance{Name: name, log: log}
}

// Mode reports the instance's configured wire dialect.
func (inst *Instance) Mode() Mode {
	return inst.mode
}

// SSRC reports the instance's synchronization source identifier.
func (inst *Instance) SSRC() uint32 {
	return inst.ssrc
}

// Peers exposes the registry for host introspection (e.g. a "list peers"
// CLI command).
func (inst *Instance) Peers() *peer.Registry {
	return &inst.peers
}

// ConfigureInstance applies one instance option, per spec.md §6's
// `configure_instance(inst, option, value)`. Options are validated against
// the instance's mode where the spec requires it (e.g. `learn` is
// direct-only, `invite`/`join` are apple-only).
func (inst *Instance) ConfigureInstance(option, value string) error {
	switch option {
	case "mode":
		switch value {
		case "direct":
			inst.mode = ModeDirect
		case "apple":
			inst.mode = ModeApple
		default:
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "mode must be direct or apple"}
		}

	case "ssrc":
		n, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "ssrc must be a decimal or 0x-prefixed hex value"}
		}
		inst.ssrc = uint32(n)

	case "bind":
		host, port, err := parseHostPort(value, true)
		if err != nil {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: err.Error()}
		}
		inst.bindHost, inst.bindPort = host, port

	case "peer":
		if inst.mode == ModeUnconfigured {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "peer requires mode to be set first"}
		}
		host, port, err := parseHostPort(value, false)
		if err != nil {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: err.Error()}
		}
		addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "unresolved host: " + err.Error()}
		}
		inst.peers.Push(addr, false, inst.mode == ModeDirect, -1)

	case "learn":
		if inst.mode != ModeDirect {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "learn is only valid in direct mode"}
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "learn must be true or false"}
		}
		inst.learnPeers = b

	case "invite":
		if inst.mode != ModeApple {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "invite is only valid in apple mode"}
		}
		inst.invites = append(inst.invites, value)

	case "join":
		if inst.mode != ModeApple {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "join is only valid in apple mode"}
		}
		inst.acceptPattern = value

	case "epn-tx":
		inst.epnTxShort = value == "short"

	case "note-off":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "note-off must be true or false"}
		}
		inst.noteOff = b

	default:
		return &rtperrors.ConfigurationError{Option: option, Value: value, Message: "unknown instance option"}
	}
	return nil
}

// Channel implements spec.md §6's `channel(inst, spec, flags) -> channel_id`:
// parse a channel specifier and return its packed 64-bit identifier.
func (inst *Instance) Channel(spec string) (uint64, error) {
	id, err := midi.ParseSpec(spec)
	if err != nil {
		return 0, err
	}
	return id.Pack(), nil
}

// ChannelUpdate is one (channel, value) pair for a Set call.
type ChannelUpdate struct {
	ChannelID uint64
	Value     float64
}

// randomSSRC generates a non-zero 32-bit SSRC the way Start assigns one
// when an instance was not explicitly configured with one, matching the
// crypto/rand convention used for AppleMIDI tokens.
func randomSSRC() uint32 {
	for {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 1
		}
		if v := binary.BigEndian.Uint32(buf[:]); v != 0 {
			return v
		}
	}
}

// parseHostPort splits "host[:port]" into its parts. When portOptional is
// false, a missing port is an error (used for `peer`, which must always
// name a destination port).
func parseHostPort(value string, portOptional bool) (string, int, error) {
	host, portStr, err := net.SplitHostPort(value)
	if err != nil {
		if !portOptional {
			return "", 0, err
		}
		return value, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
