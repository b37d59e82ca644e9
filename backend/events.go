package backend

import (
	"encoding/binary"
	"net"

	"github.com/mattjbishop/rtpmidi/internal/applemidi"
	"github.com/mattjbishop/rtpmidi/internal/mdnssvc"
	"github.com/mattjbishop/rtpmidi/internal/midi"
	"github.com/mattjbishop/rtpmidi/internal/nbsocket"
	"github.com/mattjbishop/rtpmidi/internal/peer"
	"github.com/mattjbishop/rtpmidi/internal/protocol"
	"github.com/mattjbishop/rtpmidi/internal/rtperrors"
	"github.com/mattjbishop/rtpmidi/internal/rtpmidi"
)

// Event is one decoded channel update surfaced to the host, per spec.md
// §2's "event(s) pushed back to the host."
type Event struct {
	Instance *Instance
	Channel  uint8
	Type     midi.EventType
	Control  uint16
	Value    float64
}

// Handler receives events decoded from inbound traffic during Process.
type Handler func(Event)

// timestamp100us renders the current time in the 100-microsecond ticks
// RFC 4695 leaves unspecified; peers are required to tolerate whatever
// rate the sender actually uses, per spec.md §4.3.
func timestamp100us() uint32 {
	return uint32(timestamp100us64())
}

// timestamp100us64 is the 64-bit tick source the AppleMIDI clock-sync
// handshake needs (htobe64(mm_timestamp()*10) in the original source,
// rtpmidi.c:975/981) since a 32-bit tick would wrap during the handshake.
func timestamp100us64() uint64 {
	return uint64(now().UnixMilli()) * 10
}

// Set implements spec.md §6's `set(inst, n, channels, values)`: serialize
// every update into a single RTP-MIDI datagram and send it to every
// sendable (active and connected) peer. It returns how many of the
// updates were actually encoded — fewer than len(updates) only if the
// 1500-byte packet budget was exceeded, per spec.md §4.3.
func (inst *Instance) Set(updates []ChannelUpdate) (int, error) {
	if inst.dataSock == nil {
		return 0, &rtperrors.FatalError{Operation: "set", Err: errNotStarted}
	}

	events := make([]rtpmidi.Event, len(updates))
	for i, u := range updates {
		id := midi.Unpack(u.ChannelID)
		events[i] = rtpmidi.Event{Channel: id.Channel, Type: id.Type, Control: id.Control, Value: u.Value}
	}

	mpt := rtpmidi.PayloadType
	if inst.mode == ModeDirect {
		mpt |= rtpmidi.MarkerBit
	}

	hdr := rtpmidi.Header{MPT: mpt, Sequence: inst.seq, Timestamp: timestamp100us(), SSRC: inst.ssrc}
	inst.seq++

	packet, encoded := rtpmidi.EncodePacket(hdr, events, inst.epnTxShort)
	if encoded < len(updates) {
		inst.log.Info().Int("dropped", len(updates)-encoded).Msg("backend: set() batch truncated, packet buffer full")
	}

	for _, p := range inst.peers.All() {
		if !p.Sendable() {
			continue
		}
		if err := inst.dataSock.SendTo(packet, p.Addr); err != nil && err != nbsocket.ErrWouldBlock {
			inst.log.Info().Err(&rtperrors.TransmitError{Operation: "set", Err: err, Details: p.Addr.String()}).Msg("backend: send failed")
		}
	}

	return encoded, nil
}

// Process implements spec.md §4.7/§6: run at most one service tick, then
// drain mDNS discovery and every instance's sockets, invoking handler for
// each decoded channel event. The service loop always runs first so
// announce/sync traffic is not starved by a high inbound data rate, per
// spec.md §5's ordering guarantee. With the global detect option on, every
// delivered event is also logged before it reaches handler.
func (b *Backend) Process(handler Handler) {
	if b.detect {
		next := handler
		handler = func(e Event) {
			b.log.Info().Str("instance", e.Instance.Name).Uint8("channel", e.Channel).Stringer("type", e.Type).
				Uint16("control", e.Control).Float64("value", e.Value).Msg("backend: incoming event")
			if next != nil {
				next(e)
			}
		}
	}

	if now().Sub(b.lastService) >= protocol.ServiceInterval {
		b.serviceTick()
		b.lastService = now()
	}

	if b.mdns != nil {
		b.mdns.Drain(b.mdnsName, func(a mdnssvc.Announcement) {
			b.handleAnnouncement(a)
		})
	}

	for _, inst := range b.instances {
		if inst.controlSock != nil {
			b.drainSocket(inst, inst.controlSock, false, handler)
		}
		if inst.dataSock != nil {
			b.drainSocket(inst, inst.dataSock, true, handler)
		}
	}
}

// serviceTick runs the periodic announce/sync/re-invite pass for every
// apple-mode instance, per spec.md §4.7.
func (b *Backend) serviceTick() {
	for _, inst := range b.instances {
		if inst.mode != ModeApple {
			continue
		}

		if b.mdns != nil && b.mdns.Ready() && now().Sub(inst.lastAnnounce) >= protocol.AnnounceInterval {
			b.announce(inst)
		}

		peers := inst.peers.All()
		for i := range peers {
			p := peers[i]
			if !p.Active {
				continue
			}
			if p.Sendable() {
				inst.sendSync(p)
				continue
			}
			if !p.Learned && now().Sub(inst.lastReinvite) >= protocol.ReinviteInterval {
				inst.sendInvite(p)
			}
		}
		if now().Sub(inst.lastReinvite) >= protocol.ReinviteInterval {
			inst.lastReinvite = now()
		}

		inst.peers.ExpireSilent(protocol.PeerTimeout)
	}
}

func (b *Backend) announce(inst *Instance) {
	packet, err := mdnssvc.BuildAnnounce(b.mdnsName, inst.Name, inst.controlSock.Port(), b.addressesV4, b.addressesV6)
	if err != nil {
		b.log.Info().Err(err).Msg("backend: failed to build mdns announce")
		return
	}
	b.mdns.Broadcast(packet)
	inst.lastAnnounce = now()
}

// controlAddr derives a peer's control-socket address from its stored
// (data-socket) address: control = data - 1, per spec.md §3/§4.5.
func controlAddr(addr *net.UDPAddr) *net.UDPAddr {
	return &net.UDPAddr{IP: addr.IP, Port: addr.Port - 1, Zone: addr.Zone}
}

func (inst *Instance) sendSync(p peer.Peer) {
	frame := applemidi.SyncFrame{SSRC: inst.ssrc, Count: 0}
	if err := inst.controlSock.SendTo(frame.Encode(), controlAddr(p.Addr)); err != nil && err != nbsocket.ErrWouldBlock {
		inst.log.Info().Err(err).Msg("backend: sync send failed")
	}
}

func (inst *Instance) sendInvite(p peer.Peer) {
	frame := applemidi.Frame{Command: protocol.CommandInvite, Version: protocol.AppleMIDIVersion, Token: applemidi.NewToken(), SSRC: inst.ssrc, Name: inst.Name}
	if err := inst.controlSock.SendTo(frame.Encode(), controlAddr(p.Addr)); err != nil && err != nbsocket.ErrWouldBlock {
		inst.log.Info().Err(err).Msg("backend: invite send failed")
	}
}

// handleAnnouncement runs spec.md §4.6's apple_peermatch against every
// apple-mode instance's invite patterns.
func (b *Backend) handleAnnouncement(a mdnssvc.Announcement) {
	for _, inst := range b.instances {
		if inst.mode != ModeApple || len(inst.invites) == 0 {
			continue
		}
		invitations := applemidi.PeerMatch(&inst.peers, &inst.invites, a.SessionName, a.Source, a.ControlPort, inst.ssrc, inst.Name)
		for _, inv := range invitations {
			if err := inst.controlSock.SendTo(inv.Frame.Encode(), inv.Dest); err != nil && err != nbsocket.ErrWouldBlock {
				inst.log.Info().Err(err).Msg("backend: peermatch invite send failed")
			}
		}
	}
}

// drainSocket reads every pending datagram from sock, routing it to the
// AppleMIDI control-frame handler or the RTP-MIDI decoder by its magic
// bytes, per spec.md §6's disambiguation rule.
func (b *Backend) drainSocket(inst *Instance, sock *nbsocket.Socket, isDataSocket bool, handler Handler) {
	buf := make([]byte, protocol.PacketBuffer)
	for {
		n, src, err := sock.RecvFrom(buf)
		if err == nbsocket.ErrWouldBlock {
			return
		}
		if err != nil {
			inst.log.Info().Err(err).Msg("backend: receive failed")
			return
		}
		frame := buf[:n]
		if idx := inst.peers.Find(src); idx >= 0 {
			inst.peers.Touch(idx)
		}

		if len(frame) >= 2 && binary.BigEndian.Uint16(frame[0:2]) == protocol.AppleMIDIMagic {
			b.handleAppleMIDI(inst, sock, isDataSocket, frame, src, handler)
			continue
		}

		if isDataSocket {
			b.handleRTPMIDI(inst, frame, src, handler)
		}
	}
}

func (b *Backend) handleAppleMIDI(inst *Instance, sock *nbsocket.Socket, isDataSocket bool, frame []byte, src *net.UDPAddr, handler Handler) {
	if len(frame) >= 4 && protocol.AppleMIDICommand(binary.BigEndian.Uint16(frame[2:4])) == protocol.CommandSync {
		in, err := applemidi.DecodeSyncFrame(frame)
		if err != nil {
			inst.log.Info().Err(err).Msg("backend: malformed sync frame dropped")
			return
		}
		if resp, ok := in.Respond(timestamp100us64()); ok {
			if err := sock.SendTo(resp.Encode(), src); err != nil && err != nbsocket.ErrWouldBlock {
				inst.log.Info().Err(err).Msg("backend: sync reply failed")
			}
		}
		return
	}

	in, err := applemidi.DecodeFrame(frame)
	if err != nil {
		inst.log.Info().Err(err).Msg("backend: malformed applemidi frame dropped")
		return
	}

	switch in.Command {
	case protocol.CommandInvite:
		resp := applemidi.HandleInvite(&inst.peers, inst.acceptPattern, in, src, isDataSocket, inst.ssrc, inst.Name)
		if err := sock.SendTo(resp.Encode(), src); err != nil && err != nbsocket.ErrWouldBlock {
			inst.log.Info().Err(err).Msg("backend: invite response send failed")
		}

	case protocol.CommandAccept:
		dataAddr, inviteFrame, shouldInvite := applemidi.HandleAccept(&inst.peers, src, isDataSocket, inst.ssrc, inst.Name)
		if shouldInvite && inst.dataSock != nil {
			if err := inst.dataSock.SendTo(inviteFrame.Encode(), dataAddr); err != nil && err != nbsocket.ErrWouldBlock {
				inst.log.Info().Err(err).Msg("backend: accept-triggered invite send failed")
			}
		}

	case protocol.CommandReject:
		inst.log.Info().Stringer("peer", src).Msg("backend: invite rejected")

	case protocol.CommandLeave:
		if !isDataSocket {
			applemidi.HandleLeave(&inst.peers, src)
		}

	case protocol.CommandFeedback:
		inst.log.Info().Msg("backend: recovery journal feedback ignored")
	}
}

func (b *Backend) handleRTPMIDI(inst *Instance, frame []byte, src *net.UDPAddr, handler Handler) {
	_, events, err := rtpmidi.DecodePacket(frame)
	if err != nil {
		inst.log.Info().Err(err).Msg("backend: malformed rtp-midi packet dropped")
		return
	}

	rtpmidi.FoldNoteOff(events, inst.noteOff)

	if inst.mode == ModeDirect && inst.learnPeers && inst.peers.Find(src) < 0 {
		inst.peers.Push(src, true, true, -1)
	}

	for _, ev := range events {
		if ev.Type == midi.EventCC && rtpmidi.IsEPNControl(ev.Control) {
			rawValue := byte(ev.Value*127.0 + 0.5)
			if epnEvent, ok := inst.epn.Handle(ev.Channel, ev.Control, rawValue); ok {
				deliver(handler, inst, epnEvent.Channel, epnEvent.Type, epnEvent.Control, epnEvent.Value)
			}
			continue
		}
		deliver(handler, inst, ev.Channel, ev.Type, ev.Control, ev.Value)
	}
}

func deliver(handler Handler, inst *Instance, channel uint8, typ midi.EventType, control uint16, value float64) {
	if handler == nil {
		return
	}
	handler(Event{Instance: inst, Channel: channel, Type: typ, Control: control, Value: value})
}
