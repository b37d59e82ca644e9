// Package peer implements the per-instance peer registry from spec.md §3
// and §4.6: a slice of known remote endpoints, deduplicated by exact
// address match, with the learned/configured and connected/disconnected
// lifecycle rules the AppleMIDI handshake and direct-mode learning depend
// on. Grounded on the original rtpmidi_push_peer() and the address-keyed
// slice shape the teacher's registry used, with the mutex removed: per
// spec.md §5 this registry is only ever touched from the single service
// thread.
package peer

import (
	"net"
	"time"
)

// Peer is one registry entry, matching the {active, learned, connected,
// invite_ref, sockaddr, sockaddr_len} tuple from spec.md §3.
type Peer struct {
	Active     bool
	Learned    bool
	Connected  bool
	InviteRef  int // index into the instance's invite pattern list, or -1
	Addr       *net.UDPAddr
	LastHeard  time.Time
}

// Registry is the ordered set of peers for one instance. Entries are never
// removed, only deactivated, so InviteRef and slice indices stay stable.
type Registry struct {
	peers []Peer
}

// sameAddr reports whether two addresses are the exact (IP, port, zone)
// tuple spec.md §3's dedup rule compares — not just IP equality, since two
// peers on different ports are distinct sessions.
func sameAddr(a, b *net.UDPAddr) bool {
	return a.IP.Equal(b.IP) && a.Port == b.Port && a.Zone == b.Zone
}

// Push adds or refreshes a peer at addr. If a peer with the exact same
// address already exists, its Connected flag is refreshed (OR'd in) but
// Learned is never changed by a re-add, per spec.md §3's dedup invariant.
// It returns the peer's index.
func (r *Registry) Push(addr *net.UDPAddr, learned, connected bool, inviteRef int) int {
	for i := range r.peers {
		p := &r.peers[i]
		if p.Active && sameAddr(p.Addr, addr) {
			p.Connected = p.Connected || connected
			p.LastHeard = now()
			return i
		}
	}

	r.peers = append(r.peers, Peer{
		Active:    true,
		Learned:   learned,
		Connected: connected,
		InviteRef: inviteRef,
		Addr:      addr,
		LastHeard: now(),
	})
	return len(r.peers) - 1
}

// Find returns the index of the active peer at addr, or -1.
func (r *Registry) Find(addr *net.UDPAddr) int {
	for i := range r.peers {
		if r.peers[i].Active && sameAddr(r.peers[i].Addr, addr) {
			return i
		}
	}
	return -1
}

// FindByInvite returns the index of an active, learned peer created from
// invite pattern index inviteRef, or -1.
func (r *Registry) FindByInvite(inviteRef int) int {
	for i := range r.peers {
		p := &r.peers[i]
		if p.Active && p.Learned && p.InviteRef == inviteRef {
			return i
		}
	}
	return -1
}

// Leave applies spec.md §3's departure rule: a learned peer leaving is
// deactivated outright; a configured (non-learned) peer is merely
// disconnected so it can be re-invited later.
func (r *Registry) Leave(idx int) {
	if idx < 0 || idx >= len(r.peers) {
		return
	}
	p := &r.peers[idx]
	if p.Learned {
		p.Active = false
	} else {
		p.Connected = false
	}
}

// UpdateAddr overwrites the stored address for the peer at idx, used when
// a matched invite pattern's peer resurfaces from a new source address of
// the same family (spec.md §4.6).
func (r *Registry) UpdateAddr(idx int, addr *net.UDPAddr) {
	if idx < 0 || idx >= len(r.peers) {
		return
	}
	r.peers[idx].Addr = addr
}

// Touch refreshes LastHeard for the peer at idx, used whenever traffic
// arrives from a known address so PeerTimeout (spec.md §9a) can later
// expire genuinely silent peers without penalizing active ones.
func (r *Registry) Touch(idx int) {
	if idx < 0 || idx >= len(r.peers) {
		return
	}
	r.peers[idx].LastHeard = now()
}

// ExpireSilent deactivates learned peers that have not been heard from in
// longer than timeout, per spec.md §9a's open-question resolution.
// Configured peers are never expired this way — they simply stay
// disconnected until the service loop re-invites them.
func (r *Registry) ExpireSilent(timeout time.Duration) {
	cutoff := now().Add(-timeout)
	for i := range r.peers {
		p := &r.peers[i]
		if p.Active && p.Learned && p.LastHeard.Before(cutoff) {
			p.Active = false
		}
	}
}

// Active ∧ Connected is the only state from which outbound RTP-MIDI
// traffic is sent, per spec.md §3's invariant list.
func (p Peer) Sendable() bool {
	return p.Active && p.Connected
}

// All returns the live backing slice for callers that need to range over
// every entry (e.g. the service loop's sync/invite/announce passes).
func (r *Registry) All() []Peer {
	return r.peers
}

// Len reports the number of entries, including deactivated ones — matching
// the original's never-shrinking slot array.
func (r *Registry) Len() int {
	return len(r.peers)
}

// now is a seam so tests can avoid real wall-clock dependence; production
// code always calls time.Now().
var now = time.Now
