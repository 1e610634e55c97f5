package connmgr

import (
	"slices"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/darkhz/bleconnmgr/bluetooth"
)

// appSet is a set of application IDs.
type appSet map[AppID]struct{}

func (s appSet) has(app AppID) bool {
	_, ok := s[app]
	return ok
}

// sorted returns the members in ascending order.
func (s appSet) sorted() []AppID {
	apps := make([]AppID, 0, len(s))
	for app := range s {
		apps = append(apps, app)
	}
	slices.Sort(apps)

	return apps
}

// first returns the lowest member.
func (s appSet) first() (AppID, bool) {
	if len(s) == 0 {
		return 0, false
	}

	return s.sorted()[0], true
}

// directAttempt is an in-flight direct connection attempt. It owns the
// timer bounding the attempt.
type directAttempt struct {
	deadline time.Time
	timer    *clock.Timer
}

// cancel stops the attempt's timer. A timer callback that was already
// scheduled is discarded once it observes the attempt is gone.
func (d *directAttempt) cancel() {
	if d.timer != nil {
		d.timer.Stop()
	}
}

// peerInterest is the registry entry for one peer.
type peerInterest struct {
	address bluetooth.MacAddress

	background appSet
	targeted   appSet
	direct     map[AppID]*directAttempt

	// inAcceptList is set while the peer occupies an accept list entry.
	inAcceptList bool

	// filtering is set while the peer is counted in Manager.filteringPeers.
	filtering bool
}

func newPeerInterest(address bluetooth.MacAddress) *peerInterest {
	return &peerInterest{
		address:    address,
		background: make(appSet),
		targeted:   make(appSet),
		direct:     make(map[AppID]*directAttempt),
	}
}

// interested reports whether any application still wants this peer.
func (p *peerInterest) interested() bool {
	return len(p.background) > 0 || len(p.targeted) > 0 || len(p.direct) > 0
}

// needsAcceptList reports whether the peer's interest requires an accept
// list entry. Targeted announcement interest takes precedence over background
// interest, unless a direct connection is in flight.
func (p *peerInterest) needsAcceptList() bool {
	return len(p.direct) > 0 || (len(p.background) > 0 && len(p.targeted) == 0)
}

// pureFiltering reports whether the peer relies only on the announcement filter.
func (p *peerInterest) pureFiltering() bool {
	return len(p.targeted) > 0 && !p.inAcceptList
}

func (p *peerInterest) interestSet(kind InterestKind) appSet {
	switch kind {
	case InterestBackground:
		return p.background

	case InterestTargetedAnnouncement:
		return p.targeted
	}

	return nil
}

func (p *peerInterest) directApps() []AppID {
	apps := make([]AppID, 0, len(p.direct))
	for app := range p.direct {
		apps = append(apps, app)
	}
	slices.Sort(apps)

	return apps
}

// entry returns the registry entry for the address, creating it if needed.
func (m *Manager) entry(address bluetooth.MacAddress) (*peerInterest, bool) {
	if p, ok := m.peers[address]; ok {
		return p, false
	}

	p := newPeerInterest(address)
	m.peers[address] = p
	m.publish(TransitionPeerTracked, address, 0)

	return p, true
}

// eraseIfUnused removes the entry once it has no interest and no accept list residue.
func (m *Manager) eraseIfUnused(p *peerInterest) {
	if p.interested() || p.inAcceptList {
		return
	}

	if m.peers[p.address] != p {
		return
	}

	delete(m.peers, p.address)
	m.publish(TransitionPeerErased, p.address, 0)
}

// sortedPeers returns the registry entries in address order.
func (m *Manager) sortedPeers() []*peerInterest {
	peers := make([]*peerInterest, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}

	slices.SortFunc(peers, func(a, b *peerInterest) int {
		return a.address.Compare(b.address)
	})

	return peers
}

// InterestedApps returns the applications doing background connection to the peer.
func (m *Manager) InterestedApps(address bluetooth.MacAddress) []AppID {
	p, ok := m.peers[address]
	if !ok {
		return nil
	}

	return p.background.sorted()
}

// EntryExists reports whether the peer is tracked.
func (m *Manager) EntryExists(address bluetooth.MacAddress) bool {
	_, ok := m.peers[address]
	return ok
}

// IsBackgroundConnection reports whether any kind of connection interest
// is registered for the peer.
func (m *Manager) IsBackgroundConnection(address bluetooth.MacAddress) bool {
	return m.EntryExists(address)
}

// IsDirectConnecting reports whether the application has a direct connection
// attempt in flight for the peer.
func (m *Manager) IsDirectConnecting(app AppID, address bluetooth.MacAddress) bool {
	p, ok := m.peers[address]
	if !ok {
		return false
	}

	_, ok = p.direct[app]

	return ok
}
