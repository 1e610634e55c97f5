package connmgr

import (
	"go.uber.org/zap"

	"github.com/darkhz/bleconnmgr/bluetooth"
)

// AddBackground registers a background connection request from app.
// It fails only if the controller rejects the accept list entry, in which
// case no interest is recorded.
func (m *Manager) AddBackground(app AppID, address bluetooth.MacAddress) error {
	if m.fixed != nil {
		return m.connectFixedChannel(address)
	}

	p, _ := m.entry(address)
	if p.background.has(app) {
		m.logger.Debug("background connection already registered",
			zap.Stringer("app", app), zap.Stringer("address", address))

		return nil
	}

	p.background[app] = struct{}{}
	if err := m.reconcile(p); err != nil {
		delete(p.background, app)
		m.eraseIfUnused(p)

		return admissionError("background-add", app, address)
	}

	return nil
}

// AddTargetedAnnouncement registers a connection request from app that is
// gated on the peer sending a targeted announcement. A peer held on the
// accept list only for background requests leaves the accept list and is
// tracked by the announcement filter instead.
func (m *Manager) AddTargetedAnnouncement(app AppID, address bluetooth.MacAddress) error {
	p, _ := m.entry(address)
	if p.targeted.has(app) {
		m.logger.Debug("targeted announcement connection already registered",
			zap.Stringer("app", app), zap.Stringer("address", address))

		return nil
	}

	p.targeted[app] = struct{}{}

	// Only an accept list addition can fail, and adding targeted
	// interest never requires one.
	_ = m.reconcile(p)

	return nil
}

// RemoveInterest removes one kind of background interest of app. If the
// peer's remaining interest needs a different addressing mechanism, the
// peer is moved onto or off the accept list. The interest is always removed;
// an error is returned if it was never registered, or if the accept list
// rejected the peer while switching mechanisms.
func (m *Manager) RemoveInterest(app AppID, address bluetooth.MacAddress, kind InterestKind) error {
	if m.fixed != nil && kind == InterestBackground {
		return nil
	}

	p, ok := m.peers[address]
	if !ok {
		return notRegisteredError("remove-"+kind.String(), app, address)
	}

	set := p.interestSet(kind)
	if !set.has(app) {
		return notRegisteredError("remove-"+kind.String(), app, address)
	}

	delete(set, app)

	if err := m.reconcile(p); err != nil {
		m.logger.Warn("peer lost its accept list entry",
			zap.Stringer("app", app), zap.Stringer("address", address))

		return admissionError("remove-"+kind.String(), app, address)
	}

	return nil
}

// RemoveBackground removes both the background and the targeted announcement
// interest of app.
func (m *Manager) RemoveBackground(app AppID, address bluetooth.MacAddress) error {
	if m.fixed != nil {
		return nil
	}

	p, ok := m.peers[address]
	if !ok || (!p.background.has(app) && !p.targeted.has(app)) {
		return notRegisteredError("remove-background", app, address)
	}

	delete(p.background, app)
	delete(p.targeted, app)

	if err := m.reconcile(p); err != nil {
		return admissionError("remove-background", app, address)
	}

	return nil
}

// AppDeregistered removes every interest of app from every peer.
func (m *Manager) AppDeregistered(app AppID) {
	for _, p := range m.sortedPeers() {
		delete(p.background, app)
		delete(p.targeted, app)

		if _, ok := p.direct[app]; ok {
			if err := m.removeDirect(p, app); err != nil {
				m.logger.Warn("cannot reconcile peer", zap.Stringer("address", p.address), zap.Error(err))
			}

			continue
		}

		if err := m.reconcile(p); err != nil {
			m.logger.Warn("cannot reconcile peer", zap.Stringer("address", p.address), zap.Error(err))
		}
	}
}

// ConnectionComplete ends every direct connection attempt to the peer.
func (m *Manager) ConnectionComplete(address bluetooth.MacAddress) {
	for {
		p, ok := m.peers[address]
		if !ok || len(p.direct) == 0 {
			return
		}

		if err := m.removeDirect(p, p.directApps()[0]); err != nil {
			m.logger.Warn("cannot reconcile peer", zap.Stringer("address", address), zap.Error(err))
		}
	}
}

// Reset forgets every peer. Unless the controller itself was reset and has
// already lost its state, the announcement filter is disabled and the accept
// list is cleared explicitly.
func (m *Manager) Reset(afterControllerReset bool) {
	for _, p := range m.peers {
		for _, attempt := range p.direct {
			attempt.cancel()
		}
	}

	if !afterControllerReset {
		m.setFilter(false)
		m.ctrl.ClearAcceptList()
	}

	if m.directConnects > 0 {
		m.ctrl.SetSlowConnectionMode()
		m.publish(TransitionSlowMode, bluetooth.MacAddress{}, 0)
	}

	clear(m.peers)
	m.filteringPeers = 0
	m.directConnects = 0

	m.logger.Info("connection manager reset", zap.Bool("after_controller_reset", afterControllerReset))
	m.publish(TransitionReset, bluetooth.MacAddress{}, 0)
}

// reconcile brings the peer's accept list membership and the announcement
// filter in line with the peer's interest sets, and erases the entry once
// nothing references it. Every mutation funnels through here.
func (m *Manager) reconcile(p *peerInterest) error {
	var err error

	switch need := p.needsAcceptList(); {
	case need && !p.inAcceptList:
		err = m.acceptListAdd(p)

	case !need && p.inAcceptList:
		m.acceptListRemove(p)
	}

	m.updateFiltering(p)
	m.eraseIfUnused(p)

	return err
}

func (m *Manager) acceptListAdd(p *peerInterest) error {
	if !m.ctrl.AddToAcceptList(p.address) {
		m.logger.Warn("accept list add rejected", zap.Stringer("address", p.address))
		m.publish(TransitionAcceptListRejected, p.address, 0)

		return admissionError("accept-list-add", 0, p.address)
	}

	p.inAcceptList = true

	m.logger.Debug("accept list add", zap.Stringer("address", p.address))
	m.publish(TransitionAcceptListAdded, p.address, 0)

	return nil
}

func (m *Manager) acceptListRemove(p *peerInterest) {
	m.ctrl.RemoveFromAcceptList(p.address)
	p.inAcceptList = false

	m.logger.Debug("accept list remove", zap.Stringer("address", p.address))
	m.publish(TransitionAcceptListRemoved, p.address, 0)
}

// updateFiltering maintains the count of pure-filtering peers, toggling the
// announcement filter on the first activation and the last deactivation.
func (m *Manager) updateFiltering(p *peerInterest) {
	filtering := p.pureFiltering()
	if filtering == p.filtering {
		return
	}

	p.filtering = filtering

	if filtering {
		m.filteringPeers++
		if m.filteringPeers == 1 {
			m.setFilter(true)
		}

		return
	}

	m.filteringPeers--
	if m.filteringPeers == 0 {
		m.setFilter(false)
	}
}

func (m *Manager) setFilter(enabled bool) {
	if enabled {
		m.ctrl.SetAnnouncementFilterEnabled(true, m.scanResult)
		m.publish(TransitionFilterEnabled, bluetooth.MacAddress{}, 0)
	} else {
		m.ctrl.SetAnnouncementFilterEnabled(false, nil)
		m.publish(TransitionFilterDisabled, bluetooth.MacAddress{}, 0)
	}

	m.logger.Debug("announcement filter", zap.Bool("enabled", enabled))
}

func (m *Manager) connectFixedChannel(address bluetooth.MacAddress) error {
	if !m.fixed.ConnectFixedChannel(address) {
		return fixedChannelError(address)
	}

	return nil
}
