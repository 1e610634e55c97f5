package connmgr

import (
	"go.uber.org/zap"

	"github.com/darkhz/bleconnmgr/adv"
	"github.com/darkhz/bleconnmgr/bluetooth"
)

// ObserveAdvertisement inspects advertising data observed for a peer. If the
// peer is filtering for targeted announcements and the data carries a
// matching announcement, a direct connection is scheduled on behalf of the
// lowest interested application. It reports whether the data matched.
func (m *Manager) ObserveAdvertisement(address bluetooth.MacAddress, data []byte) bool {
	p, ok := m.peers[address]
	if !ok || p.inAcceptList {
		return false
	}

	app, ok := p.targeted.first()
	if !ok {
		return false
	}

	if !adv.Packet(data).IsAnnouncement(m.announcementType) {
		return false
	}

	m.logger.Info("targeted announcement matched",
		zap.Stringer("app", app), zap.Stringer("address", address))
	m.publish(TransitionAnnouncementMatched, address, app)

	if !m.dispatcher.Post(func() {
		if err := m.DirectConnect(app, address); err != nil {
			m.logger.Warn("cannot connect to announcing peer",
				zap.Stringer("address", address), zap.Error(err))
		}
	}) {
		m.logger.Warn("dropped connection to announcing peer",
			zap.Stringer("app", app), zap.Stringer("address", address))
	}

	return true
}

// scanResult is registered with the announcement filter. It may be called
// from any goroutine, so the observation is handed to the dispatcher.
func (m *Manager) scanResult(address bluetooth.MacAddress, data []byte) {
	data = append([]byte(nil), data...)

	if !m.dispatcher.Post(func() {
		m.ObserveAdvertisement(address, data)
	}) {
		m.logger.Debug("dropped scan result", zap.Stringer("address", address))
	}
}
