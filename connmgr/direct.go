package connmgr

import (
	"go.uber.org/zap"

	"github.com/darkhz/bleconnmgr/bluetooth"
)

// DirectConnect starts a direct connection attempt from app to the peer,
// bounded by the manager's direct connection timeout.
func (m *Manager) DirectConnect(app AppID, address bluetooth.MacAddress) error {
	if m.fixed != nil {
		return m.connectFixedChannel(address)
	}

	p, _ := m.entry(address)
	if _, ok := p.direct[app]; ok {
		return alreadyConnectingError(app, address)
	}

	changed := m.ctrl.SetFastConnectionMode()
	if changed {
		m.publish(TransitionFastMode, bluetooth.MacAddress{}, app)
	}

	if !p.inAcceptList {
		if err := m.acceptListAdd(p); err != nil {
			if changed {
				m.ctrl.SetSlowConnectionMode()
				m.publish(TransitionSlowMode, bluetooth.MacAddress{}, app)
			}
			m.eraseIfUnused(p)

			return admissionError("direct-connect", app, address)
		}
	}

	attempt := &directAttempt{deadline: m.clock.Now().Add(m.timeout)}
	attempt.timer = m.clock.AfterFunc(m.timeout, func() {
		if !m.dispatcher.Post(func() { m.directTimeout(app, address, attempt) }) {
			m.logger.Warn("dropped direct connection timeout",
				zap.Stringer("app", app), zap.Stringer("address", address))
		}
	})

	p.direct[app] = attempt
	m.directConnects++

	m.logger.Info("direct connection started",
		zap.Stringer("app", app), zap.Stringer("address", address), zap.Duration("timeout", m.timeout))
	m.publish(TransitionDirectStarted, address, app)

	// The peer is on the accept list now, so it leaves pure-filtering mode.
	_ = m.reconcile(p)

	return nil
}

// RemoveDirectConnect cancels the direct connection attempt of app.
func (m *Manager) RemoveDirectConnect(app AppID, address bluetooth.MacAddress) error {
	if m.fixed != nil {
		return nil
	}

	p, ok := m.peers[address]
	if !ok {
		return notRegisteredError("remove-direct", app, address)
	}

	if _, ok := p.direct[app]; !ok {
		return notRegisteredError("remove-direct", app, address)
	}

	if err := m.removeDirect(p, app); err != nil {
		return admissionError("remove-direct", app, address)
	}

	return nil
}

// removeDirect drops the direct attempt of app. Explicit removal, timeouts,
// completed connections and deregistration all end attempts here.
func (m *Manager) removeDirect(p *peerInterest, app AppID) error {
	attempt, ok := p.direct[app]
	if !ok {
		return nil
	}

	attempt.cancel()
	delete(p.direct, app)

	m.directConnects--
	m.publish(TransitionDirectRemoved, p.address, app)

	if m.directConnects == 0 {
		m.ctrl.SetSlowConnectionMode()
		m.publish(TransitionSlowMode, bluetooth.MacAddress{}, app)
	}

	return m.reconcile(p)
}

// directTimeout runs on the dispatcher once the attempt's deadline passed.
// The attempt may have been removed or replaced in the meantime.
func (m *Manager) directTimeout(app AppID, address bluetooth.MacAddress, attempt *directAttempt) {
	if !m.isCurrentAttempt(app, address, attempt) {
		return
	}

	m.logger.Info("direct connection timed out",
		zap.Stringer("app", app), zap.Stringer("address", address))

	if m.onTimeout != nil {
		m.onTimeout(app, address)
	}

	// The handler may already have cancelled the attempt.
	if !m.isCurrentAttempt(app, address, attempt) {
		return
	}

	m.publish(TransitionDirectTimedOut, address, app)

	if err := m.removeDirect(m.peers[address], app); err != nil {
		m.logger.Warn("cannot reconcile peer", zap.Stringer("address", address), zap.Error(err))
	}
}

func (m *Manager) isCurrentAttempt(app AppID, address bluetooth.MacAddress, attempt *directAttempt) bool {
	p, ok := m.peers[address]
	if !ok {
		return false
	}

	return p.direct[app] == attempt
}
