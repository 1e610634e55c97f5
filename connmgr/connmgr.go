// Package connmgr arbitrates LE connection attempts made by independent
// application clients.
//
// Applications express three kinds of interest in a peer: best-effort
// background connection, connection gated on a targeted announcement, and a
// timeout bounded direct connection. The manager decides for every peer
// whether it occupies the controller accept list, relies purely on the
// announcement filter, or needs neither, and keeps the controller-wide
// resources (accept list, announcement filter, connection speed) in sync.
//
// A Manager is not safe for concurrent use. All methods, and the timer and
// scan result callbacks it schedules through its Dispatcher, must run on a
// single execution context, such as a mainloop.Loop.
package connmgr

import (
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/darkhz/bleconnmgr/adv"
	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/controller"
	"github.com/darkhz/bleconnmgr/eventbus"
)

// DefaultDirectConnectTimeout bounds a direct connection attempt.
const DefaultDirectConnectTimeout = 30 * time.Second

// AppID identifies an application client of the connection manager.
type AppID uint8

// String returns the decimal representation of the application ID.
func (a AppID) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// InterestKind selects a background interest set.
type InterestKind int

// The different kinds of removable background interest.
const (
	InterestBackground InterestKind = iota
	InterestTargetedAnnouncement
)

// String returns the name of the interest kind.
func (k InterestKind) String() string {
	switch k {
	case InterestBackground:
		return "background"

	case InterestTargetedAnnouncement:
		return "targeted-announcement"
	}

	return "unknown"
}

// Dispatcher schedules a task onto the manager's execution context.
type Dispatcher interface {
	Post(task func()) bool
}

// TimeoutHandler is notified when a direct connection attempt times out,
// before the attempt is cleaned up.
type TimeoutHandler func(app AppID, address bluetooth.MacAddress)

// Manager is the LE connection manager.
type Manager struct {
	peers map[bluetooth.MacAddress]*peerInterest

	// filteringPeers counts peers in pure-filtering mode. The announcement
	// filter is enabled exactly while it is non-zero.
	filteringPeers int

	// directConnects counts outstanding direct connection attempts. Fast
	// connection mode is requested exactly while it is non-zero.
	directConnects int

	ctrl       controller.Controller
	fixed      controller.FixedChannel
	dispatcher Dispatcher

	clock     clock.Clock
	logger    *zap.Logger
	events    eventbus.EventPublisher
	onTimeout TimeoutHandler

	timeout          time.Duration
	announcementType adv.AnnouncementType
}

// Option configures a Manager.
type Option func(m *Manager)

// WithClock sets the clock used for direct connection deadlines.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEvents sets the publisher that receives every state transition.
func WithEvents(events eventbus.EventPublisher) Option {
	return func(m *Manager) {
		m.events = events
	}
}

// WithDirectConnectTimeout sets the direct connection deadline.
func WithDirectConnectTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// WithFixedChannel enables the fixed channel connection path. Background and
// direct connection requests are then passed through to fc, and the accept
// list is not managed.
func WithFixedChannel(fc controller.FixedChannel) Option {
	return func(m *Manager) {
		m.fixed = fc
	}
}

// WithTimeoutHandler sets the handler notified of direct connection timeouts.
func WithTimeoutHandler(handler TimeoutHandler) Option {
	return func(m *Manager) {
		m.onTimeout = handler
	}
}

// WithAnnouncementType sets the announcement type that upgrades a
// filtering peer to a direct connection.
func WithAnnouncementType(typ adv.AnnouncementType) Option {
	return func(m *Manager) {
		m.announcementType = typ
	}
}

// New returns a new connection manager driving ctrl. Timer expirations and
// scan results are marshalled onto dispatcher.
func New(ctrl controller.Controller, dispatcher Dispatcher, opts ...Option) *Manager {
	m := &Manager{
		peers:            make(map[bluetooth.MacAddress]*peerInterest),
		ctrl:             ctrl,
		dispatcher:       dispatcher,
		clock:            clock.New(),
		logger:           zap.NewNop(),
		events:           eventbus.NilBus{},
		timeout:          DefaultDirectConnectTimeout,
		announcementType: adv.GeneralAnnouncement,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.logger = m.logger.Named("connmgr")

	return m
}
