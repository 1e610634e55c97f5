// Package session wires a connection manager to a simulated controller,
// the main loop and the event bus.
package session

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/darkhz/bleconnmgr/adv"
	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/connmgr"
	"github.com/darkhz/bleconnmgr/controller/sim"
	"github.com/darkhz/bleconnmgr/eventbus"
	"github.com/darkhz/bleconnmgr/internal/mainloop"
)

// settleTimeout bounds how long Wait waits for expired timers to be handled
// after advancing a mock clock.
const settleTimeout = 2 * time.Second

// Options describes the session parameters.
type Options struct {
	AcceptListSize   int
	Timeout          time.Duration
	FixedChannel     bool
	AnnouncementType adv.AnnouncementType

	// Clock drives direct connection deadlines. A *clock.Mock makes
	// Wait advance time instead of sleeping.
	Clock  clock.Clock
	Logger *zap.Logger
}

// Session holds a running connection manager.
type Session struct {
	loop  *mainloop.Loop
	ctrl  *sim.Controller
	mgr   *connmgr.Manager
	bus   *eventbus.Bus
	clock clock.Clock

	logger *zap.Logger
}

// New returns a new session. The manager processes no requests until Run is called.
func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = connmgr.DefaultDirectConnectTimeout
	}

	s := &Session{
		loop:   mainloop.New(mainloop.DefaultQueueSize),
		ctrl:   sim.New(opts.AcceptListSize, opts.Logger),
		bus:    eventbus.New(64),
		clock:  opts.Clock,
		logger: opts.Logger.Named("session"),
	}

	mgrOpts := []connmgr.Option{
		connmgr.WithClock(opts.Clock),
		connmgr.WithLogger(opts.Logger),
		connmgr.WithEvents(s.bus),
		connmgr.WithDirectConnectTimeout(opts.Timeout),
		connmgr.WithAnnouncementType(opts.AnnouncementType),
		connmgr.WithTimeoutHandler(s.connectionFailed),
	}
	if opts.FixedChannel {
		mgrOpts = append(mgrOpts, connmgr.WithFixedChannel(s.ctrl))
	}

	s.mgr = connmgr.New(s.ctrl, s.loop, mgrOpts...)

	return s
}

// Run runs the main loop until the context is cancelled or Stop is called.
// The event bus is closed once the loop exits.
func (s *Session) Run(ctx context.Context) error {
	defer s.bus.Close()

	return s.loop.Run(ctx)
}

// Stop stops the main loop.
func (s *Session) Stop() {
	s.loop.Stop()
}

// Done returns a channel that is closed when the session stops.
func (s *Session) Done() <-chan struct{} {
	return s.loop.Done()
}

// Do runs fn on the main loop with exclusive access to the manager.
func (s *Session) Do(ctx context.Context, fn func(m *connmgr.Manager)) error {
	return s.loop.Do(ctx, func() { fn(s.mgr) })
}

// State returns a snapshot of the manager state.
func (s *Session) State(ctx context.Context) (connmgr.State, error) {
	var state connmgr.State

	err := s.Do(ctx, func(m *connmgr.Manager) {
		state = m.Snapshot()
	})

	return state, err
}

// Subscribe subscribes to the session's events.
func (s *Session) Subscribe(id eventbus.EventID) eventbus.Subscription {
	return s.bus.Subscribe(id)
}

// Controller returns the simulated controller.
func (s *Session) Controller() *sim.Controller {
	return s.ctrl
}

// Now returns the current time of the session clock.
func (s *Session) Now() time.Time {
	return s.clock.Now()
}

// Wait lets the duration pass on the session clock. With a mock clock,
// time is advanced and Wait returns once every expired direct connection
// attempt was handled.
func (s *Session) Wait(ctx context.Context, d time.Duration) error {
	mock, ok := s.clock.(*clock.Mock)
	if !ok {
		t := s.clock.Timer(d)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-t.C:
			return nil
		}
	}

	mock.Add(d)

	return s.settle(ctx, mock.Now())
}

// settle waits until no direct connection attempt is past its deadline.
// Timer callbacks of a mock clock are delivered asynchronously.
func (s *Session) settle(ctx context.Context, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	for {
		state, err := s.State(ctx)
		if err != nil {
			return err
		}

		if !hasExpired(state, now) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(time.Millisecond):
		}
	}
}

func hasExpired(state connmgr.State, now time.Time) bool {
	for _, p := range state.Peers {
		for _, d := range p.Direct {
			if !d.Deadline.After(now) {
				return true
			}
		}
	}

	return false
}

func (s *Session) connectionFailed(app connmgr.AppID, address bluetooth.MacAddress) {
	s.logger.Info("connection attempt failed",
		zap.Stringer("app", app), zap.Stringer("address", address))
	s.bus.Publish(eventbus.EventError, ConnectionFailed{App: app, Address: address})
}

// ConnectionFailed is published when a direct connection attempt times out.
type ConnectionFailed struct {
	App     connmgr.AppID
	Address bluetooth.MacAddress
}

// Error returns a description of the failure.
func (c ConnectionFailed) Error() string {
	return "direct connection from app " + c.App.String() + " to " + c.Address.String() + " timed out"
}
