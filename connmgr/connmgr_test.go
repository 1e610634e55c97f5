package connmgr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/darkhz/bleconnmgr/adv"
	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/controller/sim"
	"github.com/darkhz/bleconnmgr/eventbus"
	"github.com/darkhz/bleconnmgr/internal/mainloop"
)

var (
	peerA = bluetooth.MustParseMAC("AA:BB:CC:DD:EE:01")
	peerB = bluetooth.MustParseMAC("AA:BB:CC:DD:EE:02")
	peerC = bluetooth.MustParseMAC("AA:BB:CC:DD:EE:03")
)

// recorder collects published transitions.
type recorder struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *recorder) Publish(id eventbus.EventID, data any) {
	if id != eventbus.EventTransition {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.transitions = append(r.transitions, data.(Transition))
}

func (r *recorder) kinds() []TransitionKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]TransitionKind, 0, len(r.transitions))
	for _, t := range r.transitions {
		kinds = append(kinds, t.Kind)
	}

	return kinds
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transitions = nil
}

type timeoutEvent struct {
	app     AppID
	address bluetooth.MacAddress
}

type harness struct {
	t *testing.T

	loop   *mainloop.Loop
	ctrl   *sim.Controller
	clock  *clock.Mock
	events *recorder
	m      *Manager

	timeoutLock sync.Mutex
	timeouts    []timeoutEvent
}

func newHarness(t *testing.T, capacity int, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		t:      t,
		loop:   mainloop.New(0),
		ctrl:   sim.New(capacity, zaptest.NewLogger(t)),
		clock:  clock.NewMock(),
		events: &recorder{},
	}

	opts = append([]Option{
		WithClock(h.clock),
		WithLogger(zaptest.NewLogger(t)),
		WithEvents(h.events),
		WithTimeoutHandler(func(app AppID, address bluetooth.MacAddress) {
			h.timeoutLock.Lock()
			defer h.timeoutLock.Unlock()

			h.timeouts = append(h.timeouts, timeoutEvent{app, address})
		}),
	}, opts...)

	h.m = New(h.ctrl, h.loop, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.loop.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return h
}

// do runs fn on the main loop and waits for it.
func (h *harness) do(fn func(m *Manager)) {
	h.t.Helper()
	require.NoError(h.t, h.loop.Do(context.Background(), func() { fn(h.m) }))
}

func (h *harness) snapshot() State {
	var state State
	h.do(func(m *Manager) { state = m.Snapshot() })

	return state
}

func (h *harness) timedOut() []timeoutEvent {
	h.timeoutLock.Lock()
	defer h.timeoutLock.Unlock()

	return append([]timeoutEvent(nil), h.timeouts...)
}

// eventually polls cond on the main loop.
func (h *harness) eventually(cond func(m *Manager) bool, msg string) {
	h.t.Helper()

	require.Eventually(h.t, func() bool {
		var ok bool
		h.do(func(m *Manager) { ok = cond(m) })

		return ok
	}, time.Second, time.Millisecond, msg)
}

// checkInvariants verifies the registry against the controller state.
func (h *harness) checkInvariants() {
	h.t.Helper()
	h.verifyRegistry(false)
}

// verifyRegistry verifies the registry against the controller state. With
// allowStranded, a peer that kept only background interest after the accept
// list rejected it may remain off the accept list.
func (h *harness) verifyRegistry(allowStranded bool) {
	h.t.Helper()

	h.do(func(m *Manager) {
		t := h.t
		filtering := 0

		for address, p := range m.peers {
			stranded := allowStranded && !p.inAcceptList &&
				len(p.background) > 0 && len(p.targeted) == 0 && len(p.direct) == 0

			assert.True(t, p.interested() || p.inAcceptList, "%s: unused entry", address)
			if !stranded {
				assert.Equal(t, p.needsAcceptList(), p.inAcceptList, "%s: accept list membership", address)
			}
			assert.Equal(t, p.inAcceptList, h.ctrl.InAcceptList(address), "%s: controller accept list", address)
			assert.False(t, p.inAcceptList && p.filtering, "%s: two addressing mechanisms", address)

			if len(p.targeted) > 0 && !p.inAcceptList {
				filtering++
			}
		}

		for _, address := range h.ctrl.AcceptList() {
			assert.Contains(t, m.peers, address, "%s: untracked accept list entry", address)
		}

		assert.Equal(t, filtering, m.filteringPeers)
		assert.Equal(t, filtering > 0, h.ctrl.FilterEnabled(), "filter state")
		assert.Equal(t, m.directConnects > 0, h.ctrl.FastMode(), "connection speed")
	})
}

func announcement(typ adv.AnnouncementType) []byte {
	p, err := adv.NewAnnouncement(typ, []byte{0x00, 0x00})
	if err != nil {
		panic(err)
	}

	return p
}

func TestAppIDString(t *testing.T) {
	assert.Equal(t, "42", AppID(42).String())
	assert.Equal(t, "background", InterestBackground.String())
	assert.Equal(t, "targeted-announcement", InterestTargetedAnnouncement.String())
	assert.Equal(t, "unknown", InterestKind(9).String())
}
