package connmgr

import (
	"testing"
	"time"

	"github.com/Southclaws/fault/ftag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/controller/sim"
	"github.com/darkhz/bleconnmgr/errorkinds"
)

func TestDirectConnectFromFiltering(t *testing.T) {
	h := newHarness(t, 4)

	h.do(func(m *Manager) {
		require.NoError(t, m.AddTargetedAnnouncement(3, peerB))
		require.NoError(t, m.DirectConnect(4, peerB))
		assert.True(t, m.IsDirectConnecting(4, peerB))
	})

	state := h.snapshot()
	peer, ok := state.Peer(peerB)
	require.True(t, ok)
	assert.True(t, peer.InAcceptList)
	assert.False(t, peer.Filtering)
	require.Len(t, peer.Direct, 1)
	assert.Equal(t, h.clock.Now().Add(DefaultDirectConnectTimeout), peer.Direct[0].Deadline)
	assert.False(t, state.FilterEnabled)
	assert.True(t, h.ctrl.FastMode())
	h.checkInvariants()

	h.clock.Add(DefaultDirectConnectTimeout - time.Second)
	h.do(func(m *Manager) { assert.True(t, m.IsDirectConnecting(4, peerB)) })

	h.clock.Add(time.Second)
	h.eventually(func(m *Manager) bool { return !m.IsDirectConnecting(4, peerB) }, "direct connection did not time out")

	assert.Equal(t, []timeoutEvent{{4, peerB}}, h.timedOut())

	peer, ok = h.snapshot().Peer(peerB)
	require.True(t, ok)
	assert.Equal(t, []AppID{3}, peer.Targeted)
	assert.False(t, peer.InAcceptList)
	assert.True(t, peer.Filtering)
	assert.True(t, h.ctrl.FilterEnabled())
	assert.False(t, h.ctrl.FastMode())
	h.checkInvariants()
}

func TestDirectConnectCustomTimeout(t *testing.T) {
	h := newHarness(t, 4, WithDirectConnectTimeout(5*time.Second))

	h.do(func(m *Manager) { require.NoError(t, m.DirectConnect(1, peerA)) })

	h.clock.Add(5 * time.Second)
	h.eventually(func(m *Manager) bool { return !m.EntryExists(peerA) }, "direct connection did not time out")

	assert.Empty(t, h.ctrl.AcceptList())
	assert.Contains(t, h.events.kinds(), TransitionDirectTimedOut)
}

func TestDirectConnectAlreadyInProgress(t *testing.T) {
	h := newHarness(t, 4)

	h.do(func(m *Manager) {
		require.NoError(t, m.DirectConnect(1, peerA))

		err := m.DirectConnect(1, peerA)
		require.ErrorIs(t, err, errorkinds.ErrAlreadyConnecting)
		assert.Equal(t, ftag.AlreadyExists, ftag.Get(err))

		require.NoError(t, m.DirectConnect(2, peerA))
		assert.Equal(t, 2, m.Snapshot().DirectConnects)
	})
	h.checkInvariants()
}

func TestDirectConnectRejectedRollsBack(t *testing.T) {
	h := newHarness(t, 1)

	h.do(func(m *Manager) {
		require.NoError(t, m.AddBackground(1, peerA))

		err := m.DirectConnect(2, peerB)
		require.ErrorIs(t, err, errorkinds.ErrAdmissionRejected)
		assert.False(t, m.EntryExists(peerB))
		assert.False(t, m.IsDirectConnecting(2, peerB))
	})

	assert.False(t, h.ctrl.FastMode())

	var names []string
	for _, cmd := range h.ctrl.History() {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{
		sim.CmdAcceptListAdd, sim.CmdFastMode, sim.CmdAcceptListReject, sim.CmdSlowMode,
	}, names)
	h.checkInvariants()
}

func TestDirectConnectRejectedKeepsFastMode(t *testing.T) {
	h := newHarness(t, 1)

	h.do(func(m *Manager) {
		require.NoError(t, m.DirectConnect(1, peerA))
		require.ErrorIs(t, m.DirectConnect(2, peerB), errorkinds.ErrAdmissionRejected)
	})

	assert.True(t, h.ctrl.FastMode(), "outstanding attempt still needs fast mode")
	h.checkInvariants()
}

func TestRemoveDirectConnect(t *testing.T) {
	h := newHarness(t, 4)

	h.do(func(m *Manager) {
		require.NoError(t, m.AddBackground(1, peerA))
		require.NoError(t, m.DirectConnect(2, peerA))
		require.NoError(t, m.RemoveDirectConnect(2, peerA))

		assert.False(t, m.IsDirectConnecting(2, peerA))
		assert.Equal(t, []AppID{1}, m.InterestedApps(peerA))

		err := m.RemoveDirectConnect(2, peerA)
		require.ErrorIs(t, err, errorkinds.ErrNotRegistered)
		require.ErrorIs(t, m.RemoveDirectConnect(2, peerC), errorkinds.ErrNotRegistered)
	})

	assert.True(t, h.ctrl.InAcceptList(peerA))
	assert.False(t, h.ctrl.FastMode())

	// The cancelled timer must not fire.
	h.clock.Add(DefaultDirectConnectTimeout)
	h.do(func(*Manager) {})
	assert.Empty(t, h.timedOut())
	h.checkInvariants()
}

func TestTimeoutAndRemovalConverge(t *testing.T) {
	setup := func(m *Manager) {
		require.NoError(t, m.AddTargetedAnnouncement(1, peerA))
		require.NoError(t, m.AddBackground(2, peerB))
		require.NoError(t, m.DirectConnect(3, peerA))
		require.NoError(t, m.DirectConnect(3, peerB))
	}

	removed := newHarness(t, 4)
	removed.do(setup)
	removed.do(func(m *Manager) {
		require.NoError(t, m.RemoveDirectConnect(3, peerA))
		require.NoError(t, m.RemoveDirectConnect(3, peerB))
	})

	expired := newHarness(t, 4)
	expired.do(setup)
	expired.clock.Add(DefaultDirectConnectTimeout)
	expired.eventually(func(m *Manager) bool { return m.Snapshot().DirectConnects == 0 }, "direct connections did not time out")

	assert.Equal(t, removed.snapshot(), expired.snapshot())
	assert.Equal(t, removed.ctrl.AcceptList(), expired.ctrl.AcceptList())
	removed.checkInvariants()
	expired.checkInvariants()
}

func TestTimeoutHandlerRemovesAttempt(t *testing.T) {
	var h *harness
	h = newHarness(t, 4, WithTimeoutHandler(func(app AppID, address bluetooth.MacAddress) {
		assert.NoError(t, h.m.RemoveDirectConnect(app, address))
	}))

	h.do(func(m *Manager) { require.NoError(t, m.DirectConnect(1, peerA)) })

	h.clock.Add(DefaultDirectConnectTimeout)
	h.eventually(func(m *Manager) bool { return !m.EntryExists(peerA) }, "direct connection did not time out")

	assert.NotContains(t, h.events.kinds(), TransitionDirectTimedOut)
	h.checkInvariants()
}

func TestConnectionComplete(t *testing.T) {
	h := newHarness(t, 4)

	h.do(func(m *Manager) {
		require.NoError(t, m.AddTargetedAnnouncement(1, peerA))
		require.NoError(t, m.DirectConnect(2, peerA))
		require.NoError(t, m.DirectConnect(3, peerA))
		require.NoError(t, m.DirectConnect(2, peerB))

		m.ConnectionComplete(peerA)
		m.ConnectionComplete(peerC)

		assert.False(t, m.IsDirectConnecting(2, peerA))
		assert.False(t, m.IsDirectConnecting(3, peerA))
		assert.True(t, m.IsDirectConnecting(2, peerB))
		assert.True(t, m.EntryExists(peerA))
	})

	assert.True(t, h.ctrl.FastMode())
	assert.True(t, h.ctrl.FilterEnabled())
	h.checkInvariants()

	h.do(func(m *Manager) { m.ConnectionComplete(peerB) })
	assert.False(t, h.ctrl.FastMode())
	h.checkInvariants()
}
