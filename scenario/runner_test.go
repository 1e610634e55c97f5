package scenario

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/connmgr"
	"github.com/darkhz/bleconnmgr/errorkinds"
	"github.com/darkhz/bleconnmgr/eventbus"
	"github.com/darkhz/bleconnmgr/session"
)

func startSession(t *testing.T) *session.Session {
	t.Helper()

	sess := session.New(session.Options{
		Clock:  clock.NewMock(),
		Logger: zaptest.NewLogger(t),
	})

	errs := make(chan error, 1)
	go func() { errs <- sess.Run(context.Background()) }()

	t.Cleanup(func() {
		sess.Stop()
		require.NoError(t, <-errs)
	})

	return sess
}

func TestRunnerAudioScenario(t *testing.T) {
	sc, err := Load(filepath.Join("..", "scenarios", "audio.hjson"))
	require.NoError(t, err)

	sess := startSession(t)
	ctx := context.Background()

	failures := sess.Subscribe(eventbus.EventError)
	defer failures.Unsubscribe()

	var (
		out   bytes.Buffer
		steps int
	)

	runner := NewRunner(sess, &out, zaptest.NewLogger(t))
	runner.OnStep = func(index int, step Step, err error) {
		steps++

		if step.Fail {
			assert.ErrorIs(t, err, errorkinds.ErrNotRegistered, "step %d", index)
		}
	}

	require.NoError(t, runner.Run(ctx, sc))
	assert.Equal(t, len(sc.Steps), steps)
	assert.Equal(t, 3, strings.Count(out.String(), "LE Connection Manager:"))
	assert.Contains(t, out.String(), "Tracked peers:   2")

	select {
	case ev := <-failures.C:
		assert.Equal(t, session.ConnectionFailed{
			App:     4,
			Address: bluetooth.MustParseMAC("AA:BB:CC:DD:EE:02"),
		}, ev)

	case <-time.After(time.Second):
		t.Fatal("no connection failure published")
	}

	state, err := sess.State(ctx)
	require.NoError(t, err)
	require.Len(t, state.Peers, 1)

	peer := state.Peers[0]
	assert.Equal(t, bluetooth.MustParseMAC("AA:BB:CC:DD:EE:02"), peer.Address)
	assert.Equal(t, []connmgr.AppID{3}, peer.Targeted)
	assert.Empty(t, peer.Direct)
	assert.True(t, peer.Filtering)
	assert.True(t, state.FilterEnabled)
	assert.Zero(t, state.DirectConnects)
}

func TestRunnerExpectationMismatches(t *testing.T) {
	sc, err := Parse([]byte(`{
  steps: [
    { op: "remove-direct", app: 1, address: "AA:BB:CC:DD:EE:01" }
    { op: "background", app: 1, address: "AA:BB:CC:DD:EE:01", fail: true }
    { op: "remove-background", app: 2, address: "AA:BB:CC:DD:EE:01", fail: true }
  ]
}`))
	require.NoError(t, err)

	err = NewRunner(startSession(t), nil, nil).Run(context.Background(), sc)
	require.Error(t, err)

	assert.Len(t, multierr.Errors(errors.Unwrap(err)), 2)
	assert.ErrorIs(t, err, errorkinds.ErrNotRegistered)
	assert.ErrorIs(t, err, errorkinds.ErrUnexpected)
}

func TestRunnerAdvertisementTriggersDirectConnect(t *testing.T) {
	ignored, err := Parse([]byte(`{
  steps: [
    { op: "targeted", app: 7, address: "AA:BB:CC:DD:EE:03" }
    { op: "advertise", address: "AA:BB:CC:DD:EE:03", announcement: "targeted" }
    { op: "advertise", address: "AA:BB:CC:DD:EE:03", data: "020106" }
  ]
}`))
	require.NoError(t, err)

	matched, err := Parse([]byte(`{
  steps: [
    { op: "advertise", address: "AA:BB:CC:DD:EE:03", announcement: "general" }
  ]
}`))
	require.NoError(t, err)

	sess := startSession(t)
	ctx := context.Background()
	address := bluetooth.MustParseMAC("AA:BB:CC:DD:EE:03")

	require.NoError(t, NewRunner(sess, nil, nil).Run(ctx, ignored))

	state, err := sess.State(ctx)
	require.NoError(t, err)

	peer, ok := state.Peer(address)
	require.True(t, ok)
	assert.Empty(t, peer.Direct, "only general announcements are matched by default")
	assert.True(t, state.FilterEnabled)

	require.NoError(t, NewRunner(sess, nil, nil).Run(ctx, matched))

	state, err = sess.State(ctx)
	require.NoError(t, err)

	peer, ok = state.Peer(address)
	require.True(t, ok)
	require.Len(t, peer.Direct, 1)
	assert.Equal(t, connmgr.AppID(7), peer.Direct[0].App)
	assert.True(t, peer.InAcceptList)
	assert.False(t, state.FilterEnabled)
}

func TestRunnerStoppedSession(t *testing.T) {
	sc, err := Parse([]byte(`{
  steps: [
    { op: "dump" }
    { op: "dump" }
  ]
}`))
	require.NoError(t, err)

	sess := startSession(t)
	sess.Stop()
	<-sess.Done()

	var steps int

	runner := NewRunner(sess, nil, nil)
	runner.OnStep = func(int, Step, error) { steps++ }

	assert.ErrorIs(t, runner.Run(context.Background(), sc), errorkinds.ErrLoopStopped)
	assert.Equal(t, 1, steps)
}
