package connmgr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump(t *testing.T) {
	h := newHarness(t, 4)

	var empty strings.Builder
	h.do(func(m *Manager) { require.NoError(t, m.Dump(&empty)) })
	assert.Contains(t, empty.String(), "Tracked peers:   0")
	assert.NotContains(t, empty.String(), "ADDRESS")

	var out strings.Builder
	h.do(func(m *Manager) {
		require.NoError(t, m.AddBackground(1, peerA))
		require.NoError(t, m.AddBackground(2, peerA))
		require.NoError(t, m.AddTargetedAnnouncement(3, peerB))
		require.NoError(t, m.DirectConnect(4, peerC))
		require.NoError(t, m.Dump(&out))
	})

	dump := out.String()
	assert.Contains(t, dump, "Tracked peers:   3")
	assert.Contains(t, dump, "Filter enabled:  true (1 filtering)")
	assert.Contains(t, dump, "Direct connects: 1")
	assert.Contains(t, dump, "4(30s)")

	lines := strings.Split(strings.TrimSpace(dump), "\n")
	require.Len(t, lines, 8)
	assert.Contains(t, lines[5], peerA.String())
	assert.Contains(t, lines[5], "1,2")
	assert.Contains(t, lines[6], peerB.String())
	assert.Contains(t, lines[7], peerC.String())
}

func TestJoinApps(t *testing.T) {
	assert.Equal(t, "-", JoinApps(nil))
	assert.Equal(t, "1,7", JoinApps([]AppID{1, 7}))
}
