package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkhz/bleconnmgr/bluetooth"
)

var (
	peerA = bluetooth.MustParseMAC("AA:BB:CC:DD:EE:01")
	peerB = bluetooth.MustParseMAC("AA:BB:CC:DD:EE:02")
	peerC = bluetooth.MustParseMAC("AA:BB:CC:DD:EE:03")
)

func TestAcceptListCapacity(t *testing.T) {
	c := New(2, nil)

	require.True(t, c.AddToAcceptList(peerA))
	require.True(t, c.AddToAcceptList(peerB))
	assert.True(t, c.AddToAcceptList(peerA), "re-adding a present peer succeeds")
	assert.False(t, c.AddToAcceptList(peerC))

	assert.Equal(t, []bluetooth.MacAddress{peerA, peerB}, c.AcceptList())
	assert.False(t, c.InAcceptList(peerC))

	c.RemoveFromAcceptList(peerA)
	assert.True(t, c.AddToAcceptList(peerC))

	c.ClearAcceptList()
	assert.Empty(t, c.AcceptList())

	names := make([]string, 0)
	for _, cmd := range c.History() {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{
		CmdAcceptListAdd, CmdAcceptListAdd, CmdAcceptListAdd, CmdAcceptListReject,
		CmdAcceptListRemove, CmdAcceptListAdd, CmdAcceptListClear,
	}, names)
}

func TestConnectionSpeed(t *testing.T) {
	c := New(0, nil)
	assert.Equal(t, DefaultAcceptListSize, c.Capacity())

	assert.True(t, c.SetFastConnectionMode())
	assert.False(t, c.SetFastConnectionMode())
	assert.True(t, c.FastMode())

	c.SetSlowConnectionMode()
	c.SetSlowConnectionMode()
	assert.False(t, c.FastMode())

	assert.Equal(t, []Command{{Name: CmdFastMode}, {Name: CmdSlowMode}}, c.History())
}

func TestInjectAdvertisement(t *testing.T) {
	c := New(1, nil)

	var got []bluetooth.MacAddress
	observe := func(address bluetooth.MacAddress, data []byte) {
		got = append(got, address)
	}

	assert.False(t, c.InjectAdvertisement(peerA, nil))

	c.SetAnnouncementFilterEnabled(true, observe)
	assert.True(t, c.FilterEnabled())
	assert.True(t, c.InjectAdvertisement(peerA, []byte{0x02, 0x01, 0x06}))

	c.SetAnnouncementFilterEnabled(false, nil)
	assert.False(t, c.InjectAdvertisement(peerB, nil))

	assert.Equal(t, []bluetooth.MacAddress{peerA}, got)
}

func TestFixedChannel(t *testing.T) {
	c := New(1, nil)

	assert.True(t, c.ConnectFixedChannel(peerA))

	c.RejectFixedChannel(true)
	assert.False(t, c.ConnectFixedChannel(peerB))
	assert.EqualValues(t, 1, c.FixedChannelConnects())

	c.ResetHistory()
	assert.Empty(t, c.History())
}
