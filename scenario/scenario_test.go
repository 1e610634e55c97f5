package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/darkhz/bleconnmgr/adv"
	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/errorkinds"
)

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(`{
  name: parse
  steps: [
    { op: "background", app: 1, address: "AA:BB:CC:DD:EE:01" }
    { op: "wait", duration: "1m" }
    { op: "advertise", address: "AA:BB:CC:DD:EE:01", data: "02 01 06" }
    { op: "advertise", address: "AA:BB:CC:DD:EE:01", announcement: "targeted" }
    { op: "reset", after-controller-reset: true }
    { op: "remove-direct", app: 2, address: "AA:BB:CC:DD:EE:01", fail: true }
  ]
}`))
	require.NoError(t, err)

	assert.Equal(t, "parse", sc.Name)
	require.Len(t, sc.Steps, 6)

	address := bluetooth.MustParseMAC("AA:BB:CC:DD:EE:01")
	assert.Equal(t, Step{Op: OpBackground, App: 1, Address: address}, sc.Steps[0])
	assert.Equal(t, time.Minute, sc.Steps[1].Duration)
	assert.Equal(t, []byte{0x02, 0x01, 0x06}, sc.Steps[2].Data)
	assert.Equal(t, []adv.AnnouncementType{adv.TargetedAnnouncement}, adv.Packet(sc.Steps[3].Data).Announcements())
	assert.True(t, sc.Steps[4].AfterControllerReset)
	assert.True(t, sc.Steps[5].Fail)

	assert.Equal(t, "background app=1 address=AA:BB:CC:DD:EE:01", sc.Steps[0].String())
	assert.Equal(t, "wait 1m0s", sc.Steps[1].String())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{
  steps: [
    { op: "jump" }
    { op: "background", app: 1, address: "nope" }
    { op: "direct", app: 300, address: "AA:BB:CC:DD:EE:01" }
    { op: "wait", duration: "soon" }
    { op: "dump" }
  ]
}`))
	require.Error(t, err)

	assert.Len(t, multierr.Errors(errors.Unwrap(err)), 4)
	assert.ErrorIs(t, err, errorkinds.ErrScenarioParse)
	assert.ErrorIs(t, err, errorkinds.ErrUnknownStep)
	assert.ErrorIs(t, err, errorkinds.ErrInvalidAddress)
	assert.ErrorIs(t, err, errorkinds.ErrInvalidAppID)

	_, err = Parse([]byte(`{ steps: [ `))
	assert.ErrorIs(t, err, errorkinds.ErrScenarioParse)
}

func TestLoad(t *testing.T) {
	sc, err := Load(filepath.Join("..", "scenarios", "audio.hjson"))
	require.NoError(t, err)
	assert.Equal(t, "audio sharing", sc.Name)
	assert.NotEmpty(t, sc.Steps)

	path := filepath.Join(t.TempDir(), "empty.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{ name: "empty" }`), 0o600))

	sc, err = Load(path)
	require.NoError(t, err)
	assert.Empty(t, sc.Steps)
}
