package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/parsers/hjson"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/darkhz/bleconnmgr/adv"
	"github.com/darkhz/bleconnmgr/connmgr"
	"github.com/darkhz/bleconnmgr/controller/sim"
)

func TestValidateDefaults(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.ValidateValues())

	v := c.Values
	assert.Equal(t, sim.DefaultAcceptListSize, v.AcceptListSize)
	assert.Equal(t, connmgr.DefaultDirectConnectTimeout, v.Timeout)
	assert.Equal(t, adv.GeneralAnnouncement, v.Announcement)
	assert.Equal(t, zapcore.InfoLevel, v.Level)
	assert.NotNil(t, v.Kb)
}

func TestValidateValues(t *testing.T) {
	c := NewConfig()
	c.Values = Values{
		AcceptListSize:       2,
		DirectConnectTimeout: "5s",
		AnnouncementType:     "targeted",
		LogLevel:             "debug",
	}
	require.NoError(t, c.ValidateValues())

	assert.Equal(t, 2, c.Values.AcceptListSize)
	assert.Equal(t, 5*time.Second, c.Values.Timeout)
	assert.Equal(t, adv.TargetedAnnouncement, c.Values.Announcement)
	assert.Equal(t, zapcore.DebugLevel, c.Values.Level)
}

func TestValidateReportsEveryError(t *testing.T) {
	c := NewConfig()
	c.Values = Values{
		AcceptListSize:       -1,
		DirectConnectTimeout: "10ms",
		AnnouncementType:     "broadcast",
		LogLevel:             "loud",
	}

	err := c.ValidateValues()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
}

func TestLoadFileAndSave(t *testing.T) {
	c := &Config{path: t.TempDir()}

	conf := filepath.Join(c.path, configFile)
	require.NoError(t, os.WriteFile(conf, []byte(`{
  accept-list-size: 3
  direct-connect-timeout: 10s
  theme: { AcceptList: "blue" }
}`), 0o600))

	k := koanf.New(".")
	require.NoError(t, k.Load(file.Provider(conf), hjson.Parser()))
	require.NoError(t, k.Set("log-level", "warn"))
	require.NoError(t, c.Unmarshal(k))

	assert.Equal(t, 3, c.Values.AcceptListSize)
	assert.Equal(t, "10s", c.Values.DirectConnectTimeout)
	assert.Equal(t, "warn", c.Values.LogLevel)
	assert.Equal(t, map[string]string{"AcceptList": "blue"}, c.Values.Theme)

	require.NoError(t, c.GenerateAndSave(k))

	saved := koanf.New(".")
	require.NoError(t, saved.Load(file.Provider(conf), hjson.Parser()))
	assert.Equal(t, "warn", saved.String("log-level"))
	assert.Equal(t, 3, saved.Int("accept-list-size"))
}

func TestFilePathCreatesFile(t *testing.T) {
	c := &Config{path: t.TempDir()}

	path, err := c.FilePath("other.conf")
	require.NoError(t, err)
	assert.FileExists(t, path)
}
