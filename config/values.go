package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/darkhz/bleconnmgr/adv"
	"github.com/darkhz/bleconnmgr/connmgr"
	"github.com/darkhz/bleconnmgr/controller/sim"
	"github.com/darkhz/bleconnmgr/ui/keybindings"
	"github.com/darkhz/bleconnmgr/ui/theme"
)

// MinDirectConnectTimeout is the shortest accepted direct connection timeout.
const MinDirectConnectTimeout = time.Second

// Values describes the possible configuration values that a user can
// modify and supply to the application.
type Values struct {
	AcceptListSize       int               `koanf:"accept-list-size"`
	DirectConnectTimeout string            `koanf:"direct-connect-timeout"`
	AnnouncementType     string            `koanf:"announcement-type"`
	FixedChannel         bool              `koanf:"fixed-channel"`
	LogLevel             string            `koanf:"log-level"`
	LogFile              string            `koanf:"log-file"`
	NoHelpDisplay        bool              `koanf:"no-help-display"`
	ConfirmOnQuit        bool              `koanf:"confirm-on-quit"`
	Theme                map[string]string `koanf:"theme"`
	Keybindings          map[string]string `koanf:"keybindings"`

	Timeout      time.Duration
	Announcement adv.AnnouncementType
	Level        zapcore.Level
	Kb           *keybindings.Keybindings
}

// validateValues validates all configuration values.
// Every invalid value is reported.
func (v *Values) validateValues() error {
	var err error

	for _, validate := range []func() error{
		v.validateAcceptListSize,
		v.validateTimeout,
		v.validateAnnouncementType,
		v.validateLogLevel,
		v.validateKeybindings,
		v.validateTheme,
	} {
		err = multierr.Append(err, validate())
	}

	return err
}

// validateAcceptListSize validates the capacity of the simulated accept list.
func (v *Values) validateAcceptListSize() error {
	switch {
	case v.AcceptListSize == 0:
		v.AcceptListSize = sim.DefaultAcceptListSize

	case v.AcceptListSize < 0:
		return fmt.Errorf("accept-list-size: %d: must be a positive number", v.AcceptListSize)
	}

	return nil
}

// validateTimeout validates the direct connection timeout.
func (v *Values) validateTimeout() error {
	if v.DirectConnectTimeout == "" {
		v.Timeout = connmgr.DefaultDirectConnectTimeout
		return nil
	}

	timeout, err := time.ParseDuration(v.DirectConnectTimeout)
	if err != nil {
		return fmt.Errorf("direct-connect-timeout: %w", err)
	}

	if timeout < MinDirectConnectTimeout {
		return fmt.Errorf("direct-connect-timeout: %s: must be at least %s", timeout, MinDirectConnectTimeout)
	}

	v.Timeout = timeout

	return nil
}

// validateAnnouncementType validates the announcement type that triggers a connection.
func (v *Values) validateAnnouncementType() error {
	typ, err := adv.ParseAnnouncementType(v.AnnouncementType)
	if err != nil {
		return fmt.Errorf("announcement-type: %w", err)
	}

	v.Announcement = typ

	return nil
}

// validateLogLevel validates the logging level.
func (v *Values) validateLogLevel() error {
	if v.LogLevel == "" {
		v.Level = zapcore.InfoLevel
		return nil
	}

	level, err := zapcore.ParseLevel(v.LogLevel)
	if err != nil {
		return fmt.Errorf("log-level: %w", err)
	}

	v.Level = level

	return nil
}

// validateKeybindings validates the keybindings.
func (v *Values) validateKeybindings() error {
	v.Kb = keybindings.NewKeybindings()
	if len(v.Keybindings) == 0 {
		return nil
	}

	return v.Kb.Validate(v.Keybindings)
}

// validateTheme validates the theme configuration.
func (v *Values) validateTheme() error {
	if len(v.Theme) == 0 {
		return nil
	}

	return theme.ParseThemeConfig(v.Theme)
}
