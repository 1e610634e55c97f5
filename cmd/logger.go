package cmd

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/darkhz/bleconnmgr/config"
)

// newLogger returns a logger for the configured level and file.
// Without a log file, logs go to the standard error only if the
// terminal is not taken over by the interface.
func newLogger(values config.Values, toStderr bool) (*zap.Logger, error) {
	if values.LogFile == "" && !toStderr {
		return zap.NewNop(), nil
	}

	output := "stderr"
	if values.LogFile != "" {
		output = values.LogFile
	}

	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if values.LogFile != "" {
		encoder.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(values.Level),
		Encoding:          "console",
		EncoderConfig:     encoder,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}

	return cfg.Build()
}
