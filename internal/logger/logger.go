package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoding and verbosity of the application logger.
type Options struct {
	JSON  bool
	Debug bool
	// Outputs defaults to stderr so stdout stays free for command results.
	Outputs []string
}

// New builds the application logger from opts.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.DisableStacktrace = !opts.Debug
	cfg.Encoding = "console"
	if opts.JSON {
		cfg.Encoding = "json"
	}

	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Debug {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}

	cfg.OutputPaths = []string{"stderr"}
	if len(opts.Outputs) > 0 {
		cfg.OutputPaths = opts.Outputs
	}
	cfg.ErrorOutputPaths = []string{"stderr"}

	cfg.EncoderConfig = zapcore.EncoderConfig{
		MessageKey:    "step",
		LevelKey:      "level",
		TimeKey:       "time",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeTime:    zapcore.RFC3339TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	if !opts.JSON {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	return cfg.Build()
}
