package logger

import (
	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls log verbosity and output format.
type Config struct {
	Level  string
	Pretty bool
}

// New builds the service logger: an ectologger front end draining into a
// zap core. Level and encoding come from config; unknown levels fall back
// to info. Returns the logger and a flush func for shutdown.
func New(cfg Config) (ectologger.Logger, func() error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Pretty {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.DisableCaller = true

	sink, err := zapCfg.Build()
	if err != nil {
		sink = zap.NewNop()
	}

	log := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		sink.Info("", zap.Any("entry", msg))
	})

	return log, sink.Sync
}
