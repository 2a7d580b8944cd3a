package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"quiz-engine/internal/config"
)

// New builds a production logger when log.env is "production" and a development
// logger otherwise. log.level overrides the default level when it parses.
func New(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Log.Env == "production" {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Log.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}
