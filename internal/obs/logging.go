// Package obs contains observability utilities such as logging.
package obs

import (
	"strings"

	"go.uber.org/zap"
)

// Logger is the global structured logger used by the service.
//
// It defaults to a no-op logger so library code and tests can log without
// calling InitLogger first.
var Logger = zap.NewNop().Sugar()

// InitLogger replaces the global Logger with a real zap logger. Mode "prod"
// selects the JSON production encoder, anything else the console development
// encoder.
func InitLogger(mode string) error {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Logger = l.Sugar()
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger.Sync()
}
