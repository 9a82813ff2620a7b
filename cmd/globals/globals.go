// Package globals holds the persistent root flags shared by every command.
package globals

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/flarebyte/tracker-snapshot/internal/config"
	"github.com/flarebyte/tracker-snapshot/internal/logging"
)

var (
	ConfigPath string
	LogLevel   string
	LogFormat  string
)

// Load reads the configuration (the --config file, else config.yaml under the
// home directory), applies the logging flags and builds the logger.
func Load() (cfgpkg.Config, *slog.Logger, error) {
	var cfg cfgpkg.Config
	var err error
	if ConfigPath != "" {
		cfg, err = cfgpkg.LoadFile(ConfigPath)
	} else {
		cfg, err = cfgpkg.Load()
	}
	if err != nil {
		return cfg, nil, err
	}
	if LogLevel != "" {
		cfg.Log.Level = LogLevel
	}
	if LogFormat != "" {
		cfg.Log.Format = LogFormat
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM so runs stop between steps.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
