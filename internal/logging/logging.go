// Package logging provides the application's rotating file logger.
package logging

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/planweave/planweave/internal/config"
)

var (
	global *log.Logger
	sink   *lumberjack.Logger
	once   sync.Once
)

// Init sets up the singleton rotating logger. Safe to call more than once;
// only the first call configures the sink.
func Init(cfg config.LogConfig) *log.Logger {
	once.Do(func() {
		_ = os.MkdirAll(filepath.Dir(cfg.Path), 0755)
		sink = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		global = log.New(sink, "", log.LstdFlags|log.Lmsgprefix)
	})
	return global
}

// L returns the process logger, initializing with defaults if Init was never
// called.
func L() *log.Logger {
	if global == nil {
		return Init(config.Default().Log)
	}
	return global
}

// Close flushes and closes the underlying log file.
func Close() error {
	if sink != nil {
		return sink.Close()
	}
	return nil
}
