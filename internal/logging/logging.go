// Package logging configures the process-wide zerolog logger. The TUI
// owns the terminal, so log output always goes to a file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at a file sink. The returned closer
// flushes and releases the file; call it on shutdown.
func Setup(file, level string) (func(), error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir log dir: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger().Level(lvl)
	return func() { _ = f.Close() }, nil
}
