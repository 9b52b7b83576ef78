// Package logging initialises logrus from configuration and prunes
// expired log files.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/resupply-planner/resupply/go/config"
	log "github.com/sirupsen/logrus"
)

// Init configures the global logrus logger. When |logFile| is non-empty
// the file is opened for append and logs are written both there and to
// stderr, which journald captures when run under systemd.
func Init(cfg config.Logging, logFile string) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	return nil
}

// Prune removes files under |dir| whose modification time is older than
// |retentionDays| days, and returns the number removed. Subdirectories
// are not descended into.
func Prune(dir string, retentionDays int, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading log directory: %w", err)
	}
	var cutoff = now.AddDate(0, 0, -retentionDays)
	var removed int

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, err
		}
		if info.ModTime().Before(cutoff) {
			var path = filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				return removed, fmt.Errorf("removing %s: %w", path, err)
			}
			log.WithFields(log.Fields{"file": path, "modified": info.ModTime()}).
				Info("pruned expired log file")
			removed++
		}
	}
	return removed, nil
}
