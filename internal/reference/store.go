// internal/reference/store.go

// Package reference owns the calorie reference table for a running process:
// loading it from the CSV file, handing out immutable snapshots, and reloading
// when the file changes on disk.
package reference

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"mcp-nutrition-log/internal/nutrition"
)

type Store struct {
	path   string
	logger *slog.Logger

	table atomic.Pointer[nutrition.Table]
	stats atomic.Pointer[nutrition.LoadStats]
}

// NewStore starts with an empty table. Call Load to read path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger.With("component", "reference")}
	s.table.Store(nutrition.NewTable())
	s.stats.Store(&nutrition.LoadStats{})
	return s
}

func (s *Store) Path() string {
	return s.path
}

// Table returns the current snapshot. It is never nil and must not be mutated.
func (s *Store) Table() *nutrition.Table {
	return s.table.Load()
}

func (s *Store) Stats() nutrition.LoadStats {
	return *s.stats.Load()
}

// Load reads the CSV and swaps in the new table. On error the previous table
// stays in place.
func (s *Store) Load() error {
	if s.path == "" {
		return fmt.Errorf("no calorie table path configured")
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open calorie table: %w", err)
	}
	defer f.Close()

	table, stats, err := nutrition.ParseTable(f)
	if err != nil {
		return err
	}

	s.table.Store(table)
	s.stats.Store(&stats)

	s.logger.Info("calorie table loaded",
		"path", s.path,
		"foods", table.Len(),
		"rows", stats.Rows,
		"skipped", stats.Skipped)
	if stats.Skipped > 0 {
		s.logger.Debug("calorie table rows skipped", "count", stats.Skipped)
	}

	return nil
}

// Watch reloads the table whenever the file is written, created or renamed into
// place. The parent directory is watched so editors that replace the file are
// picked up. Watch returns once the watcher is running; it stops when ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("no calorie table path configured")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	target := filepath.Clean(s.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := s.Load(); err != nil {
					s.logger.Warn("calorie table reload failed", "error", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("file watcher error", "error", err)
			}
		}
	}()

	return nil
}
