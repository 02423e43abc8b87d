package directory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// fileContents is the on-disk shape of a directory file.
type fileContents struct {
	Evaluators  []Evaluator  `yaml:"evaluators"`
	Staff       []Staff      `yaml:"rd_staff"`
	Departments []Department `yaml:"departments"`
}

// File is a YAML-file-backed directory that reloads when the file changes.
// It watches the containing directory rather than the file itself so that
// atomic rename-in-place saves are picked up.
type File struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	contents fileContents

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// OpenFile loads the directory file and starts watching it for changes.
// Close must be called to release the watcher.
func OpenFile(path string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := &File{
		path:   path,
		logger: logger,
		done:   make(chan struct{}),
	}
	if err := f.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	f.watcher = watcher

	f.wg.Add(1)
	go f.watchLoop()

	return f, nil
}

// Close stops the file watcher.
func (f *File) Close() error {
	close(f.done)
	err := f.watcher.Close()
	f.wg.Wait()
	return err
}

func (f *File) watchLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := f.reload(); err != nil {
				// Keep serving the last good contents.
				f.logger.Warn("Directory reload failed",
					slog.String("path", f.path),
					slog.String("error", err.Error()))
				continue
			}
			f.logger.Info("Directory reloaded", slog.String("path", f.path))
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("Directory watcher error", slog.String("error", err.Error()))
		}
	}
}

func (f *File) reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read directory file: %w", err)
	}

	var contents fileContents
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return fmt.Errorf("parse directory file: %w", err)
	}

	f.mu.Lock()
	f.contents = contents
	f.mu.Unlock()
	return nil
}

// ListEvaluators returns the evaluator records from the last good load.
func (f *File) ListEvaluators(_ context.Context) ([]Evaluator, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Evaluator(nil), f.contents.Evaluators...), nil
}

// ListRdStaff returns the R&D staff pool from the last good load.
func (f *File) ListRdStaff(_ context.Context) ([]Staff, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Staff(nil), f.contents.Staff...), nil
}

// ListDepartments returns the departments from the last good load.
func (f *File) ListDepartments(_ context.Context) ([]Department, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Department(nil), f.contents.Departments...), nil
}
