package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"mercator-hq/trafficwatch/pkg/traffic"
)

// fileDocument is the YAML layout read by FileSource:
//
//	limits:
//	  - name: min
//	    value: 1024
//	    effective_date: 2024-01-01T00:00:00Z
//	  - name: max
//	    value: 8192
//	    effective_date: 2024-01-01T00:00:00Z
type fileDocument struct {
	Limits []Record `yaml:"limits"`
}

// FileSource reads limits from a YAML file on every Fetch.
type FileSource struct {
	path     string
	mu       sync.Mutex
	debounce time.Duration
	logger   *slog.Logger
}

// NewFileSource returns a source reading path. The file must exist.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("limits file path cannot be empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat limits file: %w", err)
	}
	return &FileSource{
		path:     path,
		debounce: 100 * time.Millisecond,
		logger:   slog.Default().With("component", "limits.file"),
	}, nil
}

func (s *FileSource) read() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read limits file: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse limits file: %w", err)
	}
	for i := range doc.Limits {
		doc.Limits[i].ID = int64(i + 1)
	}
	return doc.Limits, nil
}

// Fetch implements traffic.LimitSource.
func (s *FileSource) Fetch(ctx context.Context) (traffic.Limits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return traffic.Limits{}, err
	}
	return Select(records)
}

// Insert appends a record and rewrites the file.
func (s *FileSource) Insert(ctx context.Context, r Record) (Record, error) {
	if err := validateRecord(r); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return Record{}, err
	}
	r.ID = int64(len(records) + 1)
	records = append(records, r)

	data, err := yaml.Marshal(fileDocument{Limits: records})
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode limits file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Record{}, fmt.Errorf("failed to write limits file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return Record{}, fmt.Errorf("failed to replace limits file: %w", err)
	}
	return r, nil
}

// Records returns the records in file order.
func (s *FileSource) Records(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Close is a no-op.
func (s *FileSource) Close() error {
	return nil
}

// Watch calls onChange after the file is written, created or renamed into
// place, debounced so a burst of events yields one call. It blocks until
// ctx is cancelled.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files, so watch the directory and filter by name.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	name := filepath.Clean(s.path)

	s.logger.Info("watching limits file", "path", s.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != name || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			s.logger.Debug("limits file changed", "op", event.Op.String())

			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() {
				if ctx.Err() == nil {
					onChange()
				}
			})
			timerMu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			s.logger.Error("limits file watcher error", "error", err)
		}
	}
}
