package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// RubricStore loads the best-practices and weights files once and serves
// the merged rubric from memory until a file changes.
type RubricStore struct {
	practicesPath string
	weightsPath   string
	logger        *slog.Logger

	mu     sync.RWMutex
	cached core.Rubric
}

// NewRubricStore creates a store for the two files. weightsPath may be
// empty when the practices file carries weights itself.
func NewRubricStore(practicesPath, weightsPath string, logger *slog.Logger) *RubricStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RubricStore{practicesPath: practicesPath, weightsPath: weightsPath, logger: logger}
}

// Rubric returns the cached rubric, reading the files on first use.
func (s *RubricStore) Rubric() (core.Rubric, error) {
	s.mu.RLock()
	r := s.cached
	s.mu.RUnlock()
	if r != nil {
		return r, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached, nil
	}
	r, err := LoadRubric(s.practicesPath, s.weightsPath)
	if err != nil {
		return nil, err
	}
	s.cached = r
	s.logger.Info("config.rubric_loaded", "categories", len(r))
	return r, nil
}

// Invalidate drops the cached rubric.
func (s *RubricStore) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Watch invalidates the cache whenever either file is written, replaced or
// removed. It returns once the watcher is running and stops with ctx.
func (s *RubricStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating rubric watcher: %w", err)
	}

	// Editors often replace files, so watch the directories.
	targets := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range []string{s.practicesPath, s.weightsPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			w.Close()
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("watching %s: %w", dir, err)
		}
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
				abs, err := filepath.Abs(event.Name)
				if err != nil || !targets[abs] {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					s.Invalidate()
					s.logger.Info("config.rubric_invalidated", "file", event.Name, "op", event.Op.String())
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("config.rubric_watch_error", "error", err)
			}
		}
	}()
	return nil
}

// LoadRubric reads and merges the rubric files. Descriptions come from
// either file; a weight in the weights file wins over one in the practices
// file.
func LoadRubric(practicesPath, weightsPath string) (core.Rubric, error) {
	practices, err := readRubricFile(practicesPath)
	if err != nil {
		return nil, err
	}
	if weightsPath == "" {
		return practices, nil
	}
	weights, err := readRubricFile(weightsPath)
	if err != nil {
		return nil, err
	}

	merged := make(core.Rubric, len(practices)+len(weights))
	for name, c := range practices {
		merged[name] = c
	}
	for name, c := range weights {
		m := merged[name]
		m.Weight = c.Weight
		if m.Description == "" {
			m.Description = c.Description
		}
		merged[name] = m
	}
	return merged, nil
}

func readRubricFile(path string) (core.Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rubric file: %w", err)
	}
	var r core.Rubric
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &r)
	default:
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing rubric file %s: %w", path, err)
	}
	return r, nil
}
