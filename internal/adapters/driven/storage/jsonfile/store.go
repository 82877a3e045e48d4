package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// FileName is the name of the store file inside the data directory.
const FileName = "session.json"

// Ensure Store implements the interface.
var _ driven.KeyValueStore = (*Store)(nil)

// Store is a file-backed key-value store with change watching.
type Store struct {
	mu      sync.RWMutex
	path    string
	values  map[string]string
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}

	// onReload is called after an external change has been loaded.
	onReload func()
}

// Option configures a Store.
type Option func(*Store)

// WithReloadHook sets a function called after each external reload.
func WithReloadHook(fn func()) Option {
	return func(s *Store) {
		s.onReload = fn
	}
}

// NewStore opens or creates the store in dataDir and starts watching it.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{
		path:   filepath.Join(dataDir, FileName),
		values: make(map[string]string),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	values, err := s.read()
	if err != nil {
		return nil, err
	}
	s.values = values

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory; atomic renames replace the file's inode.
	if err := w.Add(dataDir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", dataDir, err)
	}
	s.watcher = w

	go s.run()

	return s, nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value for key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok, nil
}

// Set stores value under key and writes the file.
func (s *Store) Set(_ context.Context, key, value string) error {
	return s.update(func(values map[string]string) {
		values[key] = value
	})
}

// Delete removes keys and writes the file.
func (s *Store) Delete(_ context.Context, keys ...string) error {
	return s.update(func(values map[string]string) {
		for _, key := range keys {
			delete(values, key)
		}
	})
}

// Close stops the watcher.
func (s *Store) Close() error {
	select {
	case <-s.stopCh:
		return nil
	default:
		close(s.stopCh)
	}
	<-s.doneCh
	return s.watcher.Close()
}

// update applies fn to the latest file contents and writes the result.
func (s *Store) update(fn func(map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	fn(values)

	if err := s.write(values); err != nil {
		return err
	}
	s.values = values
	return nil
}

// read loads the file. A missing or empty file is an empty store.
func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return values, nil
}

// write replaces the file atomically.
func (s *Store) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+FileName+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) run() {
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.reload()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("session store watcher: %v", err)
		}
	}
}

// reload refreshes the in-memory copy after an external change.
func (s *Store) reload() {
	s.mu.Lock()
	values, err := s.read()
	if err != nil {
		s.mu.Unlock()
		logger.Debug("session store reload skipped: %v", err)
		return
	}
	s.values = values
	hook := s.onReload
	s.mu.Unlock()

	logger.Debug("session store reloaded from %s", s.path)
	if hook != nil {
		hook()
	}
}
