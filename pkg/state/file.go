package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"botcore/pkg/fileutil"
	"botcore/pkg/logger"
)

// FileStore keeps every document in memory and persists the whole set as one
// JSON object. With a flush interval, writes are batched by a background
// loop; without one, every write goes to disk before returning.
type FileStore struct {
	log  *logger.Logger
	path string

	mu    sync.RWMutex
	docs  map[string]json.RawMessage
	dirty bool

	flushMu sync.Mutex

	interval  time.Duration
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// OpenFile loads path, creating it on first save. A positive interval
// enables batched writes.
func OpenFile(log *logger.Logger, path string, interval time.Duration) (*FileStore, error) {
	s := &FileStore{
		log:      log,
		path:     path,
		docs:     make(map[string]json.RawMessage),
		interval: interval,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading state file: %w", err)
	default:
		if err := json.Unmarshal(data, &s.docs); err != nil {
			return nil, fmt.Errorf("decoding state file %s: %w", path, err)
		}
		if s.docs == nil {
			s.docs = make(map[string]json.RawMessage)
		}
		log.Info("Loaded state", zap.String("file", path), zap.Int("keys", len(s.docs)))
	}

	if interval > 0 {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.flushLoop()
	}
	return s, nil
}

// Get implements KV.
func (s *FileStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	return doc, ok, nil
}

// Set implements KV.
func (s *FileStore) Set(ctx context.Context, key string, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("state %s: invalid JSON document", key)
	}
	s.mu.Lock()
	s.docs[key] = append(json.RawMessage(nil), doc...)
	s.dirty = true
	s.mu.Unlock()
	return s.writeThrough()
}

// Delete implements KV.
func (s *FileStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	_, ok := s.docs[key]
	if ok {
		delete(s.docs, key)
		s.dirty = true
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, s.writeThrough()
}

// Keys implements KV.
func (s *FileStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys, nil
}

// Update implements KV. fn runs under the store lock and must not call back
// into the store.
func (s *FileStore) Update(ctx context.Context, key string, fn func(doc json.RawMessage, ok bool) (json.RawMessage, error)) error {
	s.mu.Lock()
	current, ok := s.docs[key]
	next, err := fn(current, ok)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if next == nil {
		delete(s.docs, key)
	} else if json.Valid(next) {
		s.docs[key] = next
	} else {
		s.mu.Unlock()
		return fmt.Errorf("state %s: invalid JSON document", key)
	}
	s.dirty = true
	s.mu.Unlock()

	return s.writeThrough()
}

// Flush writes pending changes to disk.
func (s *FileStore) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	data, err := json.MarshalIndent(s.docs, "", "  ")
	keys := len(s.docs)
	s.dirty = false
	s.mu.Unlock()

	if err == nil {
		err = fileutil.WriteAtomic(s.path, data, 0o644)
	}
	if err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("writing state file: %w", err)
	}

	s.log.Debug("Saved state", zap.String("file", s.path), zap.Int("keys", keys))
	return nil
}

// Close stops the flush loop and writes pending changes.
func (s *FileStore) Close() error {
	s.closeOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
			<-s.done
		}
	})
	return s.Flush()
}

func (s *FileStore) writeThrough() error {
	if s.interval > 0 {
		return nil
	}
	return s.Flush()
}

func (s *FileStore) flushLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.log.Error("State flush failed", zap.Error(err))
			}
		case <-s.stop:
			return
		}
	}
}
