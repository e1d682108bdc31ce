package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/samcharles93/psrio/pkg/psrfits"
	"github.com/samcharles93/psrio/pkg/tablefile"
)

type observationRecord struct {
	// mu serialises sample reads; psrfits.File keeps a row cache.
	mu   sync.Mutex
	id   string
	name string
	file *psrfits.File
}

// withFile runs fn with the record locked. A record evicted after it was
// looked up reports ErrNotFound.
func (r *observationRecord) withFile(fn func(*psrfits.File) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file.Descriptor() == nil {
		return ErrNotFound
	}
	return fn(r.file)
}

// ObservationStore opens archive files under one directory on first use and
// keeps them until evicted.
type ObservationStore struct {
	root string
	opts psrfits.ReadOptions

	mu      sync.Mutex
	records map[string]*observationRecord
}

func NewObservationStore(root string, opts psrfits.ReadOptions) *ObservationStore {
	return &ObservationStore{
		root:    root,
		opts:    opts,
		records: make(map[string]*observationRecord),
	}
}

// List returns the regular file names under the root, sorted.
func (s *ObservationStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *ObservationStore) cached(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[name]
	return ok
}

// Get returns the opened observation, loading it if needed.
func (s *ObservationStore) Get(ctx context.Context, name string) (*observationRecord, error) {
	if !validName(name) {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	rec, ok := s.records[name]
	s.mu.Unlock()
	if ok {
		return rec, nil
	}

	path := filepath.Join(s.root, name)
	if _, err := os.Stat(path); err != nil {
		return nil, ErrNotFound
	}
	st, err := tablefile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	opts := s.opts
	opts.Filename = path
	f, err := psrfits.Open(ctx, st, opts)
	if err != nil {
		return nil, err
	}
	if err := f.ReadHistory(); err != nil && opts.Logger != nil {
		opts.Logger.Debug("no history", "file", path, "err", err)
	}

	rec = &observationRecord{id: "obs_" + uuid.NewString(), name: name, file: f}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.records[name]; ok {
		// Another request loaded it first.
		return prev, nil
	}
	s.records[name] = rec
	return rec, nil
}

// Evict drops a cached observation so the next Get re-reads the file.
func (s *ObservationStore) Evict(name string) bool {
	s.mu.Lock()
	rec, ok := s.records[name]
	delete(s.records, name)
	s.mu.Unlock()
	if !ok {
		return false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	_ = rec.file.Close()
	return true
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}
