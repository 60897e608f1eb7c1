package docstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory. Documents are stored in
// their JSON form so callers never share maps with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
	latency     time.Duration
	closed      bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithLatency delays every call by d, honouring ctx.
func WithLatency(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.latency = d
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{collections: make(map[string]map[string][]byte)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) wait(ctx context.Context) error {
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return ctx.Err()
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, path string) (Doc, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	col, id, err := SplitDoc(path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	raw, ok := s.collections[col][id]
	if !ok {
		return nil, ErrNotFound
	}
	return Unmarshal(raw)
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, path string, doc Doc) error {
	return s.apply(ctx, []Op{{Kind: OpSet, Path: path, Doc: doc}})
}

// Merge implements Store.
func (s *MemoryStore) Merge(ctx context.Context, path string, fields Doc) error {
	return s.apply(ctx, []Op{{Kind: OpMerge, Path: path, Doc: fields}})
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	return s.apply(ctx, []Op{{Kind: OpDelete, Path: path}})
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, collection string) ([]Doc, error) {
	return s.Query(ctx, collection)
}

// Query implements Store.
func (s *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Doc, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if err := CheckCollection(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Doc, 0, len(ids))
	for _, id := range ids {
		doc, err := Unmarshal(docs[id])
		if err != nil {
			return nil, err
		}
		if Matches(doc, filters) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Batch implements Store.
func (s *MemoryStore) Batch() Batch {
	return NewBatch(s.apply)
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// apply validates and encodes every op before touching state so a failing
// op leaves the store unchanged.
func (s *MemoryStore) apply(ctx context.Context, ops []Op) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	type staged struct {
		col, id string
		raw     []byte
		op      Op
	}
	plan := make([]staged, 0, len(ops))
	for _, op := range ops {
		col, id, err := SplitDoc(op.Path)
		if err != nil {
			return err
		}
		st := staged{col: col, id: id, op: op}
		if op.Kind == OpSet {
			if st.raw, err = Marshal(op.Doc); err != nil {
				return err
			}
		}
		plan = append(plan, st)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	// Merges read state written earlier in the same batch, so they are
	// resolved against a working copy first.
	work := make(map[string]map[string][]byte)
	get := func(col, id string) ([]byte, bool) {
		if c, ok := work[col]; ok {
			if raw, ok := c[id]; ok {
				return raw, raw != nil
			}
		}
		raw, ok := s.collections[col][id]
		return raw, ok
	}
	put := func(col, id string, raw []byte) {
		if work[col] == nil {
			work[col] = make(map[string][]byte)
		}
		work[col][id] = raw
	}

	for _, st := range plan {
		switch st.op.Kind {
		case OpSet:
			put(st.col, st.id, st.raw)
		case OpMerge:
			var doc Doc
			if raw, ok := get(st.col, st.id); ok {
				var err error
				if doc, err = Unmarshal(raw); err != nil {
					return err
				}
			}
			raw, err := Marshal(ApplyMerge(doc, st.op.Doc))
			if err != nil {
				return err
			}
			put(st.col, st.id, raw)
		case OpDelete:
			put(st.col, st.id, nil)
		}
	}

	for col, docs := range work {
		for id, raw := range docs {
			if raw == nil {
				delete(s.collections[col], id)
				continue
			}
			if s.collections[col] == nil {
				s.collections[col] = make(map[string][]byte)
			}
			s.collections[col][id] = raw
		}
	}
	return nil
}

// Count returns the number of documents in collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}
