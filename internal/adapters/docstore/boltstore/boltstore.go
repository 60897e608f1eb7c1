// Package boltstore is a docstore backend on an embedded bbolt file. Each
// collection path is a top-level bucket keyed by document id.
package boltstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/okian/combine/internal/adapters/docstore"
)

// Store implements docstore.Store.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", dir, err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, path string) (docstore.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	col, id, err := docstore.SplitDoc(path)
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return docstore.ErrNotFound
		}
		v := b.Get([]byte(id))
		if v == nil {
			return docstore.ErrNotFound
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docstore.Unmarshal(raw)
}

// Set implements docstore.Store.
func (s *Store) Set(ctx context.Context, path string, doc docstore.Doc) error {
	return s.apply(ctx, []docstore.Op{{Kind: docstore.OpSet, Path: path, Doc: doc}})
}

// Merge implements docstore.Store.
func (s *Store) Merge(ctx context.Context, path string, fields docstore.Doc) error {
	return s.apply(ctx, []docstore.Op{{Kind: docstore.OpMerge, Path: path, Doc: fields}})
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, path string) error {
	return s.apply(ctx, []docstore.Op{{Kind: docstore.OpDelete, Path: path}})
}

// List implements docstore.Store.
func (s *Store) List(ctx context.Context, collection string) ([]docstore.Doc, error) {
	return s.Query(ctx, collection)
}

// Query implements docstore.Store. Filters are evaluated while scanning
// the bucket in key order.
func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := docstore.CheckCollection(collection); err != nil {
		return nil, err
	}
	var out []docstore.Doc
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := docstore.Unmarshal(v)
			if err != nil {
				return err
			}
			if docstore.Matches(doc, filters) {
				out = append(out, doc)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	if out == nil {
		out = []docstore.Doc{}
	}
	return out, nil
}

// Batch implements docstore.Store. A batch commits in one bolt transaction.
func (s *Store) Batch() docstore.Batch {
	return docstore.NewBatch(s.apply)
}

// Ping implements docstore.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

// Close implements docstore.Store.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) apply(ctx context.Context, ops []docstore.Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, op := range ops {
			col, id, err := docstore.SplitDoc(op.Path)
			if err != nil {
				return err
			}
			if op.Kind == docstore.OpDelete {
				if b := tx.Bucket([]byte(col)); b != nil {
					if err := b.Delete([]byte(id)); err != nil {
						return err
					}
				}
				continue
			}
			b, err := tx.CreateBucketIfNotExists([]byte(col))
			if err != nil {
				return fmt.Errorf("create bucket %s: %w", col, err)
			}
			doc := op.Doc
			if op.Kind == docstore.OpMerge {
				var current docstore.Doc
				if v := b.Get([]byte(id)); v != nil {
					if current, err = docstore.Unmarshal(v); err != nil {
						return err
					}
				}
				doc = docstore.ApplyMerge(current, op.Doc)
			}
			raw, err := docstore.Marshal(doc)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(id), raw); err != nil {
				return err
			}
		}
		return nil
	})
}
