// Package docstore defines the document store contract used by the
// repositories: collections of JSON documents addressed by slash paths,
// equality queries and atomic batches.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxBatchSize is the largest number of writes one batch may commit.
const MaxBatchSize = 500

// Doc is a decoded document.
type Doc = map[string]any

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Eq builds a Filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Store is implemented by every backend.
type Store interface {
	// Get returns the document at path or ErrNotFound.
	Get(ctx context.Context, path string) (Doc, error)
	// Set replaces the document at path.
	Set(ctx context.Context, path string, doc Doc) error
	// Merge updates fields of the document at path, creating it when absent.
	// Dotted keys address nested maps; DeleteField removes a field.
	Merge(ctx context.Context, path string, fields Doc) error
	// Delete removes the document at path. Missing documents are not an error.
	Delete(ctx context.Context, path string) error
	// List returns every document of a collection ordered by id.
	List(ctx context.Context, collection string) ([]Doc, error)
	// Query returns the documents of a collection matching all filters,
	// ordered by id.
	Query(ctx context.Context, collection string, filters ...Filter) ([]Doc, error)
	// Batch starts an atomic write batch.
	Batch() Batch
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Batch collects writes that commit together or not at all.
type Batch interface {
	Set(path string, doc Doc)
	Merge(path string, fields Doc)
	Delete(path string)
	Len() int
	Commit(ctx context.Context) error
}

type deleteField struct{}

// DeleteField removes a field when used as a Merge value.
var DeleteField any = deleteField{}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// SplitDoc splits a document path into its collection path and id.
func SplitDoc(path string) (collection, id string, err error) {
	segs := strings.Split(path, "/")
	if len(segs)%2 != 0 || !validSegments(segs) {
		return "", "", fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, path)
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

// CheckCollection validates a collection path.
func CheckCollection(path string) error {
	segs := strings.Split(path, "/")
	if len(segs)%2 != 1 || !validSegments(segs) {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, path)
	}
	return nil
}

func validSegments(segs []string) bool {
	for _, s := range segs {
		if s == "" || s == "." || s == ".." {
			return false
		}
	}
	return true
}

// Encode converts v to a Doc through its JSON form.
func Encode(v any) (Doc, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode fills v from doc through its JSON form.
func Decode(doc Doc, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// ApplyMerge applies fields to doc in place and returns it. A nil doc is
// allocated.
func ApplyMerge(doc Doc, fields Doc) Doc {
	if doc == nil {
		doc = Doc{}
	}
	for k, v := range fields {
		parts := strings.Split(k, ".")
		target := doc
		for _, p := range parts[:len(parts)-1] {
			next, ok := target[p].(map[string]any)
			if !ok {
				if v == DeleteField {
					target = nil
					break
				}
				next = map[string]any{}
				target[p] = next
			}
			target = next
		}
		if target == nil {
			continue
		}
		last := parts[len(parts)-1]
		if v == DeleteField {
			delete(target, last)
			continue
		}
		target[last] = v
	}
	return doc
}

// Matches reports whether doc satisfies every filter. Values are compared
// in their JSON form so numeric types do not need to agree.
func Matches(doc Doc, filters []Filter) bool {
	for _, f := range filters {
		got, ok := doc[f.Field]
		if !ok {
			return false
		}
		a, errA := json.Marshal(got)
		b, errB := json.Marshal(f.Value)
		if errA != nil || errB != nil || string(a) != string(b) {
			return false
		}
	}
	return true
}

// Unmarshal decodes a stored document.
func Unmarshal(raw []byte) (Doc, error) {
	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

// Marshal encodes a document for storage. Backends store the JSON form so
// every backend hands out the same value types.
func Marshal(doc Doc) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return raw, nil
}
