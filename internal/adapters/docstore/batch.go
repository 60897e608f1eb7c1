package docstore

import (
	"context"
	"fmt"
)

// OpKind is the kind of a batched write.
type OpKind int

const (
	OpSet OpKind = iota
	OpMerge
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpMerge:
		return "merge"
	default:
		return "delete"
	}
}

// Op is one batched write.
type Op struct {
	Kind OpKind
	Path string
	Doc  Doc
}

// CommitFunc applies ops atomically.
type CommitFunc func(ctx context.Context, ops []Op) error

// OpBatch is the Batch shared by the backends; each supplies its commit.
type OpBatch struct {
	ops    []Op
	commit CommitFunc
}

// NewBatch creates a batch committed by fn.
func NewBatch(fn CommitFunc) *OpBatch {
	return &OpBatch{commit: fn}
}

// Set implements Batch.
func (b *OpBatch) Set(path string, doc Doc) {
	b.ops = append(b.ops, Op{Kind: OpSet, Path: path, Doc: doc})
}

// Merge implements Batch.
func (b *OpBatch) Merge(path string, fields Doc) {
	b.ops = append(b.ops, Op{Kind: OpMerge, Path: path, Doc: fields})
}

// Delete implements Batch.
func (b *OpBatch) Delete(path string) {
	b.ops = append(b.ops, Op{Kind: OpDelete, Path: path})
}

// Len implements Batch.
func (b *OpBatch) Len() int { return len(b.ops) }

// Commit implements Batch. Empty batches commit trivially.
func (b *OpBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	if len(b.ops) > MaxBatchSize {
		return fmt.Errorf("%w: %d writes, limit %d", ErrBatchTooLarge, len(b.ops), MaxBatchSize)
	}
	for _, op := range b.ops {
		if _, _, err := SplitDoc(op.Path); err != nil {
			return err
		}
	}
	return b.commit(ctx, b.ops)
}
