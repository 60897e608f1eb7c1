// Package pgstore is a docstore backend on PostgreSQL. Documents live in a
// single JSONB table keyed by (collection, id).
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/combine/internal/adapters/docstore"
)

// Document is the row shape of the documents table.
type Document struct {
	Collection string    `gorm:"primaryKey;size:512"`
	ID         string    `gorm:"primaryKey;size:256"`
	Data       []byte    `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName implements gorm's tabler.
func (Document) TableName() string { return "documents" }

// Store implements docstore.Store.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to dsn and migrates the documents table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(db)
}

// New wraps an open gorm handle and migrates the documents table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("migrate documents: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, path string) (docstore.Doc, error) {
	col, id, err := docstore.SplitDoc(path)
	if err != nil {
		return nil, err
	}
	var row Document
	err = s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", col, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return docstore.Unmarshal(row.Data)
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

// Query implements docstore.Store. Each filter becomes a JSONB containment
// predicate; results are re-checked for exact equality.
func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Doc, error) {
	if err := docstore.CheckCollection(collection); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("collection = ?", collection)
	for _, f := range filters {
		probe, err := json.Marshal(map[string]any{f.Field: f.Value})
		if err != nil {
			return nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
		}
		q = q.Where("data @> ?::jsonb", string(probe))
	}
	var rows []Document
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]docstore.Doc, 0, len(rows))
	for _, r := range rows {
		doc, err := docstore.Unmarshal(r.Data)
		if err != nil {
			return nil, err
		}
		if docstore.Matches(doc, filters) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Batch implements docstore.Store. A batch commits in one transaction.
func (s *Store) Batch() docstore.Batch {
	return docstore.NewBatch(s.apply)
}

// Ping implements docstore.Store.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close implements docstore.Store.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) apply(ctx context.Context, ops []docstore.Op) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if err := s.applyOne(tx, op); err != nil {
				return fmt.Errorf("%s %s: %w", op.Kind, op.Path, err)
			}
		}
		return nil
	})
}

func (s *Store) applyOne(tx *gorm.DB, op docstore.Op) error {
	col, id, err := docstore.SplitDoc(op.Path)
	if err != nil {
		return err
	}
	if op.Kind == docstore.OpDelete {
		return tx.Where("collection = ? AND id = ?", col, id).Delete(&Document{}).Error
	}

	doc := op.Doc
	if op.Kind == docstore.OpMerge {
		var current Document
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND id = ?", col, id).
			First(&current).Error
		var base docstore.Doc
		switch {
		case err == nil:
			if base, err = docstore.Unmarshal(current.Data); err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		doc = docstore.ApplyMerge(base, op.Doc)
	}

	raw, err := docstore.Marshal(doc)
	if err != nil {
		return err
	}
	row := Document{Collection: col, ID: id, Data: raw, UpdatedAt: s.now()}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
}

// Truncate removes every document. Used by tests against a scratch database.
func (s *Store) Truncate(ctx context.Context) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Document{}).Error
}
