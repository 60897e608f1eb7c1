// Package dedupe tracks player identities within one event so that bulk
// uploads and single creates never collide with an existing roster.
package dedupe

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/text/cases"
)

// Identity is the subset of a player used for collision checks.
type Identity struct {
	PlayerID   string
	FirstName  string
	LastName   string
	Number     *int
	AgeGroup   string
	ExternalID string
}

// Source says where a colliding identity came from.
type Source int

const (
	// FromEvent is a player already stored for the event.
	FromEvent Source = iota
	// FromUpload is an earlier row of the same upload.
	FromUpload
)

// Conflict describes a collision.
type Conflict struct {
	Source   Source
	Key      string // "name_number", "name_age", "external_id" or "player_id"
	PlayerID string
	Row      int
}

// Reason renders a row-level message.
func (c *Conflict) Reason() string {
	var what string
	switch c.Key {
	case keyExternal:
		what = "external_id"
	case keyNameNumber:
		what = "first_name, last_name and jersey_number"
	case keyPlayerID:
		what = "id"
	default:
		what = "first_name, last_name and age_group"
	}
	if c.Source == FromUpload {
		return fmt.Sprintf("duplicate %s within upload (row %d)", what, c.Row)
	}
	return fmt.Sprintf("player with the same %s already exists in event", what)
}

const (
	keyNameNumber = "name_number"
	keyNameAge    = "name_age"
	keyExternal   = "external_id"
	keyPlayerID   = "player_id"
)

type owner struct {
	source   Source
	playerID string
	row      int
}

// Deduper records identities and reports collisions.
type Deduper interface {
	// SeenAndRecord checks id against every recorded identity and records
	// it when there is no collision. row is the 1-based upload row, 0 for
	// single creates.
	SeenAndRecord(ctx context.Context, id Identity, row int) *Conflict

	// Unrecord forgets id, used when an edited player is re-checked.
	Unrecord(ctx context.Context, id Identity)

	Size() int64
}

// Index is the in-memory Deduper built once per upload.
type Index struct {
	mu   sync.Mutex
	seen map[string]owner
	fold cases.Caser
	size atomic.Int64
}

// NewIndex builds an index seeded with existing players.
func NewIndex(opts ...Option) *Index {
	idx := &Index{
		seen: make(map[string]owner),
		fold: cases.Fold(),
	}
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	for _, p := range cfg.existing {
		if p.PlayerID != "" && p.PlayerID == cfg.exclude {
			continue
		}
		idx.recordLocked(p, owner{source: FromEvent, playerID: p.PlayerID})
	}
	return idx
}

func (idx *Index) norm(s string) string {
	return idx.fold.String(strings.Join(strings.Fields(s), " "))
}

func (idx *Index) keys(id Identity) []string {
	first, last := idx.norm(id.FirstName), idx.norm(id.LastName)
	keys := make([]string, 0, 3)
	if id.Number != nil {
		keys = append(keys, keyNameNumber+"\x00"+first+"\x00"+last+"\x00"+strconv.Itoa(*id.Number))
	} else {
		keys = append(keys, keyNameAge+"\x00"+first+"\x00"+last+"\x00"+idx.norm(id.AgeGroup))
	}
	if ext := strings.TrimSpace(id.ExternalID); ext != "" {
		keys = append(keys, keyExternal+"\x00"+idx.norm(ext))
	}
	// Ids are compared exactly; two rows resolving to one id would be
	// written to the same document.
	if pid := strings.TrimSpace(id.PlayerID); pid != "" {
		keys = append(keys, keyPlayerID+"\x00"+pid)
	}
	return keys
}

func (idx *Index) recordLocked(id Identity, o owner) {
	added := false
	for _, k := range idx.keys(id) {
		if _, ok := idx.seen[k]; !ok {
			idx.seen[k] = o
			added = true
		}
	}
	if added {
		idx.size.Add(1)
	}
}

// SeenAndRecord implements Deduper.
func (idx *Index) SeenAndRecord(_ context.Context, id Identity, row int) *Conflict {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, k := range idx.keys(id) {
		if o, ok := idx.seen[k]; ok {
			return &Conflict{
				Source:   o.source,
				Key:      k[:strings.IndexByte(k, 0)],
				PlayerID: o.playerID,
				Row:      o.row,
			}
		}
	}
	idx.recordLocked(id, owner{source: FromUpload, playerID: id.PlayerID, row: row})
	return nil
}

// Unrecord implements Deduper.
func (idx *Index) Unrecord(_ context.Context, id Identity) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := false
	for _, k := range idx.keys(id) {
		if _, ok := idx.seen[k]; ok {
			delete(idx.seen, k)
			removed = true
		}
	}
	if removed {
		idx.size.Add(-1)
	}
}

// Size returns the number of recorded identities.
func (idx *Index) Size() int64 {
	return idx.size.Load()
}
