// Package store implements the in-memory entity tables behind users and
// sessions. Each Store holds one kind of entity, keyed by id, and writes the
// whole table through a Persister after every mutation.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/google/uuid"
	"github.com/thejerf/abtime"
)

// maxIDAttempts bounds regeneration when a generated id is already taken.
const maxIDAttempts = 8

// Record is implemented by pointers to storable entities.
type Record interface {
	GetID() string
	SetID(id string)
	Created() time.Time
	SetCreated(t time.Time)
	Stamp(now time.Time)
}

// Persister serializes whole tables. Records are keyed by id and already
// JSON encoded. Load of a table that was never saved returns an empty map.
type Persister interface {
	Save(ctx context.Context, kind string, records map[string]json.RawMessage) error
	Load(ctx context.Context, kind string) (map[string]json.RawMessage, error)
}

// Predicate selects entities in Search. A nil Predicate matches everything.
type Predicate[E any] func(*E) bool

// And matches when every non-nil predicate matches.
func And[E any](preds ...Predicate[E]) Predicate[E] {
	return func(e *E) bool {
		for _, p := range preds {
			if p != nil && !p(e) {
				return false
			}
		}
		return true
	}
}

// Store is a table of entities of type E. P is *E and carries the Record
// methods. All readers receive copies; the table is never exposed.
type Store[E any, P interface {
	*E
	Record
}] struct {
	mu        sync.RWMutex
	kind      string
	rows      map[string]E
	order     []string
	persister Persister
	clock     abtime.AbstractTime
	newID     func() string
	log       logging.Logger
}

type options struct {
	clock abtime.AbstractTime
	newID func() string
	log   logging.Logger
}

// Option configures a Store.
type Option func(*options)

// WithClock sets the clock used for entity timestamps.
func WithClock(c abtime.AbstractTime) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator replaces uuid v4 ids.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// New creates an empty table named kind. A nil persister keeps the table in
// memory only.
func New[E any, P interface {
	*E
	Record
}](kind string, persister Persister, opts ...Option) *Store[E, P] {
	o := options{
		clock: abtime.NewRealTime(),
		newID: uuid.NewString,
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if persister == nil {
		persister = memoryOnly{}
	}
	return &Store[E, P]{
		kind:      kind,
		rows:      make(map[string]E),
		persister: persister,
		clock:     o.clock,
		newID:     o.newID,
		log:       o.log.With("table", kind),
	}
}

// Kind is the table name.
func (s *Store[E, P]) Kind() string { return s.kind }

// Add inserts rec, assigning an id when it has none, and returns the id.
// rec is updated in place with the id and timestamps. A caller-supplied id
// that already exists fails with common.ErrorDuplicateKey.
func (s *Store[E, P]) Add(ctx context.Context, rec P) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(ctx, rec)
}

func (s *Store[E, P]) insertLocked(ctx context.Context, rec P) (string, error) {
	orig := *rec

	id := rec.GetID()
	if id != "" {
		if _, taken := s.rows[id]; taken {
			return "", fmt.Errorf("%s %s: %w", s.kind, id, common.ErrorDuplicateKey)
		}
	} else {
		var err error
		if id, err = s.freshIDLocked(); err != nil {
			return "", err
		}
		rec.SetID(id)
	}
	rec.Stamp(s.clock.Now())

	s.rows[id] = *rec
	s.order = append(s.order, id)

	if err := s.flushLocked(ctx); err != nil {
		delete(s.rows, id)
		s.order = s.order[:len(s.order)-1]
		*rec = orig
		return "", err
	}
	return id, nil
}

func (s *Store[E, P]) freshIDLocked() (string, error) {
	for range maxIDAttempts {
		id := s.newID()
		if _, taken := s.rows[id]; !taken && id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%s: generate id: %w", s.kind, common.ErrorDuplicateKey)
}

// Save is an upsert. A record without an id is added; an existing record
// is replaced but keeps its creation time.
func (s *Store[E, P]) Save(ctx context.Context, rec P) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := rec.GetID()
	prev, exists := s.rows[id]
	if id == "" || !exists {
		_, err := s.insertLocked(ctx, rec)
		return err
	}
	return s.replaceLocked(ctx, rec, prev)
}

func (s *Store[E, P]) replaceLocked(ctx context.Context, rec P, prev E) error {
	orig := *rec
	rec.SetCreated(P(&prev).Created())
	rec.Stamp(s.clock.Now())

	id := rec.GetID()
	s.rows[id] = *rec
	if err := s.flushLocked(ctx); err != nil {
		s.rows[id] = prev
		*rec = orig
		return err
	}
	return nil
}

// Update applies fn to a copy of the record with the given id and saves the
// result, all under the table lock. An error from fn aborts the update.
func (s *Store[E, P]) Update(ctx context.Context, id string, fn func(P) error) (E, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero E
	prev, ok := s.rows[id]
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", s.kind, id, common.ErrorNotFound)
	}
	next := prev
	rec := P(&next)
	if err := fn(rec); err != nil {
		return zero, err
	}
	rec.SetID(id)
	if err := s.replaceLocked(ctx, rec, prev); err != nil {
		return zero, err
	}
	return next, nil
}

// Get returns a copy of the record with the given id.
func (s *Store[E, P]) Get(id string) (E, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.rows[id]
	if !ok {
		var zero E
		return zero, fmt.Errorf("%s %s: %w", s.kind, id, common.ErrorNotFound)
	}
	return e, nil
}

// Search returns copies of the matching records in table order. The result
// is a snapshot and is never nil.
func (s *Store[E, P]) Search(match Predicate[E]) []E {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]E, 0, len(s.order))
	for _, id := range s.order {
		e := s.rows[id]
		if match == nil || match(&e) {
			out = append(out, e)
		}
	}
	return out
}

// All returns every record in table order.
func (s *Store[E, P]) All() []E {
	return s.Search(nil)
}

// Count is the number of records.
func (s *Store[E, P]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Remove deletes the record with the given id.
func (s *Store[E, P]) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("%s %s: %w", s.kind, id, common.ErrorNotFound)
	}
	idx := slices.Index(s.order, id)

	delete(s.rows, id)
	s.order = slices.Delete(s.order, idx, idx+1)

	if err := s.flushLocked(ctx); err != nil {
		s.rows[id] = prev
		s.order = slices.Insert(s.order, idx, id)
		return err
	}
	return nil
}

// RemoveWhere deletes every record matching match with a single write and
// returns how many were removed.
func (s *Store[E, P]) RemoveWhere(ctx context.Context, match Predicate[E]) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevRows := make(map[string]E, len(s.rows))
	prevOrder := slices.Clone(s.order)
	kept := s.order[:0:0]
	for _, id := range s.order {
		e := s.rows[id]
		prevRows[id] = e
		if match == nil || match(&e) {
			delete(s.rows, id)
			continue
		}
		kept = append(kept, id)
	}
	removed := len(prevOrder) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	s.order = kept

	if err := s.flushLocked(ctx); err != nil {
		s.rows, s.order = prevRows, prevOrder
		return 0, err
	}
	return removed, nil
}

// SaveAll writes the whole table through the persister.
func (s *Store[E, P]) SaveAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// LoadAll replaces the in-memory table with the persisted one. Records are
// ordered by creation time, then id. On error the table is left unchanged.
func (s *Store[E, P]) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.persister.Load(ctx, s.kind)
	if err != nil {
		return fmt.Errorf("%w: load %s: %w", common.ErrorStorage, s.kind, err)
	}

	rows := make(map[string]E, len(raw))
	order := make([]string, 0, len(raw))
	for id, payload := range raw {
		var e E
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("%w: load %s %s: %w", common.ErrorStorage, s.kind, id, common.ErrorMalformed)
		}
		P(&e).SetID(id)
		rows[id] = e
		order = append(order, id)
	}
	slices.SortFunc(order, func(a, b string) int {
		ea, eb := rows[a], rows[b]
		if c := P(&ea).Created().Compare(P(&eb).Created()); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	s.rows, s.order = rows, order
	s.log.Debug(ctx, "table loaded", "count", len(rows))
	return nil
}

func (s *Store[E, P]) flushLocked(ctx context.Context) error {
	records := make(map[string]json.RawMessage, len(s.rows))
	for id, e := range s.rows {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("%w: encode %s %s: %w", common.ErrorStorage, s.kind, id, err)
		}
		records[id] = b
	}
	if err := s.persister.Save(ctx, s.kind, records); err != nil {
		s.log.Error(ctx, "table persist failed", "error", err)
		return fmt.Errorf("%w: save %s: %w", common.ErrorStorage, s.kind, err)
	}
	return nil
}

type memoryOnly struct{}

func (memoryOnly) Save(context.Context, string, map[string]json.RawMessage) error { return nil }

func (memoryOnly) Load(context.Context, string) (map[string]json.RawMessage, error) {
	return map[string]json.RawMessage{}, nil
}
