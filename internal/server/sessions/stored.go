package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/store"
)

// SessionTable is the entity table holding persisted sessions.
type SessionTable = store.Store[models.UserSession, *models.UserSession]

// Stored keeps sessions as UserSession entities so they survive restarts.
// Creation times are kept at second precision.
type Stored struct {
	table *SessionTable
}

func NewStored(table *SessionTable) *Stored {
	return &Stored{table: table}
}

func (s *Stored) Put(ctx context.Context, id string, rec Record) error {
	us := &models.UserSession{UserID: rec.UserID, SessionID: id}
	us.SetCreated(rec.CreatedAt)
	_, err := s.table.Add(ctx, us)
	return err
}

// storedPrecision matches the persisted timestamp layout.
const storedPrecision = time.Second

func record(us *models.UserSession) Record {
	return Record{UserID: us.UserID, CreatedAt: us.Created(), Precision: storedPrecision}
}

func (s *Stored) Get(id string) (Record, bool) {
	found := s.table.Search(models.SessionByID(id))
	if len(found) == 0 {
		return Record{}, false
	}
	return record(&found[0]), true
}

func (s *Stored) Delete(ctx context.Context, id string) error {
	_, err := s.table.RemoveWhere(ctx, models.SessionByID(id))
	return err
}

func (s *Stored) DeleteWhere(ctx context.Context, match func(Record) bool) (int, error) {
	return s.table.RemoveWhere(ctx, func(us *models.UserSession) bool {
		return match(record(us))
	})
}

func (s *Stored) Count() int { return s.table.Count() }
