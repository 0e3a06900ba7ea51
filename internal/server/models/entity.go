// Package models defines the entities persisted by the entity store.
package models

import (
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/timex"
)

// Table names. Each entity kind is persisted as its own table.
const (
	KindUser        = "User"
	KindUserSession = "UserSession"
)

// Entity is embedded by every persisted record.
type Entity struct {
	ID        string          `json:"id"`
	CreatedAt timex.Timestamp `json:"created_at"`
	UpdatedAt timex.Timestamp `json:"updated_at"`
}

func (e *Entity) GetID() string { return e.ID }

func (e *Entity) SetID(id string) { e.ID = id }

func (e *Entity) Created() time.Time { return e.CreatedAt.Time }

func (e *Entity) SetCreated(t time.Time) { e.CreatedAt = timex.NewTimestamp(t) }

// Stamp records a mutation at now: CreatedAt is set once, UpdatedAt every
// time and never earlier than CreatedAt.
func (e *Entity) Stamp(now time.Time) {
	ts := timex.NewTimestamp(now)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = ts
	}
	if ts.Before(e.CreatedAt.Time) {
		ts = e.CreatedAt
	}
	e.UpdatedAt = ts
}
