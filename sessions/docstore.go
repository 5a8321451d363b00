package sessions

import (
	"context"
	"time"

	"tablematch/models"
)

// DocStore is the durable backing for session state. The in-memory store is
// the source of truth; writes here are pass-through durability and the Load
// methods feed WarmStart after a restart.
type DocStore interface {
	PutSession(ctx context.Context, s *models.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
	LoadSessions(ctx context.Context) ([]models.Session, error)

	// Membership maps a participant ID to its current session ID.
	PutMembership(ctx context.Context, participantID, sessionID string) error
	DeleteMembership(ctx context.Context, participantID string) error

	// Room codes map a short join code to a session ID until the code
	// expires.
	PutRoomCode(ctx context.Context, code, sessionID string, expiresAt time.Time) error
	DeleteRoomCode(ctx context.Context, code string) error
	LoadRoomCodes(ctx context.Context) ([]models.RoomCodeDoc, error)
}

// NopDocStore discards everything. Used in tests and when running without
// Mongo.
type NopDocStore struct{}

func (NopDocStore) PutSession(context.Context, *models.Session) error   { return nil }
func (NopDocStore) DeleteSession(context.Context, string) error         { return nil }
func (NopDocStore) PutMembership(context.Context, string, string) error { return nil }
func (NopDocStore) DeleteMembership(context.Context, string) error      { return nil }
func (NopDocStore) DeleteRoomCode(context.Context, string) error        { return nil }

func (NopDocStore) PutRoomCode(context.Context, string, string, time.Time) error { return nil }

func (NopDocStore) LoadSessions(context.Context) ([]models.Session, error) { return nil, nil }

func (NopDocStore) LoadRoomCodes(context.Context) ([]models.RoomCodeDoc, error) { return nil, nil }
