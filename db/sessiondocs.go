package db

import (
	"context"
	"fmt"
	"time"

	"tablematch/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionDocs is the Mongo-backed document store for session state. The
// in-memory sessions.Store stays authoritative; these writes are durability
// pass-through.
type SessionDocs struct{}

func (SessionDocs) PutSession(ctx context.Context, s *models.Session) error {
	_, err := SessionsCollection.ReplaceOne(ctx,
		bson.M{"sessionId": s.ID}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put session %s: %w", s.ID, err)
	}
	return nil
}

func (SessionDocs) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := SessionsCollection.DeleteOne(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (SessionDocs) LoadSessions(ctx context.Context) ([]models.Session, error) {
	cursor, err := SessionsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	defer cursor.Close(ctx)
	var out []models.Session
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return out, nil
}

func (SessionDocs) PutMembership(ctx context.Context, participantID, sessionID string) error {
	_, err := MembershipsCollection.ReplaceOne(ctx,
		bson.M{"participantId": participantID},
		bson.M{"participantId": participantID, "sessionId": sessionID, "updatedAt": time.Now()},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put membership %s: %w", participantID, err)
	}
	return nil
}

func (SessionDocs) DeleteMembership(ctx context.Context, participantID string) error {
	_, err := MembershipsCollection.DeleteOne(ctx, bson.M{"participantId": participantID})
	if err != nil {
		return fmt.Errorf("delete membership %s: %w", participantID, err)
	}
	return nil
}

func (SessionDocs) PutRoomCode(ctx context.Context, code, sessionID string, expiresAt time.Time) error {
	_, err := RoomCodesCollection.ReplaceOne(ctx,
		bson.M{"code": code},
		models.RoomCodeDoc{Code: code, SessionID: sessionID, ExpiresAt: expiresAt},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put room code %s: %w", code, err)
	}
	return nil
}

func (SessionDocs) DeleteRoomCode(ctx context.Context, code string) error {
	_, err := RoomCodesCollection.DeleteOne(ctx, bson.M{"code": code})
	if err != nil {
		return fmt.Errorf("delete room code %s: %w", code, err)
	}
	return nil
}

func (SessionDocs) LoadRoomCodes(ctx context.Context) ([]models.RoomCodeDoc, error) {
	cursor, err := RoomCodesCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("load room codes: %w", err)
	}
	defer cursor.Close(ctx)
	var out []models.RoomCodeDoc
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode room codes: %w", err)
	}
	return out, nil
}
