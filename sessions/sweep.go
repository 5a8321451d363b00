package sessions

import (
	"context"
	"log"
	"time"
)

// DefaultSweepInterval is how often the expiration sweep runs.
const DefaultSweepInterval = 5 * time.Minute

// SweepExpired deletes every session whose lifetime has elapsed, clearing
// the members' current-session pointers. Safe to run concurrently with
// joins: a join racing the sweep either recreates the session fresh or the
// sweep never sees it expired, but a record is never half-deleted.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) int {
	type candidate struct {
		id  string
		rec *record
	}

	s.mu.Lock()
	var candidates []candidate
	for id, rec := range s.sessions {
		// ExpiresAt is written once at record creation, so reading it under
		// the map lock alone is safe.
		if !now.Before(rec.session.ExpiresAt) {
			candidates = append(candidates, candidate{id: id, rec: rec})
		}
	}
	var staleCodes []string
	for code, entry := range s.byRoomCode {
		if !now.Before(entry.expiresAt) {
			staleCodes = append(staleCodes, code)
			delete(s.byRoomCode, code)
			if s.codeBySession[entry.sessionID] == code {
				delete(s.codeBySession, entry.sessionID)
			}
		}
	}
	s.mu.Unlock()

	removed := 0
	for _, c := range candidates {
		c.rec.mu.Lock()
		if c.rec.deleted {
			c.rec.mu.Unlock()
			continue
		}
		c.rec.deleted = true
		members := make([]string, 0, len(c.rec.session.Participants))
		for id := range c.rec.session.Participants {
			members = append(members, id)
		}
		c.rec.mu.Unlock()

		s.mu.Lock()
		if s.sessions[c.id] == c.rec {
			delete(s.sessions, c.id)
		}
		for _, m := range members {
			if s.byParticipant[m] == c.id {
				delete(s.byParticipant, m)
			}
		}
		s.mu.Unlock()

		if err := s.docs.DeleteSession(ctx, c.id); err != nil {
			log.Printf("sweep: delete session doc %s: %v", c.id, err)
		}
		for _, m := range members {
			if err := s.docs.DeleteMembership(ctx, m); err != nil {
				log.Printf("sweep: delete membership %s: %v", m, err)
			}
		}
		removed++
	}
	for _, code := range staleCodes {
		if err := s.docs.DeleteRoomCode(ctx, code); err != nil {
			log.Printf("sweep: delete room code %s: %v", code, err)
		}
	}
	if removed > 0 {
		log.Printf("sweep: removed %d expired session(s)", removed)
	}
	return removed
}

// StartSweeper runs the expiration sweep on a fixed interval until the
// context is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired(ctx, s.now())
		}
	}
}
