package sessions

import (
	"context"
	"fmt"
	"log"
	"time"

	"sync"

	"tablematch/geo"
	"tablematch/matchcache"
	"tablematch/models"
	"tablematch/utils"
)

const (
	// DefaultSessionTTL is the absolute session lifetime from creation.
	DefaultSessionTTL = 24 * time.Hour

	roomCodeLength = 6
)

// Store owns every mutable session. Each session is an independently
// lockable unit: operations on different sessions never block each other,
// operations on the same session serialize on the record mutex. The global
// mutex only guards the lookup maps and is never held across a record lock
// acquisition together with I/O.
type Store struct {
	docs DocStore
	ttl  time.Duration
	now  func() time.Time

	mu            sync.Mutex
	sessions      map[string]*record
	byParticipant map[string]string
	byRoomCode    map[string]roomCodeEntry
	codeBySession map[string]string
}

type roomCodeEntry struct {
	sessionID string
	expiresAt time.Time
}

// record pairs a session with its result cache and its lock. Mutators must
// re-check deleted after acquiring mu: the sweep may have removed the record
// from the map while they were waiting.
type record struct {
	mu      sync.Mutex
	deleted bool
	version uint64
	session *models.Session
	cache   matchcache.Cache
}

func NewStore(docs DocStore) *Store {
	if docs == nil {
		docs = NopDocStore{}
	}
	return &Store{
		docs:          docs,
		ttl:           DefaultSessionTTL,
		now:           time.Now,
		sessions:      make(map[string]*record),
		byParticipant: make(map[string]string),
		byRoomCode:    make(map[string]roomCodeEntry),
		codeBySession: make(map[string]string),
	}
}

// WarmStart rebuilds in-memory state from the document store after a
// restart. Expired documents are skipped; the next sweep erases them.
func (s *Store) WarmStart(ctx context.Context) error {
	codes, err := s.docs.LoadRoomCodes(ctx)
	if err != nil {
		return fmt.Errorf("load room codes: %w", err)
	}
	loaded, err := s.docs.LoadSessions(ctx)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rc := range codes {
		if !now.Before(rc.ExpiresAt) {
			continue
		}
		s.byRoomCode[rc.Code] = roomCodeEntry{sessionID: rc.SessionID, expiresAt: rc.ExpiresAt}
		s.codeBySession[rc.SessionID] = rc.Code
	}
	restored := 0
	for i := range loaded {
		sess := loaded[i]
		if !now.Before(sess.ExpiresAt) || len(sess.Participants) == 0 {
			continue
		}
		if sess.RoomCode == "" {
			sess.RoomCode = s.codeBySession[sess.ID]
		}
		rec := &record{session: &sess}
		if sess.Results != nil {
			rec.cache.Restore(sess.Results)
			sess.Results = nil
		}
		s.sessions[sess.ID] = rec
		for id := range sess.Participants {
			s.byParticipant[id] = sess.ID
		}
		restored++
	}
	if restored > 0 {
		log.Printf("warm start: restored %d session(s)", restored)
	}
	return nil
}

func (s *Store) expired(sess *models.Session, now time.Time) bool {
	return !now.Before(sess.ExpiresAt)
}

// snapshotLocked deep-copies a session so readers never share memory with
// the record. Caller holds rec.mu.
func snapshotLocked(rec *record) *models.Session {
	src := rec.session
	out := *src
	out.Participants = make(map[string]*models.Participant, len(src.Participants))
	for id, p := range src.Participants {
		cp := *p
		if p.Location != nil {
			loc := *p.Location
			cp.Location = &loc
		}
		cp.Preferences.Cuisines = append([]string(nil), p.Preferences.Cuisines...)
		out.Participants[id] = &cp
	}
	if entry := rec.cache.Entry(); entry != nil {
		res := *entry
		res.Venues = append([]models.Venue(nil), entry.Venues...)
		out.Results = &res
	} else {
		out.Results = nil
	}
	return &out
}

// Create reserves a fresh session ID and a unique room code. The session
// record itself materializes on first join.
func (s *Store) Create(ctx context.Context) (sessionID, code string, err error) {
	sessionID = utils.GetUUID()
	now := s.now()

	expiresAt := now.Add(s.ttl)
	s.mu.Lock()
	for i := 0; ; i++ {
		code = utils.GenerateRoomCode(roomCodeLength)
		entry, taken := s.byRoomCode[code]
		if !taken {
			break
		}
		if !now.Before(entry.expiresAt) {
			// Reusing an expired code: drop the dead reservation's reverse
			// mapping so it never resolves to this code again.
			if s.codeBySession[entry.sessionID] == code {
				delete(s.codeBySession, entry.sessionID)
			}
			break
		}
		if i > 50 {
			s.mu.Unlock()
			return "", "", fmt.Errorf("generate room code: %w", ErrCodeTaken)
		}
	}
	s.byRoomCode[code] = roomCodeEntry{sessionID: sessionID, expiresAt: expiresAt}
	s.codeBySession[sessionID] = code
	s.mu.Unlock()

	if err := s.docs.PutRoomCode(ctx, code, sessionID, expiresAt); err != nil {
		log.Printf("persist room code %s: %v", code, err)
	}
	return sessionID, code, nil
}

// ResolveRoomCode maps a join code back to its session ID.
func (s *Store) ResolveRoomCode(code string) (string, error) {
	s.mu.Lock()
	entry, ok := s.byRoomCode[code]
	s.mu.Unlock()
	if !ok || !s.now().Before(entry.expiresAt) {
		return "", ErrNotFound
	}
	return entry.sessionID, nil
}

// Join puts a participant into a session, creating the session when the ID
// is unknown and atomically removing the participant from any prior session
// first. Re-joining the same session replaces the participant's record, it
// never duplicates it. Returns the post-join snapshot.
func (s *Store) Join(ctx context.Context, sessionID string, p models.Participant) (*models.Session, error) {
	if sessionID == "" || p.ID == "" {
		return nil, fmt.Errorf("%w: session and participant IDs are required", ErrInvalidInput)
	}
	if p.Location != nil {
		if err := geo.ValidatePoint(p.Location.Point()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if p.Preferences.Price == "" {
		p.Preferences.Price = models.PriceAny
	}
	if !p.Preferences.Price.Valid() {
		return nil, fmt.Errorf("%w: unknown price tier %q", ErrInvalidInput, p.Preferences.Price)
	}

	for {
		now := s.now()

		s.mu.Lock()
		rec := s.sessions[sessionID]
		if rec == nil {
			rec = &record{session: &models.Session{
				ID:           sessionID,
				RoomCode:     s.codeBySession[sessionID],
				Participants: make(map[string]*models.Participant),
				Status:       models.SessionActive,
				CreatedAt:    now,
				LastActivity: now,
				ExpiresAt:    now.Add(s.ttl),
			}}
			s.sessions[sessionID] = rec
		}
		prevID := s.byParticipant[p.ID]
		var prevRec *record
		if prevID != "" && prevID != sessionID {
			prevRec = s.sessions[prevID]
		}
		s.byParticipant[p.ID] = sessionID
		s.mu.Unlock()

		// Remove from the prior session before touching the target, so the
		// one-active-session invariant holds at every observable point.
		if prevRec != nil {
			s.removeLocked(ctx, prevID, prevRec, p.ID)
		}

		rec.mu.Lock()
		if rec.deleted {
			rec.mu.Unlock()
			continue // swept out from under us; recreate
		}
		if s.expired(rec.session, now) {
			// Stale record under a reused ID: drop it and recreate fresh.
			rec.deleted = true
			rec.mu.Unlock()
			s.dropRecord(ctx, sessionID, rec)
			continue
		}
		p.LastActive = now
		p.JoinedAt = now
		if prev, ok := rec.session.Participants[p.ID]; ok {
			p.JoinedAt = prev.JoinedAt // re-join keeps the original slot
		}
		cp := p
		rec.session.Participants[p.ID] = &cp
		rec.session.LastActivity = now
		rec.cache.Invalidate()
		rec.version++
		snap := snapshotLocked(rec)
		rec.mu.Unlock()

		// The index write above and the insert here are two lock regions. A
		// racing Join or Leave for the same participant can re-point the
		// index in between, with its prior-session removal finding nothing
		// to take out yet. The index entry is authoritative: confirm we
		// still own it, and back our insert out when we lost the race.
		s.mu.Lock()
		owned := s.byParticipant[p.ID] == sessionID
		s.mu.Unlock()
		if !owned {
			s.undoInsert(ctx, sessionID, rec, p.ID, &cp)
			return snap, nil
		}

		s.persist(ctx, snap)
		if err := s.docs.PutMembership(ctx, p.ID, sessionID); err != nil {
			log.Printf("persist membership %s -> %s: %v", p.ID, sessionID, err)
		}
		return snap, nil
	}
}

// undoInsert removes exactly the participant pointer a lost join put in. A
// newer join may have replaced the entry already; that join owns it now and
// the entry must stay.
func (s *Store) undoInsert(ctx context.Context, sessionID string, rec *record, participantID string, inserted *models.Participant) {
	rec.mu.Lock()
	if rec.deleted || rec.session.Participants[participantID] != inserted {
		rec.mu.Unlock()
		return
	}
	delete(rec.session.Participants, participantID)
	rec.cache.Invalidate()
	rec.version++
	rec.session.LastActivity = s.now()
	empty := len(rec.session.Participants) == 0
	var snap *models.Session
	if empty {
		rec.deleted = true
	} else {
		snap = snapshotLocked(rec)
	}
	rec.mu.Unlock()

	if empty {
		s.dropRecord(ctx, sessionID, rec)
		return
	}
	s.persist(ctx, snap)
}

// removeLocked takes the record lock, removes one participant, invalidates
// the cache, and deletes the session entirely when it empties out.
func (s *Store) removeLocked(ctx context.Context, sessionID string, rec *record, participantID string) {
	rec.mu.Lock()
	if rec.deleted {
		rec.mu.Unlock()
		return
	}
	if _, ok := rec.session.Participants[participantID]; !ok {
		rec.mu.Unlock()
		return
	}
	delete(rec.session.Participants, participantID)
	rec.cache.Invalidate()
	rec.version++
	rec.session.LastActivity = s.now()
	empty := len(rec.session.Participants) == 0
	var snap *models.Session
	if empty {
		rec.deleted = true
	} else {
		snap = snapshotLocked(rec)
	}
	rec.mu.Unlock()

	if empty {
		s.dropRecord(ctx, sessionID, rec)
		return
	}
	s.persist(ctx, snap)
}

// dropRecord unmaps an already-marked-deleted record and erases its
// document. rec.deleted must be set before calling.
func (s *Store) dropRecord(ctx context.Context, sessionID string, rec *record) {
	s.mu.Lock()
	if s.sessions[sessionID] == rec {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if err := s.docs.DeleteSession(ctx, sessionID); err != nil {
		log.Printf("delete session doc %s: %v", sessionID, err)
	}
}

// Leave removes a participant from whatever session they are in. Leaving
// when not in a session is a successful no-op.
func (s *Store) Leave(ctx context.Context, participantID string) error {
	if participantID == "" {
		return fmt.Errorf("%w: participant ID is required", ErrInvalidInput)
	}

	s.mu.Lock()
	sessionID := s.byParticipant[participantID]
	if sessionID == "" {
		s.mu.Unlock()
		return nil
	}
	rec := s.sessions[sessionID]
	delete(s.byParticipant, participantID)
	s.mu.Unlock()

	if rec != nil {
		s.removeLocked(ctx, sessionID, rec, participantID)
	}
	if err := s.docs.DeleteMembership(ctx, participantID); err != nil {
		log.Printf("delete membership %s: %v", participantID, err)
	}
	return nil
}

// UpdatePreferences replaces a participant's preference set in place.
func (s *Store) UpdatePreferences(ctx context.Context, participantID string, set models.PreferenceSet) (*models.Session, error) {
	if set.Price == "" {
		set.Price = models.PriceAny
	}
	if !set.Price.Valid() {
		return nil, fmt.Errorf("%w: unknown price tier %q", ErrInvalidInput, set.Price)
	}
	return s.mutateParticipant(ctx, participantID, func(p *models.Participant) {
		p.Preferences = set
	})
}

// UpdateLocation replaces a participant's origin location in place.
func (s *Store) UpdateLocation(ctx context.Context, participantID string, loc models.Location) (*models.Session, error) {
	if err := geo.ValidatePoint(loc.Point()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.mutateParticipant(ctx, participantID, func(p *models.Participant) {
		l := loc
		p.Location = &l
	})
}

func (s *Store) mutateParticipant(ctx context.Context, participantID string, apply func(*models.Participant)) (*models.Session, error) {
	if participantID == "" {
		return nil, fmt.Errorf("%w: participant ID is required", ErrInvalidInput)
	}

	s.mu.Lock()
	sessionID := s.byParticipant[participantID]
	rec := s.sessions[sessionID]
	s.mu.Unlock()
	if sessionID == "" || rec == nil {
		return nil, fmt.Errorf("%w: participant %s is not in a session", ErrNotFound, participantID)
	}

	now := s.now()
	rec.mu.Lock()
	if rec.deleted || s.expired(rec.session, now) {
		rec.mu.Unlock()
		return nil, fmt.Errorf("%w: participant %s is not in a session", ErrNotFound, participantID)
	}
	p, ok := rec.session.Participants[participantID]
	if !ok {
		rec.mu.Unlock()
		return nil, fmt.Errorf("%w: participant %s is not in a session", ErrNotFound, participantID)
	}
	apply(p)
	p.LastActive = now
	rec.session.LastActivity = now
	rec.cache.Invalidate()
	rec.version++
	snap := snapshotLocked(rec)
	rec.mu.Unlock()

	s.persist(ctx, snap)
	return snap, nil
}

// Get returns a snapshot of an active session, ErrNotFound when the ID is
// unknown or the session has expired.
func (s *Store) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	snap, _, err := s.Snapshot(sessionID)
	return snap, err
}

// Snapshot is Get plus the session's mutation version, so a recompute can
// detect that state moved underneath it before writing results back.
func (s *Store) Snapshot(sessionID string) (*models.Session, uint64, error) {
	if sessionID == "" {
		return nil, 0, fmt.Errorf("%w: session ID is required", ErrInvalidInput)
	}
	s.mu.Lock()
	rec := s.sessions[sessionID]
	s.mu.Unlock()
	if rec == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted || s.expired(rec.session, s.now()) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return snapshotLocked(rec), rec.version, nil
}

// StoreResults writes a freshly ranked result set through the session's
// cache, but only when the session has not mutated since the snapshot the
// ranking was computed from. Reports whether the write took effect.
func (s *Store) StoreResults(ctx context.Context, sessionID string, version uint64, venues []models.Venue, now time.Time, ttl time.Duration) (*models.Session, bool, error) {
	s.mu.Lock()
	rec := s.sessions[sessionID]
	s.mu.Unlock()
	if rec == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	rec.mu.Lock()
	if rec.deleted || s.expired(rec.session, now) {
		rec.mu.Unlock()
		return nil, false, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if rec.version != version {
		snap := snapshotLocked(rec)
		rec.mu.Unlock()
		return snap, false, nil
	}
	rec.cache.Store(venues, now, ttl)
	rec.session.LastActivity = now
	snap := snapshotLocked(rec)
	rec.mu.Unlock()

	s.persist(ctx, snap)
	return snap, true, nil
}

// CurrentSession reports which session a participant is in, "" when none.
func (s *Store) CurrentSession(participantID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byParticipant[participantID]
}

// persist writes a session snapshot through to the document store. The
// in-memory state is authoritative, so failures are logged, not propagated.
func (s *Store) persist(ctx context.Context, snap *models.Session) {
	if err := s.docs.PutSession(ctx, snap); err != nil {
		log.Printf("persist session %s: %v", snap.ID, err)
	}
}
