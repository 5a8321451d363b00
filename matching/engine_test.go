package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"tablematch/models"
	"tablematch/placesearch"
	"tablematch/sessions"
)

// fakeStore serves one session snapshot and records write-backs.
type fakeStore struct {
	session *models.Session
	version uint64

	storedVenues []models.Venue
	storeCalls   int
	rejectStore  bool
}

func (f *fakeStore) Snapshot(sessionID string) (*models.Session, uint64, error) {
	if f.session == nil || f.session.ID != sessionID {
		return nil, 0, fmt.Errorf("%w: %s", sessions.ErrNotFound, sessionID)
	}
	return f.session, f.version, nil
}

func (f *fakeStore) StoreResults(_ context.Context, sessionID string, version uint64, venues []models.Venue, now time.Time, ttl time.Duration) (*models.Session, bool, error) {
	f.storeCalls++
	if f.rejectStore || version != f.version {
		return f.session, false, nil
	}
	f.storedVenues = venues
	f.session.Results = &models.CachedResult{Venues: venues, CachedAt: now, ExpiresAt: now.Add(ttl)}
	return f.session, true, nil
}

// fakeSearcher returns a canned venue list and records the query.
type fakeSearcher struct {
	venues  []models.Venue
	err     error
	queries []placesearch.Query
}

func (f *fakeSearcher) Search(_ context.Context, q placesearch.Query) ([]models.Venue, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.venues, nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func twoParticipantSession() *models.Session {
	return &models.Session{
		ID:     "ABC123",
		Status: models.SessionActive,
		Participants: map[string]*models.Participant{
			"A": {
				ID:          "A",
				Preferences: models.PreferenceSet{Cuisines: []string{"Italian", "Mexican"}, Price: models.PriceModerate, OpenNow: true},
				Location:    &models.Location{Lat: 32.90, Lng: -97.04},
				JoinedAt:    testNow.Add(-2 * time.Minute),
			},
			"B": {
				ID:          "B",
				Preferences: models.PreferenceSet{Cuisines: []string{"Thai", "Italian"}, Price: models.PriceUpscale, OpenNow: false},
				Location:    &models.Location{Lat: 32.80, Lng: -97.10},
				JoinedAt:    testNow.Add(-1 * time.Minute),
			},
		},
	}
}

func newTestEngine(store SessionStore, searcher placesearch.Searcher) *Engine {
	e := NewEngine(store, searcher)
	e.now = func() time.Time { return testNow }
	return e
}

func TestFindMatchesUnknownSession(t *testing.T) {
	e := newTestEngine(&fakeStore{}, &fakeSearcher{})
	if _, err := e.FindMatches(context.Background(), "nope", false); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindMatchesEmptySession(t *testing.T) {
	store := &fakeStore{session: &models.Session{ID: "S1", Participants: map[string]*models.Participant{}}}
	e := newTestEngine(store, &fakeSearcher{})
	if _, err := e.FindMatches(context.Background(), "S1", false); !errors.Is(err, ErrEmptySession) {
		t.Errorf("err = %v, want ErrEmptySession", err)
	}
}

func TestFindMatchesNoLocationData(t *testing.T) {
	sess := twoParticipantSession()
	for _, p := range sess.Participants {
		p.Location = nil
	}
	e := newTestEngine(&fakeStore{session: sess}, &fakeSearcher{})
	if _, err := e.FindMatches(context.Background(), "ABC123", false); !errors.Is(err, ErrNoLocationData) {
		t.Errorf("err = %v, want ErrNoLocationData", err)
	}
}

func TestFindMatchesUsesValidCache(t *testing.T) {
	sess := twoParticipantSession()
	sess.Results = &models.CachedResult{
		Venues:    []models.Venue{{Name: "Cached Trattoria"}},
		CachedAt:  testNow.Add(-10 * time.Minute),
		ExpiresAt: testNow.Add(20 * time.Minute),
	}
	searcher := &fakeSearcher{}
	e := newTestEngine(&fakeStore{session: sess}, searcher)

	got, err := e.FindMatches(context.Background(), "ABC123", false)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Cached {
		t.Error("Cached = false, want true")
	}
	if len(got.Venues) != 1 || got.Venues[0].Name != "Cached Trattoria" {
		t.Errorf("venues = %+v", got.Venues)
	}
	if len(searcher.queries) != 0 {
		t.Error("valid cache still hit the search provider")
	}
}

func TestFindMatchesForceRefreshBypassesCache(t *testing.T) {
	sess := twoParticipantSession()
	sess.Results = &models.CachedResult{
		Venues:    []models.Venue{{Name: "Cached Trattoria"}},
		ExpiresAt: testNow.Add(20 * time.Minute),
	}
	searcher := &fakeSearcher{venues: []models.Venue{
		{ExternalID: "v1", Name: "Fresh Osteria", Location: models.GeoPoint{Lat: 32.85, Lng: -97.07}, Cuisines: []string{"italian"}},
	}}
	store := &fakeStore{session: sess}
	e := newTestEngine(store, searcher)

	got, err := e.FindMatches(context.Background(), "ABC123", true)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cached {
		t.Error("forceRefresh still served the cache")
	}
	if len(searcher.queries) != 1 {
		t.Fatalf("search called %d times, want 1", len(searcher.queries))
	}
	if store.storeCalls != 1 {
		t.Errorf("StoreResults called %d times, want 1", store.storeCalls)
	}
}

func TestFindMatchesQueryDerivation(t *testing.T) {
	searcher := &fakeSearcher{}
	e := newTestEngine(&fakeStore{session: twoParticipantSession()}, searcher)

	if _, err := e.FindMatches(context.Background(), "ABC123", true); err != nil {
		t.Fatal(err)
	}
	q := searcher.queries[0]
	// "italian" is the only priority cuisine for A+B.
	if q.Term != "italian" {
		t.Errorf("Term = %q, want italian", q.Term)
	}
	// centroid of the two origins
	if math.Abs(q.Location.Lat-32.85) > 1e-9 || math.Abs(q.Location.Lng-(-97.07)) > 1e-9 {
		t.Errorf("Location = %+v, want centroid (32.85, -97.07)", q.Location)
	}
	// 50% open-now is not a majority
	if q.OpenNow {
		t.Error("OpenNow = true, want false at exactly 50%")
	}
	// $$ vs $$$ tie breaks to A's first-seen $$, level 2
	if q.PriceLevel != 2 {
		t.Errorf("PriceLevel = %d, want 2", q.PriceLevel)
	}
	if q.RadiusM != SearchRadiusM {
		t.Errorf("RadiusM = %d, want %d", q.RadiusM, SearchRadiusM)
	}
}

func TestFindMatchesRankingOrder(t *testing.T) {
	near := models.GeoPoint{Lat: 32.85, Lng: -97.07} // the centroid: fair to both
	skewed := models.GeoPoint{Lat: 32.90, Lng: -97.04} // on A's doorstep

	searcher := &fakeSearcher{venues: []models.Venue{
		{ExternalID: "v1", Name: "Zed Sushi", Rating: 4.9, Location: near, Cuisines: []string{"sushi"}},
		{ExternalID: "v2", Name: "Casa Italiana", Rating: 4.0, Location: skewed, Cuisines: []string{"italian"}},
		{ExternalID: "v3", Name: "Middle Italian", Rating: 4.0, Location: near, Cuisines: []string{"italian"}},
		{ExternalID: "v4", Name: "Another Middle Italian", Rating: 4.0, Location: near, Cuisines: []string{"italian"}},
	}}
	e := newTestEngine(&fakeStore{session: twoParticipantSession()}, searcher)

	got, err := e.FindMatches(context.Background(), "ABC123", true)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, v := range got.Venues {
		names = append(names, v.Name)
	}
	// Italian places satisfy both participants and outrank the better-rated
	// sushi spot. Among them the centroid venues are fairer than the one at
	// A's doorstep, and the remaining tie falls to name order.
	want := []string{"Another Middle Italian", "Middle Italian", "Casa Italiana", "Zed Sushi"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("order = %v, want %v", names, want)
	}

	top := got.Venues[0]
	if top.SatisfiedCount != 2 {
		t.Errorf("SatisfiedCount = %d, want 2", top.SatisfiedCount)
	}
	if !reflect.DeepEqual(top.MatchedCuisines, []string{"italian"}) {
		t.Errorf("MatchedCuisines = %v, want [italian]", top.MatchedCuisines)
	}
	last := got.Venues[len(got.Venues)-1]
	if last.SatisfiedCount != 0 {
		t.Errorf("sushi SatisfiedCount = %d, want 0", last.SatisfiedCount)
	}
}

func TestFindMatchesDeterministic(t *testing.T) {
	venues := []models.Venue{
		{ExternalID: "v1", Name: "B Place", Rating: 4.0, Location: models.GeoPoint{Lat: 32.85, Lng: -97.07}, Cuisines: []string{"italian"}},
		{ExternalID: "v2", Name: "A Place", Rating: 4.0, Location: models.GeoPoint{Lat: 32.85, Lng: -97.07}, Cuisines: []string{"italian"}},
	}
	e := newTestEngine(&fakeStore{session: twoParticipantSession()}, &fakeSearcher{venues: venues})

	first, err := e.FindMatches(context.Background(), "ABC123", true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.FindMatches(context.Background(), "ABC123", true)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two forced recomputes differ:\n%+v\n%+v", first, second)
	}
}

func TestFindMatchesSearchUnavailable(t *testing.T) {
	sess := twoParticipantSession()
	sess.Results = &models.CachedResult{
		Venues:    []models.Venue{{Name: "Previous"}},
		ExpiresAt: testNow.Add(5 * time.Minute),
	}
	store := &fakeStore{session: sess}
	e := newTestEngine(store, &fakeSearcher{err: placesearch.ErrSearchUnavailable})

	if _, err := e.FindMatches(context.Background(), "ABC123", true); !errors.Is(err, placesearch.ErrSearchUnavailable) {
		t.Fatalf("err = %v, want ErrSearchUnavailable", err)
	}
	// The failure must not poison the existing cache.
	if store.storeCalls != 0 {
		t.Error("a failed search wrote through the cache")
	}
	if sess.Results == nil || sess.Results.Venues[0].Name != "Previous" {
		t.Error("previous cache entry lost after provider failure")
	}
}

func TestFairness(t *testing.T) {
	a := &models.Participant{ID: "A", Location: &models.Location{Lat: 32.90, Lng: -97.04}}
	b := &models.Participant{ID: "B", Location: &models.Location{Lat: 32.80, Lng: -97.10}}

	// Venue exactly at A's location: A travels 0, B travels everything.
	atA := models.Venue{Location: models.GeoPoint{Lat: 32.90, Lng: -97.04}}
	// max = d, avg = d/2 -> fairness = 0.5
	if got := fairness(atA, []*models.Participant{a, b}); got < 0.499 || got > 0.501 {
		t.Errorf("fairness at A's doorstep = %v, want 0.5", got)
	}

	// Single participant, venue on top of them: max == 0 defines fairness 1.
	if got := fairness(atA, []*models.Participant{a}); got != 1 {
		t.Errorf("fairness with zero max distance = %v, want 1", got)
	}
}

func TestSatisfactionEmptyCuisinesAcceptsAnything(t *testing.T) {
	open := &models.Participant{ID: "open"}
	picky := &models.Participant{ID: "picky", Preferences: models.PreferenceSet{Cuisines: []string{"ramen"}}}
	v := models.Venue{Name: "Burger Barn", Cuisines: []string{"burgers"}}

	matched, count := satisfaction(v, []*models.Participant{open, picky})
	if count != 1 {
		t.Errorf("count = %d, want 1 (only the no-preference participant)", count)
	}
	if len(matched) != 0 {
		t.Errorf("matched = %v, want none", matched)
	}
}
