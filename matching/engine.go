package matching

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"tablematch/geo"
	"tablematch/matchcache"
	"tablematch/models"
	"tablematch/placesearch"
	"tablematch/prefs"
)

const (
	// SearchRadiusM sits inside the 2-7 km band the product wants.
	SearchRadiusM = 4000

	// SearchTimeout bounds the provider call; on expiry the request fails
	// as search-unavailable and any previous cache stays servable.
	SearchTimeout = 8 * time.Second
)

// SessionStore is the slice of the session store the engine needs: a
// consistent snapshot to compute from, and a guarded write-back.
type SessionStore interface {
	Snapshot(sessionID string) (*models.Session, uint64, error)
	StoreResults(ctx context.Context, sessionID string, version uint64, venues []models.Venue, now time.Time, ttl time.Duration) (*models.Session, bool, error)
}

// Engine turns one session's participant snapshot into a ranked venue list,
// reading and writing through the session's result cache. All provider I/O
// happens outside the session lock, on a snapshot.
type Engine struct {
	store    SessionStore
	searcher placesearch.Searcher

	radiusM       int
	cacheTTL      time.Duration
	searchTimeout time.Duration
	now           func() time.Time
}

func NewEngine(store SessionStore, searcher placesearch.Searcher) *Engine {
	return &Engine{
		store:         store,
		searcher:      searcher,
		radiusM:       SearchRadiusM,
		cacheTTL:      matchcache.DefaultTTL,
		searchTimeout: SearchTimeout,
		now:           time.Now,
	}
}

// FindMatches returns the session's ranked venues, recomputing when the
// cache is stale or forceRefresh is set.
func (e *Engine) FindMatches(ctx context.Context, sessionID string, forceRefresh bool) (*models.MatchResult, error) {
	snap, version, err := e.store.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	if len(snap.Participants) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySession, sessionID)
	}

	now := e.now()
	if !forceRefresh && snap.Results != nil && now.Before(snap.Results.ExpiresAt) {
		return &models.MatchResult{
			SessionID: sessionID,
			Venues:    snap.Results.Venues,
			Cached:    true,
			CachedAt:  snap.Results.CachedAt,
			ExpiresAt: snap.Results.ExpiresAt,
		}, nil
	}

	participants := participantsInJoinOrder(snap)
	analysis, err := prefs.Analyze(participants)
	if err != nil {
		return nil, err
	}

	var located []*models.Participant
	var points []models.GeoPoint
	for _, p := range participants {
		if p.Location != nil {
			located = append(located, p)
			points = append(points, p.Location.Point())
		}
	}
	if len(located) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLocationData, sessionID)
	}
	center, err := geo.Centroid(points)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, e.searchTimeout)
	defer cancel()
	candidates, err := e.searcher.Search(searchCtx, placesearch.Query{
		Location:   center,
		Term:       prefs.QueryTerm(analysis),
		RadiusM:    e.radiusM,
		OpenNow:    analysis.FilterOpenNow,
		PriceLevel: analysis.DominantPrice.Level(),
	})
	if err != nil {
		return nil, err
	}

	ranked := rank(candidates, participants, located)

	stored, err := e.storeRanked(ctx, sessionID, version, ranked, now)
	if err != nil {
		return nil, err
	}
	if !stored {
		log.Printf("matching: session %s mutated during recompute, results returned uncached", sessionID)
	}
	return &models.MatchResult{
		SessionID: sessionID,
		Venues:    ranked,
		Cached:    false,
		CachedAt:  now,
		ExpiresAt: now.Add(e.cacheTTL),
	}, nil
}

func (e *Engine) storeRanked(ctx context.Context, sessionID string, version uint64, ranked []models.Venue, now time.Time) (bool, error) {
	_, stored, err := e.store.StoreResults(ctx, sessionID, version, ranked, now, e.cacheTTL)
	if err != nil {
		return false, err
	}
	return stored, nil
}

// participantsInJoinOrder flattens the snapshot map into the order the
// participants first joined, which is what keeps tally tie-breaks and
// therefore the ranking deterministic.
func participantsInJoinOrder(snap *models.Session) []*models.Participant {
	out := make([]*models.Participant, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// rank scores each candidate against the group and sorts by
// (satisfiedCount, fairness, rating) descending, venue name ascending as the
// final tie break.
func rank(candidates []models.Venue, participants, located []*models.Participant) []models.Venue {
	ranked := make([]models.Venue, 0, len(candidates))
	for _, v := range candidates {
		if err := geo.ValidatePoint(v.Location); err != nil {
			continue // provider sent garbage coordinates
		}
		v.FairnessScore = fairness(v, located)
		v.MatchedCuisines, v.SatisfiedCount = satisfaction(v, participants)
		ranked = append(ranked, v)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.SatisfiedCount != b.SatisfiedCount {
			return a.SatisfiedCount > b.SatisfiedCount
		}
		if a.FairnessScore != b.FairnessScore {
			return a.FairnessScore > b.FairnessScore
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.Name < b.Name
	})
	return ranked
}

// fairness is 1 - (max-avg)/max over the located participants' distances to
// the venue: 1 means everyone travels the same, lower means someone is
// carrying the trip.
func fairness(v models.Venue, located []*models.Participant) float64 {
	if len(located) == 0 {
		return 1
	}
	var max, sum float64
	for _, p := range located {
		d, err := geo.DistanceKm(p.Location.Point(), v.Location)
		if err != nil {
			continue
		}
		sum += d
		if d > max {
			max = d
		}
	}
	if max == 0 {
		return 1
	}
	avg := sum / float64(len(located))
	return 1 - (max-avg)/max
}

// satisfaction counts participants whose cuisine set intersects the venue's
// tags. A participant with no cuisines accepts anything and always counts.
func satisfaction(v models.Venue, participants []*models.Participant) ([]string, int) {
	matchedSet := make(map[string]bool)
	var matched []string
	count := 0
	for _, p := range participants {
		if len(p.Preferences.Cuisines) == 0 {
			count++
			continue
		}
		satisfied := false
		for _, raw := range p.Preferences.Cuisines {
			tag := prefs.Normalize(raw)
			if tag == "" || !venueServes(v, tag) {
				continue
			}
			satisfied = true
			if !matchedSet[tag] {
				matchedSet[tag] = true
				matched = append(matched, tag)
			}
		}
		if satisfied {
			count++
		}
	}
	return matched, count
}

func venueServes(v models.Venue, tag string) bool {
	for _, c := range v.Cuisines {
		if c == tag || strings.Contains(c, tag) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(v.Name), tag)
}
