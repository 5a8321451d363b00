package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tablematch/matching"
	"tablematch/models"
	"tablematch/mq"
	"tablematch/placesearch"
	"tablematch/sessions"
	"tablematch/utils"
)

// Matcher is the slice of the matching engine the gateway needs.
type Matcher interface {
	FindMatches(ctx context.Context, sessionID string, forceRefresh bool) (*models.MatchResult, error)
}

// Gateway translates HTTP requests into store and engine calls. It holds no
// session state of its own; every session read goes through the store.
type Gateway struct {
	store   *sessions.Store
	matcher Matcher
	events  mq.Publisher

	// Defaults seeds a joining participant's preferences when the request
	// carries none. Nil means fall back to models.DefaultPreferences.
	Defaults func(ctx context.Context, userID string) (models.PreferenceSet, bool)
	// Stats records profile usage counters after a committed operation.
	Stats func(ctx context.Context, userID string, sessionsJoined, searches int)

	now func() time.Time
}

func New(store *sessions.Store, matcher Matcher, events mq.Publisher) *Gateway {
	return &Gateway{
		store:   store,
		matcher: matcher,
		events:  events,
		now:     time.Now,
	}
}

func (g *Gateway) publish(ctx context.Context, sessionID, topic, from string) {
	g.events.Publish(ctx, models.ChangeEvent{
		SessionID: sessionID,
		Topic:     topic,
		From:      from,
		At:        g.now(),
	})
}

// respondStoreError maps sentinel errors from the lower layers onto HTTP
// statuses. Anything unrecognized is a 500 with a generic message.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, sessions.ErrInvalidInput):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sessions.ErrCodeTaken):
		utils.RespondWithError(w, http.StatusConflict, "could not allocate a room code")
	case errors.Is(err, matching.ErrEmptySession):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "session has no participants")
	case errors.Is(err, matching.ErrNoLocationData):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "no participant has shared a location")
	case errors.Is(err, placesearch.ErrSearchUnavailable):
		utils.RespondWithError(w, http.StatusBadGateway, "restaurant search is unavailable, try again")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
