package gateway

import (
	"encoding/json"
	"net/http"

	"tablematch/models"
	"tablematch/utils"

	"github.com/julienschmidt/httprouter"
)

type joinRequest struct {
	Preferences *models.PreferenceSet `json:"preferences,omitempty"`
	Location    *models.Location      `json:"location,omitempty"`
}

// CreateSession allocates a session ID and a short room code friends can
// type in. The session itself materializes when the first participant joins.
func (g *Gateway) CreateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionID, code, err := g.store.Create(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"sessionId": sessionID,
		"roomCode":  code,
	})
}

// ResolveRoomCode turns a typed-in room code into the session ID to join.
func (g *Gateway) ResolveRoomCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionID, err := g.store.ResolveRoomCode(ps.ByName("code"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "unknown room code")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"sessionId": sessionID})
}

// Join adds the authenticated user to a session. Preferences default from
// the user's profile when the request body carries none; location is
// optional at join time.
func (g *Gateway) Join(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req joinRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	p := models.Participant{ID: userID, Location: req.Location}
	if req.Preferences != nil {
		p.Preferences = *req.Preferences
	} else if g.Defaults != nil {
		if set, ok := g.Defaults(r.Context(), userID); ok {
			p.Preferences = set
		}
	}
	if p.Preferences.Cuisines == nil {
		p.Preferences.Cuisines = []string{}
	}

	snap, err := g.store.Join(r.Context(), ps.ByName("sessionid"), p)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	g.publish(r.Context(), snap.ID, models.TopicMembershipChanged, userID)
	if g.Stats != nil {
		g.Stats(r.Context(), userID, 1, 0)
	}
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

// Leave removes the authenticated user from their active session. Leaving
// while not in any session is a successful no-op.
func (g *Gateway) Leave(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID := g.store.CurrentSession(userID)
	if err := g.store.Leave(r.Context(), userID); err != nil {
		respondStoreError(w, err)
		return
	}
	if sessionID != "" {
		g.publish(r.Context(), sessionID, models.TopicMembershipChanged, userID)
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}

// UpdatePreferences replaces the caller's preference set in their active
// session.
func (g *Gateway) UpdatePreferences(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var set models.PreferenceSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := g.store.UpdatePreferences(r.Context(), userID, set)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	g.publish(r.Context(), snap.ID, models.TopicPreferenceChanged, userID)
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

// UpdateLocation sets or moves the caller's location in their active session.
func (g *Gateway) UpdateLocation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var loc models.Location
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := g.store.UpdateLocation(r.Context(), userID, loc)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	g.publish(r.Context(), snap.ID, models.TopicLocationChanged, userID)
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

// GetSession returns the current state of a session.
func (g *Gateway) GetSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snap, err := g.store.Get(r.Context(), ps.ByName("sessionid"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

// CurrentSession tells the caller which session they are in, if any.
func (g *Gateway) CurrentSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sessionID := g.store.CurrentSession(userID)
	if sessionID == "" {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"sessionId": nil})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"sessionId": sessionID})
}

// FindMatches runs (or replays) the group restaurant match for a session.
// ?refresh=true forces a recompute even when cached results are still fresh.
func (g *Gateway) FindMatches(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	force := r.URL.Query().Get("refresh") == "true"
	res, err := g.matcher.FindMatches(r.Context(), ps.ByName("sessionid"), force)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if !res.Cached {
		g.publish(r.Context(), res.SessionID, models.TopicResultsChanged, userID)
		if g.Stats != nil {
			g.Stats(r.Context(), userID, 0, 1)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}
