package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"tablematch/models"
	"tablematch/utils"

	"github.com/julienschmidt/httprouter"
)

func GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := Get(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}

func UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var upd Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if upd.Defaults != nil && !upd.Defaults.Price.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid price tier")
		return
	}
	p, err := Apply(r.Context(), userID, upd)
	if errors.Is(err, ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}

func AddFavoriteVenue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var fav models.FavoriteVenue
	if err := json.NewDecoder(r.Body).Decode(&fav); err != nil || fav.PlaceID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := AddFavorite(r.Context(), userID, fav)
	if errors.Is(err, ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to save favorite")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}
