package utils

import (
	"encoding/json"
	rndm "math/rand"
	"net/http"

	"tablematch/globals"

	"github.com/google/uuid"
)

func GetUUID() string {
	return uuid.New().String()
}

// Room codes use the unambiguous A-Z0-9 alphabet.
var codeRunes = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

// GenerateRoomCode creates a random share code of length n.
func GenerateRoomCode(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = codeRunes[rndm.Intn(len(codeRunes))]
	}
	return string(b)
}

// --- HTTP Response Helpers ---

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

type M map[string]interface{}

// GetUserIDFromRequest pulls the authenticated participant ID that the auth
// middleware stashed in the request context.
func GetUserIDFromRequest(r *http.Request) string {
	id, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok {
		return ""
	}
	return id
}
