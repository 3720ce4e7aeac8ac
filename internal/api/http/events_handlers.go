package http

import (
	"net/http"
	"strconv"

	syncx "github.com/coursekit/coursekit-lms/internal/sync"
)

// EventsHandler is the poll feed for the notification/credential
// collaborator: transition facts strictly after the given offset.
func EventsHandler(repo *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var after int64
		if v, err := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64); err == nil && v > 0 {
			after = v
		}
		limit := 0
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
			limit = v
		}
		events, err := repo.List(r.Context(), after, limit)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
	}
}
