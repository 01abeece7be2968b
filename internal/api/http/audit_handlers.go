package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campusforge/registrar/internal/audit"
)

// GET /assignments/{assignmentID}/events?limit=
// Who moved this assignment's results, and when. Latest first.
func AssignmentEventsHandler(events *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		out, err := events.Recent(r.Context(), chi.URLParam(r, "assignmentID"), limit)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}
