package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/campusforge/registrar/internal/auth/middleware"
	"github.com/campusforge/registrar/internal/gpa"
	"github.com/campusforge/registrar/internal/rbac"
	"github.com/campusforge/registrar/internal/result"
)

func callerFrom(r *http.Request) result.Identity {
	return result.Identity{
		Sub:  authmw.SubjectFromContext(r.Context()),
		Role: rbac.RoleFromContext(r.Context()),
	}
}

// GET /results/course/{assignmentID}
// Lecturer view: enrolled students joined with their results, null result
// for students not yet graded.
func RosterHandler(store result.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := chi.URLParam(r, "assignmentID")
		a, err := store.GetAssignment(r.Context(), assignmentID)
		if err != nil {
			writeError(w, err)
			return
		}
		caller := callerFrom(r)
		if caller.Role == "lecturer" && caller.Sub != a.LecturerID {
			writeError(w, result.E(result.KindForbidden, "assignment %s belongs to another lecturer", assignmentID))
			return
		}
		roster, err := store.Roster(r.Context(), assignmentID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"assignment": a, "roster": roster})
	}
}

// PUT /results/course/{assignmentID}/student/{studentID}
func UpsertResultHandler(ctrl *result.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := chi.URLParam(r, "assignmentID")
		studentID := chi.URLParam(r, "studentID")
		var in result.UpsertInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		res, err := ctrl.UpsertAssessments(r.Context(), callerFrom(r), assignmentID, studentID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// POST /results/course/{assignmentID}/submit
func SubmitResultsHandler(ctrl *result.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := ctrl.SubmitAll(r.Context(), callerFrom(r), chi.URLParam(r, "assignmentID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"status": "submitted", "results": n})
	}
}

// POST /results/course/{assignmentID}/approve
func ApproveResultsHandler(ctrl *result.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := ctrl.Approve(r.Context(), callerFrom(r), chi.URLParam(r, "assignmentID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"status": "approved", "results": n})
	}
}

// POST /results/course/{assignmentID}/publish
func PublishResultsHandler(ctrl *result.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := ctrl.Publish(r.Context(), callerFrom(r), chi.URLParam(r, "assignmentID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"status": "published", "results": n})
	}
}

// GET /results/student?academic_year=&semester=
// Scoped to the caller's own identity: students only ever see their own
// published results plus the GPA for the requested period.
func StudentResultsHandler(agg *gpa.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerFrom(r)
		year := strings.TrimSpace(r.URL.Query().Get("academic_year"))
		semester := strings.TrimSpace(r.URL.Query().Get("semester"))

		var (
			rep gpa.Report
			err error
		)
		if year == "" && semester == "" {
			rep, err = agg.Overall(r.Context(), caller.Sub)
		} else {
			rep, err = agg.Semester(r.Context(), caller.Sub, year, semester)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, rep)
	}
}
