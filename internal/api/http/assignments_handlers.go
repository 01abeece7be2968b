package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campusforge/registrar/internal/result"
)

// POST /assignments
// Binds a lecturer to a course for one academic period. The assigning
// authority is the caller, not a request field.
func CreateAssignmentHandler(store result.Store, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CourseID         string `json:"course_id"`
			LecturerID       string `json:"lecturer_id"`
			AcademicYear     string `json:"academic_year"`
			Semester         string `json:"semester"`
			ExpectedStudents int    `json:"expected_students"`
			ContactHours     int    `json:"contact_hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.CourseID == "" || req.LecturerID == "" || req.AcademicYear == "" || req.Semester == "" {
			http.Error(w, "course_id, lecturer_id, academic_year and semester required", http.StatusBadRequest)
			return
		}

		var creditUnits int
		err := db.QueryRowContext(r.Context(), `SELECT credit_units FROM courses WHERE id=$1`, req.CourseID).Scan(&creditUnits)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, result.E(result.KindNotFound, "course %s not found", req.CourseID))
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		var lecturerRole string
		err = db.QueryRowContext(r.Context(), `SELECT role FROM users WHERE id=$1`, req.LecturerID).Scan(&lecturerRole)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, result.E(result.KindNotFound, "lecturer %s not found", req.LecturerID))
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		if lecturerRole != "lecturer" && lecturerRole != "hod" {
			writeError(w, result.E(result.KindValidation, "user %s is not teaching staff", req.LecturerID))
			return
		}

		a, err := store.CreateAssignment(r.Context(), result.CourseAssignment{
			CourseID:         req.CourseID,
			LecturerID:       req.LecturerID,
			AssignedBy:       callerFrom(r).Sub,
			AcademicYear:     req.AcademicYear,
			Semester:         req.Semester,
			ExpectedStudents: req.ExpectedStudents,
			ContactHours:     req.ContactHours,
			CreditUnits:      creditUnits,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, a)
	}
}

// GET /assignments/{assignmentID}
func GetAssignmentHandler(store result.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetAssignment(r.Context(), chi.URLParam(r, "assignmentID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, a)
	}
}

// GET /assignments?lecturer_id=&academic_year=&semester=&status=
// Lecturers are pinned to their own assignments regardless of the filter.
func ListAssignmentsHandler(store result.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := result.AssignmentListOpts{
			LecturerID:   strings.TrimSpace(q.Get("lecturer_id")),
			CourseID:     strings.TrimSpace(q.Get("course_id")),
			AcademicYear: strings.TrimSpace(q.Get("academic_year")),
			Semester:     strings.TrimSpace(q.Get("semester")),
			Status:       strings.TrimSpace(q.Get("status")),
		}
		if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
			opts.Limit = v
		}
		if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
			opts.Offset = v
		}
		caller := callerFrom(r)
		if caller.Role == "lecturer" {
			opts.LecturerID = caller.Sub
		}
		out, err := store.ListAssignments(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, out)
	}
}
