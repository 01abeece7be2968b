package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusforge/registrar/internal/result"
)

// Handlers only — routes remain in main.go

// POST /courses
func CreateCourseHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code        string `json:"code"`
			Title       string `json:"title"`
			CreditUnits int    `json:"credit_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
			strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Title) == "" {
			http.Error(w, "code and title required", http.StatusBadRequest)
			return
		}
		if req.CreditUnits <= 0 {
			req.CreditUnits = 3
		}
		id := uuid.NewString()
		_, err := db.ExecContext(r.Context(),
			`INSERT INTO courses (id, code, title, credit_units, created_by, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			id, strings.ToUpper(strings.TrimSpace(req.Code)), req.Title, req.CreditUnits,
			callerFrom(r).Sub, time.Now().Unix())
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
				writeError(w, result.E(result.KindConflict, "course code %s already exists", req.Code))
				return
			}
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"id": id, "code": req.Code, "title": req.Title, "credit_units": req.CreditUnits})
	}
}

// POST /courses/{courseID}/students  { "student_ids": ["..."] }
// Enrollment feeds the lecturer roster; inactive rows drop off the view.
func EnrollStudentsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		var req struct {
			StudentIDs []string `json:"student_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.StudentIDs) == 0 {
			http.Error(w, "student_ids required", http.StatusBadRequest)
			return
		}
		var exists int
		err := db.QueryRowContext(r.Context(), `SELECT 1 FROM courses WHERE id=$1`, courseID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, result.E(result.KindNotFound, "course %s not found", courseID))
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		enrolled := 0
		for _, sid := range req.StudentIDs {
			var role string
			err := db.QueryRowContext(r.Context(), `SELECT role FROM users WHERE id=$1`, sid).Scan(&role)
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, result.E(result.KindNotFound, "student %s not found", sid))
				return
			}
			if err != nil {
				http.Error(w, "db error", http.StatusInternalServerError)
				return
			}
			if role != "student" {
				writeError(w, result.E(result.KindValidation, "user %s is not a student", sid))
				return
			}
			if _, err := db.ExecContext(r.Context(),
				`INSERT INTO course_students (course_id, student_id, status) VALUES ($1,$2,'active')
				 ON CONFLICT (course_id, student_id) DO UPDATE SET status='active'`,
				courseID, sid); err != nil {
				http.Error(w, "db error", http.StatusInternalServerError)
				return
			}
			enrolled++
		}
		writeJSON(w, map[string]any{"enrolled": enrolled})
	}
}
