package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	authmw "github.com/campusforge/registrar/internal/auth/middleware"
)

var validRoles = map[string]bool{"student": true, "lecturer": true, "hod": true, "admin": true}

type userRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"` // plaintext on input only, hashed before storage
}

// POST /users/bulk  — JSON array of users, inserted or updated by id.
func BulkUpsertUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []userRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array", http.StatusBadRequest)
			return
		}
		if len(rows) == 0 {
			writeJSON(w, map[string]any{"inserted": 0, "updated": 0})
			return
		}
		ins, upd := 0, 0
		now := time.Now().Unix()
		for _, u := range rows {
			u.ID = strings.TrimSpace(u.ID)
			u.Username = strings.TrimSpace(u.Username)
			if u.ID == "" || u.Username == "" || !validRoles[u.Role] {
				http.Error(w, "each user needs id, username and a valid role", http.StatusBadRequest)
				return
			}
			hash := ""
			if u.Password != "" {
				h, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
				if err != nil {
					http.Error(w, "hash password", http.StatusInternalServerError)
					return
				}
				hash = string(h)
			}
			var exists int
			err := db.QueryRowContext(r.Context(), `SELECT 1 FROM users WHERE id=$1`, u.ID).Scan(&exists)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := db.ExecContext(r.Context(),
					`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
					u.ID, u.Username, hash, u.Role, now); err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				ins++
			case err != nil:
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			default:
				q := `UPDATE users SET username=$1, role=$2 WHERE id=$3`
				args := []any{u.Username, u.Role, u.ID}
				if hash != "" {
					q = `UPDATE users SET username=$1, role=$2, password_hash=$3 WHERE id=$4`
					args = []any{u.Username, u.Role, hash, u.ID}
				}
				if _, err := db.ExecContext(r.Context(), q, args...); err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				upd++
			}
		}
		writeJSON(w, map[string]any{"inserted": ins, "updated": upd})
	}
}

// GET /users?role=
func ListUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		var rows *sql.Rows
		var err error
		if role == "" {
			rows, err = db.QueryContext(r.Context(), `SELECT id, username, role FROM users ORDER BY username`)
		} else {
			rows, err = db.QueryContext(r.Context(), `SELECT id, username, role FROM users WHERE role=$1 ORDER BY username`, role)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer rows.Close()
		out := []userRow{}
		for rows.Next() {
			var u userRow
			if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			out = append(out, u)
		}
		writeJSON(w, out)
	}
}

// POST /users/change-password  { "old_password": "...", "new_password": "..." }
func ChangePasswordHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.NewPassword) < 8 {
			http.Error(w, "new_password of at least 8 chars required", http.StatusBadRequest)
			return
		}
		var hash string
		if err := db.QueryRowContext(r.Context(), `SELECT password_hash FROM users WHERE id=$1`, sub).Scan(&hash); err != nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.OldPassword)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		nh, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		if _, err := db.ExecContext(r.Context(), `UPDATE users SET password_hash=$1 WHERE id=$2`, string(nh), sub); err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}
