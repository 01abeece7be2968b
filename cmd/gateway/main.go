package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/campusforge/registrar/internal/api/http"
	"github.com/campusforge/registrar/internal/audit"
	auth "github.com/campusforge/registrar/internal/auth/middleware"
	"github.com/campusforge/registrar/internal/config"
	"github.com/campusforge/registrar/internal/db"
	"github.com/campusforge/registrar/internal/gpa"
	"github.com/campusforge/registrar/internal/rbac"
	"github.com/campusforge/registrar/internal/result"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if err := seedAdmin(ctx, dbh, cfg); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	store := result.NewSQLStore(dbh, cfg.DBDriver)
	events := audit.NewEventRepo(dbh)
	ctrl := result.NewController(store, result.WithEventSink(events))
	agg := gpa.New(store)
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT -> subject+role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// identity administration
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))

		// catalogue + cohort
		pr.With(rbac.Require("course:create")).
			Post("/courses", api.CreateCourseHandler(dbh))
		pr.With(rbac.Require("course:enroll")).
			Post("/courses/{courseID}/students", api.EnrollStudentsHandler(dbh))

		// course assignments
		pr.With(rbac.Require("assignment:create")).
			Post("/assignments", api.CreateAssignmentHandler(store, dbh))
		pr.With(rbac.Require("assignment:view")).
			Get("/assignments", api.ListAssignmentsHandler(store))
		pr.With(rbac.Require("assignment:view")).
			Get("/assignments/{assignmentID}", api.GetAssignmentHandler(store))
		pr.With(rbac.Require("audit:view")).
			Get("/assignments/{assignmentID}/events", api.AssignmentEventsHandler(events))

		// result workflow: draft -> under_review -> finalized -> published
		pr.With(rbac.Require("result:roster")).
			Get("/results/course/{assignmentID}", api.RosterHandler(store))
		pr.With(rbac.Require("result:edit")).
			Put("/results/course/{assignmentID}/student/{studentID}", api.UpsertResultHandler(ctrl))
		pr.With(rbac.Require("result:submit")).
			Post("/results/course/{assignmentID}/submit", api.SubmitResultsHandler(ctrl))
		pr.With(rbac.Require("result:approve")).
			Post("/results/course/{assignmentID}/approve", api.ApproveResultsHandler(ctrl))
		pr.With(rbac.Require("result:publish")).
			Post("/results/course/{assignmentID}/publish", api.PublishResultsHandler(ctrl))

		// student read side
		pr.With(rbac.Require("result:view-own")).
			Get("/results/student", api.StudentResultsHandler(agg))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

// seedAdmin creates the bootstrap admin when the users table is empty and a
// password hash was provided.
func seedAdmin(ctx context.Context, dbh *sql.DB, cfg config.Config) error {
	if cfg.AdminPassHash == "" {
		return nil
	}
	var n int
	if err := dbh.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := dbh.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,'admin',$4)`,
		cfg.AdminUser, cfg.AdminUser, cfg.AdminPassHash, time.Now().Unix())
	return err
}
