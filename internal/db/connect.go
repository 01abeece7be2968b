package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:registrar.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/registrar?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT UNIQUE NOT NULL,
  password_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,              -- student|lecturer|hod|admin
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  code TEXT UNIQUE NOT NULL,
  title TEXT NOT NULL,
  credit_units INTEGER NOT NULL DEFAULT 3,
  created_by TEXT,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS course_students (
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL REFERENCES users(id),
  status TEXT NOT NULL DEFAULT 'active',
  PRIMARY KEY (course_id, student_id)
);

CREATE TABLE IF NOT EXISTS course_assignments (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id),
  lecturer_id TEXT NOT NULL REFERENCES users(id),
  assigned_by TEXT NOT NULL,
  academic_year TEXT NOT NULL,
  semester TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',   -- active|completed|cancelled
  expected_students INTEGER NOT NULL DEFAULT 0,
  actual_students INTEGER NOT NULL DEFAULT 0,
  contact_hours INTEGER NOT NULL DEFAULT 0,
  credit_units INTEGER NOT NULL DEFAULT 3,
  results_submitted INTEGER NOT NULL DEFAULT 0,
  results_submission_date INTEGER,
  results_approved INTEGER NOT NULL DEFAULT 0,
  results_approved_by TEXT,
  results_approval_date INTEGER,
  created_at INTEGER NOT NULL,
  UNIQUE (course_id, academic_year, semester)
);

CREATE TABLE IF NOT EXISTS results (
  id TEXT PRIMARY KEY,
  assignment_id TEXT NOT NULL REFERENCES course_assignments(id),
  student_id TEXT NOT NULL REFERENCES users(id),
  course_id TEXT NOT NULL REFERENCES courses(id),
  academic_year TEXT NOT NULL,
  semester TEXT NOT NULL,
  assessments_json TEXT NOT NULL DEFAULT '[]',
  percentage REAL NOT NULL DEFAULT 0,
  letter_grade TEXT NOT NULL DEFAULT '',
  grade_points REAL NOT NULL DEFAULT 0,
  credits INTEGER NOT NULL DEFAULT 0,
  total_classes INTEGER NOT NULL DEFAULT 0,
  attended_classes INTEGER NOT NULL DEFAULT 0,
  attendance_pct REAL NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'draft',    -- draft|under_review|finalized|published
  remarks TEXT,
  submitted_by TEXT NOT NULL,
  submission_date INTEGER,
  evaluated_by TEXT,
  evaluation_date INTEGER,
  published_by TEXT,
  published_date INTEGER,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  UNIQUE (student_id, course_id, academic_year, semester)
);

CREATE TABLE IF NOT EXISTS event_log (
  offset_id INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  typ TEXT NOT NULL,                           -- e.g., ResultsSubmitted
  key TEXT NOT NULL,                           -- natural key: assignment ID
  data TEXT NOT NULL,                          -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT UNIQUE NOT NULL,
  password_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  code TEXT UNIQUE NOT NULL,
  title TEXT NOT NULL,
  credit_units INTEGER NOT NULL DEFAULT 3,
  created_by TEXT,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS course_students (
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL REFERENCES users(id),
  status TEXT NOT NULL DEFAULT 'active',
  PRIMARY KEY (course_id, student_id)
);

CREATE TABLE IF NOT EXISTS course_assignments (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id),
  lecturer_id TEXT NOT NULL REFERENCES users(id),
  assigned_by TEXT NOT NULL,
  academic_year TEXT NOT NULL,
  semester TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  expected_students INTEGER NOT NULL DEFAULT 0,
  actual_students INTEGER NOT NULL DEFAULT 0,
  contact_hours INTEGER NOT NULL DEFAULT 0,
  credit_units INTEGER NOT NULL DEFAULT 3,
  results_submitted SMALLINT NOT NULL DEFAULT 0,
  results_submission_date BIGINT,
  results_approved SMALLINT NOT NULL DEFAULT 0,
  results_approved_by TEXT,
  results_approval_date BIGINT,
  created_at BIGINT NOT NULL,
  UNIQUE (course_id, academic_year, semester)
);

CREATE TABLE IF NOT EXISTS results (
  id TEXT PRIMARY KEY,
  assignment_id TEXT NOT NULL REFERENCES course_assignments(id),
  student_id TEXT NOT NULL REFERENCES users(id),
  course_id TEXT NOT NULL REFERENCES courses(id),
  academic_year TEXT NOT NULL,
  semester TEXT NOT NULL,
  assessments_json TEXT NOT NULL DEFAULT '[]',
  percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
  letter_grade TEXT NOT NULL DEFAULT '',
  grade_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  credits INTEGER NOT NULL DEFAULT 0,
  total_classes INTEGER NOT NULL DEFAULT 0,
  attended_classes INTEGER NOT NULL DEFAULT 0,
  attendance_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'draft',
  remarks TEXT,
  submitted_by TEXT NOT NULL,
  submission_date BIGINT,
  evaluated_by TEXT,
  evaluation_date BIGINT,
  published_by TEXT,
  published_date BIGINT,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (student_id, course_id, academic_year, semester)
);

CREATE TABLE IF NOT EXISTS event_log (
  offset_id BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
