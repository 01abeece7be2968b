package result

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLStore persists the engine in postgres or sqlite. Assessment lists live
// in a JSON TEXT column; the unique indexes on (student, course, year,
// semester) and (course, year, semester) are the only concurrency safeguard
// the engine relies on.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// isUniqueViolation detects a duplicate-key write on either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") // sqlite
}

func (s *SQLStore) CreateAssignment(ctx context.Context, a CourseAssignment) (CourseAssignment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AssignmentActive
	}
	a.CreatedAt = time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `INSERT INTO course_assignments
		(id, course_id, lecturer_id, assigned_by, academic_year, semester, status,
		 expected_students, actual_students, contact_hours, credit_units,
		 results_submitted, results_approved, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,0,0,$12)`,
		a.ID, a.CourseID, a.LecturerID, a.AssignedBy, a.AcademicYear, a.Semester, a.Status,
		a.ExpectedStudents, a.ActualStudents, a.ContactHours, a.CreditUnits, a.CreatedAt)
	if isUniqueViolation(err) {
		return CourseAssignment{}, E(KindConflict, "course %s already assigned for %s %s", a.CourseID, a.AcademicYear, a.Semester)
	}
	if err != nil {
		return CourseAssignment{}, err
	}
	return a, nil
}

const assignmentCols = `id, course_id, lecturer_id, assigned_by, academic_year, semester, status,
	expected_students, actual_students, contact_hours, credit_units,
	results_submitted, results_submission_date, results_approved, results_approved_by, results_approval_date, created_at`

func scanAssignment(row interface{ Scan(...any) error }) (CourseAssignment, error) {
	var a CourseAssignment
	var submitted, approved int
	var subDate, apprDate sql.NullInt64
	var apprBy sql.NullString
	err := row.Scan(&a.ID, &a.CourseID, &a.LecturerID, &a.AssignedBy, &a.AcademicYear, &a.Semester, &a.Status,
		&a.ExpectedStudents, &a.ActualStudents, &a.ContactHours, &a.CreditUnits,
		&submitted, &subDate, &approved, &apprBy, &apprDate, &a.CreatedAt)
	if err != nil {
		return CourseAssignment{}, err
	}
	a.ResultsSubmitted = submitted != 0
	a.ResultsApproved = approved != 0
	a.ResultsSubmissionDate = subDate.Int64
	a.ResultsApprovedBy = apprBy.String
	a.ResultsApprovalDate = apprDate.Int64
	return a, nil
}

func (s *SQLStore) GetAssignment(ctx context.Context, id string) (CourseAssignment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assignmentCols+` FROM course_assignments WHERE id=$1`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CourseAssignment{}, E(KindNotFound, "assignment %s not found", id)
	}
	return a, err
}

func (s *SQLStore) ListAssignments(ctx context.Context, opts AssignmentListOpts) ([]CourseAssignment, error) {
	q := `SELECT ` + assignmentCols + ` FROM course_assignments WHERE 1=1`
	args := []any{}
	add := func(cond, val string) {
		if val != "" {
			args = append(args, val)
			q += " AND " + cond + "=$" + itoa(len(args))
		}
	}
	add("lecturer_id", opts.LecturerID)
	add("course_id", opts.CourseID)
	add("academic_year", opts.AcademicYear)
	add("semester", opts.Semester)
	add("status", opts.Status)
	q += " ORDER BY created_at DESC"
	q += limitOffset(&args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CourseAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const resultCols = `id, assignment_id, student_id, course_id, academic_year, semester,
	assessments_json, percentage, letter_grade, grade_points, credits,
	total_classes, attended_classes, attendance_pct, status, remarks,
	submitted_by, submission_date, evaluated_by, evaluation_date,
	published_by, published_date, created_at, updated_at`

func scanResult(row interface{ Scan(...any) error }) (Result, error) {
	var r Result
	var ajson string
	var remarks, evalBy, pubBy sql.NullString
	var subDate, evalDate, pubDate sql.NullInt64
	err := row.Scan(&r.ID, &r.AssignmentID, &r.StudentID, &r.CourseID, &r.AcademicYear, &r.Semester,
		&ajson, &r.Percentage, &r.LetterGrade, &r.GradePoints, &r.Credits,
		&r.Attendance.TotalClasses, &r.Attendance.AttendedClasses, &r.Attendance.Percentage,
		&r.Status, &remarks, &r.SubmittedBy, &subDate, &evalBy, &evalDate,
		&pubBy, &pubDate, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Result{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &r.Assessments); err != nil {
		r.Assessments = nil
	}
	r.Remarks = remarks.String
	r.EvaluatedBy = evalBy.String
	r.PublishedBy = pubBy.String
	r.SubmissionDate = subDate.Int64
	r.EvaluationDate = evalDate.Int64
	r.PublishedDate = pubDate.Int64
	return r, nil
}

func (s *SQLStore) UpsertDraft(ctx context.Context, r Result) (Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	row := tx.QueryRowContext(ctx,
		`SELECT id, status, created_at FROM results
		  WHERE student_id=$1 AND course_id=$2 AND academic_year=$3 AND semester=$4`,
		r.StudentID, r.CourseID, r.AcademicYear, r.Semester)
	var existingID, status string
	var createdAt int64
	err = row.Scan(&existingID, &status, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.CreatedAt = now
		r.UpdatedAt = now
		ajson, err := json.Marshal(r.Assessments)
		if err != nil {
			return Result{}, err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO results
			(id, assignment_id, student_id, course_id, academic_year, semester,
			 assessments_json, percentage, letter_grade, grade_points, credits,
			 total_classes, attended_classes, attendance_pct, status, remarks,
			 submitted_by, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
			r.ID, r.AssignmentID, r.StudentID, r.CourseID, r.AcademicYear, r.Semester,
			string(ajson), r.Percentage, r.LetterGrade, r.GradePoints, r.Credits,
			r.Attendance.TotalClasses, r.Attendance.AttendedClasses, r.Attendance.Percentage,
			r.Status, r.Remarks, r.SubmittedBy, r.CreatedAt, r.UpdatedAt)
		if isUniqueViolation(err) {
			// lost a create race for the same key
			return Result{}, E(KindConflict, "result for student %s in course %s (%s %s) already exists",
				r.StudentID, r.CourseID, r.AcademicYear, r.Semester)
		}
		if err != nil {
			return Result{}, err
		}
	case err != nil:
		return Result{}, err
	default:
		if status != StatusDraft {
			return Result{}, E(KindState, "result for student %s is %s and can no longer be edited", r.StudentID, status)
		}
		r.ID = existingID
		r.CreatedAt = createdAt
		r.UpdatedAt = now
		ajson, err := json.Marshal(r.Assessments)
		if err != nil {
			return Result{}, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE results SET
			assessments_json=$1, percentage=$2, letter_grade=$3, grade_points=$4, credits=$5,
			total_classes=$6, attended_classes=$7, attendance_pct=$8, remarks=$9,
			submitted_by=$10, updated_at=$11
			WHERE id=$12 AND status=$13`,
			string(ajson), r.Percentage, r.LetterGrade, r.GradePoints, r.Credits,
			r.Attendance.TotalClasses, r.Attendance.AttendedClasses, r.Attendance.Percentage,
			r.Remarks, r.SubmittedBy, r.UpdatedAt, r.ID, StatusDraft); err != nil {
			return Result{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Result{}, err
	}
	return r, nil
}

func (s *SQLStore) GetResult(ctx context.Context, id string) (Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultCols+` FROM results WHERE id=$1`, id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, E(KindNotFound, "result %s not found", id)
	}
	return r, err
}

func (s *SQLStore) GetResultByKey(ctx context.Context, studentID, courseID, year, semester string) (Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultCols+` FROM results
		WHERE student_id=$1 AND course_id=$2 AND academic_year=$3 AND semester=$4`,
		studentID, courseID, year, semester)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, E(KindNotFound, "no result for student %s in course %s (%s %s)", studentID, courseID, year, semester)
	}
	return r, err
}

func (s *SQLStore) ListResults(ctx context.Context, opts ListOpts) ([]Result, error) {
	q := `SELECT ` + resultCols + ` FROM results WHERE 1=1`
	args := []any{}
	add := func(cond, val string) {
		if val != "" {
			args = append(args, val)
			q += " AND " + cond + "=$" + itoa(len(args))
		}
	}
	add("assignment_id", opts.AssignmentID)
	add("student_id", opts.StudentID)
	add("course_id", opts.CourseID)
	add("status", opts.Status)
	add("academic_year", opts.AcademicYear)
	add("semester", opts.Semester)
	q += " ORDER BY academic_year DESC, semester DESC, course_id"
	q += limitOffset(&args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Roster(ctx context.Context, assignmentID string) ([]RosterEntry, error) {
	a, err := s.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.student_id, COALESCE(u.username, ''), r.id
		  FROM course_students cs
		  LEFT JOIN users u ON u.id = cs.student_id
		  LEFT JOIN results r
		    ON r.student_id = cs.student_id AND r.course_id = cs.course_id
		   AND r.academic_year = $2 AND r.semester = $3
		 WHERE cs.course_id = $1 AND cs.status = 'active'
		 ORDER BY cs.student_id`,
		a.CourseID, a.AcademicYear, a.Semester)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RosterEntry{}
	graded := []int{}
	for rows.Next() {
		var e RosterEntry
		var rid sql.NullString
		if err := rows.Scan(&e.StudentID, &e.Name, &rid); err != nil {
			return nil, err
		}
		if rid.Valid {
			graded = append(graded, len(out))
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// second pass keeps the join narrow: fetch full records only for rows
	// that have one
	for _, i := range graded {
		r, err := s.GetResultByKey(ctx, out[i].StudentID, a.CourseID, a.AcademicYear, a.Semester)
		if err != nil {
			return nil, err
		}
		out[i].Result = &r
	}
	return out, nil
}

// loadBatch fetches the assignment and its results in the given status
// inside tx.
func loadBatch(ctx context.Context, tx *sql.Tx, assignmentID, status string) (CourseAssignment, []Result, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+assignmentCols+` FROM course_assignments WHERE id=$1`, assignmentID)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CourseAssignment{}, nil, E(KindNotFound, "assignment %s not found", assignmentID)
	}
	if err != nil {
		return CourseAssignment{}, nil, err
	}
	rows, err := tx.QueryContext(ctx, `SELECT `+resultCols+` FROM results WHERE assignment_id=$1 AND status=$2`,
		assignmentID, status)
	if err != nil {
		return CourseAssignment{}, nil, err
	}
	defer rows.Close()
	var batch []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return CourseAssignment{}, nil, err
		}
		batch = append(batch, r)
	}
	return a, batch, rows.Err()
}

func (s *SQLStore) SubmitAssignment(ctx context.Context, assignmentID string, at int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	a, drafts, err := loadBatch(ctx, tx, assignmentID, StatusDraft)
	if err != nil {
		return 0, err
	}
	if a.Status != AssignmentActive {
		return 0, E(KindState, "assignment %s is %s, cannot submit results", assignmentID, a.Status)
	}
	if a.ResultsSubmitted {
		return 0, E(KindState, "results for assignment %s already submitted", assignmentID)
	}
	if len(drafts) == 0 {
		return 0, E(KindState, "no draft results found for assignment %s", assignmentID)
	}
	if err := checkSubmitBatch(drafts); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE results SET status=$1, submission_date=$2, updated_at=$2
		WHERE assignment_id=$3 AND status=$4`,
		StatusUnderReview, at, assignmentID, StatusDraft)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if int(n) != len(drafts) {
		// a draft changed under us between the read and the write
		return 0, E(KindConflict, "draft set for assignment %s changed during submission, retry", assignmentID)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE course_assignments
		SET results_submitted=1, results_submission_date=$1, actual_students=$2
		WHERE id=$3 AND results_submitted=0`,
		at, len(drafts), assignmentID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(drafts), nil
}

func (s *SQLStore) ApproveAssignment(ctx context.Context, assignmentID, approverID string, at int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, pending, err := loadBatch(ctx, tx, assignmentID, StatusUnderReview)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, E(KindState, "no submitted results found for assignment %s", assignmentID)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE results SET status=$1, evaluated_by=$2, evaluation_date=$3, updated_at=$3
		WHERE assignment_id=$4 AND status=$5`,
		StatusFinalized, approverID, at, assignmentID, StatusUnderReview); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE course_assignments
		SET results_approved=1, results_approved_by=$1, results_approval_date=$2, status=$3
		WHERE id=$4`,
		approverID, at, AssignmentCompleted, assignmentID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(pending), nil
}

func (s *SQLStore) PublishAssignment(ctx context.Context, assignmentID, publisherID string, at int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, final, err := loadBatch(ctx, tx, assignmentID, StatusFinalized)
	if err != nil {
		return 0, err
	}
	if len(final) == 0 {
		return 0, E(KindState, "no finalized results found for assignment %s", assignmentID)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE results SET status=$1, published_by=$2, published_date=$3, updated_at=$3
		WHERE assignment_id=$4 AND status=$5`,
		StatusPublished, publisherID, at, assignmentID, StatusFinalized); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(final), nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func limitOffset(args *[]any, limit, offset int) string {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	*args = append(*args, limit, offset)
	return " LIMIT $" + itoa(len(*args)-1) + " OFFSET $" + itoa(len(*args))
}
