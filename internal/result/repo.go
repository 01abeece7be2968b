package result

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusforge/registrar/internal/grading"
)

// ListOpts filters result queries.
type ListOpts struct {
	AssignmentID string
	StudentID    string
	CourseID     string
	Status       string
	AcademicYear string
	Semester     string
	Limit        int
	Offset       int
}

// AssignmentListOpts filters course-assignment queries.
type AssignmentListOpts struct {
	LecturerID   string
	CourseID     string
	AcademicYear string
	Semester     string
	Status       string
	Limit        int
	Offset       int
}

// Store is the persistence surface of the result engine. The three batch
// transition methods are all-or-nothing: every matching result and the
// owning assignment's flags move together in one transaction, or nothing
// moves at all. Each returns the number of results transitioned.
type Store interface {
	CreateAssignment(ctx context.Context, a CourseAssignment) (CourseAssignment, error)
	GetAssignment(ctx context.Context, id string) (CourseAssignment, error)
	ListAssignments(ctx context.Context, opts AssignmentListOpts) ([]CourseAssignment, error)

	// UpsertDraft inserts a result or replaces an existing one that is
	// still in draft. A concurrent insert for the same (student, course,
	// year, semester) key fails with KindConflict; an existing result past
	// draft fails with KindState.
	UpsertDraft(ctx context.Context, r Result) (Result, error)
	GetResult(ctx context.Context, id string) (Result, error)
	GetResultByKey(ctx context.Context, studentID, courseID, academicYear, semester string) (Result, error)
	ListResults(ctx context.Context, opts ListOpts) ([]Result, error)

	// Roster joins the assignment's actively enrolled students with their
	// results; Result is nil for students not yet graded.
	Roster(ctx context.Context, assignmentID string) ([]RosterEntry, error)

	SubmitAssignment(ctx context.Context, assignmentID string, at int64) (int, error)
	ApproveAssignment(ctx context.Context, assignmentID, approverID string, at int64) (int, error)
	PublishAssignment(ctx context.Context, assignmentID, publisherID string, at int64) (int, error)
}

// checkSubmitBatch guards the draft -> under_review batch: every draft must
// have assessment weights summing to 100. Both stores call this inside the
// transition so a concurrent draft edit cannot slip past the gate. The error
// names the blocking students so the lecturer can fix specific records.
func checkSubmitBatch(drafts []Result) error {
	var bad []string
	for _, r := range drafts {
		items := make([]grading.Item, len(r.Assessments))
		for i, a := range r.Assessments {
			items[i] = grading.Item{Name: a.Name, Max: a.MaxScore, Obtained: a.ObtainedScore, Weight: a.Weight}
		}
		if !grading.WeightsComplete(items) {
			bad = append(bad, fmt.Sprintf("%s (weights sum to %g)", r.StudentID, grading.SumWeights(items)))
		}
	}
	if len(bad) > 0 {
		return E(KindValidation, "%d of %d results have assessment weights not summing to 100: %s",
			len(bad), len(drafts), strings.Join(bad, ", "))
	}
	return nil
}
