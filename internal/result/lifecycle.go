package result

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campusforge/registrar/internal/grading"
)

// Identity is the resolved caller of a workflow operation. It is threaded
// explicitly through every operation rather than read from ambient state.
type Identity struct {
	Sub  string // staff/student id
	Role string // lecturer|hod|admin|student
}

// EventSink receives one record per lifecycle transition. Wired to the
// append-only event log in production; nil disables auditing.
type EventSink interface {
	Append(ctx context.Context, typ, key, dataJSON string) error
}

// Controller drives the result workflow:
// draft -> under_review -> finalized -> published, forward only.
// Precondition failures come back as *Error; nothing is retried because
// none of them are transient.
type Controller struct {
	store  Store
	events EventSink
	now    func() time.Time
}

type ControllerOption func(*Controller)

func WithEventSink(s EventSink) ControllerOption {
	return func(c *Controller) { c.events = s }
}

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

func NewController(store Store, opts ...ControllerOption) *Controller {
	c := &Controller{store: store, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// UpsertInput is the lecturer's draft payload for one student.
type UpsertInput struct {
	Assessments []Assessment `json:"assessments"`
	Attendance  Attendance   `json:"attendance"`
	Remarks     string       `json:"remarks"`
}

// UpsertAssessments replaces the assessment list of a student's draft result
// (creating the result on first entry) and recomputes the derived grade.
// Only the assignment's lecturer may call it, and only while the assignment
// is active and unsubmitted.
func (c *Controller) UpsertAssessments(ctx context.Context, caller Identity, assignmentID, studentID string, in UpsertInput) (Result, error) {
	a, err := c.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}
	if caller.Sub != a.LecturerID {
		return Result{}, E(KindForbidden, "only the assigned lecturer may enter results for assignment %s", assignmentID)
	}
	if a.Status != AssignmentActive {
		return Result{}, E(KindState, "assignment %s is %s, results are closed", assignmentID, a.Status)
	}
	if a.ResultsSubmitted {
		return Result{}, E(KindState, "results for assignment %s already submitted", assignmentID)
	}

	items := make([]grading.Item, len(in.Assessments))
	for i, as := range in.Assessments {
		if !AssessmentTypes[as.Type] {
			return Result{}, E(KindValidation, "unknown assessment type %q", as.Type)
		}
		items[i] = grading.Item{Name: as.Name, Max: as.MaxScore, Obtained: as.ObtainedScore, Weight: as.Weight}
	}
	sum, err := grading.Compute(items)
	if err != nil {
		return Result{}, E(KindValidation, "%v", err)
	}

	att := in.Attendance
	if att.AttendedClasses < 0 || att.TotalClasses < 0 || att.AttendedClasses > att.TotalClasses {
		return Result{}, E(KindValidation, "attendance %d/%d out of range", att.AttendedClasses, att.TotalClasses)
	}
	if att.TotalClasses > 0 {
		att.Percentage = float64(att.AttendedClasses) / float64(att.TotalClasses) * 100
	}

	r := Result{
		AssignmentID: a.ID,
		StudentID:    studentID,
		CourseID:     a.CourseID,
		AcademicYear: a.AcademicYear,
		Semester:     a.Semester,
		Assessments:  in.Assessments,
		Percentage:   sum.Percentage,
		LetterGrade:  sum.LetterGrade,
		GradePoints:  sum.GradePoints,
		Credits:      a.CreditUnits,
		Attendance:   att,
		Status:       StatusDraft,
		Remarks:      in.Remarks,
		SubmittedBy:  caller.Sub,
	}
	return c.store.UpsertDraft(ctx, r)
}

// SubmitAll moves every draft result of the assignment to under_review and
// marks the assignment submitted, as one atomic batch. Any result whose
// assessment weights do not sum to 100 aborts the whole batch.
func (c *Controller) SubmitAll(ctx context.Context, caller Identity, assignmentID string) (int, error) {
	a, err := c.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return 0, err
	}
	if caller.Sub != a.LecturerID {
		return 0, E(KindForbidden, "only the assigned lecturer may submit results for assignment %s", assignmentID)
	}
	n, err := c.store.SubmitAssignment(ctx, assignmentID, c.now().Unix())
	if err != nil {
		return 0, err
	}
	c.emit(ctx, "ResultsSubmitted", assignmentID, map[string]any{"by": caller.Sub, "count": n})
	return n, nil
}

// Approve moves every under_review result to finalized, stamps the approver,
// and completes the assignment, atomically.
func (c *Controller) Approve(ctx context.Context, caller Identity, assignmentID string) (int, error) {
	if _, err := c.store.GetAssignment(ctx, assignmentID); err != nil {
		return 0, err
	}
	n, err := c.store.ApproveAssignment(ctx, assignmentID, caller.Sub, c.now().Unix())
	if err != nil {
		return 0, err
	}
	c.emit(ctx, "ResultsApproved", assignmentID, map[string]any{"by": caller.Sub, "count": n})
	return n, nil
}

// Publish exposes every finalized result of the assignment to students.
func (c *Controller) Publish(ctx context.Context, caller Identity, assignmentID string) (int, error) {
	if _, err := c.store.GetAssignment(ctx, assignmentID); err != nil {
		return 0, err
	}
	n, err := c.store.PublishAssignment(ctx, assignmentID, caller.Sub, c.now().Unix())
	if err != nil {
		return 0, err
	}
	c.emit(ctx, "ResultsPublished", assignmentID, map[string]any{"by": caller.Sub, "count": n})
	return n, nil
}

func (c *Controller) emit(ctx context.Context, typ, key string, data map[string]any) {
	if c.events == nil {
		return
	}
	buf, err := json.Marshal(data)
	if err != nil {
		buf = []byte(fmt.Sprintf("%q", err.Error()))
	}
	// best effort: a lost audit row must not fail a completed transition
	_ = c.events.Append(ctx, typ, key, string(buf))
}
