package result

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps the whole engine state behind one mutex. Used by tests
// and by the gateway when no database is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[string]CourseAssignment
	results     map[string]Result            // by result ID
	byKey       map[string]string            // student|course|year|semester -> result ID
	enrollment  map[string][]string          // courseID -> active student IDs
	names       map[string]string            // studentID -> display name
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assignments: map[string]CourseAssignment{},
		results:     map[string]Result{},
		byKey:       map[string]string{},
		enrollment:  map[string][]string{},
		names:       map[string]string{},
	}
}

func resultKey(studentID, courseID, year, semester string) string {
	return studentID + "|" + courseID + "|" + year + "|" + semester
}

// Enroll registers a student on a course roster. Test/offline helper; the
// SQL store reads enrollment from course_students.
func (m *MemoryStore) Enroll(courseID, studentID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollment[courseID] = append(m.enrollment[courseID], studentID)
	if name != "" {
		m.names[studentID] = name
	}
}

func (m *MemoryStore) CreateAssignment(_ context.Context, a CourseAssignment) (CourseAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.assignments {
		if ex.CourseID == a.CourseID && ex.AcademicYear == a.AcademicYear && ex.Semester == a.Semester {
			return CourseAssignment{}, E(KindConflict, "course %s already assigned for %s %s", a.CourseID, a.AcademicYear, a.Semester)
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AssignmentActive
	}
	m.assignments[a.ID] = a
	return a, nil
}

func (m *MemoryStore) GetAssignment(_ context.Context, id string) (CourseAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return CourseAssignment{}, E(KindNotFound, "assignment %s not found", id)
	}
	return a, nil
}

func (m *MemoryStore) ListAssignments(_ context.Context, opts AssignmentListOpts) ([]CourseAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []CourseAssignment{}
	for _, a := range m.assignments {
		if opts.LecturerID != "" && a.LecturerID != opts.LecturerID {
			continue
		}
		if opts.CourseID != "" && a.CourseID != opts.CourseID {
			continue
		}
		if opts.AcademicYear != "" && a.AcademicYear != opts.AcademicYear {
			continue
		}
		if opts.Semester != "" && a.Semester != opts.Semester {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *MemoryStore) UpsertDraft(_ context.Context, r Result) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := resultKey(r.StudentID, r.CourseID, r.AcademicYear, r.Semester)
	if id, ok := m.byKey[key]; ok {
		existing := m.results[id]
		if existing.Status != StatusDraft {
			return Result{}, E(KindState, "result for student %s is %s and can no longer be edited", r.StudentID, existing.Status)
		}
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
		m.results[r.ID] = r
		return r, nil
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.byKey[key] = r.ID
	m.results[r.ID] = r
	return r, nil
}

func (m *MemoryStore) GetResult(_ context.Context, id string) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[id]
	if !ok {
		return Result{}, E(KindNotFound, "result %s not found", id)
	}
	return r, nil
}

func (m *MemoryStore) GetResultByKey(_ context.Context, studentID, courseID, year, semester string) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[resultKey(studentID, courseID, year, semester)]
	if !ok {
		return Result{}, E(KindNotFound, "no result for student %s in course %s (%s %s)", studentID, courseID, year, semester)
	}
	return m.results[id], nil
}

func (m *MemoryStore) ListResults(_ context.Context, opts ListOpts) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Result{}
	for _, r := range m.results {
		if opts.AssignmentID != "" && r.AssignmentID != opts.AssignmentID {
			continue
		}
		if opts.StudentID != "" && r.StudentID != opts.StudentID {
			continue
		}
		if opts.CourseID != "" && r.CourseID != opts.CourseID {
			continue
		}
		if opts.Status != "" && r.Status != opts.Status {
			continue
		}
		if opts.AcademicYear != "" && r.AcademicYear != opts.AcademicYear {
			continue
		}
		if opts.Semester != "" && r.Semester != opts.Semester {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryStore) Roster(_ context.Context, assignmentID string) ([]RosterEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[assignmentID]
	if !ok {
		return nil, E(KindNotFound, "assignment %s not found", assignmentID)
	}
	out := []RosterEntry{}
	for _, sid := range m.enrollment[a.CourseID] {
		entry := RosterEntry{StudentID: sid, Name: m.names[sid]}
		if id, ok := m.byKey[resultKey(sid, a.CourseID, a.AcademicYear, a.Semester)]; ok {
			r := m.results[id]
			entry.Result = &r
		}
		out = append(out, entry)
	}
	return out, nil
}

func (m *MemoryStore) SubmitAssignment(_ context.Context, assignmentID string, at int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[assignmentID]
	if !ok {
		return 0, E(KindNotFound, "assignment %s not found", assignmentID)
	}
	if a.Status != AssignmentActive {
		return 0, E(KindState, "assignment %s is %s, cannot submit results", assignmentID, a.Status)
	}
	if a.ResultsSubmitted {
		return 0, E(KindState, "results for assignment %s already submitted", assignmentID)
	}
	var drafts []Result
	for _, r := range m.results {
		if r.AssignmentID == assignmentID && r.Status == StatusDraft {
			drafts = append(drafts, r)
		}
	}
	if len(drafts) == 0 {
		return 0, E(KindState, "no draft results found for assignment %s", assignmentID)
	}
	if err := checkSubmitBatch(drafts); err != nil {
		return 0, err
	}
	for _, r := range drafts {
		r.Status = StatusUnderReview
		r.SubmissionDate = at
		r.UpdatedAt = at
		m.results[r.ID] = r
	}
	a.ResultsSubmitted = true
	a.ResultsSubmissionDate = at
	a.ActualStudents = len(drafts)
	m.assignments[a.ID] = a
	return len(drafts), nil
}

func (m *MemoryStore) ApproveAssignment(_ context.Context, assignmentID, approverID string, at int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[assignmentID]
	if !ok {
		return 0, E(KindNotFound, "assignment %s not found", assignmentID)
	}
	var pending []Result
	for _, r := range m.results {
		if r.AssignmentID == assignmentID && r.Status == StatusUnderReview {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return 0, E(KindState, "no submitted results found for assignment %s", assignmentID)
	}
	for _, r := range pending {
		r.Status = StatusFinalized
		r.EvaluatedBy = approverID
		r.EvaluationDate = at
		r.UpdatedAt = at
		m.results[r.ID] = r
	}
	a.ResultsApproved = true
	a.ResultsApprovedBy = approverID
	a.ResultsApprovalDate = at
	a.Status = AssignmentCompleted
	m.assignments[a.ID] = a
	return len(pending), nil
}

func (m *MemoryStore) PublishAssignment(_ context.Context, assignmentID, publisherID string, at int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[assignmentID]; !ok {
		return 0, E(KindNotFound, "assignment %s not found", assignmentID)
	}
	var final []Result
	for _, r := range m.results {
		if r.AssignmentID == assignmentID && r.Status == StatusFinalized {
			final = append(final, r)
		}
	}
	if len(final) == 0 {
		return 0, E(KindState, "no finalized results found for assignment %s", assignmentID)
	}
	for _, r := range final {
		r.Status = StatusPublished
		r.PublishedBy = publisherID
		r.PublishedDate = at
		r.UpdatedAt = at
		m.results[r.ID] = r
	}
	return len(final), nil
}
