package result

// Assessment types a lecturer may record.
const (
	AssessmentAssignment   = "assignment"
	AssessmentQuiz         = "quiz"
	AssessmentMidterm      = "midterm"
	AssessmentFinal        = "final"
	AssessmentProject      = "project"
	AssessmentPresentation = "presentation"
	AssessmentLab          = "lab"
	AssessmentAttendance   = "attendance"
)

// AssessmentTypes is the closed set accepted on entry.
var AssessmentTypes = map[string]bool{
	AssessmentAssignment:   true,
	AssessmentQuiz:         true,
	AssessmentMidterm:      true,
	AssessmentFinal:        true,
	AssessmentProject:      true,
	AssessmentPresentation: true,
	AssessmentLab:          true,
	AssessmentAttendance:   true,
}

// Assessment is one graded item inside a result record.
type Assessment struct {
	Type          string  `json:"type"`
	Name          string  `json:"name"`
	MaxScore      float64 `json:"max_score"`
	ObtainedScore float64 `json:"obtained_score"`
	Weight        float64 `json:"weight"` // percent of the final grade
	Date          int64   `json:"date,omitempty"`
}

// Attendance is the class-attendance block carried on a result.
type Attendance struct {
	TotalClasses    int     `json:"total_classes"`
	AttendedClasses int     `json:"attended_classes"`
	Percentage      float64 `json:"percentage"`
}

// Result statuses. Transitions only ever move right:
// draft -> under_review -> finalized -> published.
const (
	StatusDraft       = "draft"
	StatusUnderReview = "under_review"
	StatusFinalized   = "finalized"
	StatusPublished   = "published"
)

// Result is the complete graded record for one student in one course in one
// academic period. Unique on (student, course, academic year, semester) even
// though it also references the owning assignment, because the assignment
// could be reassigned later.
type Result struct {
	ID           string `json:"id"`
	AssignmentID string `json:"assignment_id"`
	StudentID    string `json:"student_id"`
	CourseID     string `json:"course_id"`
	AcademicYear string `json:"academic_year"`
	Semester     string `json:"semester"`

	Assessments []Assessment `json:"assessments"`

	// Derived from Assessments, never set directly.
	Percentage  float64 `json:"percentage"`
	LetterGrade string  `json:"letter_grade"`
	GradePoints float64 `json:"grade_points"`

	Credits    int        `json:"credits"`
	Attendance Attendance `json:"attendance"`
	Status     string     `json:"status"`
	Remarks    string     `json:"remarks,omitempty"`

	SubmittedBy    string `json:"submitted_by"`
	SubmissionDate int64  `json:"submission_date,omitempty"`
	EvaluatedBy    string `json:"evaluated_by,omitempty"`
	EvaluationDate int64  `json:"evaluation_date,omitempty"`
	PublishedBy    string `json:"published_by,omitempty"`
	PublishedDate  int64  `json:"published_date,omitempty"`

	CreatedAt int64 `json:"created_at,omitempty"`
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

// Course assignment statuses.
const (
	AssignmentActive    = "active"
	AssignmentCompleted = "completed"
	AssignmentCancelled = "cancelled"
)

// CourseAssignment binds one lecturer to one course for one academic period
// and owns the submission/approval flags that gate result transitions.
// Unique on (course, academic year, semester).
type CourseAssignment struct {
	ID           string `json:"id"`
	CourseID     string `json:"course_id"`
	LecturerID   string `json:"lecturer_id"`
	AssignedBy   string `json:"assigned_by"`
	AcademicYear string `json:"academic_year"`
	Semester     string `json:"semester"`
	Status       string `json:"status"`

	ExpectedStudents int `json:"expected_students,omitempty"`
	ActualStudents   int `json:"actual_students,omitempty"`
	ContactHours     int `json:"contact_hours,omitempty"`
	CreditUnits      int `json:"credit_units"`

	ResultsSubmitted      bool   `json:"results_submitted"`
	ResultsSubmissionDate int64  `json:"results_submission_date,omitempty"`
	ResultsApproved       bool   `json:"results_approved"`
	ResultsApprovedBy     string `json:"results_approved_by,omitempty"`
	ResultsApprovalDate   int64  `json:"results_approval_date,omitempty"`

	CreatedAt int64 `json:"created_at,omitempty"`
}

// Mutable reports whether the assignment still accepts roster edits and
// draft score entry.
func (a CourseAssignment) Mutable() bool {
	return a.Status == AssignmentActive && !a.ResultsSubmitted
}

// RosterEntry is one row of the lecturer view: an enrolled student joined
// with their result, if any scores have been entered yet.
type RosterEntry struct {
	StudentID string  `json:"student_id"`
	Name      string  `json:"name,omitempty"`
	Result    *Result `json:"result"`
}
