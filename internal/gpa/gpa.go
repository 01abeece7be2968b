// Package gpa is the read side of the result engine: credit-weighted grade
// point averages over a student's published results. It never mutates
// stored data and recomputes on every call.
package gpa

import (
	"context"

	"github.com/campusforge/registrar/internal/result"
)

// Source is the slice of the result store the aggregator needs.
type Source interface {
	ListResults(ctx context.Context, opts result.ListOpts) ([]result.Result, error)
}

// Report is one GPA computation. CreditsAttempted includes Incomplete and
// Withdrawn grades; QualityPoints and GPA do not.
type Report struct {
	GPA              float64         `json:"gpa"`
	QualityPoints    float64         `json:"quality_points"`
	CreditsEarned    int             `json:"credits_earned"`
	CreditsAttempted int             `json:"credits_attempted"`
	Courses          int             `json:"courses"`
	Results          []result.Result `json:"results,omitempty"`
}

type Aggregator struct {
	src Source
}

func New(src Source) *Aggregator { return &Aggregator{src: src} }

// nonGrading letter grades carry attempted credits but no grade points.
func nonGrading(letter string) bool { return letter == "I" || letter == "W" }

func (a *Aggregator) compute(rs []result.Result) Report {
	rep := Report{Results: rs}
	for _, r := range rs {
		rep.Courses++
		rep.CreditsAttempted += r.Credits
		if nonGrading(r.LetterGrade) {
			continue
		}
		rep.QualityPoints += r.GradePoints * float64(r.Credits)
		rep.CreditsEarned += r.Credits
	}
	if rep.CreditsEarned > 0 {
		rep.GPA = rep.QualityPoints / float64(rep.CreditsEarned)
	}
	return rep
}

// Semester computes the GPA over the student's published results in one
// academic period. A student with no qualifying results gets a zero report,
// not an error.
func (a *Aggregator) Semester(ctx context.Context, studentID, academicYear, semester string) (Report, error) {
	rs, err := a.src.ListResults(ctx, result.ListOpts{
		StudentID:    studentID,
		Status:       result.StatusPublished,
		AcademicYear: academicYear,
		Semester:     semester,
	})
	if err != nil {
		return Report{}, err
	}
	return a.compute(rs), nil
}

// Overall computes the cumulative GPA over all of the student's published
// results across every period.
func (a *Aggregator) Overall(ctx context.Context, studentID string) (Report, error) {
	rs, err := a.src.ListResults(ctx, result.ListOpts{
		StudentID: studentID,
		Status:    result.StatusPublished,
	})
	if err != nil {
		return Report{}, err
	}
	return a.compute(rs), nil
}
