package grading

import (
	"fmt"
	"math"
)

// Item is a minimal view of one assessment needed for grade math.
// Keep this in sync with whatever fields your store uses.
type Item struct {
	Name     string
	Max      float64
	Obtained float64
	Weight   float64 // percent of the final grade, 0-100
}

// WeightEpsilon is the tolerance when checking that item weights sum to 100.
const WeightEpsilon = 0.01

// Summary is the derived grade block of a result record.
type Summary struct {
	Percentage  float64 `json:"percentage"`
	LetterGrade string  `json:"letter_grade"`
	GradePoints float64 `json:"grade_points"`
}

// ValidateItem rejects malformed scores at the point of entry. Out-of-range
// values are errors, never clamped.
func ValidateItem(it Item) error {
	if it.Max <= 0 {
		return fmt.Errorf("assessment %q: max score must be > 0, got %g", it.Name, it.Max)
	}
	if it.Obtained < 0 || it.Obtained > it.Max {
		return fmt.Errorf("assessment %q: obtained score %g outside [0,%g]", it.Name, it.Obtained, it.Max)
	}
	if it.Weight < 0 || it.Weight > 100 {
		return fmt.Errorf("assessment %q: weight %g outside [0,100]", it.Name, it.Weight)
	}
	return nil
}

// SumWeights totals the weight column.
func SumWeights(items []Item) float64 {
	sum := 0.0
	for _, it := range items {
		sum += it.Weight
	}
	return sum
}

// WeightsComplete reports whether weights sum to 100 within WeightEpsilon.
func WeightsComplete(items []Item) bool {
	return math.Abs(SumWeights(items)-100) <= WeightEpsilon
}

// WeightedPercentage folds items into a 0-100 percentage:
// sum of (obtained/max * 100) * (weight/100). Zero for an empty list.
// Items must already be validated.
func WeightedPercentage(items []Item) float64 {
	pct := 0.0
	for _, it := range items {
		pct += (it.Obtained / it.Max * 100) * (it.Weight / 100)
	}
	return pct
}

// Compute validates every item and derives the grade summary. It does not
// require weights to sum to 100: a draft is recomputed on every save and only
// the submit gate enforces completeness.
func Compute(items []Item) (Summary, error) {
	for _, it := range items {
		if err := ValidateItem(it); err != nil {
			return Summary{}, err
		}
	}
	pct := WeightedPercentage(items)
	letter, points := GradeFor(pct)
	return Summary{Percentage: pct, LetterGrade: letter, GradePoints: points}, nil
}
