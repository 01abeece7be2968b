package grading

// Band is one row of the institutional grading scale. Min is the inclusive
// lower bound of the percentage range the band covers.
type Band struct {
	Min    float64
	Letter string
	Points float64
}

// scale is ordered by descending Min; lookup walks it top-down and takes the
// first band whose Min the percentage reaches. The table has no gaps and no
// overlaps, so exactly one band matches any percentage in [0,100].
var scale = []Band{
	{97, "A+", 4.0},
	{93, "A", 4.0},
	{90, "A-", 3.7},
	{87, "B+", 3.3},
	{83, "B", 3.0},
	{80, "B-", 2.7},
	{77, "C+", 2.3},
	{73, "C", 2.0},
	{70, "C-", 1.7},
	{67, "D+", 1.3},
	{60, "D", 1.0},
	{0, "F", 0.0},
}

// GradeFor maps a percentage onto the grading scale.
func GradeFor(percentage float64) (letter string, points float64) {
	for _, b := range scale {
		if percentage >= b.Min {
			return b.Letter, b.Points
		}
	}
	// negative input lands here; treat as failing
	return "F", 0.0
}

// Scale returns a copy of the grading table, ordered by descending lower bound.
func Scale() []Band {
	out := make([]Band, len(scale))
	copy(out, scale)
	return out
}
