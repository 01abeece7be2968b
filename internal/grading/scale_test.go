package grading

import "testing"

func TestGradeFor(t *testing.T) {
	cases := []struct {
		pct    float64
		letter string
		points float64
	}{
		{100, "A+", 4.0},
		{97, "A+", 4.0}, // lower bounds are inclusive
		{96.99, "A", 4.0},
		{93, "A", 4.0},
		{90, "A-", 3.7},
		{89.9, "B+", 3.3},
		{87, "B+", 3.3},
		{83, "B", 3.0},
		{80, "B-", 2.7},
		{77, "C+", 2.3},
		{73, "C", 2.0},
		{70, "C-", 1.7},
		{67, "D+", 1.3},
		{60, "D", 1.0},
		{59.99, "F", 0.0},
		{0, "F", 0.0},
	}
	for _, c := range cases {
		letter, points := GradeFor(c.pct)
		if letter != c.letter || points != c.points {
			t.Errorf("GradeFor(%g) = %s/%g, want %s/%g", c.pct, letter, points, c.letter, c.points)
		}
	}
}

func TestScaleCoversEveryPercentage(t *testing.T) {
	bands := Scale()
	if bands[len(bands)-1].Min != 0 {
		t.Fatal("scale must bottom out at 0")
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Min >= bands[i-1].Min {
			t.Fatalf("scale not strictly descending at row %d", i)
		}
	}
	// exactly one band matches any percentage in [0,100]
	for pct := 0.0; pct <= 100.0; pct += 0.25 {
		matches := 0
		for i, b := range bands {
			upper := 101.0
			if i > 0 {
				upper = bands[i-1].Min
			}
			if pct >= b.Min && pct < upper {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("percentage %g matched %d bands", pct, matches)
		}
	}
}
