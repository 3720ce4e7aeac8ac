package grading_test

import (
	"testing"

	"github.com/coursekit/coursekit-lms/internal/grading"
)

func TestNumericAbsoluteTolerance(t *testing.T) {
	g := grading.NewGrader()
	q := grading.Q{
		ID:       "q1",
		Type:     grading.TypeNumeric,
		Points:   4,
		Accepted: []string{"3.14159", "tol=0.01"},
	}

	cases := []struct {
		name     string
		response interface{}
		points   float64
		wantErr  bool
	}{
		{"exact string", "3.14159", 4, false},
		{"equivalent representation", "3.141590", 4, false},
		{"within tolerance", "3.1416", 4, false},
		{"outside tolerance", "3.16", 0, false},
		{"json number", 3.1416, 4, false},
		{"unit suffix ignored", "3.1416 rad", 4, false},
		{"not a number", "about three", 0, false},
		{"bool response", true, 0, true},
		{"list response", []string{"3.14"}, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := g.Grade(q, tc.response)
			if tc.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if res.AutoPoints != tc.points {
				t.Fatalf("points = %v, want %v", res.AutoPoints, tc.points)
			}
			if res.MaxPoints != 4 {
				t.Fatalf("max points = %v, want 4", res.MaxPoints)
			}
		})
	}
}

func TestNumericRelativeTolerance(t *testing.T) {
	g := grading.NewGrader()
	q := grading.Q{
		ID:       "q1",
		Type:     grading.TypeNumeric,
		Points:   2,
		Accepted: []string{"100", "reltol=0.05"},
	}

	for resp, want := range map[string]float64{
		"100": 2, "104": 2, "95": 2, "106": 0, "94": 0,
	} {
		res, err := g.Grade(q, resp)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", resp, err)
		}
		if res.AutoPoints != want {
			t.Fatalf("response %q: points = %v, want %v", resp, res.AutoPoints, want)
		}
	}
}

func TestNumericWithoutTolerance(t *testing.T) {
	g := grading.NewGrader()
	q := grading.Q{ID: "q1", Type: grading.TypeNumeric, Points: 1, Accepted: []string{"0.5"}}

	for resp, want := range map[string]float64{
		"0.5": 1, "0.50": 1, ".5": 1, "0.51": 0,
	} {
		res, err := g.Grade(q, resp)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", resp, err)
		}
		if res.AutoPoints != want {
			t.Fatalf("response %q: points = %v, want %v", resp, res.AutoPoints, want)
		}
	}
}

func TestNumericMissingKey(t *testing.T) {
	g := grading.NewGrader()
	q := grading.Q{ID: "q1", Type: grading.TypeNumeric, Points: 1}
	if _, err := g.Grade(q, "1"); err == nil {
		t.Fatalf("expected error when question has no answer key")
	}
}

func TestValidateNumericKey(t *testing.T) {
	cases := []struct {
		name    string
		entries []string
		wantErr bool
	}{
		{"target only", []string{"42"}, false},
		{"target with abs tolerance", []string{"3.14", "tol=0.01"}, false},
		{"target with both tolerances", []string{"100", "tol=1", "reltol=0.05"}, false},
		{"empty", nil, true},
		{"blank target", []string{"  "}, true},
		{"non-numeric target", []string{"forty-two"}, true},
		{"unknown spec", []string{"1", "fuzz=0.1"}, true},
		{"negative tolerance", []string{"1", "tol=-0.5"}, true},
		{"garbage tolerance", []string{"1", "tol=abc"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := grading.ValidateNumericKey(tc.entries)
			if tc.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
