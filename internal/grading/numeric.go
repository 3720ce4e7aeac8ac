package grading

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// numericStrategy grades NUMERIC questions. The first accepted entry is the
// target value; later entries widen the match with "tol=X" (absolute) or
// "reltol=X" (relative) specs:
//
//	CorrectAnswers: ["3.14159", "tol=0.01"]
//	CorrectAnswers: ["100", "reltol=0.05"]
//
// Equivalent representations of the target ("0.5" vs "0.50") count as exact
// even without a tolerance.
type numericStrategy struct{}

func (numericStrategy) Grade(q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	if len(q.Accepted) == 0 {
		return res, errors.New("question has no answer key")
	}
	str, ok := toNumericString(response)
	if !ok {
		return res, errors.New("response must be a number or a numeric string")
	}

	target := strings.TrimSpace(q.Accepted[0])
	if strings.TrimSpace(str) == target {
		res.AutoPoints = q.Points
		res.Correct = true
		return res, nil
	}

	rv, rOK := parseFloatLoose(str)
	tv, tOK := parseFloatLoose(target)
	if !rOK || !tOK {
		return res, nil
	}
	absTol, relTol := parseTolerances(q.Accepted[1:])
	diff := math.Abs(rv - tv)
	switch {
	case diff == 0:
	case absTol >= 0 && diff <= absTol:
	case relTol >= 0 && diff <= relTol*math.Abs(tv):
	default:
		return res, nil
	}
	res.AutoPoints = q.Points
	res.Correct = true
	return res, nil
}

// ValidateNumericKey checks an authored NUMERIC answer key: the first entry
// must parse as a number and any later entries must be tolerance specs.
func ValidateNumericKey(entries []string) error {
	if len(entries) == 0 || strings.TrimSpace(entries[0]) == "" {
		return errors.New("need a target value")
	}
	if _, ok := parseFloatLoose(entries[0]); !ok {
		return fmt.Errorf("target %q is not numeric", entries[0])
	}
	for _, s := range entries[1:] {
		t := strings.TrimSpace(strings.ToLower(s))
		if !strings.HasPrefix(t, "tol=") && !strings.HasPrefix(t, "reltol=") {
			return fmt.Errorf("bad tolerance spec %q (want tol= or reltol=)", s)
		}
		t = strings.TrimPrefix(strings.TrimPrefix(t, "rel"), "tol=")
		if v, err := strconv.ParseFloat(t, 64); err != nil || v < 0 {
			return fmt.Errorf("bad tolerance spec %q", s)
		}
	}
	return nil
}

// toNumericString accepts strings plus raw JSON numbers (float64 after a
// decode into interface{}).
func toNumericString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	}
	return "", false
}

// parseFloatLoose parses the leading numeric token, so "9.81 m/s^2" grades
// as 9.81.
func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if f := strings.Fields(s); len(f) > 0 {
		if v, err := strconv.ParseFloat(f[0], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// parseTolerances returns -1 for a tolerance that was not specified.
func parseTolerances(specs []string) (absTol, relTol float64) {
	absTol, relTol = -1, -1
	for _, s := range specs {
		s = strings.TrimSpace(strings.ToLower(s))
		switch {
		case strings.HasPrefix(s, "tol="):
			if v, err := strconv.ParseFloat(strings.TrimPrefix(s, "tol="), 64); err == nil {
				absTol = v
			}
		case strings.HasPrefix(s, "reltol="):
			if v, err := strconv.ParseFloat(strings.TrimPrefix(s, "reltol="), 64); err == nil {
				relTol = v
			}
		}
	}
	return
}
