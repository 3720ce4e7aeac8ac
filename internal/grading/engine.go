package grading

import (
	"errors"
	"fmt"
	"strings"
)

// Question type identifiers as they appear in stored questions and on the wire.
const (
	TypeSingleChoice   = "SINGLE_CHOICE"
	TypeMultipleChoice = "MULTIPLE_CHOICE"
	TypeTrueFalse      = "TRUE_FALSE"
	TypeShortAnswer    = "SHORT_ANSWER"
	TypeFillBlank      = "FILL_BLANK"
	TypeNumeric        = "NUMERIC"
)

// KnownType reports whether t is a question type this engine can grade.
func KnownType(t string) bool {
	switch t {
	case TypeSingleChoice, TypeMultipleChoice, TypeTrueFalse, TypeShortAnswer, TypeFillBlank, TypeNumeric:
		return true
	}
	return false
}

// Option is one selectable choice of a choice question.
type Option struct {
	ID      string
	Text    string
	Correct bool
}

// Q is a minimal view of a question needed for grading.
// Keep this in sync with whatever fields your store uses.
type Q struct {
	ID            string
	Type          string
	Points        float64
	Options       []Option // SINGLE_CHOICE, MULTIPLE_CHOICE
	CorrectAnswer *bool    // TRUE_FALSE
	Accepted      []string // SHORT_ANSWER, FILL_BLANK; NUMERIC target + tolerance specs
}

// Result is the outcome of grading a single question response.
type Result struct {
	AutoPoints float64 // points awarded
	MaxPoints  float64 // the question's max points
	Correct    bool
}

// Strategy grades a single question.
type Strategy interface {
	Grade(q Q, response interface{}) (Result, error)
}

// Grader routes by question type to the correct Strategy.
//
// A returned error means the response shape (or the question definition)
// was unusable; callers treat that as zero points and keep grading the
// rest of the attempt.
type Grader interface {
	Grade(q Q, response interface{}) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(q Q, response interface{}) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{MaxPoints: q.Points}, fmt.Errorf("no strategy for question type %q", q.Type)
	}
	return s.Grade(q, response)
}

// Option funcs for NewGrader.

type GraderOption func(*defaultGrader)

// WithStrategy installs or overrides the strategy for a question type.
func WithStrategy(typ string, s Strategy) GraderOption {
	return func(g *defaultGrader) { g.strategies[typ] = s }
}

// NewGrader installs the built-in strategies.
func NewGrader(opts ...GraderOption) Grader {
	g := &defaultGrader{
		strategies: map[string]Strategy{
			TypeSingleChoice:   singleChoiceStrategy{},
			TypeMultipleChoice: multiChoiceStrategy{},
			TypeTrueFalse:      trueFalseStrategy{},
			TypeShortAnswer:    textAnswerStrategy{},
			TypeFillBlank:      textAnswerStrategy{},
			TypeNumeric:        numericStrategy{},
		},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// --- Strategies ---

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	sel, ok := response.(string)
	if !ok {
		return res, errors.New("response must be a string")
	}
	opt, ok := resolveOption(q.Options, sel)
	if ok && opt.Correct {
		res.AutoPoints = q.Points
		res.Correct = true
	}
	return res, nil
}

type multiChoiceStrategy struct{}

// Full credit only when the selected set equals the correct set exactly.
// Under- and over-selection both score zero.
func (multiChoiceStrategy) Grade(q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	sels, ok := toStringSlice(response)
	if !ok {
		return res, errors.New("response must be a list of strings")
	}
	correct := map[string]struct{}{}
	for _, o := range q.Options {
		if o.Correct {
			correct[o.ID] = struct{}{}
		}
	}
	chosen := make(map[string]struct{}, len(sels))
	for _, s := range sels {
		opt, ok := resolveOption(q.Options, s)
		if !ok {
			// Unknown selection can never be part of an exact match.
			return res, nil
		}
		chosen[opt.ID] = struct{}{}
	}
	if len(correct) > 0 && setEqual(correct, chosen) {
		res.AutoPoints = q.Points
		res.Correct = true
	}
	return res, nil
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Grade(q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	if q.CorrectAnswer == nil {
		return res, errors.New("question has no answer key")
	}
	b, ok := toBool(response)
	if !ok {
		return res, errors.New("response must be a boolean")
	}
	if b == *q.CorrectAnswer {
		res.AutoPoints = q.Points
		res.Correct = true
	}
	return res, nil
}

type textAnswerStrategy struct{}

// Trimmed, case-insensitive comparison against each accepted answer.
// No fuzzy matching: either an accepted answer matches or the response
// scores zero.
func (textAnswerStrategy) Grade(q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	s, ok := response.(string)
	if !ok {
		return res, errors.New("response must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return res, nil
	}
	for _, k := range q.Accepted {
		if strings.EqualFold(s, strings.TrimSpace(k)) {
			res.AutoPoints = q.Points
			res.Correct = true
			return res, nil
		}
	}
	return res, nil
}

// helpers

// resolveOption matches a selection against option IDs first and falls
// back to exact option text, so clients may submit either form.
func resolveOption(opts []Option, sel string) (Option, bool) {
	for _, o := range opts {
		if o.ID == sel {
			return o, true
		}
	}
	for _, o := range opts {
		if o.Text == sel {
			return o, true
		}
	}
	return Option{}, false
}

func toStringSlice(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func toBool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		if strings.EqualFold(t, "true") {
			return true, true
		}
		if strings.EqualFold(t, "false") {
			return false, true
		}
	}
	return false, false
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
