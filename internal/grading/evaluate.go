package grading

import "math"

// Test is a minimal view of a test needed for evaluation: the passing
// threshold and every question, in presentation order.
type Test struct {
	PassingScore float64 // fraction in [0,1]
	Questions    []Q
}

// QuestionResult is the graded outcome for one question of an attempt.
type QuestionResult struct {
	QuestionID string      `json:"question_id"`
	Response   interface{} `json:"response,omitempty"`
	Answered   bool        `json:"answered"`
	Correct    bool        `json:"correct"`
	Points     float64     `json:"points"`
	MaxPoints  float64     `json:"max_points"`
}

// Evaluation is the aggregate outcome of one submitted attempt.
type Evaluation struct {
	Score   float64          `json:"score"` // fraction in [0,1]
	Passed  bool             `json:"passed"`
	Results []QuestionResult `json:"results"`
}

// EvaluateAttempt grades every question of t against the submitted
// responses, keyed by question ID. The denominator is the sum of points
// over ALL questions: unanswered questions stay in the result set with
// zero points, and a malformed response scores zero instead of aborting
// the rest of the attempt. The pass decision compares the unrounded
// fraction against PassingScore, inclusive.
func EvaluateAttempt(g Grader, t Test, responses map[string]interface{}) Evaluation {
	eval := Evaluation{Results: make([]QuestionResult, 0, len(t.Questions))}
	var earned, possible float64
	for _, q := range t.Questions {
		possible += q.Points
		qr := QuestionResult{QuestionID: q.ID, MaxPoints: q.Points}
		if resp, ok := responses[q.ID]; ok {
			qr.Answered = true
			qr.Response = resp
			if res, err := g.Grade(q, resp); err == nil {
				qr.Points = res.AutoPoints
				qr.Correct = res.Correct
			}
		}
		earned += qr.Points
		eval.Results = append(eval.Results, qr)
	}
	if possible > 0 {
		eval.Score = earned / possible
	}
	eval.Passed = eval.Score >= t.PassingScore
	return eval
}

// DisplayPercent converts a score fraction to a percentage rounded to two
// decimals, for presentation only. Pass decisions never use this.
func DisplayPercent(score float64) float64 {
	return math.Round(score*10000) / 100
}
