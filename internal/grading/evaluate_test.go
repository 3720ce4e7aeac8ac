package grading_test

import (
	"encoding/json"
	"testing"

	"github.com/coursekit/coursekit-lms/internal/grading"
)

func sampleTest(passing float64) grading.Test {
	return grading.Test{
		PassingScore: passing,
		Questions: []grading.Q{
			choiceQ(grading.TypeSingleChoice, 5, "b"),
			{
				ID:     "q2",
				Type:   grading.TypeMultipleChoice,
				Points: 10,
				Options: []grading.Option{
					{ID: "a", Text: "Two", Correct: true},
					{ID: "b", Text: "Three"},
					{ID: "c", Text: "Four", Correct: true},
				},
			},
			{ID: "q3", Type: grading.TypeTrueFalse, Points: 2, CorrectAnswer: boolPtr(false)},
			{ID: "q4", Type: grading.TypeShortAnswer, Points: 3, Accepted: []string{"osmosis"}},
		},
	}
}

func TestEvaluateAttemptFullMarks(t *testing.T) {
	g := grading.NewGrader()
	eval := grading.EvaluateAttempt(g, sampleTest(0.7), map[string]interface{}{
		"q1": "b",
		"q2": []string{"a", "c"},
		"q3": false,
		"q4": "Osmosis",
	})
	if eval.Score != 1.0 {
		t.Fatalf("score = %v, want 1.0", eval.Score)
	}
	if !eval.Passed {
		t.Fatalf("expected pass")
	}
	if len(eval.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(eval.Results))
	}
}

func TestEvaluateAttemptIsTotalOverQuestions(t *testing.T) {
	g := grading.NewGrader()

	// Only one answer submitted: every question still appears in the result
	// set, the skipped ones as unanswered zero-point entries, and the
	// denominator covers the full 20 points.
	eval := grading.EvaluateAttempt(g, sampleTest(0.7), map[string]interface{}{"q1": "b"})
	if len(eval.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(eval.Results))
	}
	if eval.Score != 0.25 {
		t.Fatalf("score = %v, want 0.25 (5 of 20)", eval.Score)
	}
	answered := 0
	for _, r := range eval.Results {
		if r.Answered {
			answered++
		} else if r.Points != 0 || r.Correct {
			t.Fatalf("skipped question graded as %+v", r)
		}
	}
	if answered != 1 {
		t.Fatalf("answered = %d, want 1", answered)
	}
}

func TestEvaluateAttemptEmptySubmission(t *testing.T) {
	g := grading.NewGrader()
	eval := grading.EvaluateAttempt(g, sampleTest(0.7), nil)
	if eval.Score != 0 {
		t.Fatalf("score = %v, want 0", eval.Score)
	}
	if eval.Passed {
		t.Fatalf("empty submission must not pass")
	}
	if len(eval.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(eval.Results))
	}
}

func TestEvaluateAttemptMalformedAnswerDoesNotAbort(t *testing.T) {
	g := grading.NewGrader()
	eval := grading.EvaluateAttempt(g, sampleTest(0.2), map[string]interface{}{
		"q1": 42,                 // malformed: scores zero
		"q2": "not-a-list",       // malformed: scores zero
		"q3": "neither",          // malformed: scores zero
		"q4": "osmosis",          // fine: 3 points
		"qX": "unknown question", // not part of the test: ignored
	})
	if eval.Score != 3.0/20.0 {
		t.Fatalf("score = %v, want 0.15", eval.Score)
	}
	if len(eval.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(eval.Results))
	}
}

func TestEvaluateAttemptPassBoundary(t *testing.T) {
	g := grading.NewGrader()
	// Ten one-point true/false questions, seven answered correctly: the
	// score is exactly 0.7 and the inclusive boundary passes.
	tt := grading.Test{PassingScore: 0.7}
	responses := map[string]interface{}{}
	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		tt.Questions = append(tt.Questions, grading.Q{
			ID: id, Type: grading.TypeTrueFalse, Points: 1, CorrectAnswer: boolPtr(true),
		})
		if i < 7 {
			responses[id] = true
		} else {
			responses[id] = false
		}
	}

	eval := grading.EvaluateAttempt(g, tt, responses)
	if eval.Score != 0.7 {
		t.Fatalf("score = %v, want exactly 0.7", eval.Score)
	}
	if !eval.Passed {
		t.Fatalf("score equal to the passing threshold must pass")
	}

	// Just under the threshold fails: the decision is made on the unrounded
	// fraction, not a rounded display value.
	tt.PassingScore = 0.700001
	eval = grading.EvaluateAttempt(g, tt, responses)
	if eval.Passed {
		t.Fatalf("0.7 must not pass a 0.700001 threshold")
	}
}

func TestEvaluateAttemptZeroPointTest(t *testing.T) {
	g := grading.NewGrader()
	tt := grading.Test{PassingScore: 0, Questions: nil}
	eval := grading.EvaluateAttempt(g, tt, nil)
	if eval.Score != 0 {
		t.Fatalf("score = %v, want 0", eval.Score)
	}
	// 0 >= 0 passes only when the threshold itself is zero.
	if !eval.Passed {
		t.Fatalf("zero threshold must pass a zero score")
	}
}

func TestEvaluateAttemptRoundTrip(t *testing.T) {
	g := grading.NewGrader()
	tt := sampleTest(0.45)
	responses := map[string]interface{}{
		"q1": "a", // wrong
		"q2": []string{"a", "c"},
		"q4": " OSMOSIS ",
	}
	first := grading.EvaluateAttempt(g, tt, responses)

	// Serialize the per-question results, rebuild the response map from
	// them, and re-evaluate: score and verdict must be reproduced exactly.
	buf, err := json.Marshal(first.Results)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var results []grading.QuestionResult
	if err := json.Unmarshal(buf, &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	replay := map[string]interface{}{}
	for _, r := range results {
		if r.Answered {
			replay[r.QuestionID] = r.Response
		}
	}

	second := grading.EvaluateAttempt(g, tt, replay)
	if second.Score != first.Score {
		t.Fatalf("replayed score = %v, want %v", second.Score, first.Score)
	}
	if second.Passed != first.Passed {
		t.Fatalf("replayed verdict = %v, want %v", second.Passed, first.Passed)
	}
}

func TestDisplayPercent(t *testing.T) {
	cases := []struct {
		score float64
		want  float64
	}{
		{0, 0},
		{1, 100},
		{0.7, 70},
		{2.0 / 3.0, 66.67},
		{0.699999, 70}, // display rounds, the pass decision never does
	}
	for _, tc := range cases {
		if got := grading.DisplayPercent(tc.score); got != tc.want {
			t.Fatalf("DisplayPercent(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}
