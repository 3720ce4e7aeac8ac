package authoring

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit-lms/internal/course"
)

func ptrBool(b bool) *bool { return &b }

func validVideoItem() course.ContentItem {
	return course.ContentItem{
		ID:       "it-1",
		Order:    1,
		Type:     course.ItemVideo,
		Title:    "Welcome",
		Required: true,
		URL:      "https://cdn.example.com/welcome.mp4",
		Video:    &course.VideoSpec{DurationSec: 300, CompletionThreshold: 0.9},
	}
}

func validChoiceTest() course.Test {
	return course.Test{
		ID:           "t-1",
		Title:        "Checkpoint",
		PassingScore: 0.7,
		Questions: []course.Question{
			{
				ID: "q1", Order: 1, Type: "SINGLE_CHOICE", Points: 5,
				Options: []course.Option{
					{ID: "o1", Text: "right", Correct: true},
					{ID: "o2", Text: "wrong"},
				},
			},
			{ID: "q2", Order: 2, Type: "TRUE_FALSE", Points: 5, CorrectAnswer: ptrBool(true)},
		},
	}
}

func TestValidateCourse(t *testing.T) {
	assert.Empty(t, ValidateCourse(course.Course{Title: "Intro"}))

	errs := ValidateCourse(course.Course{Title: "   "})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "title is required")
}

func TestValidateItem_Violations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(it *course.ContentItem)
		wantMsg string
	}{
		{"missing title", func(it *course.ContentItem) { it.Title = "" }, "title is required"},
		{"order zero", func(it *course.ContentItem) { it.Order = 0 }, "order must be >= 1"},
		{"unknown type", func(it *course.ContentItem) { it.Type = "SCORM" }, `invalid value "SCORM"`},
		{"video without spec", func(it *course.ContentItem) { it.Video = nil }, "video is required"},
		{"zero duration", func(it *course.ContentItem) { it.Video.DurationSec = 0 }, "duration_sec must be positive"},
		{"threshold above one", func(it *course.ContentItem) { it.Video.CompletionThreshold = 1.5 }, "completion_threshold must be in [0,1]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			it := validVideoItem()
			tc.mutate(&it)
			errs := ValidateItem(it)
			require.NotEmpty(t, errs)
			assertHasError(t, errs, tc.wantMsg)
		})
	}
}

func TestValidateItem_TypeFieldMismatch(t *testing.T) {
	errs := ValidateItem(course.ContentItem{Order: 1, Type: course.ItemTest, Title: "Quiz"})
	assertHasError(t, errs, "test_id is required for TEST items")

	errs = ValidateItem(course.ContentItem{Order: 1, Type: course.ItemPDF, Title: "Syllabus"})
	assertHasError(t, errs, "url is required for PDF items")

	errs = ValidateItem(course.ContentItem{
		Order: 1, Type: course.ItemPDF, Title: "Syllabus",
		URL:   "https://x/syllabus.pdf",
		Video: &course.VideoSpec{DurationSec: 10, CompletionThreshold: 1},
	})
	assertHasError(t, errs, "video is not allowed on PDF items")

	errs = ValidateItem(course.ContentItem{
		Order: 1, Type: course.ItemHTML, Title: "Notes",
		URL: "https://x/notes", TestID: "t-1",
	})
	assertHasError(t, errs, "test_id is not allowed on HTML items")
}

func TestValidateItems_DuplicateOrder(t *testing.T) {
	a := validVideoItem()
	b := validVideoItem()
	b.ID = "it-2"
	// same Order as a
	errs := ValidateItems([]course.ContentItem{a, b})
	assertHasError(t, errs, "duplicate order 1")

	b.Order = 2
	assert.Empty(t, ValidateItems([]course.ContentItem{a, b}))
}

func TestValidateItems_DuplicateID(t *testing.T) {
	a := validVideoItem()
	b := validVideoItem()
	b.Order = 2
	errs := ValidateItems([]course.ContentItem{a, b})
	assertHasError(t, errs, `duplicate id "it-1"`)
}

func TestValidateTest_Violations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(tt *course.Test)
		wantMsg string
	}{
		{"missing title", func(tt *course.Test) { tt.Title = "" }, "title is required"},
		{"passing score above one", func(tt *course.Test) { tt.PassingScore = 1.01 }, "passing_score must be in [0,1]"},
		{"passing score negative", func(tt *course.Test) { tt.PassingScore = -0.1 }, "passing_score must be in [0,1]"},
		{"no questions", func(tt *course.Test) { tt.Questions = nil }, "questions must not be empty"},
		{"zero points", func(tt *course.Test) { tt.Questions[0].Points = 0 }, "points must be positive"},
		{"one option", func(tt *course.Test) { tt.Questions[0].Options = tt.Questions[0].Options[:1] }, "need at least 2 options"},
		{"no correct option", func(tt *course.Test) { tt.Questions[0].Options[0].Correct = false }, "need at least 1 correct option"},
		{"two correct on single choice", func(tt *course.Test) { tt.Questions[0].Options[1].Correct = true }, "exactly 1 correct option"},
		{"true_false without key", func(tt *course.Test) { tt.Questions[1].CorrectAnswer = nil }, "correct_answer is required"},
		{"duplicate question order", func(tt *course.Test) { tt.Questions[1].Order = 1 }, "duplicate order 1"},
		{"unknown question type", func(tt *course.Test) { tt.Questions[0].Type = "ESSAY" }, `invalid value "ESSAY"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := validChoiceTest()
			tc.mutate(&tt)
			errs := ValidateTest(tt)
			require.NotEmpty(t, errs)
			assertHasError(t, errs, tc.wantMsg)
		})
	}

	assert.Empty(t, ValidateTest(validChoiceTest()))
}

func TestValidateTest_TextAnswers(t *testing.T) {
	tt := course.Test{
		Title: "Short", PassingScore: 0.5,
		Questions: []course.Question{
			{ID: "q1", Order: 1, Type: "SHORT_ANSWER", Points: 2, CorrectAnswers: []string{"  "}},
		},
	}
	errs := ValidateTest(tt)
	assertHasError(t, errs, "need at least 1 accepted answer")

	tt.Questions[0].CorrectAnswers = []string{"goroutine"}
	assert.Empty(t, ValidateTest(tt))
}

func TestValidateTest_NumericAnswers(t *testing.T) {
	tt := course.Test{
		Title: "Units", PassingScore: 0.5,
		Questions: []course.Question{
			{ID: "q1", Order: 1, Type: "NUMERIC", Points: 2, CorrectAnswers: []string{"9.81", "tol=0.05"}},
		},
	}
	assert.Empty(t, ValidateTest(tt))

	tt.Questions[0].CorrectAnswers = []string{"fast"}
	assertHasError(t, ValidateTest(tt), "is not numeric")

	tt.Questions[0].CorrectAnswers = []string{"9.81", "near=0.05"}
	assertHasError(t, ValidateTest(tt), "bad tolerance spec")

	tt.Questions[0].CorrectAnswers = nil
	assertHasError(t, ValidateTest(tt), "need a target value")
}

// progressStore stubs just ItemHasProgress; GuardItemEdit touches nothing else.
type progressStore struct {
	course.Store
	has bool
}

func (p progressStore) ItemHasProgress(ctx context.Context, itemID string) (bool, error) {
	return p.has, nil
}

func TestGuardItemEdit(t *testing.T) {
	ctx := context.Background()
	old := validVideoItem()

	// Title and URL edits pass regardless of progress.
	upd := old
	upd.Title = "Welcome (rev 2)"
	upd.URL = "https://cdn.example.com/welcome-v2.mp4"
	assert.NoError(t, GuardItemEdit(ctx, progressStore{has: true}, old, upd))

	// Structural edits pass only while nobody has progress.
	upd = old
	upd.Order = 5
	assert.NoError(t, GuardItemEdit(ctx, progressStore{has: false}, old, upd))
	assert.ErrorIs(t, GuardItemEdit(ctx, progressStore{has: true}, old, upd), ErrItemInUse)

	upd = old
	upd.Type = course.ItemYouTube
	assert.ErrorIs(t, GuardItemEdit(ctx, progressStore{has: true}, old, upd), ErrItemInUse)
}

func assertHasError(t *testing.T, errs []error, want string) {
	t.Helper()
	for _, e := range errs {
		if strings.Contains(e.Error(), want) {
			return
		}
	}
	t.Errorf("no error containing %q in %v", want, errs)
}
