// Package authoring is the validation boundary for course material. Invalid
// courses, items, and tests are rejected here so the grading and progression
// engines can assume the integrity of their inputs.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coursekit/coursekit-lms/internal/course"
	"github.com/coursekit/coursekit-lms/internal/grading"
)

// ErrItemInUse is returned by GuardItemEdit when a structural edit targets an
// item that already has learner progress recorded against it.
var ErrItemInUse = errors.New("item has learner progress; type, order and test binding are immutable")

// ValidateCourse checks a course definition. Returns all problems found.
func ValidateCourse(c course.Course) []error {
	return validateCourse("course", c)
}

// ValidateItems checks a course's content items as a set: each item on its
// own plus order uniqueness across the sequence.
func ValidateItems(items []course.ContentItem) []error {
	return validateItems("items", items)
}

// ValidateItem checks a single content item in isolation.
func ValidateItem(it course.ContentItem) []error {
	return validateItem("item", it)
}

// ValidateTest checks a test definition including every question.
func ValidateTest(t course.Test) []error {
	return validateTest("test", t)
}

// GuardItemEdit rejects edits that change an item's type, order, or test
// binding once any learner has a completion record for it. Non-structural
// edits (title, url, video parameters) always pass.
func GuardItemEdit(ctx context.Context, st course.Store, old, updated course.ContentItem) error {
	if old.Type == updated.Type && old.Order == updated.Order && old.TestID == updated.TestID {
		return nil
	}
	has, err := st.ItemHasProgress(ctx, old.ID)
	if err != nil {
		return err
	}
	if has {
		return ErrItemInUse
	}
	return nil
}

func validateCourse(prefix string, c course.Course) []error {
	var errs []error
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, fmt.Errorf("%s.title is required", prefix))
	}
	return errs
}

func validateItems(prefix string, items []course.ContentItem) []error {
	var errs []error

	seenOrder := map[int]bool{}
	seenID := map[string]bool{}
	for i, it := range items {
		p := fmt.Sprintf("%s[%d]", prefix, i)
		errs = append(errs, validateItem(p, it)...)

		if it.ID != "" {
			if seenID[it.ID] {
				errs = append(errs, fmt.Errorf("%s.id: duplicate id %q", p, it.ID))
			}
			seenID[it.ID] = true
		}
		if seenOrder[it.Order] {
			errs = append(errs, fmt.Errorf("%s.order: duplicate order %d", p, it.Order))
		}
		seenOrder[it.Order] = true
	}

	return errs
}

func validateItem(prefix string, it course.ContentItem) []error {
	var errs []error

	if strings.TrimSpace(it.Title) == "" {
		errs = append(errs, fmt.Errorf("%s.title is required", prefix))
	}
	if it.Order < 1 {
		errs = append(errs, fmt.Errorf("%s.order must be >= 1", prefix))
	}
	if !course.KnownItemType(it.Type) {
		errs = append(errs, fmt.Errorf("%s.type: invalid value %q", prefix, it.Type))
		return errs
	}

	switch it.Type {
	case course.ItemVideo, course.ItemYouTube:
		if it.Video == nil {
			errs = append(errs, fmt.Errorf("%s.video is required for %s items", prefix, it.Type))
			break
		}
		if it.Video.DurationSec <= 0 {
			errs = append(errs, fmt.Errorf("%s.video.duration_sec must be positive", prefix))
		}
		if it.Video.CompletionThreshold < 0 || it.Video.CompletionThreshold > 1 {
			errs = append(errs, fmt.Errorf("%s.video.completion_threshold must be in [0,1]", prefix))
		}
	case course.ItemTest:
		if it.TestID == "" {
			errs = append(errs, fmt.Errorf("%s.test_id is required for TEST items", prefix))
		}
		if it.Video != nil {
			errs = append(errs, fmt.Errorf("%s.video is not allowed on TEST items", prefix))
		}
	default:
		// Document and link kinds need somewhere to point.
		if strings.TrimSpace(it.URL) == "" {
			errs = append(errs, fmt.Errorf("%s.url is required for %s items", prefix, it.Type))
		}
		if it.Video != nil {
			errs = append(errs, fmt.Errorf("%s.video is not allowed on %s items", prefix, it.Type))
		}
		if it.TestID != "" {
			errs = append(errs, fmt.Errorf("%s.test_id is not allowed on %s items", prefix, it.Type))
		}
	}

	return errs
}

func validateTest(prefix string, t course.Test) []error {
	var errs []error

	if strings.TrimSpace(t.Title) == "" {
		errs = append(errs, fmt.Errorf("%s.title is required", prefix))
	}
	if t.PassingScore < 0 || t.PassingScore > 1 {
		errs = append(errs, fmt.Errorf("%s.passing_score must be in [0,1]", prefix))
	}
	if len(t.Questions) == 0 {
		errs = append(errs, fmt.Errorf("%s.questions must not be empty", prefix))
		return errs
	}

	seenOrder := map[int]bool{}
	seenID := map[string]bool{}
	for i, q := range t.Questions {
		p := fmt.Sprintf("%s.questions[%d]", prefix, i)
		errs = append(errs, validateQuestion(p, q)...)

		if q.ID != "" {
			if seenID[q.ID] {
				errs = append(errs, fmt.Errorf("%s.id: duplicate id %q", p, q.ID))
			}
			seenID[q.ID] = true
		}
		if seenOrder[q.Order] {
			errs = append(errs, fmt.Errorf("%s.order: duplicate order %d", p, q.Order))
		}
		seenOrder[q.Order] = true
	}

	return errs
}

func validateQuestion(prefix string, q course.Question) []error {
	var errs []error

	if !grading.KnownType(q.Type) {
		errs = append(errs, fmt.Errorf("%s.type: invalid value %q", prefix, q.Type))
		return errs
	}
	if q.Points <= 0 {
		errs = append(errs, fmt.Errorf("%s.points must be positive", prefix))
	}

	switch q.Type {
	case grading.TypeSingleChoice, grading.TypeMultipleChoice:
		if len(q.Options) < 2 {
			errs = append(errs, fmt.Errorf("%s.options: need at least 2 options", prefix))
		}
		correct := 0
		seen := map[string]bool{}
		for j, o := range q.Options {
			if strings.TrimSpace(o.Text) == "" {
				errs = append(errs, fmt.Errorf("%s.options[%d].text is required", prefix, j))
			}
			if o.ID != "" {
				if seen[o.ID] {
					errs = append(errs, fmt.Errorf("%s.options[%d].id: duplicate id %q", prefix, j, o.ID))
				}
				seen[o.ID] = true
			}
			if o.Correct {
				correct++
			}
		}
		if len(q.Options) > 0 && correct == 0 {
			errs = append(errs, fmt.Errorf("%s.options: need at least 1 correct option", prefix))
		}
		if q.Type == grading.TypeSingleChoice && correct > 1 {
			errs = append(errs, fmt.Errorf("%s.options: SINGLE_CHOICE allows exactly 1 correct option, got %d", prefix, correct))
		}
	case grading.TypeTrueFalse:
		if q.CorrectAnswer == nil {
			errs = append(errs, fmt.Errorf("%s.correct_answer is required for TRUE_FALSE", prefix))
		}
	case grading.TypeShortAnswer, grading.TypeFillBlank:
		nonEmpty := 0
		for _, a := range q.CorrectAnswers {
			if strings.TrimSpace(a) != "" {
				nonEmpty++
			}
		}
		if nonEmpty == 0 {
			errs = append(errs, fmt.Errorf("%s.correct_answers: need at least 1 accepted answer", prefix))
		}
	case grading.TypeNumeric:
		if err := grading.ValidateNumericKey(q.CorrectAnswers); err != nil {
			errs = append(errs, fmt.Errorf("%s.correct_answers: %v", prefix, err))
		}
	}

	return errs
}
