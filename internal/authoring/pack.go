package authoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coursekit/coursekit-lms/internal/course"
)

// Pack is a whole course authored as one YAML document: the course row, its
// content items in sequence, and the tests the TEST items bind to.
type Pack struct {
	Course PackCourse `yaml:"course"`
	Items  []PackItem `yaml:"items"`
	Tests  []PackTest `yaml:"tests,omitempty"`
}

type PackCourse struct {
	ID              string `yaml:"id,omitempty"`
	Title           string `yaml:"title"`
	Description     string `yaml:"description,omitempty"`
	RequireApproval bool   `yaml:"require_approval,omitempty"`
}

type PackVideo struct {
	DurationSec         int     `yaml:"duration_sec"`
	CompletionThreshold float64 `yaml:"completion_threshold"`
	AllowSeeking        bool    `yaml:"allow_seeking,omitempty"`
}

// PackItem is one content item. Order defaults to the item's position in the
// list (1-based) when omitted. Test refers to a tests[].id in the same pack.
type PackItem struct {
	ID       string     `yaml:"id,omitempty"`
	Order    int        `yaml:"order,omitempty"`
	Type     string     `yaml:"type"`
	Title    string     `yaml:"title"`
	Required bool       `yaml:"required,omitempty"`
	URL      string     `yaml:"url,omitempty"`
	Video    *PackVideo `yaml:"video,omitempty"`
	Test     string     `yaml:"test,omitempty"`
}

type PackOption struct {
	ID      string `yaml:"id,omitempty"`
	Text    string `yaml:"text"`
	Correct bool   `yaml:"correct,omitempty"`
}

// PackQuestion order also defaults to list position when omitted.
type PackQuestion struct {
	ID             string       `yaml:"id,omitempty"`
	Order          int          `yaml:"order,omitempty"`
	Type           string       `yaml:"type"`
	Prompt         string       `yaml:"prompt,omitempty"`
	Points         float64      `yaml:"points"`
	Options        []PackOption `yaml:"options,omitempty"`
	CorrectAnswer  *bool        `yaml:"correct_answer,omitempty"`
	CorrectAnswers []string     `yaml:"correct_answers,omitempty"`
}

type PackTest struct {
	ID                 string         `yaml:"id"`
	Title              string         `yaml:"title,omitempty"`
	PassingScore       float64        `yaml:"passing_score"`
	ShowCorrectAnswers bool           `yaml:"show_correct_answers,omitempty"`
	Questions          []PackQuestion `yaml:"questions"`
}

// ParsePack decodes a YAML course pack. Parse errors are returned as-is;
// call ValidatePack for semantic checks.
func ParsePack(data []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse course pack: %w", err)
	}
	return &p, nil
}

// LoadPack reads and decodes a course pack file.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePack(data)
}

// ValidatePack checks a parsed pack for every authoring violation it can
// find: the course and each item/test on their own, plus the cross
// references between TEST items and the pack's tests. Each test must be
// bound by exactly one TEST item.
func ValidatePack(p *Pack) []error {
	var errs []error

	errs = append(errs, validateCourse("course", p.Course.toCourse())...)

	if len(p.Items) == 0 {
		errs = append(errs, fmt.Errorf("items must not be empty"))
	}

	testIDs := map[string]bool{}
	for j, t := range p.Tests {
		prefix := fmt.Sprintf("tests[%d]", j)
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else if testIDs[t.ID] {
			errs = append(errs, fmt.Errorf("%s.id: duplicate id %q", prefix, t.ID))
		} else {
			testIDs[t.ID] = true
		}
		errs = append(errs, validateTest(prefix, t.toTest())...)
	}

	boundBy := map[string]int{}
	items := make([]course.ContentItem, len(p.Items))
	for i, it := range p.Items {
		items[i] = it.toItem(i)
		if it.Type == course.ItemTest && it.Test != "" {
			if !testIDs[it.Test] {
				errs = append(errs, fmt.Errorf("items[%d].test: test %q not found in tests", i, it.Test))
			}
			boundBy[it.Test]++
		}
		if it.Type != course.ItemTest && it.Test != "" {
			errs = append(errs, fmt.Errorf("items[%d].test is not allowed on %s items", i, it.Type))
		}
	}
	errs = append(errs, validateItems("items", items)...)

	for _, t := range p.Tests {
		if t.ID == "" {
			continue
		}
		switch boundBy[t.ID] {
		case 0:
			errs = append(errs, fmt.Errorf("tests: test %q is not bound to any TEST item", t.ID))
		case 1:
		default:
			errs = append(errs, fmt.Errorf("tests: test %q is bound to %d items, want 1", t.ID, boundBy[t.ID]))
		}
	}

	return errs
}

// Conversions to the stored model. IDs are left as authored (possibly empty,
// filled in at import time); the item's Test ref becomes TestID so the shared
// item validator sees a bound TEST item.

func (c PackCourse) toCourse() course.Course {
	return course.Course{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		RequireApproval: c.RequireApproval,
	}
}

func (it PackItem) toItem(pos int) course.ContentItem {
	ord := it.Order
	if ord == 0 {
		ord = pos + 1
	}
	var vs *course.VideoSpec
	if it.Video != nil {
		vs = &course.VideoSpec{
			DurationSec:         it.Video.DurationSec,
			CompletionThreshold: it.Video.CompletionThreshold,
			AllowSeeking:        it.Video.AllowSeeking,
		}
	}
	return course.ContentItem{
		ID:       it.ID,
		Order:    ord,
		Type:     it.Type,
		Title:    it.Title,
		Required: it.Required,
		URL:      it.URL,
		Video:    vs,
		TestID:   it.Test,
	}
}

func (t PackTest) toTest() course.Test {
	qs := make([]course.Question, len(t.Questions))
	for i, q := range t.Questions {
		qs[i] = q.toQuestion(i)
	}
	title := t.Title
	if title == "" {
		title = t.ID
	}
	return course.Test{
		ID:                 t.ID,
		Title:              title,
		PassingScore:       t.PassingScore,
		ShowCorrectAnswers: t.ShowCorrectAnswers,
		Questions:          qs,
	}
}

func (q PackQuestion) toQuestion(pos int) course.Question {
	ord := q.Order
	if ord == 0 {
		ord = pos + 1
	}
	opts := make([]course.Option, len(q.Options))
	for i, o := range q.Options {
		id := o.ID
		if id == "" {
			id = fmt.Sprintf("o%d", i+1)
		}
		opts[i] = course.Option{ID: id, Text: o.Text, Correct: o.Correct}
	}
	if len(opts) == 0 {
		opts = nil
	}
	return course.Question{
		ID:             q.ID,
		Order:          ord,
		Type:           q.Type,
		Prompt:         q.Prompt,
		Points:         q.Points,
		Options:        opts,
		CorrectAnswer:  q.CorrectAnswer,
		CorrectAnswers: q.CorrectAnswers,
	}
}
