package course

// Content item types as stored and as they appear on the wire.
const (
	ItemVideo    = "VIDEO"
	ItemYouTube  = "YOUTUBE"
	ItemPDF      = "PDF"
	ItemPPT      = "PPT"
	ItemHTML     = "HTML"
	ItemExternal = "EXTERNAL"
	ItemTest     = "TEST"
)

// KnownItemType reports whether t names a content item type this system tracks.
func KnownItemType(t string) bool {
	switch t {
	case ItemVideo, ItemYouTube, ItemPDF, ItemPPT, ItemHTML, ItemExternal, ItemTest:
		return true
	}
	return false
}

// Enrollment statuses. Transitions out of PENDING_APPROVAL and into DROPPED
// are external-actor operations; everything else is driven by progress
// recomputation and never regresses.
const (
	StatusPendingApproval = "PENDING_APPROVAL"
	StatusEnrolled        = "ENROLLED"
	StatusInProgress      = "IN_PROGRESS"
	StatusCompleted       = "COMPLETED"
	StatusDropped         = "DROPPED"
)

type Course struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	RequireApproval bool   `json:"require_approval,omitempty"` // self-enrollments start PENDING_APPROVAL
	CreatedBy       string `json:"created_by,omitempty"`
	CreatedAt       int64  `json:"created_at,omitempty"`
}

type CourseSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ItemCount int    `json:"item_count"`
}

// TestSummary is the authoring list row; answer keys never leave the store
// through it.
type TestSummary struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	PassingScore  float64 `json:"passing_score"`
	QuestionCount int     `json:"question_count"`
	CreatedAt     int64   `json:"created_at"`
}

// VideoSpec carries the playback parameters of VIDEO/YOUTUBE items.
// CompletionThreshold is the watched fraction in [0,1] at which the item
// counts as complete. With AllowSeeking the player reports positions instead
// of cumulative watch time; completion tracks the maximum either way.
type VideoSpec struct {
	DurationSec         int     `json:"duration_sec"`
	CompletionThreshold float64 `json:"completion_threshold"`
	AllowSeeking        bool    `json:"allow_seeking,omitempty"`
}

// ContentItem is one unit of course material at a position in the course
// sequence. Exactly one of the type-specific fields is set: Video for
// VIDEO/YOUTUBE, TestID for TEST, URL for the document/link kinds.
type ContentItem struct {
	ID       string     `json:"id"`
	CourseID string     `json:"course_id"`
	Order    int        `json:"order"` // unique within course, defines sequence
	Type     string     `json:"type"`
	Title    string     `json:"title"`
	Required bool       `json:"required"`
	URL      string     `json:"url,omitempty"`
	Video    *VideoSpec `json:"video,omitempty"`
	TestID   string     `json:"test_id,omitempty"`
}

// Option is one selectable choice of a choice question. Correct is part of
// the answer key and is stripped before serving to learners.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

// Question types match internal/grading.
type Question struct {
	ID             string   `json:"id"`
	Order          int      `json:"order"`
	Type           string   `json:"type"`
	Prompt         string   `json:"prompt,omitempty"`
	Points         float64  `json:"points"`
	Options        []Option `json:"options,omitempty"`         // SINGLE_CHOICE, MULTIPLE_CHOICE
	CorrectAnswer  *bool    `json:"correct_answer,omitempty"`  // TRUE_FALSE
	CorrectAnswers []string `json:"correct_answers,omitempty"` // SHORT_ANSWER, FILL_BLANK; NUMERIC target + tolerances
}

// Test is one-to-one with a TEST content item. PassingScore is a fraction
// in [0,1]; the pass decision is made on the unrounded attempt score.
type Test struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	PassingScore       float64    `json:"passing_score"`
	ShowCorrectAnswers bool       `json:"show_correct_answers"`
	Questions          []Question `json:"questions"`
	CreatedAt          int64      `json:"created_at,omitempty"`
}

// WithoutAnswerKeys returns a copy of the test with every answer key removed:
// option correctness, the TRUE_FALSE key, and the accepted text answers.
// Served to learners unless the test opts into showing keys.
func (t Test) WithoutAnswerKeys() Test {
	out := t
	out.Questions = make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.CorrectAnswer = nil
		q.CorrectAnswers = nil
		if len(q.Options) > 0 {
			opts := make([]Option, len(q.Options))
			for j, o := range q.Options {
				opts[j] = Option{ID: o.ID, Text: o.Text}
			}
			q.Options = opts
		}
		out.Questions[i] = q
	}
	return out
}

// TestAnswer is the graded outcome for one question within an attempt.
// Points are computed at grading time, never supplied by the client.
type TestAnswer struct {
	QuestionID string      `json:"question_id"`
	Response   interface{} `json:"response,omitempty"`
	Answered   bool        `json:"answered"`
	Correct    bool        `json:"correct"`
	Points     float64     `json:"points"`
	MaxPoints  float64     `json:"max_points"`
}

// TestAttempt is one graded submission of a test by a learner. Score is the
// fraction of points earned in [0,1].
type TestAttempt struct {
	ID          string       `json:"id"`
	TestID      string       `json:"test_id"`
	UserID      string       `json:"user_id"`
	Score       float64      `json:"score"`
	Passed      bool         `json:"passed"`
	Answers     []TestAnswer `json:"answers"`
	SubmittedAt int64        `json:"submitted_at"`
}

// CompletionRecord tracks, per learner and content item, whether and how the
// item was finished. Created on the first progress signal, advanced by later
// ones; Completed never flips back to false and WatchedSec never decreases.
type CompletionRecord struct {
	UserID      string `json:"user_id"`
	ItemID      string `json:"item_id"`
	CourseID    string `json:"course_id"`
	Completed   bool   `json:"completed"`
	CompletedAt *int64 `json:"completed_at,omitempty"`
	WatchedSec  int    `json:"watched_sec,omitempty"`
	DurationSec int    `json:"duration_sec,omitempty"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Enrollment binds a learner to a course or a learning plan (exactly one of
// CourseID/PlanID is set). Progress is a derived percentage and is only ever
// written by recomputation.
type Enrollment struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	CourseID    string  `json:"course_id,omitempty"`
	PlanID      string  `json:"plan_id,omitempty"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	EnrolledAt  int64   `json:"enrolled_at"`
	CompletedAt *int64  `json:"completed_at,omitempty"`
}

// LearningPlan is an ordered bundle of courses. Plan enrollments roll up
// member-course completion; plans have no unlock chain of their own.
type LearningPlan struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	CourseIDs []string `json:"course_ids"`
	CreatedBy string   `json:"created_by,omitempty"`
	CreatedAt int64    `json:"created_at,omitempty"`
}
