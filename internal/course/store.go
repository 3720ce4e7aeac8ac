package course

import "context"

type CourseListOpts struct {
	Q         string
	CreatedBy string
	Limit     int
	Offset    int
}

type EnrollmentListOpts struct {
	UserID   string
	CourseID string
	PlanID   string
	Status   string
	Limit    int
	Offset   int
}

type AttemptListOpts struct {
	TestID string
	UserID string
	Passed *bool
	Limit  int
	Offset int
}

type TestListOpts struct {
	Q      string
	Limit  int
	Offset int
}

// Store is the persistence collaborator. Implementations must provide the
// conditional single-row updates the progression invariants rely on:
// UpsertCompletion only ever advances watch time and never clears a
// completed flag or its timestamp, and ApplyProgress stamps completed_at
// only when unset.
type Store interface {
	// Authoring.
	PutCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	ListCourses(ctx context.Context, opts CourseListOpts) ([]CourseSummary, error)
	PutItem(ctx context.Context, it ContentItem) error
	GetItem(ctx context.Context, id string) (ContentItem, error)
	ListItems(ctx context.Context, courseID string) ([]ContentItem, error)
	ItemHasProgress(ctx context.Context, itemID string) (bool, error)
	PutTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error) // full test, including answer keys
	ListTests(ctx context.Context, opts TestListOpts) ([]TestSummary, error)
	GetItemByTest(ctx context.Context, testID string) (ContentItem, error)

	// Learning plans.
	PutPlan(ctx context.Context, p LearningPlan) error
	GetPlan(ctx context.Context, id string) (LearningPlan, error)
	ListPlans(ctx context.Context) ([]LearningPlan, error)
	ListPlansWithCourse(ctx context.Context, courseID string) ([]LearningPlan, error)

	// Enrollment lifecycle.
	CreateEnrollment(ctx context.Context, e Enrollment) error
	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	GetCourseEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
	GetPlanEnrollment(ctx context.Context, userID, planID string) (Enrollment, error)
	ListEnrollments(ctx context.Context, opts EnrollmentListOpts) ([]Enrollment, error)
	// TransitionEnrollment flips status only when the current status matches
	// from; returns ErrConflict otherwise. Used for approve and drop.
	TransitionEnrollment(ctx context.Context, id, from, to string) error
	// ApplyProgress persists a recomputed snapshot. completed_at is stamped
	// only if not already set; DROPPED enrollments are left untouched.
	ApplyProgress(ctx context.Context, id string, progress float64, status string, completedAt *int64) error

	// Completion records.
	GetCompletion(ctx context.Context, userID, itemID string) (CompletionRecord, error)
	ListCompletions(ctx context.Context, userID, courseID string) ([]CompletionRecord, error)
	// UpsertCompletion serializes racing signals per (user, item): watch time
	// only advances, completed only flips to true, completed_at is set once.
	UpsertCompletion(ctx context.Context, rec CompletionRecord) error

	// Attempts.
	PutAttempt(ctx context.Context, a TestAttempt) error
	GetAttempt(ctx context.Context, id string) (TestAttempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]TestAttempt, error)
}
