package progression

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/coursekit/coursekit-lms/internal/course"
	"github.com/coursekit/coursekit-lms/internal/grading"
)

// Event types appended for the notification/credential collaborator.
const (
	EventInProgress = "enrollment.in_progress"
	EventCompleted  = "enrollment.completed"
	EventApproved   = "enrollment.approved"
)

// EventSink receives status-transition facts. Appends are best-effort: a
// failed append never rolls back the progress write it describes.
type EventSink interface {
	Append(ctx context.Context, typ, key, data string) error
}

type Clock func() time.Time

// Service orchestrates one learner action end to end: resolve the item and
// enrollment, check the item is unlocked, evaluate the signal, persist what
// changed, recompute the enrollment snapshot, and emit transition facts. All
// evaluation is synchronous in-request; the store's conditional updates
// serialize racing writers.
type Service struct {
	Store  course.Store
	Grader grading.Grader
	Events EventSink
	Now    Clock
}

func NewService(store course.Store, grader grading.Grader, events EventSink, now Clock) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{Store: store, Grader: grader, Events: events, Now: now}
}

// ItemProgress is one row of a learner's per-course progress view.
type ItemProgress struct {
	Item        course.ContentItem `json:"item"`
	Completed   bool               `json:"completed"`
	CompletedAt *int64             `json:"completed_at,omitempty"`
	WatchedSec  int                `json:"watched_sec,omitempty"`
	Unlocked    bool               `json:"unlocked"`
}

// ProgressView is the presentation snapshot for (learner, course): the
// enrollment with its derived percentage plus every item's completion and
// unlock state, in course order.
type ProgressView struct {
	Enrollment course.Enrollment `json:"enrollment"`
	Items      []ItemProgress    `json:"items"`
}

// SignalVideoProgress records a playback position for a VIDEO/YOUTUBE item.
// Regressive positions are ignored; crossing the completion threshold
// completes the item and recomputes the enrollment.
func (s *Service) SignalVideoProgress(ctx context.Context, userID, itemID string, positionSec int) (course.CompletionRecord, error) {
	item, err := s.Store.GetItem(ctx, itemID)
	if err != nil {
		return course.CompletionRecord{}, err
	}
	enr, err := s.activeEnrollment(ctx, userID, item.CourseID)
	if err != nil {
		return course.CompletionRecord{}, err
	}
	if err := s.ensureUnlocked(ctx, userID, item); err != nil {
		return course.CompletionRecord{}, err
	}
	return s.apply(ctx, enr, item, VideoProgress{PositionSec: positionSec})
}

// SignalViewed records the explicit viewed acknowledgment for document and
// link items. The first ack completes the item; later ones are no-ops.
func (s *Service) SignalViewed(ctx context.Context, userID, itemID string) (course.CompletionRecord, error) {
	item, err := s.Store.GetItem(ctx, itemID)
	if err != nil {
		return course.CompletionRecord{}, err
	}
	enr, err := s.activeEnrollment(ctx, userID, item.CourseID)
	if err != nil {
		return course.CompletionRecord{}, err
	}
	if err := s.ensureUnlocked(ctx, userID, item); err != nil {
		return course.CompletionRecord{}, err
	}
	return s.apply(ctx, enr, item, ViewedAck{})
}

// SubmitAttempt grades a submission against the full question set, stores
// the attempt, and feeds the verdict through the completion pipeline. The
// stored answers carry engine-computed points only. Attempts against a
// locked TEST item are rejected before anything is graded or stored.
func (s *Service) SubmitAttempt(ctx context.Context, userID, testID string, responses map[string]interface{}) (course.TestAttempt, error) {
	item, err := s.Store.GetItemByTest(ctx, testID)
	if err != nil {
		return course.TestAttempt{}, err
	}
	enr, err := s.activeEnrollment(ctx, userID, item.CourseID)
	if err != nil {
		return course.TestAttempt{}, err
	}
	if err := s.ensureUnlocked(ctx, userID, item); err != nil {
		return course.TestAttempt{}, err
	}
	t, err := s.Store.GetTest(ctx, testID)
	if err != nil {
		return course.TestAttempt{}, err
	}

	now := s.Now().Unix()
	eval := grading.EvaluateAttempt(s.Grader, gradingTest(t), responses)
	attempt := course.TestAttempt{
		ID:          uuid.NewString(),
		TestID:      testID,
		UserID:      userID,
		Score:       eval.Score,
		Passed:      eval.Passed,
		Answers:     toAnswers(eval.Results),
		SubmittedAt: now,
	}
	if err := s.Store.PutAttempt(ctx, attempt); err != nil {
		return course.TestAttempt{}, err
	}
	if _, err := s.apply(ctx, enr, item, AttemptGraded{Passed: eval.Passed}); err != nil {
		return course.TestAttempt{}, err
	}
	return attempt, nil
}

// Progress assembles the per-course view: enrollment snapshot plus every
// item's completion and unlock state.
func (s *Service) Progress(ctx context.Context, userID, courseID string) (ProgressView, error) {
	enr, err := s.Store.GetCourseEnrollment(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return ProgressView{}, course.ErrNotEnrolled
		}
		return ProgressView{}, err
	}
	items, err := s.Store.ListItems(ctx, courseID)
	if err != nil {
		return ProgressView{}, err
	}
	records, err := s.completionMap(ctx, userID, courseID)
	if err != nil {
		return ProgressView{}, err
	}
	unlocked := ComputeUnlocked(items, records)

	view := ProgressView{Enrollment: enr, Items: make([]ItemProgress, 0, len(items))}
	for _, it := range items {
		ip := ItemProgress{Item: it, Unlocked: unlocked[it.ID]}
		if rec, ok := records[it.ID]; ok {
			ip.Completed = rec.Completed
			ip.CompletedAt = rec.CompletedAt
			ip.WatchedSec = rec.WatchedSec
		}
		view.Items = append(view.Items, ip)
	}
	return view, nil
}

// Enroll creates a course enrollment for the learner. Courses that require
// approval start at PENDING_APPROVAL; everything else starts ENROLLED.
// Duplicate enrollment returns course.ErrConflict.
func (s *Service) Enroll(ctx context.Context, userID, courseID string) (course.Enrollment, error) {
	c, err := s.Store.GetCourse(ctx, courseID)
	if err != nil {
		return course.Enrollment{}, err
	}
	status := course.StatusEnrolled
	if c.RequireApproval {
		status = course.StatusPendingApproval
	}
	e := course.Enrollment{
		ID:         uuid.NewString(),
		UserID:     userID,
		CourseID:   courseID,
		Status:     status,
		EnrolledAt: s.Now().Unix(),
	}
	if err := s.Store.CreateEnrollment(ctx, e); err != nil {
		return course.Enrollment{}, err
	}
	return e, nil
}

// EnrollPlan creates a learning-plan enrollment. Member courses are still
// enrolled individually; the plan snapshot rolls their statuses up. The
// fresh enrollment is recomputed once so member courses finished before
// joining the plan count immediately.
func (s *Service) EnrollPlan(ctx context.Context, userID, planID string) (course.Enrollment, error) {
	p, err := s.Store.GetPlan(ctx, planID)
	if err != nil {
		return course.Enrollment{}, err
	}
	e := course.Enrollment{
		ID:         uuid.NewString(),
		UserID:     userID,
		PlanID:     planID,
		Status:     course.StatusEnrolled,
		EnrolledAt: s.Now().Unix(),
	}
	if err := s.Store.CreateEnrollment(ctx, e); err != nil {
		return course.Enrollment{}, err
	}
	return s.refreshPlanEnrollment(ctx, p, e, e.EnrolledAt)
}

// Approve moves a pending enrollment to ENROLLED. This is an external-actor
// transition: recomputation never leaves PENDING_APPROVAL on its own.
func (s *Service) Approve(ctx context.Context, enrollmentID string) (course.Enrollment, error) {
	enr, err := s.Store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return course.Enrollment{}, err
	}
	if err := s.Store.TransitionEnrollment(ctx, enr.ID, course.StatusPendingApproval, course.StatusEnrolled); err != nil {
		return course.Enrollment{}, err
	}
	enr.Status = course.StatusEnrolled
	s.emitTransitions(ctx, enr, []Transition{{
		From: course.StatusPendingApproval, To: course.StatusEnrolled, At: s.Now().Unix(),
	}})
	return enr, nil
}

// Drop marks an enrollment DROPPED. Dropping twice is a no-op; a COMPLETED
// enrollment cannot be dropped.
func (s *Service) Drop(ctx context.Context, enrollmentID string) (course.Enrollment, error) {
	enr, err := s.Store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return course.Enrollment{}, err
	}
	switch enr.Status {
	case course.StatusDropped:
		return enr, nil
	case course.StatusCompleted:
		return course.Enrollment{}, course.ErrConflict
	}
	if err := s.Store.TransitionEnrollment(ctx, enr.ID, enr.Status, course.StatusDropped); err != nil {
		return course.Enrollment{}, err
	}
	enr.Status = course.StatusDropped
	return enr, nil
}

// ensureUnlocked rejects signals against items the sequencer still has
// locked: nothing behind an incomplete required predecessor can be watched,
// acked, or attempted, whatever the client sends.
func (s *Service) ensureUnlocked(ctx context.Context, userID string, item course.ContentItem) error {
	items, err := s.Store.ListItems(ctx, item.CourseID)
	if err != nil {
		return err
	}
	records, err := s.completionMap(ctx, userID, item.CourseID)
	if err != nil {
		return err
	}
	if !ComputeUnlocked(items, records)[item.ID] {
		return course.ErrLocked
	}
	return nil
}

// activeEnrollment resolves the learner's course enrollment and rejects
// states that grant no access to content.
func (s *Service) activeEnrollment(ctx context.Context, userID, courseID string) (course.Enrollment, error) {
	enr, err := s.Store.GetCourseEnrollment(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return course.Enrollment{}, course.ErrNotEnrolled
		}
		return course.Enrollment{}, err
	}
	switch enr.Status {
	case course.StatusPendingApproval, course.StatusDropped:
		return course.Enrollment{}, course.ErrNotEnrolled
	}
	return enr, nil
}

// apply folds one signal into the learner's completion record and, when
// anything advanced, persists it and recomputes the enrollment. Unchanged
// evaluations skip both writes.
func (s *Service) apply(ctx context.Context, enr course.Enrollment, item course.ContentItem, sig Signal) (course.CompletionRecord, error) {
	var prior *course.CompletionRecord
	rec, err := s.Store.GetCompletion(ctx, enr.UserID, item.ID)
	switch {
	case err == nil:
		prior = &rec
	case !errors.Is(err, course.ErrNotFound):
		return course.CompletionRecord{}, err
	}

	now := s.Now().Unix()
	next, changed := EvaluateCompletion(item, sig, prior, now)
	next.UserID = enr.UserID
	if !changed {
		return next, nil
	}
	if err := s.Store.UpsertCompletion(ctx, next); err != nil {
		return course.CompletionRecord{}, err
	}
	if err := s.recompute(ctx, enr, now); err != nil {
		return course.CompletionRecord{}, err
	}
	return next, nil
}

func (s *Service) recompute(ctx context.Context, enr course.Enrollment, now int64) error {
	items, err := s.Store.ListItems(ctx, enr.CourseID)
	if err != nil {
		return err
	}
	records, err := s.completionMap(ctx, enr.UserID, enr.CourseID)
	if err != nil {
		return err
	}
	snap := Recompute(enr, items, records, now)
	if err := s.Store.ApplyProgress(ctx, enr.ID, snap.Progress, snap.Status, snap.CompletedAt); err != nil {
		return err
	}
	s.emitTransitions(ctx, enr, snap.Transitions)
	if len(snap.Transitions) > 0 {
		// A member-course status change is the only thing that can move a
		// plan snapshot.
		return s.cascadePlans(ctx, enr.UserID, enr.CourseID, now)
	}
	return nil
}

func (s *Service) cascadePlans(ctx context.Context, userID, courseID string, now int64) error {
	plans, err := s.Store.ListPlansWithCourse(ctx, courseID)
	if err != nil {
		return err
	}
	for _, p := range plans {
		penr, err := s.Store.GetPlanEnrollment(ctx, userID, p.ID)
		if errors.Is(err, course.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := s.refreshPlanEnrollment(ctx, p, penr, now); err != nil {
			return err
		}
	}
	return nil
}

// refreshPlanEnrollment rolls the learner's member-course statuses up into
// one plan enrollment: recompute the snapshot, persist it, emit any
// transitions. The returned enrollment carries the refreshed state.
func (s *Service) refreshPlanEnrollment(ctx context.Context, p course.LearningPlan, penr course.Enrollment, now int64) (course.Enrollment, error) {
	statuses := make([]string, 0, len(p.CourseIDs))
	for _, cid := range p.CourseIDs {
		ce, err := s.Store.GetCourseEnrollment(ctx, penr.UserID, cid)
		switch {
		case err == nil:
			statuses = append(statuses, ce.Status)
		case errors.Is(err, course.ErrNotFound):
			statuses = append(statuses, "")
		default:
			return course.Enrollment{}, err
		}
	}
	snap := RecomputePlan(penr, statuses, now)
	if err := s.Store.ApplyProgress(ctx, penr.ID, snap.Progress, snap.Status, snap.CompletedAt); err != nil {
		return course.Enrollment{}, err
	}
	s.emitTransitions(ctx, penr, snap.Transitions)
	penr.Status = snap.Status
	penr.Progress = snap.Progress
	penr.CompletedAt = snap.CompletedAt
	return penr, nil
}

type transitionEvent struct {
	EnrollmentID string `json:"enrollment_id"`
	UserID       string `json:"user_id"`
	CourseID     string `json:"course_id,omitempty"`
	PlanID       string `json:"plan_id,omitempty"`
	From         string `json:"from"`
	To           string `json:"to"`
	At           int64  `json:"at"`
}

func (s *Service) emitTransitions(ctx context.Context, enr course.Enrollment, trs []Transition) {
	if s.Events == nil {
		return
	}
	for _, tr := range trs {
		typ := eventType(tr.To)
		if typ == "" {
			continue
		}
		data, _ := json.Marshal(transitionEvent{
			EnrollmentID: enr.ID,
			UserID:       enr.UserID,
			CourseID:     enr.CourseID,
			PlanID:       enr.PlanID,
			From:         tr.From,
			To:           tr.To,
			At:           tr.At,
		})
		_ = s.Events.Append(ctx, typ, enr.ID, string(data))
	}
}

func eventType(to string) string {
	switch to {
	case course.StatusInProgress:
		return EventInProgress
	case course.StatusCompleted:
		return EventCompleted
	case course.StatusEnrolled:
		return EventApproved
	}
	return ""
}

// gradingTest projects a stored test onto the grading engine's view, in
// question order.
func gradingTest(t course.Test) grading.Test {
	qs := make([]course.Question, len(t.Questions))
	copy(qs, t.Questions)
	sort.Slice(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })

	gt := grading.Test{PassingScore: t.PassingScore, Questions: make([]grading.Q, 0, len(qs))}
	for _, q := range qs {
		gq := grading.Q{
			ID:            q.ID,
			Type:          q.Type,
			Points:        q.Points,
			CorrectAnswer: q.CorrectAnswer,
			Accepted:      q.CorrectAnswers,
		}
		for _, o := range q.Options {
			gq.Options = append(gq.Options, grading.Option{ID: o.ID, Text: o.Text, Correct: o.Correct})
		}
		gt.Questions = append(gt.Questions, gq)
	}
	return gt
}

func toAnswers(results []grading.QuestionResult) []course.TestAnswer {
	out := make([]course.TestAnswer, 0, len(results))
	for _, r := range results {
		out = append(out, course.TestAnswer{
			QuestionID: r.QuestionID,
			Response:   r.Response,
			Answered:   r.Answered,
			Correct:    r.Correct,
			Points:     r.Points,
			MaxPoints:  r.MaxPoints,
		})
	}
	return out
}

func (s *Service) completionMap(ctx context.Context, userID, courseID string) (map[string]course.CompletionRecord, error) {
	recs, err := s.Store.ListCompletions(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]course.CompletionRecord, len(recs))
	for _, r := range recs {
		m[r.ItemID] = r
	}
	return m, nil
}
