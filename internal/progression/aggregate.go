package progression

import "github.com/coursekit/coursekit-lms/internal/course"

// Transition is one status change produced by a recomputation, emitted as a
// fact for the notification/credential collaborator. The engine itself never
// issues credentials.
type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
	At   int64  `json:"at"`
}

// Snapshot is the outcome of recomputing an enrollment: the derived progress
// percentage, the resulting status, the completion stamp, and the transition
// facts that occurred.
type Snapshot struct {
	Progress    float64
	Status      string
	CompletedAt *int64
	Transitions []Transition
}

// Recompute derives overall course progress from per-item completion and
// applies the status rules: ENROLLED moves to IN_PROGRESS once any signal has
// been recorded, IN_PROGRESS moves to COMPLETED at 100% and stamps
// CompletedAt with the triggering signal's time. Recomputing a COMPLETED
// enrollment refreshes the percentage but never changes status or stamp.
// PENDING_APPROVAL and DROPPED are external-actor states and pass through
// untouched.
func Recompute(enr course.Enrollment, items []course.ContentItem, records map[string]course.CompletionRecord, now int64) Snapshot {
	snap := Snapshot{
		Progress:    CourseProgress(items, records),
		Status:      enr.Status,
		CompletedAt: enr.CompletedAt,
	}

	switch enr.Status {
	case course.StatusPendingApproval, course.StatusDropped, course.StatusCompleted:
		return snap
	}

	status := enr.Status
	if status == course.StatusEnrolled && len(records) > 0 {
		snap.Transitions = append(snap.Transitions, Transition{From: status, To: course.StatusInProgress, At: now})
		status = course.StatusInProgress
	}
	if status == course.StatusInProgress && snap.Progress >= 100 {
		snap.Transitions = append(snap.Transitions, Transition{From: status, To: course.StatusCompleted, At: now})
		status = course.StatusCompleted
		if snap.CompletedAt == nil {
			at := now
			snap.CompletedAt = &at
		}
	}
	snap.Status = status
	return snap
}

// CourseProgress is completed required items over total required items, as a
// percentage. A course with no required items counts as 100% once at least
// one of its items has been completed and 0% before that; an empty course is
// always 0%.
func CourseProgress(items []course.ContentItem, records map[string]course.CompletionRecord) float64 {
	var total, done int
	anyCompleted := false
	for _, it := range items {
		rec, ok := records[it.ID]
		if ok && rec.Completed {
			anyCompleted = true
		}
		if !it.Required {
			continue
		}
		total++
		if ok && rec.Completed {
			done++
		}
	}
	if total == 0 {
		if len(items) > 0 && anyCompleted {
			return 100
		}
		return 0
	}
	return float64(done) / float64(total) * 100
}

// RecomputePlan rolls a learner's member-course enrollments up into a plan
// enrollment. memberStatuses holds one status per member course, empty string
// where the learner has no enrollment yet. A member counts as done only when
// its own enrollment is COMPLETED. Status rules match Recompute; an empty
// plan can never complete.
func RecomputePlan(enr course.Enrollment, memberStatuses []string, now int64) Snapshot {
	snap := Snapshot{Status: enr.Status, CompletedAt: enr.CompletedAt}

	total := len(memberStatuses)
	done := 0
	started := false
	for _, st := range memberStatuses {
		switch st {
		case course.StatusCompleted:
			done++
			started = true
		case course.StatusInProgress:
			started = true
		}
	}
	if total > 0 {
		snap.Progress = float64(done) / float64(total) * 100
	}

	switch enr.Status {
	case course.StatusPendingApproval, course.StatusDropped, course.StatusCompleted:
		return snap
	}

	status := enr.Status
	if status == course.StatusEnrolled && started {
		snap.Transitions = append(snap.Transitions, Transition{From: status, To: course.StatusInProgress, At: now})
		status = course.StatusInProgress
	}
	if status == course.StatusInProgress && total > 0 && snap.Progress >= 100 {
		snap.Transitions = append(snap.Transitions, Transition{From: status, To: course.StatusCompleted, At: now})
		status = course.StatusCompleted
		if snap.CompletedAt == nil {
			at := now
			snap.CompletedAt = &at
		}
	}
	snap.Status = status
	return snap
}
