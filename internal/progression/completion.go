package progression

import "github.com/coursekit/coursekit-lms/internal/course"

// Signal is one learner progress event against a content item. The set of
// kinds is closed: VideoProgress for the video item types, ViewedAck for
// documents and links, AttemptGraded for tests. A signal of the wrong kind
// for an item's type is an ignored no-op, not an error.
type Signal interface{ isSignal() }

// VideoProgress reports how far a learner has gotten through a video, in
// seconds. Without seeking this is cumulative watch time; with seeking it is
// the furthest position reached. Either way completion tracks the maximum.
type VideoProgress struct {
	PositionSec int
}

// ViewedAck is the explicit "viewed" acknowledgment for PDF/PPT/HTML/EXTERNAL
// items. The first one completes the item permanently.
type ViewedAck struct{}

// AttemptGraded carries the verdict of a graded test attempt.
type AttemptGraded struct {
	Passed bool
}

func (VideoProgress) isSignal() {}
func (ViewedAck) isSignal()     {}
func (AttemptGraded) isSignal() {}

// EvaluateCompletion folds one progress signal into the learner's completion
// record for a content item. prior is nil when no record exists yet. The
// returned record carries the updated state; changed reports whether anything
// advanced. Regressive or wrong-kind signals come back unchanged so callers
// can skip the write and the downstream recompute.
//
// Completion is monotonic: once Completed is true it stays true and
// CompletedAt keeps its first value. Watch time never decreases.
func EvaluateCompletion(item course.ContentItem, sig Signal, prior *course.CompletionRecord, now int64) (course.CompletionRecord, bool) {
	var rec course.CompletionRecord
	if prior != nil {
		rec = *prior
	}
	rec.ItemID = item.ID
	rec.CourseID = item.CourseID

	changed := false
	switch item.Type {
	case course.ItemVideo, course.ItemYouTube:
		v, ok := sig.(VideoProgress)
		if !ok || item.Video == nil || v.PositionSec < 0 {
			return rec, false
		}
		if prior == nil {
			changed = true
		}
		if d := item.Video.DurationSec; d != rec.DurationSec {
			rec.DurationSec = d
			changed = true
		}
		pos := v.PositionSec
		if rec.DurationSec > 0 && pos > rec.DurationSec {
			pos = rec.DurationSec
		}
		if pos > rec.WatchedSec {
			rec.WatchedSec = pos
			changed = true
		}
		if !rec.Completed && rec.DurationSec > 0 &&
			float64(rec.WatchedSec)/float64(rec.DurationSec) >= item.Video.CompletionThreshold {
			rec.Completed = true
			at := now
			rec.CompletedAt = &at
			changed = true
		}

	case course.ItemPDF, course.ItemPPT, course.ItemHTML, course.ItemExternal:
		if _, ok := sig.(ViewedAck); !ok {
			return rec, false
		}
		if rec.Completed {
			return rec, false
		}
		rec.Completed = true
		at := now
		rec.CompletedAt = &at
		changed = true

	case course.ItemTest:
		g, ok := sig.(AttemptGraded)
		if !ok {
			return rec, false
		}
		if rec.Completed {
			return rec, false
		}
		if prior == nil {
			changed = true
		}
		if g.Passed {
			rec.Completed = true
			at := now
			rec.CompletedAt = &at
			changed = true
		}

	default:
		return rec, false
	}

	if changed {
		rec.UpdatedAt = now
	}
	return rec, changed
}
