package progression_test

import (
	"testing"

	"github.com/coursekit/coursekit-lms/internal/course"
	"github.com/coursekit/coursekit-lms/internal/progression"
)

func videoItem(threshold float64, durationSec int, allowSeeking bool) course.ContentItem {
	return course.ContentItem{
		ID:       "v1",
		CourseID: "c1",
		Order:    1,
		Type:     course.ItemVideo,
		Required: true,
		Video: &course.VideoSpec{
			DurationSec:         durationSec,
			CompletionThreshold: threshold,
			AllowSeeking:        allowSeeking,
		},
	}
}

func TestVideoCompletesAtThreshold(t *testing.T) {
	item := videoItem(0.5, 100, false)

	rec, changed := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 49}, nil, 1000)
	if !changed {
		t.Fatalf("first signal must create a record")
	}
	if rec.Completed {
		t.Fatalf("49/100 must not complete at threshold 0.5")
	}
	if rec.WatchedSec != 49 || rec.DurationSec != 100 {
		t.Fatalf("unexpected record %+v", rec)
	}

	rec2, changed := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 50}, &rec, 2000)
	if !changed {
		t.Fatalf("crossing the threshold must change the record")
	}
	if !rec2.Completed {
		t.Fatalf("50/100 must complete at threshold 0.5")
	}
	if rec2.CompletedAt == nil || *rec2.CompletedAt != 2000 {
		t.Fatalf("completed_at = %v, want 2000", rec2.CompletedAt)
	}
}

func TestVideoRegressionIgnored(t *testing.T) {
	item := videoItem(0.5, 100, false)

	rec, _ := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 40}, nil, 1000)

	// Lower watch time than the stored record: ignored, stored value stays.
	rec2, changed := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 30}, &rec, 2000)
	if changed {
		t.Fatalf("regressive signal must not change the record")
	}
	if rec2.WatchedSec != 40 {
		t.Fatalf("watched = %d, want 40", rec2.WatchedSec)
	}
	if rec2.Completed {
		t.Fatalf("item must remain incomplete")
	}
}

func TestVideoSeekingTracksMaxPosition(t *testing.T) {
	item := videoItem(0.9, 200, true)

	rec, _ := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 179}, nil, 1000)
	if rec.Completed {
		t.Fatalf("179/200 is below 0.9")
	}
	// Seek back: position drops, max stays.
	rec, changed := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 20}, &rec, 1500)
	if changed || rec.WatchedSec != 179 {
		t.Fatalf("seek-back must keep max position, got %+v changed=%v", rec, changed)
	}
	rec, _ = progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 185}, &rec, 2000)
	if !rec.Completed {
		t.Fatalf("185/200 >= 0.9 must complete")
	}
}

func TestVideoPositionClampedToDuration(t *testing.T) {
	item := videoItem(1.0, 100, false)
	rec, _ := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 250}, nil, 1000)
	if rec.WatchedSec != 100 {
		t.Fatalf("watched = %d, want clamp to 100", rec.WatchedSec)
	}
	if !rec.Completed {
		t.Fatalf("full watch must complete at threshold 1.0")
	}
}

func TestVideoCompletionIsMonotonic(t *testing.T) {
	item := videoItem(0.5, 100, false)
	rec, _ := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 60}, nil, 1000)
	if !rec.Completed {
		t.Fatalf("setup: expected completion")
	}

	// Further signals can advance watch time but never clear the flag or
	// move the stamp.
	rec2, changed := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 80}, &rec, 2000)
	if !changed {
		t.Fatalf("watch time advance must be recorded")
	}
	if !rec2.Completed || *rec2.CompletedAt != 1000 {
		t.Fatalf("completion must be monotonic, got %+v", rec2)
	}
	if rec2.WatchedSec != 80 {
		t.Fatalf("watched = %d, want 80", rec2.WatchedSec)
	}
}

func TestVideoMalformedSignals(t *testing.T) {
	item := videoItem(0.5, 100, false)

	// Wrong signal kind for the item type: no record is created.
	if _, changed := progression.EvaluateCompletion(item, progression.ViewedAck{}, nil, 1000); changed {
		t.Fatalf("viewed ack on a video must be a no-op")
	}
	// Negative position.
	if _, changed := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: -5}, nil, 1000); changed {
		t.Fatalf("negative position must be a no-op")
	}
	// Item missing its video spec: ignore rather than panic.
	broken := item
	broken.Video = nil
	if _, changed := progression.EvaluateCompletion(broken, progression.VideoProgress{PositionSec: 10}, nil, 1000); changed {
		t.Fatalf("video item without spec must be a no-op")
	}
}

func TestViewedAckCompletesOnce(t *testing.T) {
	for _, typ := range []string{course.ItemPDF, course.ItemPPT, course.ItemHTML, course.ItemExternal} {
		t.Run(typ, func(t *testing.T) {
			item := course.ContentItem{ID: "d1", CourseID: "c1", Order: 1, Type: typ, Required: true}

			rec, changed := progression.EvaluateCompletion(item, progression.ViewedAck{}, nil, 1000)
			if !changed || !rec.Completed {
				t.Fatalf("first ack must complete, got %+v changed=%v", rec, changed)
			}
			if rec.CompletedAt == nil || *rec.CompletedAt != 1000 {
				t.Fatalf("completed_at = %v, want 1000", rec.CompletedAt)
			}

			rec2, changed := progression.EvaluateCompletion(item, progression.ViewedAck{}, &rec, 2000)
			if changed {
				t.Fatalf("second ack must be an idempotent no-op")
			}
			if *rec2.CompletedAt != 1000 {
				t.Fatalf("completed_at moved to %d", *rec2.CompletedAt)
			}

			// Video progress against a document: ignored.
			if _, changed := progression.EvaluateCompletion(item, progression.VideoProgress{PositionSec: 10}, &rec, 3000); changed {
				t.Fatalf("video signal on %s must be a no-op", typ)
			}
		})
	}
}

func TestTestItemCompletesOnPass(t *testing.T) {
	item := course.ContentItem{ID: "t1", CourseID: "c1", Order: 1, Type: course.ItemTest, Required: true, TestID: "test-1"}

	// Failed attempt creates the record but leaves it incomplete.
	rec, changed := progression.EvaluateCompletion(item, progression.AttemptGraded{Passed: false}, nil, 1000)
	if !changed {
		t.Fatalf("first attempt must create a record")
	}
	if rec.Completed {
		t.Fatalf("failed attempt must not complete")
	}

	// Another failed attempt: nothing to advance.
	if _, changed := progression.EvaluateCompletion(item, progression.AttemptGraded{Passed: false}, &rec, 2000); changed {
		t.Fatalf("repeat failure must be a no-op")
	}

	rec2, changed := progression.EvaluateCompletion(item, progression.AttemptGraded{Passed: true}, &rec, 3000)
	if !changed || !rec2.Completed {
		t.Fatalf("passing attempt must complete, got %+v", rec2)
	}
	if *rec2.CompletedAt != 3000 {
		t.Fatalf("completed_at = %d, want 3000", *rec2.CompletedAt)
	}

	// A later failed attempt must not flip completion back.
	rec3, changed := progression.EvaluateCompletion(item, progression.AttemptGraded{Passed: false}, &rec2, 4000)
	if changed || !rec3.Completed || *rec3.CompletedAt != 3000 {
		t.Fatalf("completion must be monotonic, got %+v changed=%v", rec3, changed)
	}
}

func TestUnknownItemTypeIgnored(t *testing.T) {
	item := course.ContentItem{ID: "x1", CourseID: "c1", Type: "SCORM"}
	if _, changed := progression.EvaluateCompletion(item, progression.ViewedAck{}, nil, 1000); changed {
		t.Fatalf("unknown item type must be a no-op")
	}
}
