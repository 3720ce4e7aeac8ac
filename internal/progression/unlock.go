package progression

import (
	"sort"

	"github.com/coursekit/coursekit-lms/internal/course"
)

// ComputeUnlocked returns, for each content item of a course, whether it is
// currently accessible to the learner. Items are walked in Order. The first
// item is always unlocked; every later item is unlocked when the chain up to
// it is intact and its immediate predecessor is either non-required or
// completed. One incomplete required item therefore blocks everything after
// it, while a non-required item never blocks its successors regardless of
// its own completion. Items the learner already completed stay unlocked no
// matter what happens earlier in the chain.
//
// The function is pure: it is recomputed per request from the course
// snapshot and the learner's completion records, never cached.
func ComputeUnlocked(items []course.ContentItem, records map[string]course.CompletionRecord) map[string]bool {
	unlocked := make(map[string]bool, len(items))
	if len(items) == 0 {
		return unlocked
	}

	ordered := make([]course.ContentItem, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	chain := true
	for i, it := range ordered {
		if i > 0 {
			prev := ordered[i-1]
			chain = chain && (!prev.Required || isCompleted(records, prev.ID))
		}
		unlocked[it.ID] = chain || isCompleted(records, it.ID)
	}
	return unlocked
}

func isCompleted(records map[string]course.CompletionRecord, itemID string) bool {
	rec, ok := records[itemID]
	return ok && rec.Completed
}
