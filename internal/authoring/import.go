package authoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coursekit/coursekit-lms/internal/course"
)

// Importer validates course packs and persists them. Authored IDs are kept
// when present so re-importing an amended pack upserts in place; missing IDs
// are generated.
type Importer struct {
	Store course.Store
	Now   func() time.Time
}

func NewImporter(st course.Store, now func() time.Time) *Importer {
	if now == nil {
		now = time.Now
	}
	return &Importer{Store: st, Now: now}
}

// Import writes the pack's course, tests, and items. Tests go in before the
// items that reference them. Returns the persisted course.
func (im *Importer) Import(ctx context.Context, p *Pack, createdBy string) (course.Course, error) {
	if errs := ValidatePack(p); len(errs) > 0 {
		return course.Course{}, fmt.Errorf("invalid course pack: %w", errors.Join(errs...))
	}

	now := im.Now().Unix()

	c := p.Course.toCourse()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedBy = createdBy
	c.CreatedAt = now
	if err := im.Store.PutCourse(ctx, c); err != nil {
		return course.Course{}, err
	}

	// Pack-local test ids may be authored shorthands; map each to the id the
	// test is stored under.
	testIDs := make(map[string]string, len(p.Tests))
	for _, pt := range p.Tests {
		t := pt.toTest()
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.CreatedAt = now
		for i := range t.Questions {
			if t.Questions[i].ID == "" {
				t.Questions[i].ID = uuid.NewString()
			}
		}
		if err := im.Store.PutTest(ctx, t); err != nil {
			return course.Course{}, fmt.Errorf("import test %s: %w", pt.ID, err)
		}
		testIDs[pt.ID] = t.ID
	}

	for i, pi := range p.Items {
		it := pi.toItem(i)
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.CourseID = c.ID
		if it.TestID != "" {
			it.TestID = testIDs[it.TestID]
		}
		if err := im.Store.PutItem(ctx, it); err != nil {
			return course.Course{}, fmt.Errorf("import item %d: %w", i+1, err)
		}
	}

	return c, nil
}
