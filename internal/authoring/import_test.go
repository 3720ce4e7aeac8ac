package authoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit-lms/internal/course"
)

// recordingStore captures what Import writes; everything else panics unused.
type recordingStore struct {
	course.Store
	courses []course.Course
	tests   []course.Test
	items   []course.ContentItem
}

func (r *recordingStore) PutCourse(ctx context.Context, c course.Course) error {
	r.courses = append(r.courses, c)
	return nil
}

func (r *recordingStore) PutTest(ctx context.Context, t course.Test) error {
	r.tests = append(r.tests, t)
	return nil
}

func (r *recordingStore) PutItem(ctx context.Context, it course.ContentItem) error {
	r.items = append(r.items, it)
	return nil
}

func TestImport(t *testing.T) {
	p, err := ParsePack([]byte(samplePack))
	require.NoError(t, err)

	st := &recordingStore{}
	now := time.Unix(1700000000, 0)
	im := NewImporter(st, func() time.Time { return now })

	c, err := im.Import(context.Background(), p, "instructor-1")
	require.NoError(t, err)

	require.Len(t, st.courses, 1)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Intro to Go", c.Title)
	assert.Equal(t, "instructor-1", c.CreatedBy)
	assert.Equal(t, now.Unix(), c.CreatedAt)

	// Tests land before items so the FK they carry already resolves.
	require.Len(t, st.tests, 1)
	assert.Equal(t, "checkpoint", st.tests[0].ID) // authored id kept
	assert.NotEmpty(t, st.tests[0].Questions[0].ID)

	require.Len(t, st.items, 3)
	for i, it := range st.items {
		assert.Equal(t, c.ID, it.CourseID)
		assert.Equal(t, i+1, it.Order)
		assert.NotEmpty(t, it.ID)
	}
	assert.Equal(t, "checkpoint", st.items[2].TestID)
}

func TestImport_RejectsInvalidPack(t *testing.T) {
	p, err := ParsePack([]byte(samplePack))
	require.NoError(t, err)
	p.Tests[0].Questions = nil

	st := &recordingStore{}
	im := NewImporter(st, nil)

	_, err = im.Import(context.Background(), p, "instructor-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid course pack")
	assert.Contains(t, err.Error(), "questions must not be empty")

	// Nothing persisted.
	assert.Empty(t, st.courses)
	assert.Empty(t, st.tests)
	assert.Empty(t, st.items)
}
