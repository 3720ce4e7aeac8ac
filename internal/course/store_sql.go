package course

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SQLStore implements Store over database/sql. The same statements run on
// sqlite (modernc) and postgres (pgx stdlib): $N placeholders, integer
// booleans, unix-second timestamps. All monotonicity guarantees live in the
// statements themselves so concurrent writers cannot regress a row.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// --- Courses & items ---

func (s *SQLStore) PutCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO courses (id,title,description,require_approval,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description, require_approval=EXCLUDED.require_approval`,
		c.ID, c.Title, c.Description, boolToInt(c.RequireApproval), c.CreatedBy, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("put course: %w", err)
	}
	return nil
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,description,require_approval,created_by,created_at FROM courses WHERE id=$1`, id)
	var c Course
	var approval int
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &approval, &c.CreatedBy, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, ErrNotFound
		}
		return Course{}, err
	}
	c.RequireApproval = intToBool(approval)
	return c, nil
}

func (s *SQLStore) ListCourses(ctx context.Context, opts CourseListOpts) ([]CourseSummary, error) {
	q := `SELECT c.id, c.title, COUNT(i.id)
	        FROM courses c
	        LEFT JOIN content_items i ON i.course_id = c.id
	       WHERE 1=1`
	args := []interface{}{}
	if opts.Q != "" {
		args = append(args, "%"+strings.ToLower(opts.Q)+"%")
		q += ` AND LOWER(c.title) LIKE $` + strconv.Itoa(len(args))
	}
	if opts.CreatedBy != "" {
		args = append(args, opts.CreatedBy)
		q += ` AND c.created_by = $` + strconv.Itoa(len(args))
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, opts.Offset)
	q += ` GROUP BY c.id, c.title, c.created_at ORDER BY c.created_at DESC, c.id LIMIT $` +
		strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CourseSummary{}
	for rows.Next() {
		var cs CourseSummary
		if err := rows.Scan(&cs.ID, &cs.Title, &cs.ItemCount); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutItem(ctx context.Context, it ContentItem) error {
	var videoJSON sql.NullString
	if it.Video != nil {
		buf, err := json.Marshal(it.Video)
		if err != nil {
			return err
		}
		videoJSON = sql.NullString{String: string(buf), Valid: true}
	}
	var testID sql.NullString
	if it.TestID != "" {
		testID = sql.NullString{String: it.TestID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO content_items (id,course_id,ord,type,title,required,url,video_json,test_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET ord=EXCLUDED.ord, type=EXCLUDED.type, title=EXCLUDED.title,
			required=EXCLUDED.required, url=EXCLUDED.url, video_json=EXCLUDED.video_json, test_id=EXCLUDED.test_id`,
		it.ID, it.CourseID, it.Order, it.Type, it.Title, boolToInt(it.Required), it.URL, videoJSON, testID)
	if err != nil {
		// UNIQUE(course_id, ord): two items cannot share a sequence slot.
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

const itemColumns = `id,course_id,ord,type,title,required,url,video_json,test_id`

func scanItem(row interface{ Scan(...interface{}) error }) (ContentItem, error) {
	var it ContentItem
	var required int
	var videoJSON, testID sql.NullString
	if err := row.Scan(&it.ID, &it.CourseID, &it.Order, &it.Type, &it.Title, &required, &it.URL, &videoJSON, &testID); err != nil {
		return ContentItem{}, err
	}
	it.Required = intToBool(required)
	if videoJSON.Valid && videoJSON.String != "" {
		var v VideoSpec
		if err := json.Unmarshal([]byte(videoJSON.String), &v); err != nil {
			return ContentItem{}, fmt.Errorf("decode video spec for item %s: %w", it.ID, err)
		}
		it.Video = &v
	}
	if testID.Valid {
		it.TestID = testID.String
	}
	return it, nil
}

func (s *SQLStore) GetItem(ctx context.Context, id string) (ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM content_items WHERE id=$1`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ContentItem{}, ErrNotFound
	}
	return it, err
}

func (s *SQLStore) ListItems(ctx context.Context, courseID string) ([]ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM content_items WHERE course_id=$1 ORDER BY ord`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ContentItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLStore) ItemHasProgress(ctx context.Context, itemID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM completion_records WHERE item_id=$1)`, itemID).Scan(&ok)
	return ok, err
}

// --- Tests ---

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	qj, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tests (id,title,passing_score,show_correct_answers,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, passing_score=EXCLUDED.passing_score,
			show_correct_answers=EXCLUDED.show_correct_answers, questions_json=EXCLUDED.questions_json`,
		t.ID, t.Title, t.PassingScore, boolToInt(t.ShowCorrectAnswers), string(qj), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("put test: %w", err)
	}
	return nil
}

// GetTest returns the full test including answer keys; callers shape what a
// learner may see.
func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,passing_score,show_correct_answers,questions_json,created_at FROM tests WHERE id=$1`, id)
	var t Test
	var show int
	var qjson string
	if err := row.Scan(&t.ID, &t.Title, &t.PassingScore, &show, &qjson, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrNotFound
		}
		return Test{}, err
	}
	t.ShowCorrectAnswers = intToBool(show)
	if err := json.Unmarshal([]byte(qjson), &t.Questions); err != nil {
		return Test{}, fmt.Errorf("decode questions for test %s: %w", id, err)
	}
	return t, nil
}

func (s *SQLStore) ListTests(ctx context.Context, opts TestListOpts) ([]TestSummary, error) {
	q := `SELECT id,title,passing_score,questions_json,created_at FROM tests WHERE 1=1`
	args := []interface{}{}
	if opts.Q != "" {
		args = append(args, "%"+strings.ToLower(opts.Q)+"%")
		q += ` AND LOWER(title) LIKE $` + strconv.Itoa(len(args))
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, opts.Offset)
	q += ` ORDER BY created_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TestSummary{}
	for rows.Next() {
		var ts TestSummary
		var qjson string
		if err := rows.Scan(&ts.ID, &ts.Title, &ts.PassingScore, &qjson, &ts.CreatedAt); err != nil {
			return nil, err
		}
		var qs []Question
		if err := json.Unmarshal([]byte(qjson), &qs); err != nil {
			return nil, fmt.Errorf("decode questions for test %s: %w", ts.ID, err)
		}
		ts.QuestionCount = len(qs)
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetItemByTest(ctx context.Context, testID string) (ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM content_items WHERE test_id=$1`, testID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ContentItem{}, ErrNotFound
	}
	return it, err
}

// --- Learning plans ---

func (s *SQLStore) PutPlan(ctx context.Context, p LearningPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `INSERT INTO learning_plans (id,title,created_by,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title`,
		p.ID, p.Title, p.CreatedBy, p.CreatedAt); err != nil {
		return fmt.Errorf("put plan: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM learning_plan_courses WHERE plan_id=$1`, p.ID); err != nil {
		return err
	}
	for i, courseID := range p.CourseIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO learning_plan_courses (plan_id,course_id,ord) VALUES ($1,$2,$3)`,
			p.ID, courseID, i+1); err != nil {
			return fmt.Errorf("put plan course %s: %w", courseID, err)
		}
	}
	err = tx.Commit()
	return err
}

func (s *SQLStore) GetPlan(ctx context.Context, id string) (LearningPlan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,created_by,created_at FROM learning_plans WHERE id=$1`, id)
	var p LearningPlan
	if err := row.Scan(&p.ID, &p.Title, &p.CreatedBy, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LearningPlan{}, ErrNotFound
		}
		return LearningPlan{}, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT course_id FROM learning_plan_courses WHERE plan_id=$1 ORDER BY ord`, id)
	if err != nil {
		return LearningPlan{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return LearningPlan{}, err
		}
		p.CourseIDs = append(p.CourseIDs, cid)
	}
	return p, rows.Err()
}

func (s *SQLStore) ListPlans(ctx context.Context) ([]LearningPlan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM learning_plans ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	return s.plansByID(ctx, ids)
}

func (s *SQLStore) ListPlansWithCourse(ctx context.Context, courseID string) ([]LearningPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT plan_id FROM learning_plan_courses WHERE course_id=$1`, courseID)
	if err != nil {
		return nil, err
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	return s.plansByID(ctx, ids)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) plansByID(ctx context.Context, ids []string) ([]LearningPlan, error) {
	out := make([]LearningPlan, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPlan(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// --- Enrollments ---

func (s *SQLStore) CreateEnrollment(ctx context.Context, e Enrollment) error {
	var courseID, planID sql.NullString
	if e.CourseID != "" {
		courseID = sql.NullString{String: e.CourseID, Valid: true}
	}
	if e.PlanID != "" {
		planID = sql.NullString{String: e.PlanID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO enrollments (id,user_id,course_id,plan_id,status,progress,enrolled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.UserID, courseID, planID, e.Status, e.Progress, e.EnrolledAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

const enrollmentColumns = `id,user_id,course_id,plan_id,status,progress,enrolled_at,completed_at`

func scanEnrollment(row interface{ Scan(...interface{}) error }) (Enrollment, error) {
	var e Enrollment
	var courseID, planID sql.NullString
	var completedAt sql.NullInt64
	if err := row.Scan(&e.ID, &e.UserID, &courseID, &planID, &e.Status, &e.Progress, &e.EnrolledAt, &completedAt); err != nil {
		return Enrollment{}, err
	}
	if courseID.Valid {
		e.CourseID = courseID.String
	}
	if planID.Valid {
		e.PlanID = planID.String
	}
	if completedAt.Valid {
		v := completedAt.Int64
		e.CompletedAt = &v
	}
	return e, nil
}

func (s *SQLStore) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id=$1`, id)
	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, ErrNotFound
	}
	return e, err
}

func (s *SQLStore) GetCourseEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE user_id=$1 AND course_id=$2`, userID, courseID)
	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, ErrNotFound
	}
	return e, err
}

func (s *SQLStore) GetPlanEnrollment(ctx context.Context, userID, planID string) (Enrollment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE user_id=$1 AND plan_id=$2`, userID, planID)
	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, ErrNotFound
	}
	return e, err
}

func (s *SQLStore) ListEnrollments(ctx context.Context, opts EnrollmentListOpts) ([]Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE 1=1`
	args := []interface{}{}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		q += ` AND user_id=$` + strconv.Itoa(len(args))
	}
	if opts.CourseID != "" {
		args = append(args, opts.CourseID)
		q += ` AND course_id=$` + strconv.Itoa(len(args))
	}
	if opts.PlanID != "" {
		args = append(args, opts.PlanID)
		q += ` AND plan_id=$` + strconv.Itoa(len(args))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		q += ` AND status=$` + strconv.Itoa(len(args))
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, opts.Offset)
	q += ` ORDER BY enrolled_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) TransitionEnrollment(ctx context.Context, id, from, to string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE enrollments SET status=$1 WHERE id=$2 AND status=$3`, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ApplyProgress writes a recomputed snapshot. completed_at is stamped at most
// once (COALESCE keeps the first value) and a concurrently DROPPED enrollment
// is never resurrected.
func (s *SQLStore) ApplyProgress(ctx context.Context, id string, progress float64, status string, completedAt *int64) error {
	var stamp sql.NullInt64
	if completedAt != nil {
		stamp = sql.NullInt64{Int64: *completedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `UPDATE enrollments
		SET progress=$1, status=$2, completed_at=COALESCE(completed_at,$3)
		WHERE id=$4 AND status <> 'DROPPED'`,
		progress, status, stamp, id)
	return err
}

// --- Completion records ---

func (s *SQLStore) GetCompletion(ctx context.Context, userID, itemID string) (CompletionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT user_id,item_id,course_id,completed,completed_at,watched_sec,duration_sec,updated_at
		FROM completion_records WHERE user_id=$1 AND item_id=$2`, userID, itemID)
	rec, err := scanCompletion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CompletionRecord{}, ErrNotFound
	}
	return rec, err
}

func (s *SQLStore) ListCompletions(ctx context.Context, userID, courseID string) ([]CompletionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id,item_id,course_id,completed,completed_at,watched_sec,duration_sec,updated_at
		FROM completion_records WHERE user_id=$1 AND course_id=$2`, userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CompletionRecord{}
	for rows.Next() {
		rec, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanCompletion(row interface{ Scan(...interface{}) error }) (CompletionRecord, error) {
	var rec CompletionRecord
	var completed int
	var completedAt sql.NullInt64
	if err := row.Scan(&rec.UserID, &rec.ItemID, &rec.CourseID, &completed, &completedAt, &rec.WatchedSec, &rec.DurationSec, &rec.UpdatedAt); err != nil {
		return CompletionRecord{}, err
	}
	rec.Completed = intToBool(completed)
	if completedAt.Valid {
		v := completedAt.Int64
		rec.CompletedAt = &v
	}
	return rec, nil
}

// UpsertCompletion is the single-row conditional update that serializes
// racing signals: watch time only ever grows, completed only ever flips to
// true, and completed_at keeps its first value. A stale or replayed signal
// lands as a no-op.
func (s *SQLStore) UpsertCompletion(ctx context.Context, rec CompletionRecord) error {
	var stamp sql.NullInt64
	if rec.CompletedAt != nil {
		stamp = sql.NullInt64{Int64: *rec.CompletedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO completion_records
		(user_id,item_id,course_id,completed,completed_at,watched_sec,duration_sec,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (user_id,item_id) DO UPDATE SET
			watched_sec = CASE WHEN EXCLUDED.watched_sec > completion_records.watched_sec
				THEN EXCLUDED.watched_sec ELSE completion_records.watched_sec END,
			duration_sec = CASE WHEN EXCLUDED.duration_sec > 0
				THEN EXCLUDED.duration_sec ELSE completion_records.duration_sec END,
			completed = CASE WHEN completion_records.completed = 1
				THEN 1 ELSE EXCLUDED.completed END,
			completed_at = COALESCE(completion_records.completed_at, EXCLUDED.completed_at),
			updated_at = EXCLUDED.updated_at`,
		rec.UserID, rec.ItemID, rec.CourseID, boolToInt(rec.Completed), stamp, rec.WatchedSec, rec.DurationSec, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert completion: %w", err)
	}
	return nil
}

// --- Attempts ---

func (s *SQLStore) PutAttempt(ctx context.Context, a TestAttempt) error {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO test_attempts (id,test_id,user_id,score,passed,answers_json,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.TestID, a.UserID, a.Score, boolToInt(a.Passed), string(aj), a.SubmittedAt)
	if err != nil {
		return fmt.Errorf("put attempt: %w", err)
	}
	return nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (TestAttempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,test_id,user_id,score,passed,answers_json,submitted_at FROM test_attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TestAttempt{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]TestAttempt, error) {
	q := `SELECT id,test_id,user_id,score,passed,answers_json,submitted_at FROM test_attempts WHERE 1=1`
	args := []interface{}{}
	if opts.TestID != "" {
		args = append(args, opts.TestID)
		q += ` AND test_id=$` + strconv.Itoa(len(args))
	}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		q += ` AND user_id=$` + strconv.Itoa(len(args))
	}
	if opts.Passed != nil {
		args = append(args, boolToInt(*opts.Passed))
		q += ` AND passed=$` + strconv.Itoa(len(args))
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, opts.Offset)
	q += ` ORDER BY submitted_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TestAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttempt(row interface{ Scan(...interface{}) error }) (TestAttempt, error) {
	var a TestAttempt
	var passed int
	var ajson string
	if err := row.Scan(&a.ID, &a.TestID, &a.UserID, &a.Score, &passed, &ajson, &a.SubmittedAt); err != nil {
		return TestAttempt{}, err
	}
	a.Passed = intToBool(passed)
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		return TestAttempt{}, fmt.Errorf("decode answers for attempt %s: %w", a.ID, err)
	}
	return a, nil
}

// --- helpers ---

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool { return i != 0 }

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
