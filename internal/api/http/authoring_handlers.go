package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coursekit/coursekit-lms/internal/authoring"
	authmw "github.com/coursekit/coursekit-lms/internal/auth/middleware"
	"github.com/coursekit/coursekit-lms/internal/course"
)

// Handlers only; routes remain in main.go

type courseReq struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	RequireApproval bool   `json:"require_approval"`
}

func CreateCourseHandler(st course.Store, now nowFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req courseReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		c := course.Course{
			ID:              uuid.NewString(),
			Title:           strings.TrimSpace(req.Title),
			Description:     req.Description,
			RequireApproval: req.RequireApproval,
			CreatedBy:       authmw.SubjectFromContext(r.Context()),
			CreatedAt:       now().Unix(),
		}
		if errs := authoring.ValidateCourse(c); len(errs) > 0 {
			validationError(w, errs)
			return
		}
		if err := st.PutCourse(r.Context(), c); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func UpdateCourseHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := st.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
		if err != nil {
			storeError(w, err)
			return
		}
		var req courseReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		c.Title = strings.TrimSpace(req.Title)
		c.Description = req.Description
		c.RequireApproval = req.RequireApproval
		if errs := authoring.ValidateCourse(c); len(errs) > 0 {
			validationError(w, errs)
			return
		}
		if err := st.PutCourse(r.Context(), c); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

type itemReq struct {
	Order    int               `json:"order"`
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Required bool              `json:"required"`
	URL      string            `json:"url"`
	Video    *course.VideoSpec `json:"video"`
	TestID   string            `json:"test_id"`
}

func (req itemReq) toItem(id, courseID string) course.ContentItem {
	return course.ContentItem{
		ID:       id,
		CourseID: courseID,
		Order:    req.Order,
		Type:     req.Type,
		Title:    strings.TrimSpace(req.Title),
		Required: req.Required,
		URL:      req.URL,
		Video:    req.Video,
		TestID:   req.TestID,
	}
}

// testBoundElsewhere reports whether testID is already bound to a TEST item
// other than itemID. Tests are one-to-one with their item, so a second
// binding is rejected before the write.
func testBoundElsewhere(r *http.Request, st course.Store, testID, itemID string) (bool, error) {
	other, err := st.GetItemByTest(r.Context(), testID)
	if errors.Is(err, course.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return other.ID != itemID, nil
}

// CreateItemHandler appends a content item to a course. The order slot must
// be free; a taken slot answers 409, as does a test already bound elsewhere.
func CreateItemHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		if _, err := st.GetCourse(r.Context(), courseID); err != nil {
			storeError(w, err)
			return
		}
		var req itemReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		it := req.toItem(uuid.NewString(), courseID)
		if errs := authoring.ValidateItem(it); len(errs) > 0 {
			validationError(w, errs)
			return
		}
		if it.TestID != "" {
			if _, err := st.GetTest(r.Context(), it.TestID); err != nil {
				storeError(w, err)
				return
			}
			bound, err := testBoundElsewhere(r, st, it.TestID, it.ID)
			if err != nil {
				storeError(w, err)
				return
			}
			if bound {
				http.Error(w, "test already bound to another item", http.StatusConflict)
				return
			}
		}
		if err := st.PutItem(r.Context(), it); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, it)
	}
}

// UpdateItemHandler edits an item in place. Structural fields (type, order,
// test binding) freeze once any learner has progress on the item.
func UpdateItemHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		old, err := st.GetItem(r.Context(), chi.URLParam(r, "itemID"))
		if err != nil {
			storeError(w, err)
			return
		}
		var req itemReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		it := req.toItem(old.ID, old.CourseID)
		if errs := authoring.ValidateItem(it); len(errs) > 0 {
			validationError(w, errs)
			return
		}
		if err := authoring.GuardItemEdit(r.Context(), st, old, it); err != nil {
			if errors.Is(err, authoring.ErrItemInUse) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			storeError(w, err)
			return
		}
		if it.TestID != "" && it.TestID != old.TestID {
			if _, err := st.GetTest(r.Context(), it.TestID); err != nil {
				storeError(w, err)
				return
			}
			bound, err := testBoundElsewhere(r, st, it.TestID, old.ID)
			if err != nil {
				storeError(w, err)
				return
			}
			if bound {
				http.Error(w, "test already bound to another item", http.StatusConflict)
				return
			}
		}
		if err := st.PutItem(r.Context(), it); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

type testReq struct {
	Title              string            `json:"title"`
	PassingScore       float64           `json:"passing_score"`
	ShowCorrectAnswers bool              `json:"show_correct_answers"`
	Questions          []course.Question `json:"questions"`
}

func (req testReq) toTest(id string, createdAt int64) course.Test {
	t := course.Test{
		ID:                 id,
		Title:              strings.TrimSpace(req.Title),
		PassingScore:       req.PassingScore,
		ShowCorrectAnswers: req.ShowCorrectAnswers,
		Questions:          req.Questions,
		CreatedAt:          createdAt,
	}
	for i := range t.Questions {
		if t.Questions[i].ID == "" {
			t.Questions[i].ID = uuid.NewString()
		}
		if t.Questions[i].Order == 0 {
			t.Questions[i].Order = i + 1
		}
	}
	return t
}

func CreateTestHandler(st course.Store, now nowFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req testReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		t := req.toTest(uuid.NewString(), now().Unix())
		if errs := authoring.ValidateTest(t); len(errs) > 0 {
			validationError(w, errs)
			return
		}
		if err := st.PutTest(r.Context(), t); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func UpdateTestHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		old, err := st.GetTest(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			storeError(w, err)
			return
		}
		var req testReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		t := req.toTest(old.ID, old.CreatedAt)
		if errs := authoring.ValidateTest(t); len(errs) > 0 {
			validationError(w, errs)
			return
		}
		if err := st.PutTest(r.Context(), t); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// GetTestAuthoringHandler returns the full test, answer keys included.
// Routed behind authoring:write.
func GetTestAuthoringHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := st.GetTest(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// ImportPackHandler accepts a whole-course YAML pack, either as the raw
// request body or as a multipart file= upload.
func ImportPackHandler(im *authoring.Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data []byte
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", http.StatusBadRequest)
				return
			}
			defer f.Close()
			data, err = io.ReadAll(f)
			if err != nil {
				http.Error(w, "read file", http.StatusBadRequest)
				return
			}
		} else {
			var err error
			data, err = io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil || len(data) == 0 {
				http.Error(w, "body required", http.StatusBadRequest)
				return
			}
		}

		p, err := authoring.ParsePack(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errs := authoring.ValidatePack(p); len(errs) > 0 {
			validationError(w, errs)
			return
		}
		c, err := im.Import(r.Context(), p, authmw.SubjectFromContext(r.Context()))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

type planReq struct {
	Title     string   `json:"title"`
	CourseIDs []string `json:"course_ids"`
}

func CreatePlanHandler(st course.Store, now nowFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req planReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		p := course.LearningPlan{
			ID:        uuid.NewString(),
			Title:     strings.TrimSpace(req.Title),
			CourseIDs: req.CourseIDs,
			CreatedBy: authmw.SubjectFromContext(r.Context()),
			CreatedAt: now().Unix(),
		}
		if errs := validatePlan(r, st, p); len(errs) > 0 {
			validationError(w, errs)
			return
		}
		if err := st.PutPlan(r.Context(), p); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

// UpdatePlanHandler replaces the plan's title and member list.
func UpdatePlanHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := st.GetPlan(r.Context(), chi.URLParam(r, "planID"))
		if err != nil {
			storeError(w, err)
			return
		}
		var req planReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		p.Title = strings.TrimSpace(req.Title)
		p.CourseIDs = req.CourseIDs
		if errs := validatePlan(r, st, p); len(errs) > 0 {
			validationError(w, errs)
			return
		}
		if err := st.PutPlan(r.Context(), p); err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func validatePlan(r *http.Request, st course.Store, p course.LearningPlan) []error {
	var errs []error
	if p.Title == "" {
		errs = append(errs, errors.New("plan.title is required"))
	}
	if len(p.CourseIDs) == 0 {
		errs = append(errs, errors.New("plan.course_ids must not be empty"))
	}
	seen := map[string]bool{}
	for _, cid := range p.CourseIDs {
		if seen[cid] {
			errs = append(errs, errors.New("plan.course_ids: duplicate course "+cid))
			continue
		}
		seen[cid] = true
		if _, err := st.GetCourse(r.Context(), cid); errors.Is(err, course.ErrNotFound) {
			errs = append(errs, errors.New("plan.course_ids: unknown course "+cid))
		}
	}
	return errs
}
