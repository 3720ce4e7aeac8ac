package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/coursekit/coursekit-lms/internal/auth/middleware"
	"github.com/coursekit/coursekit-lms/internal/course"
	"github.com/coursekit/coursekit-lms/internal/rbac"
)

func isStaff(r *http.Request) bool {
	role := rbac.RoleFromContext(r.Context())
	return role == "instructor" || role == "admin"
}

// ListCoursesHandler is the catalog: title search plus paging. mine=1
// restricts to courses the caller created.
func ListCoursesHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := course.CourseListOpts{
			Q: strings.TrimSpace(r.URL.Query().Get("q")),
		}
		if r.URL.Query().Get("mine") == "1" {
			opts.CreatedBy = authmw.SubjectFromContext(r.Context())
		}
		opts.Limit, opts.Offset = pageParams(r)

		out, err := st.ListCourses(r.Context(), opts)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GetCourseHandler returns the course with its items in sequence order.
func GetCourseHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		c, err := st.GetCourse(r.Context(), courseID)
		if err != nil {
			storeError(w, err)
			return
		}
		items, err := st.ListItems(r.Context(), courseID)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"course": c,
			"items":  items,
		})
	}
}

// GetTestHandler serves a test for taking. Instructors and admins get the
// full definition. Learners always take the test without answer keys; a
// test that opts in via show_correct_answers reveals them once the learner
// has an attempt on file.
func GetTestHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := st.GetTest(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			storeError(w, err)
			return
		}
		if !isStaff(r) {
			show, err := answerKeysVisible(r, st, t)
			if err != nil {
				storeError(w, err)
				return
			}
			if !show {
				t = t.WithoutAnswerKeys()
			}
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// answerKeysVisible reports whether the calling learner may see t's keys:
// the test opts in via show_correct_answers and the learner has already
// submitted an attempt. Pre-attempt fetches never carry keys.
func answerKeysVisible(r *http.Request, st course.Store, t course.Test) (bool, error) {
	if !t.ShowCorrectAnswers {
		return false, nil
	}
	atts, err := st.ListAttempts(r.Context(), course.AttemptListOpts{
		TestID: t.ID,
		UserID: authmw.SubjectFromContext(r.Context()),
		Limit:  1,
	})
	if err != nil {
		return false, err
	}
	return len(atts) > 0, nil
}

func ListPlansHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := st.ListPlans(r.Context())
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetPlanHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := st.GetPlan(r.Context(), chi.URLParam(r, "planID"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		if v > 200 {
			v = 200
		}
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
