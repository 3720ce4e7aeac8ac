package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/coursekit/coursekit-lms/internal/auth/middleware"
	"github.com/coursekit/coursekit-lms/internal/course"
	"github.com/coursekit/coursekit-lms/internal/progression"
)

// EnrollHandler self-enrolls the caller into a course or a learning plan.
// Exactly one of course_id/plan_id must be set. Duplicate enrollment is 409.
func EnrollHandler(svc *progression.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			CourseID string `json:"course_id"`
			PlanID   string `json:"plan_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.CourseID = strings.TrimSpace(req.CourseID)
		req.PlanID = strings.TrimSpace(req.PlanID)
		if (req.CourseID == "") == (req.PlanID == "") {
			http.Error(w, "exactly one of course_id or plan_id required", http.StatusBadRequest)
			return
		}

		var (
			enr course.Enrollment
			err error
		)
		if req.CourseID != "" {
			enr, err = svc.Enroll(r.Context(), sub, req.CourseID)
		} else {
			enr, err = svc.EnrollPlan(r.Context(), sub, req.PlanID)
		}
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, enr)
	}
}

// ApproveEnrollmentHandler moves PENDING_APPROVAL to ENROLLED. Staff only
// (routed behind enroll:approve).
func ApproveEnrollmentHandler(svc *progression.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enr, err := svc.Approve(r.Context(), chi.URLParam(r, "enrollmentID"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, enr)
	}
}

// DropEnrollmentHandler drops an enrollment. Learners may only drop their
// own; staff may drop anyone's. Dropping twice is a no-op, dropping a
// completed enrollment is 409.
func DropEnrollmentHandler(svc *progression.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "enrollmentID")
		if !isStaff(r) {
			enr, err := svc.Store.GetEnrollment(r.Context(), id)
			if err != nil {
				storeError(w, err)
				return
			}
			if enr.UserID != authmw.SubjectFromContext(r.Context()) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}
		enr, err := svc.Drop(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, enr)
	}
}

// ListEnrollmentsHandler lists enrollments. Learners are pinned to their own
// rows regardless of the user_id filter; staff may filter freely.
func ListEnrollmentsHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := course.EnrollmentListOpts{
			UserID:   strings.TrimSpace(q.Get("user_id")),
			CourseID: strings.TrimSpace(q.Get("course_id")),
			PlanID:   strings.TrimSpace(q.Get("plan_id")),
			Status:   strings.TrimSpace(q.Get("status")),
		}
		if !isStaff(r) {
			opts.UserID = authmw.SubjectFromContext(r.Context())
		}
		opts.Limit, opts.Offset = pageParams(r)

		out, err := st.ListEnrollments(r.Context(), opts)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
