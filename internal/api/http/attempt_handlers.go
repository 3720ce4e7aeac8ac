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

// SubmitAttemptHandler grades a submission synchronously and returns the
// stored attempt. Responses are keyed by question id; the value shape depends
// on the question type (string, list of strings, or bool).
func SubmitAttemptHandler(svc *progression.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			Responses map[string]interface{} `json:"responses"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		attempt, err := svc.SubmitAttempt(r.Context(), sub, chi.URLParam(r, "testID"), req.Responses)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, attempt)
	}
}

// GetAttemptHandler returns one attempt. Learners can only read their own.
func GetAttemptHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := st.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			storeError(w, err)
			return
		}
		if !isStaff(r) && a.UserID != authmw.SubjectFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// ListAttemptsHandler lists attempts newest first. Learners are pinned to
// their own attempts; staff may filter by user, test, and verdict.
func ListAttemptsHandler(st course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := course.AttemptListOpts{
			TestID: strings.TrimSpace(q.Get("test_id")),
			UserID: strings.TrimSpace(q.Get("user_id")),
		}
		if v := q.Get("passed"); v == "1" || v == "true" {
			t := true
			opts.Passed = &t
		} else if v == "0" || v == "false" {
			f := false
			opts.Passed = &f
		}
		if !isStaff(r) {
			opts.UserID = authmw.SubjectFromContext(r.Context())
		}
		opts.Limit, opts.Offset = pageParams(r)

		out, err := st.ListAttempts(r.Context(), opts)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
