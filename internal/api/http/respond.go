package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coursekit/coursekit-lms/internal/course"
)

// nowFunc lets handler tests pin the clock.
type nowFunc func() time.Time

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// storeError maps the store/service sentinels onto transport codes. Anything
// unrecognized is a plain 500; learners never see raw engine errors.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, course.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, course.ErrNotEnrolled):
		http.Error(w, "not enrolled", http.StatusForbidden)
	case errors.Is(err, course.ErrLocked):
		http.Error(w, "item locked", http.StatusConflict)
	case errors.Is(err, course.ErrConflict):
		http.Error(w, "conflict", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func validationError(w http.ResponseWriter, errs []error) {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "validation failed",
		"details": msgs,
	})
}
