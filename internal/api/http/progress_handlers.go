package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/coursekit/coursekit-lms/internal/auth/middleware"
	"github.com/coursekit/coursekit-lms/internal/progression"
)

// VideoProgressHandler records a playback position for the caller. The
// engine ignores regressive positions, so clients can report freely.
func VideoProgressHandler(svc *progression.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			ItemID      string `json:"item_id"`
			PositionSec int    `json:"position_sec"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.PositionSec < 0 {
			http.Error(w, "position_sec must be >= 0", http.StatusBadRequest)
			return
		}
		rec, err := svc.SignalVideoProgress(r.Context(), sub, req.ItemID, req.PositionSec)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// ViewedHandler records the explicit viewed ack for document/link items.
func ViewedHandler(svc *progression.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		var req struct {
			ItemID string `json:"item_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		rec, err := svc.SignalViewed(r.Context(), sub, req.ItemID)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// MyProgressHandler returns the caller's progress view for one course.
func MyProgressHandler(svc *progression.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		view, err := svc.Progress(r.Context(), sub, chi.URLParam(r, "courseID"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// UserProgressHandler returns any learner's progress view. Staff only
// (routed behind progress:view-any).
func UserProgressHandler(svc *progression.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Progress(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "courseID"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
