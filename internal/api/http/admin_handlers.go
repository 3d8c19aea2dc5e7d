package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillcourse/skillcourse-platform/internal/audit"
	authmw "github.com/skillcourse/skillcourse-platform/internal/auth/middleware"
	"github.com/skillcourse/skillcourse-platform/internal/enrollment"
	"github.com/skillcourse/skillcourse-platform/internal/questionbank"
	"github.com/skillcourse/skillcourse-platform/internal/users"
)

// RegistrationsHandler lists registrations, pending ones by default.
func RegistrationsHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := users.RegistrationStatus(r.URL.Query().Get("status"))
		if status == "" {
			status = users.RegistrationPending
		}
		out, err := store.RegistrationsByStatus(r.Context(), status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}

// UpdateRegistrationHandler edits a pending registration before the
// approve/reject decision.
func UpdateRegistrationHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Phone    string `json:"phone"`
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		err := store.UpdateRegistration(r.Context(), id, req.Name, req.Email, req.Phone, req.Username)
		if errors.Is(err, users.ErrRegistrationGone) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ApproveRegistrationHandler turns a pending registration into a student
// account with the starting token balance.
func ApproveRegistrationHandler(store *users.Store, log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		acct, err := store.Approve(r.Context(), id)
		if errors.Is(err, users.ErrRegistrationGone) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Append(r.Context(), authmw.SubjectFromContext(r.Context()), "registration_approved", acct.Username)
		writeJSON(w, acct)
	}
}

// RejectRegistrationHandler declines a pending registration.
func RejectRegistrationHandler(store *users.Store, log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := store.Reject(r.Context(), id)
		if errors.Is(err, users.ErrRegistrationGone) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Append(r.Context(), authmw.SubjectFromContext(r.Context()), "registration_rejected", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// PendingCoursesHandler lists courses waiting on an admin decision.
func PendingCoursesHandler(store *enrollment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := store.CoursesByStatus(r.Context(), enrollment.StatusPending)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}

// DecideCourseHandler approves or rejects a submitted course.
func DecideCourseHandler(store *enrollment.Store, log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		var req struct {
			Approve bool `json:"approve"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		status := enrollment.StatusRejected
		if req.Approve {
			status = enrollment.StatusApproved
		}
		err := store.SetCourseStatus(r.Context(), courseID, status)
		if errors.Is(err, enrollment.ErrCourseNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Append(r.Context(), authmw.SubjectFromContext(r.Context()), "course_"+string(status), courseID)
		writeJSON(w, map[string]string{"course_id": courseID, "status": string(status)})
	}
}

// ImportQuestionsHandler loads a batch of questions into the bank.
// Each question is validated; the first bad one fails the whole batch.
func ImportQuestionsHandler(store questionbank.Store, log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var batch []questionbank.Question
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if len(batch) == 0 {
			http.Error(w, "empty batch", http.StatusBadRequest)
			return
		}
		for _, q := range batch {
			if err := q.Validate(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		for _, q := range batch {
			if err := store.PutQuestion(r.Context(), q); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		log.Append(r.Context(), authmw.SubjectFromContext(r.Context()), "questions_imported", "")
		writeJSON(w, map[string]int{"imported": len(batch)})
	}
}

// ActivityLogHandler returns the newest activity-trail entries.
func ActivityLogHandler(log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := log.Recent(r.Context(), parseIntDefault(r.URL.Query().Get("limit"), 0))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}
