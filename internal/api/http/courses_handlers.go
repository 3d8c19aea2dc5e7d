package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillcourse/skillcourse-platform/internal/audit"
	authmw "github.com/skillcourse/skillcourse-platform/internal/auth/middleware"
	"github.com/skillcourse/skillcourse-platform/internal/enrollment"
)

type courseView struct {
	enrollment.Course
	Enrollment string `json:"enrollment,omitempty"`
}

// BrowseCoursesHandler lists approved courses together with the caller's
// enrollment state for each.
func BrowseCoursesHandler(store *enrollment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		courses, err := store.CoursesByStatus(r.Context(), enrollment.StatusApproved)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]courseView, 0, len(courses))
		for _, c := range courses {
			v := courseView{Course: c}
			enr, err := store.EnrollmentFor(r.Context(), c.ID, sub)
			if err == nil {
				v.Enrollment = string(enr.Status)
			}
			out = append(out, v)
		}
		writeJSON(w, out)
	}
}

// EnrollHandler enrolls the caller in a course. Free courses approve
// immediately, paid ones wait on the instructor.
func EnrollHandler(store *enrollment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		sub := authmw.SubjectFromContext(r.Context())
		enr, err := store.Enroll(r.Context(), courseID, sub)
		switch {
		case errors.Is(err, enrollment.ErrCourseNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case errors.Is(err, enrollment.ErrCourseUnapproved):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case errors.Is(err, enrollment.ErrAlreadyEnrolled):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, enr)
	}
}

type contentView struct {
	enrollment.Content
	Purchased bool `json:"purchased"`
}

type myCourseView struct {
	Course     enrollment.Course `json:"course"`
	Enrollment string            `json:"enrollment"`
	Contents   []contentView     `json:"contents,omitempty"`
}

// MyCoursesHandler returns the caller's enrollments. Content lists are
// attached only once the enrollment is approved; paid content hides its
// file URL until purchased.
func MyCoursesHandler(store *enrollment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		enrs, err := store.EnrollmentsByUser(r.Context(), sub, "")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]myCourseView, 0, len(enrs))
		for _, enr := range enrs {
			c, err := store.GetCourse(r.Context(), enr.CourseID)
			if err != nil {
				continue
			}
			v := myCourseView{Course: c, Enrollment: string(enr.Status)}
			if enr.Status == enrollment.StatusApproved {
				contents, err := store.ContentsByCourse(r.Context(), c.ID)
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				for _, ct := range contents {
					cv := contentView{Content: ct}
					if ct.Access == enrollment.AccessPaid {
						cv.Purchased, err = store.HasPurchased(r.Context(), sub, ct.ID)
						if err != nil {
							http.Error(w, err.Error(), http.StatusInternalServerError)
							return
						}
						if !cv.Purchased {
							cv.FileURL = ""
						}
					} else {
						cv.Purchased = true
					}
					v.Contents = append(v.Contents, cv)
				}
			}
			out = append(out, v)
		}
		writeJSON(w, out)
	}
}

// PurchaseContentHandler unlocks a paid content item for the caller.
// Repeats are idempotent.
func PurchaseContentHandler(store *enrollment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID := chi.URLParam(r, "contentID")
		sub := authmw.SubjectFromContext(r.Context())
		if err := store.PurchaseContent(r.Context(), sub, contentID); err != nil {
			if errors.Is(err, enrollment.ErrContentNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CreateCourseHandler lets an instructor submit a course for admin review.
func CreateCourseHandler(store *enrollment.Store, log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PriceCents  int    `json:"price_cents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		if req.PriceCents < 0 {
			http.Error(w, "price must not be negative", http.StatusBadRequest)
			return
		}
		sub := authmw.SubjectFromContext(r.Context())
		c, err := store.CreateCourse(r.Context(), enrollment.Course{
			Title:       req.Title,
			Instructor:  sub,
			Description: req.Description,
			PriceCents:  req.PriceCents,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Append(r.Context(), sub, "course_created", c.Title)
		writeJSON(w, c)
	}
}

// AddContentHandler attaches a content item to a course the caller owns.
func AddContentHandler(store *enrollment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		var req struct {
			Title   string `json:"title"`
			Access  string `json:"access"`
			FileURL string `json:"file_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		access := enrollment.Access(req.Access)
		if access != enrollment.AccessFree && access != enrollment.AccessPaid {
			http.Error(w, "access must be free or paid", http.StatusBadRequest)
			return
		}
		c, err := store.GetCourse(r.Context(), courseID)
		if errors.Is(err, enrollment.ErrCourseNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if c.Instructor != authmw.SubjectFromContext(r.Context()) {
			http.Error(w, "not your course", http.StatusForbidden)
			return
		}
		ct, err := store.AddContent(r.Context(), enrollment.Content{
			CourseID: courseID,
			Title:    req.Title,
			Access:   access,
			FileURL:  req.FileURL,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, ct)
	}
}

// DecideEnrollmentHandler approves or rejects a pending enrollment on a
// course the caller owns.
func DecideEnrollmentHandler(store *enrollment.Store, log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		var req struct {
			Username string `json:"username"`
			Approve  bool   `json:"approve"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
			http.Error(w, "username required", http.StatusBadRequest)
			return
		}
		sub := authmw.SubjectFromContext(r.Context())
		c, err := store.GetCourse(r.Context(), courseID)
		if errors.Is(err, enrollment.ErrCourseNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if c.Instructor != sub {
			http.Error(w, "not your course", http.StatusForbidden)
			return
		}
		status := enrollment.StatusRejected
		if req.Approve {
			status = enrollment.StatusApproved
		}
		if err := store.SetEnrollmentStatus(r.Context(), courseID, req.Username, status); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Append(r.Context(), sub, "enrollment_"+string(status), req.Username+" on "+c.Title)
		writeJSON(w, map[string]string{"course_id": courseID, "username": req.Username, "status": string(status)})
	}
}
