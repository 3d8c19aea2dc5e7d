package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/skillcourse/skillcourse-platform/internal/auth/middleware"
	"github.com/skillcourse/skillcourse-platform/internal/enrollment"
	"github.com/skillcourse/skillcourse-platform/internal/storage"
)

const maxUploadBytes = 64 << 20

// UploadContentFileHandler replaces a content item's file. The caller must
// own the course the content belongs to.
func UploadContentFileHandler(store *enrollment.Store, materials storage.MaterialStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID := chi.URLParam(r, "contentID")
		ct, err := store.GetContent(r.Context(), contentID)
		if errors.Is(err, enrollment.ErrContentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		course, err := store.GetCourse(r.Context(), ct.CourseID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if course.Instructor != authmw.SubjectFromContext(r.Context()) {
			http.Error(w, "not your course", http.StatusForbidden)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file field required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		key := storage.MaterialKey(ct.CourseID, ct.ID, hdr.Filename)
		if _, err := materials.Put(key, f); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := store.SetContentFileURL(r.Context(), ct.ID, key); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"content_id": ct.ID, "file_url": key})
	}
}

// DownloadContentHandler streams a content file to an enrolled student.
// Paid content additionally requires a purchase.
func DownloadContentHandler(store *enrollment.Store, materials storage.MaterialStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID := chi.URLParam(r, "contentID")
		sub := authmw.SubjectFromContext(r.Context())

		ct, err := store.GetContent(r.Context(), contentID)
		if errors.Is(err, enrollment.ErrContentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		enr, err := store.EnrollmentFor(r.Context(), ct.CourseID, sub)
		if err != nil || enr.Status != enrollment.StatusApproved {
			http.Error(w, "not enrolled", http.StatusForbidden)
			return
		}
		if ct.Access == enrollment.AccessPaid {
			bought, err := store.HasPurchased(r.Context(), sub, ct.ID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if !bought {
				http.Error(w, "purchase required", http.StatusPaymentRequired)
				return
			}
		}
		if ct.FileURL == "" {
			http.Error(w, "no file attached", http.StatusNotFound)
			return
		}

		rc, err := materials.Get(ct.FileURL)
		if err != nil {
			http.Error(w, "file missing", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, rc)
	}
}
