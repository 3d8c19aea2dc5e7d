package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/skillcourse/skillcourse-platform/internal/users"
)

type registerReq struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RegisterHandler files a student registration for admin approval.
func RegisterHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		for _, f := range []string{req.Name, req.Email, req.Phone, req.Username, req.Password, req.ConfirmPassword} {
			if strings.TrimSpace(f) == "" {
				http.Error(w, "please fill in all fields", http.StatusBadRequest)
				return
			}
		}
		if req.Password != req.ConfirmPassword {
			http.Error(w, "passwords do not match", http.StatusBadRequest)
			return
		}

		reg, err := store.Register(r.Context(), users.Registration{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Username: req.Username,
		}, req.Password)
		switch {
		case errors.Is(err, users.ErrDuplicateEmail):
			http.Error(w, "email already registered", http.StatusConflict)
			return
		case errors.Is(err, users.ErrDuplicateUsername):
			http.Error(w, "username already taken", http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": reg.ID, "status": string(reg.Status)})
	}
}

type forgotPasswordReq struct {
	Username        string `json:"username"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ForgotPasswordHandler resets a password for an approved account.
func ForgotPasswordHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forgotPasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.NewPassword == "" || req.NewPassword != req.ConfirmPassword {
			http.Error(w, "passwords do not match", http.StatusBadRequest)
			return
		}
		err := store.ResetPassword(r.Context(), req.Username, req.NewPassword)
		if errors.Is(err, users.ErrNotFound) {
			http.Error(w, "username not found or not approved", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
