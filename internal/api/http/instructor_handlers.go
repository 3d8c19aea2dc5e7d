package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillcourse/skillcourse-platform/internal/analytics"
	"github.com/skillcourse/skillcourse-platform/internal/audit"
	authmw "github.com/skillcourse/skillcourse-platform/internal/auth/middleware"
	"github.com/skillcourse/skillcourse-platform/internal/tokens"
	"github.com/skillcourse/skillcourse-platform/internal/users"
)

// ListStudentsHandler returns student accounts, optionally filtered by a
// search term on username or name.
func ListStudentsHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := store.ListStudents(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}

// GrantTokenHandler adds one token to a student's balance.
func GrantTokenHandler(ledger *tokens.Ledger, log *audit.Log) http.HandlerFunc {
	return adjustToken(ledger, log, +1, "Added 1 Token")
}

// RevokeTokenHandler removes one token from a student's balance. The
// ledger refuses to take the balance below zero.
func RevokeTokenHandler(ledger *tokens.Ledger, log *audit.Log) http.HandlerFunc {
	return adjustToken(ledger, log, -1, "Deducted 1 Token")
}

func adjustToken(ledger *tokens.Ledger, log *audit.Log, delta int, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		student := chi.URLParam(r, "username")
		actor := authmw.SubjectFromContext(r.Context())

		if delta < 0 {
			bal, err := ledger.Balance(r.Context(), student)
			if errors.Is(err, tokens.ErrUnknownStudent) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if bal <= 0 {
				http.Error(w, "student has no tokens to deduct", http.StatusConflict)
				return
			}
		}

		bal, err := ledger.Adjust(r.Context(), student, delta, actor, action)
		switch {
		case errors.Is(err, tokens.ErrUnknownStudent):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Append(r.Context(), actor, "token_adjust", action+" for "+student)
		writeJSON(w, map[string]any{"username": student, "tokens": bal})
	}
}

// ResetTokensHandler puts a student back to the starting balance and
// bumps the attempt counter.
func ResetTokensHandler(ledger *tokens.Ledger, log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		student := chi.URLParam(r, "username")
		actor := authmw.SubjectFromContext(r.Context())
		bal, err := ledger.Reset(r.Context(), student, users.StartingTokens, actor)
		switch {
		case errors.Is(err, tokens.ErrUnknownStudent):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Append(r.Context(), actor, "token_reset", student)
		writeJSON(w, map[string]any{"username": student, "tokens": bal})
	}
}

// BulkResetTokensHandler resets every named student to the starting
// balance in one go.
func BulkResetTokensHandler(ledger *tokens.Ledger, log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Usernames []string `json:"usernames"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Usernames) == 0 {
			http.Error(w, "usernames required", http.StatusBadRequest)
			return
		}
		actor := authmw.SubjectFromContext(r.Context())
		if err := ledger.BulkReset(r.Context(), req.Usernames, users.StartingTokens, actor); err != nil {
			if errors.Is(err, tokens.ErrUnknownStudent) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Append(r.Context(), actor, "token_bulk_reset", "")
		writeJSON(w, map[string]any{"reset": len(req.Usernames), "tokens": users.StartingTokens})
	}
}

// TokenLogHandler lists ledger entries, newest first. Query params
// student and actor narrow the listing.
func TokenLogHandler(ledger *tokens.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		out, err := ledger.Log(r.Context(), tokens.LogFilter{
			Student: q.Get("student"),
			Actor:   q.Get("actor"),
			Limit:   parseIntDefault(q.Get("limit"), 0),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}

// UsageLogHandler lists a student's assessment token spends.
func UsageLogHandler(ledger *tokens.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		student := chi.URLParam(r, "username")
		out, err := ledger.UsageLog(r.Context(), student, parseIntDefault(r.URL.Query().Get("limit"), 0))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}

// TokenOverviewHandler is the balances dashboard.
func TokenOverviewHandler(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := store.TokensPerStudent(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}

// RankingHandler orders students by average assessment score.
func RankingHandler(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := store.Ranking(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}

// SkillBreakdownHandler returns per-skill averages for one student.
func SkillBreakdownHandler(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := store.SkillBreakdown(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}

// ScoresOverTimeHandler feeds the score trend chart.
func ScoresOverTimeHandler(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := store.ScoresOverTime(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}

// CompareStudentsHandler puts two students' skill averages side by side.
func CompareStudentsHandler(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
		if a == "" || b == "" {
			http.Error(w, "both a and b are required", http.StatusBadRequest)
			return
		}
		out, err := store.Compare(r.Context(), a, b)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}
