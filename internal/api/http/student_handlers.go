package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skillcourse/skillcourse-platform/internal/assessment"
	authmw "github.com/skillcourse/skillcourse-platform/internal/auth/middleware"
	"github.com/skillcourse/skillcourse-platform/internal/questionbank"
	"github.com/skillcourse/skillcourse-platform/internal/skills"
	"github.com/skillcourse/skillcourse-platform/internal/tokens"
	"github.com/skillcourse/skillcourse-platform/internal/users"
)

// ProfileHandler returns the caller's own account, token balance included.
func ProfileHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		acct, err := store.GetByUsername(r.Context(), sub)
		if errors.Is(err, users.ErrNotFound) {
			// session user record missing: fatal for this screen, forces re-login
			http.Error(w, "user not found, please login again", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, acct)
	}
}

// ExtractSkillsHandler runs the resume text through the skill extractor.
// Turning PDF/DOCX uploads into text is the client's job.
func ExtractSkillsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		found := skills.Extract(req.Text)
		if len(found) == 0 {
			writeJSON(w, map[string]any{"skills": []string{}, "message": "no predefined skills found in your resume"})
			return
		}
		writeJSON(w, map[string]any{"skills": found})
	}
}

type sessionView struct {
	SessionID  string `json:"session_id"`
	State      string `json:"state"`
	Skill      string `json:"skill,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Index      int    `json:"index"`
	Total      int    `json:"total"`
	Score      int    `json:"score"`
}

func viewOf(s *assessment.Session) sessionView {
	return sessionView{
		SessionID:  s.ID,
		State:      string(s.State),
		Skill:      s.Skill,
		Difficulty: string(s.Difficulty),
		Index:      s.Index,
		Total:      len(s.Questions),
		Score:      s.Score,
	}
}

// GetSessionHandler reports where the caller's session stands.
func GetSessionHandler(mgr *assessment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := mgr.Session(authmw.SubjectFromContext(r.Context()))
		writeJSON(w, viewOf(s))
	}
}

// SelectSkillHandler moves the session off the upload screen.
func SelectSkillHandler(mgr *assessment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Skill string `json:"skill"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Skill == "" {
			http.Error(w, "skill required", http.StatusBadRequest)
			return
		}
		s := mgr.Session(authmw.SubjectFromContext(r.Context()))
		if err := s.SelectSkill(req.Skill); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, viewOf(s))
	}
}

// EnterAssessmentHandler opens the difficulty picker.
func EnterAssessmentHandler(mgr *assessment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := mgr.Session(authmw.SubjectFromContext(r.Context()))
		if err := s.EnterAssessment(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, viewOf(s))
	}
}

// StartAssessmentHandler spends one token and draws the question set.
func StartAssessmentHandler(mgr *assessment.Manager, svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Difficulty string `json:"difficulty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		difficulty, err := questionbank.ParseDifficulty(req.Difficulty)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s := mgr.Session(authmw.SubjectFromContext(r.Context()))
		err = svc.Start(r.Context(), s, difficulty)
		switch {
		case errors.Is(err, tokens.ErrInsufficientTokens):
			http.Error(w, "you have no tokens left, please contact admin", http.StatusPaymentRequired)
			return
		case errors.Is(err, assessment.ErrInsufficientQuestions):
			http.Error(w, "insufficient questions for this skill and difficulty level", http.StatusConflict)
			return
		case errors.Is(err, assessment.ErrBadState):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, viewOf(s))
	}
}

type questionView struct {
	Index       int      `json:"index"`
	Total       int      `json:"total"`
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Constraints string   `json:"constraints,omitempty"`
	Input       string   `json:"input,omitempty"`
	Output      string   `json:"output,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Selected    string   `json:"selected"`
}

// CurrentQuestionHandler serves the question in view, answer stripped.
func CurrentQuestionHandler(mgr *assessment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := mgr.Session(authmw.SubjectFromContext(r.Context()))
		q, err := s.Current()
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		v := questionView{
			Index:    s.Index,
			Total:    len(s.Questions),
			Type:     string(q.Type),
			Question: q.Prompt,
			Options:  q.Options,
		}
		if q.Coding != nil {
			v.Constraints = q.Coding.Constraints
			v.Input = q.Coding.Input
			v.Output = q.Coding.Output
			v.Explanation = q.Coding.Explanation
		}
		if resp := s.Responses[s.Index]; resp != nil {
			v.Selected = resp.Selected
		}
		writeJSON(w, v)
	}
}

// AnswerHandler records the selection for the question in view.
func AnswerHandler(mgr *assessment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Selected string `json:"selected"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		s := mgr.Session(authmw.SubjectFromContext(r.Context()))
		if err := s.Answer(req.Selected); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, viewOf(s))
	}
}

// NavigateHandler moves the position index one step either way.
func NavigateHandler(mgr *assessment.Manager, forward bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := mgr.Session(authmw.SubjectFromContext(r.Context()))
		var err error
		if forward {
			err = s.Next()
		} else {
			err = s.Prev()
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, viewOf(s))
	}
}

// SubmitHandler commits the attempt: scoring plus the result write.
func SubmitHandler(mgr *assessment.Manager, svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := mgr.Session(authmw.SubjectFromContext(r.Context()))
		err := svc.Submit(r.Context(), s)
		switch {
		case errors.Is(err, assessment.ErrNotAtLastQuestion):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case errors.Is(err, assessment.ErrBadState):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{
			"session_id": s.ID,
			"score":      s.Score,
			"total":      len(s.Questions),
		})
	}
}

// ResetSessionHandler is "back to home": clears the session, fresh id.
func ResetSessionHandler(mgr *assessment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := mgr.Session(authmw.SubjectFromContext(r.Context()))
		if err := s.ResetToUpload(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, viewOf(s))
	}
}

// MyResultsHandler lists the caller's past assessment results.
func MyResultsHandler(store *assessment.SQLResultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
		out, err := store.ListByUser(r.Context(), sub, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, out)
	}
}
