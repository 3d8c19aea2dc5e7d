// Package assessment drives a student through one skill assessment:
// difficulty selection, a fixed question sequence, scoring, and persistence
// of a result record. The session is an explicit state machine rather than
// implicit UI state; every transition is guarded and every failure is a soft
// one that leaves the session intact.
package assessment

import (
	"errors"

	"github.com/google/uuid"

	"github.com/skillcourse/skillcourse-platform/internal/questionbank"
)

type State string

const (
	StateUpload            State = "upload"
	StateSkillSelected     State = "skill_selected"
	StateDifficultyPending State = "difficulty_pending"
	StateInProgress        State = "in_progress"
	StateSubmitted         State = "submitted"
)

var (
	ErrBadState              = errors.New("operation not allowed in current session state")
	ErrInsufficientQuestions = errors.New("insufficient questions for this skill and difficulty")
	ErrNotAtLastQuestion     = errors.New("submit is only available from the last question")
)

// Response is one response slot: the record of the student's answer to one
// question, materialized lazily when the question is first visited and
// overwritten on every revisit.
type Response struct {
	Question string            `json:"question"`
	Type     questionbank.Type `json:"type"`
	Selected string            `json:"selected"`
	Correct  string            `json:"correct"`
}

// Session is one student attempt. It is owned by a single student and is not
// shared across students; the Manager serializes access per student.
type Session struct {
	ID         string                    `json:"session_id"`
	Student    string                    `json:"student"`
	State      State                     `json:"state"`
	Skill      string                    `json:"skill,omitempty"`
	Difficulty questionbank.Difficulty   `json:"difficulty,omitempty"`
	Questions  []questionbank.Question   `json:"-"`
	Index      int                       `json:"index"`
	Responses  []*Response               `json:"-"`
	Score      int                       `json:"score"`
}

func NewSession(student string) *Session {
	return &Session{ID: uuid.NewString(), Student: student, State: StateUpload}
}

// SelectSkill moves Upload → SkillSelected. No side effects.
func (s *Session) SelectSkill(skill string) error {
	if s.State != StateUpload {
		return ErrBadState
	}
	s.Skill = skill
	s.State = StateSkillSelected
	return nil
}

// EnterAssessment moves SkillSelected → DifficultyPending; the student still
// has to pick easy, medium or hard before anything costs a token.
func (s *Session) EnterAssessment() error {
	if s.State != StateSkillSelected {
		return ErrBadState
	}
	s.State = StateDifficultyPending
	return nil
}

// Next advances the position index, ceiling at the last question. A no-op at
// the last index. Visiting materializes the response slot.
func (s *Session) Next() error {
	if s.State != StateInProgress {
		return ErrBadState
	}
	if s.Index < len(s.Questions)-1 {
		s.Index++
	}
	s.materialize(s.Index)
	return nil
}

// Prev moves back one question, floor 0. A no-op at index 0.
func (s *Session) Prev() error {
	if s.State != StateInProgress {
		return ErrBadState
	}
	if s.Index > 0 {
		s.Index--
	}
	s.materialize(s.Index)
	return nil
}

// Answer records the student's current selection for the question in view.
// Revisits overwrite the previous selection.
func (s *Session) Answer(selected string) error {
	if s.State != StateInProgress {
		return ErrBadState
	}
	s.materialize(s.Index)
	s.Responses[s.Index].Selected = selected
	return nil
}

// Current returns the question in view.
func (s *Session) Current() (questionbank.Question, error) {
	if s.State != StateInProgress {
		return questionbank.Question{}, ErrBadState
	}
	return s.Questions[s.Index], nil
}

// ResetToUpload moves Submitted → Upload: all session fields are cleared and
// a fresh identifier distinguishes the next attempt.
func (s *Session) ResetToUpload() error {
	if s.State != StateSubmitted {
		return ErrBadState
	}
	*s = *NewSession(s.Student)
	return nil
}

// abort drops an unstartable session back to the upload screen.
func (s *Session) abort() {
	student := s.Student
	id := s.ID
	*s = Session{ID: id, Student: student, State: StateUpload}
}

func (s *Session) materialize(i int) {
	if s.Responses[i] != nil {
		return
	}
	q := s.Questions[i]
	s.Responses[i] = &Response{Question: q.Prompt, Type: q.Type, Correct: q.Answer}
}
