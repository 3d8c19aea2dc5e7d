package assessment

import (
	"context"
	"math/rand"
	"time"

	"github.com/skillcourse/skillcourse-platform/internal/questionbank"
)

// QuestionSource yields a balanced shuffled draw for (skill, difficulty).
type QuestionSource interface {
	FetchQuestionSet(ctx context.Context, skill string, difficulty questionbank.Difficulty) ([]questionbank.Question, error)
}

// TokenSpender deducts exactly one token atomically, or fails without side
// effects. The ledger's conditional decrement satisfies this.
type TokenSpender interface {
	Spend(ctx context.Context, student, skill, difficulty string) error
}

// ResultStore persists one immutable result record per submitted session.
type ResultStore interface {
	PutResult(ctx context.Context, r Result) error
}

// Result is the write-only record a submission commits.
type Result struct {
	SessionID   string      `json:"session_id"`
	Username    string      `json:"username"`
	Skill       string      `json:"skill"`
	Difficulty  string      `json:"difficulty"`
	Score       int         `json:"score"`
	Total       int         `json:"total"`
	Responses   []Response  `json:"responses"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// Service runs the transitions that touch the outside world: starting a
// session (token spend + question draw) and submitting one (scoring + result
// persistence). Pure navigation lives on Session itself.
type Service struct {
	questions QuestionSource
	spender   TokenSpender
	results   ResultStore
	rng       *rand.Rand
}

func NewService(questions QuestionSource, spender TokenSpender, results ResultStore) *Service {
	return &Service{
		questions: questions,
		spender:   spender,
		results:   results,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start moves DifficultyPending → InProgress. Preconditions, in order:
//
//  1. the pool yields a full set of questions — checked first because it is
//     read-only; a shortfall aborts the session back to the upload screen
//     before any token moves;
//  2. the student has a token — the spend is a conditional atomic decrement,
//     so a failure leaves both balance and session untouched.
//
// On success the draw is reshuffled locally, the response slate is cleared,
// the difficulty freezes for the session and the position resets to zero.
func (svc *Service) Start(ctx context.Context, s *Session, difficulty questionbank.Difficulty) error {
	if s.State != StateDifficultyPending {
		return ErrBadState
	}

	qs, err := svc.questions.FetchQuestionSet(ctx, s.Skill, difficulty)
	if err != nil {
		return err
	}
	if len(qs) < questionbank.SetSize {
		s.abort()
		return ErrInsufficientQuestions
	}

	if err := svc.spender.Spend(ctx, s.Student, s.Skill, string(difficulty)); err != nil {
		return err
	}

	svc.rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	s.Difficulty = difficulty
	s.Questions = qs
	s.Responses = make([]*Response, len(qs))
	s.Index = 0
	s.Score = 0
	s.State = StateInProgress
	s.materialize(0)
	return nil
}

// Submit moves InProgress → Submitted. Only reachable from the last question.
// Scoring and the result write happen once; after the result record exists
// the session has no way to mutate it.
func (svc *Service) Submit(ctx context.Context, s *Session) error {
	if s.State != StateInProgress {
		return ErrBadState
	}
	if s.Index != len(s.Questions)-1 {
		return ErrNotAtLastQuestion
	}

	s.Score = score(s.Responses)

	resp := make([]Response, 0, len(s.Responses))
	for _, r := range s.Responses {
		if r == nil {
			continue
		}
		resp = append(resp, *r)
	}
	r := Result{
		SessionID:   s.ID,
		Username:    s.Student,
		Skill:       s.Skill,
		Difficulty:  string(s.Difficulty),
		Score:       s.Score,
		Total:       len(s.Questions),
		Responses:   resp,
		SubmittedAt: time.Now().UTC(),
	}
	if err := svc.results.PutResult(ctx, r); err != nil {
		return err
	}
	s.State = StateSubmitted
	return nil
}
