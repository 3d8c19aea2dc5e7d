package assessment

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillcourse/skillcourse-platform/internal/questionbank"
	"github.com/skillcourse/skillcourse-platform/internal/tokens"
)

// fakeSpender mimics the ledger's conditional decrement in memory.
type fakeSpender struct {
	balances map[string]int
	spends   int
}

func (f *fakeSpender) Spend(_ context.Context, student, _, _ string) error {
	if f.balances[student] <= 0 {
		return tokens.ErrInsufficientTokens
	}
	f.balances[student]--
	f.spends++
	return nil
}

type memResults struct {
	results []Result
}

func (m *memResults) PutResult(_ context.Context, r Result) error {
	m.results = append(m.results, r)
	return nil
}

func seededSource(t *testing.T, skill string, d questionbank.Difficulty, mcqs, coding, blanks int) QuestionSource {
	t.Helper()
	ctx := context.Background()
	store := questionbank.NewInMemoryStore()
	for i := 0; i < mcqs; i++ {
		require.NoError(t, store.PutQuestion(ctx, questionbank.Question{
			Skill: skill, Difficulty: d, Type: questionbank.TypeMCQ,
			Prompt:  fmt.Sprintf("mcq %d", i),
			Options: []string{"a", "b"}, Answer: "a",
		}))
	}
	for i := 0; i < coding; i++ {
		require.NoError(t, store.PutQuestion(ctx, questionbank.Question{
			Skill: skill, Difficulty: d, Type: questionbank.TypeCoding,
			Prompt: fmt.Sprintf("coding %d", i), Answer: "print('x')",
		}))
	}
	for i := 0; i < blanks; i++ {
		require.NoError(t, store.PutQuestion(ctx, questionbank.Question{
			Skill: skill, Difficulty: d, Type: questionbank.TypeBlank,
			Prompt: fmt.Sprintf("blank %d", i), Answer: "word",
		}))
	}
	return questionbank.NewAccessorWithSeed(store, 99)
}

func startedSession(t *testing.T, svc *Service, student string) *Session {
	t.Helper()
	s := NewSession(student)
	require.NoError(t, s.SelectSkill("python"))
	require.NoError(t, s.EnterAssessment())
	require.NoError(t, svc.Start(context.Background(), s, questionbank.DifficultyEasy))
	return s
}

func TestStartHappyPath(t *testing.T) {
	src := seededSource(t, "python", questionbank.DifficultyEasy, 10, 3, 6)
	sp := &fakeSpender{balances: map[string]int{"alice": 2}}
	svc := NewService(src, sp, &memResults{})

	s := startedSession(t, svc, "alice")

	assert.Equal(t, StateInProgress, s.State)
	assert.Len(t, s.Questions, questionbank.SetSize)
	assert.Equal(t, 0, s.Index)
	assert.Equal(t, 1, sp.balances["alice"], "exactly one token spent")
	assert.NotNil(t, s.Responses[0], "first slot materializes on start")
}

func TestStartRequiresDifficultyPending(t *testing.T) {
	src := seededSource(t, "python", questionbank.DifficultyEasy, 10, 3, 6)
	sp := &fakeSpender{balances: map[string]int{"alice": 2}}
	svc := NewService(src, sp, &memResults{})

	s := NewSession("alice")
	err := svc.Start(context.Background(), s, questionbank.DifficultyEasy)
	assert.ErrorIs(t, err, ErrBadState)
	assert.Zero(t, sp.spends)
}

func TestStartWithoutTokensSpendsNothing(t *testing.T) {
	src := seededSource(t, "python", questionbank.DifficultyEasy, 10, 3, 6)
	sp := &fakeSpender{balances: map[string]int{"alice": 0}}
	svc := NewService(src, sp, &memResults{})

	s := NewSession("alice")
	require.NoError(t, s.SelectSkill("python"))
	require.NoError(t, s.EnterAssessment())

	err := svc.Start(context.Background(), s, questionbank.DifficultyEasy)
	assert.ErrorIs(t, err, tokens.ErrInsufficientTokens)
	assert.Equal(t, 0, sp.balances["alice"])
	assert.Equal(t, StateDifficultyPending, s.State, "session stays where it was")
}

func TestStartShortPoolAbortsBeforeSpend(t *testing.T) {
	// Only 6 questions available: below the full set.
	src := seededSource(t, "python", questionbank.DifficultyEasy, 3, 1, 2)
	sp := &fakeSpender{balances: map[string]int{"alice": 5}}
	svc := NewService(src, sp, &memResults{})

	s := NewSession("alice")
	require.NoError(t, s.SelectSkill("python"))
	require.NoError(t, s.EnterAssessment())

	err := svc.Start(context.Background(), s, questionbank.DifficultyEasy)
	assert.ErrorIs(t, err, ErrInsufficientQuestions)
	assert.Equal(t, 5, sp.balances["alice"], "no token moves on a short pool")
	assert.Equal(t, StateUpload, s.State, "session drops back to the upload screen")
}

func TestNavigationClampsAtBothEnds(t *testing.T) {
	src := seededSource(t, "python", questionbank.DifficultyEasy, 10, 3, 6)
	svc := NewService(src, &fakeSpender{balances: map[string]int{"bob": 1}}, &memResults{})
	s := startedSession(t, svc, "bob")

	require.NoError(t, s.Prev())
	assert.Equal(t, 0, s.Index, "prev at the first question stays put")

	for i := 0; i < len(s.Questions)+5; i++ {
		require.NoError(t, s.Next())
	}
	assert.Equal(t, len(s.Questions)-1, s.Index, "next at the last question stays put")
}

func TestAnswerOverwritesOnRevisit(t *testing.T) {
	src := seededSource(t, "python", questionbank.DifficultyEasy, 10, 3, 6)
	svc := NewService(src, &fakeSpender{balances: map[string]int{"bob": 1}}, &memResults{})
	s := startedSession(t, svc, "bob")

	require.NoError(t, s.Answer("first"))
	require.NoError(t, s.Next())
	require.NoError(t, s.Prev())
	require.NoError(t, s.Answer("second"))
	assert.Equal(t, "second", s.Responses[0].Selected)
}

func TestSubmitOnlyFromLastQuestion(t *testing.T) {
	src := seededSource(t, "python", questionbank.DifficultyEasy, 10, 3, 6)
	results := &memResults{}
	svc := NewService(src, &fakeSpender{balances: map[string]int{"bob": 1}}, results)
	s := startedSession(t, svc, "bob")

	err := svc.Submit(context.Background(), s)
	assert.ErrorIs(t, err, ErrNotAtLastQuestion)
	assert.Empty(t, results.results)
	assert.Equal(t, StateInProgress, s.State)
}

func TestSubmitScoresAndPersists(t *testing.T) {
	src := seededSource(t, "python", questionbank.DifficultyEasy, 10, 3, 6)
	results := &memResults{}
	svc := NewService(src, &fakeSpender{balances: map[string]int{"carol": 1}}, results)
	s := startedSession(t, svc, "carol")

	// Answer every question with its own canonical answer, dressed up with
	// whitespace and case noise. Matching ignores both.
	for i := range s.Questions {
		require.NoError(t, s.Answer("  "+s.Questions[i].Answer+"  "))
		require.NoError(t, s.Next())
	}
	require.NoError(t, svc.Submit(context.Background(), s))

	assert.Equal(t, StateSubmitted, s.State)
	assert.Equal(t, len(s.Questions), s.Score)
	require.Len(t, results.results, 1)
	r := results.results[0]
	assert.Equal(t, s.ID, r.SessionID)
	assert.Equal(t, "carol", r.Username)
	assert.Equal(t, len(s.Questions), r.Total)
	assert.Len(t, r.Responses, len(s.Questions))
}

func TestScoringIsCaseAndSpaceInsensitiveOnly(t *testing.T) {
	assert.True(t, answerMatches(" Paris ", "paris"))
	assert.True(t, answerMatches("PARIS", "paris"))
	assert.False(t, answerMatches("PARIS!", "paris"))
	assert.False(t, answerMatches("", "paris"))
}

func TestResetAfterSubmitGetsFreshID(t *testing.T) {
	src := seededSource(t, "python", questionbank.DifficultyEasy, 10, 3, 6)
	svc := NewService(src, &fakeSpender{balances: map[string]int{"dave": 2}}, &memResults{})
	s := startedSession(t, svc, "dave")

	firstID := s.ID
	for range s.Questions {
		require.NoError(t, s.Next())
	}
	require.NoError(t, svc.Submit(context.Background(), s))
	require.NoError(t, s.ResetToUpload())

	assert.Equal(t, StateUpload, s.State)
	assert.NotEqual(t, firstID, s.ID)
	assert.Empty(t, s.Skill)
	assert.Zero(t, s.Score)

	// The next run produces a result under the new identifier.
	require.NoError(t, s.SelectSkill("python"))
	require.NoError(t, s.EnterAssessment())
	require.NoError(t, svc.Start(context.Background(), s, questionbank.DifficultyEasy))
	assert.NotEqual(t, firstID, s.ID)
}

func TestResetOnlyAfterSubmit(t *testing.T) {
	s := NewSession("eve")
	assert.ErrorIs(t, s.ResetToUpload(), ErrBadState)
}

func TestUnansweredQuestionsScoreZero(t *testing.T) {
	src := seededSource(t, "python", questionbank.DifficultyEasy, 10, 3, 6)
	results := &memResults{}
	svc := NewService(src, &fakeSpender{balances: map[string]int{"frank": 1}}, results)
	s := startedSession(t, svc, "frank")

	// Walk to the end without answering anything.
	for range s.Questions {
		require.NoError(t, s.Next())
	}
	require.NoError(t, svc.Submit(context.Background(), s))
	assert.Zero(t, s.Score)
}

func TestManagerReusesSessionPerStudent(t *testing.T) {
	m := NewManager()
	a := m.Session("alice")
	assert.Same(t, a, m.Session("alice"))
	assert.NotSame(t, a, m.Session("bob"))

	m.Drop("alice")
	assert.NotSame(t, a, m.Session("alice"))
}
