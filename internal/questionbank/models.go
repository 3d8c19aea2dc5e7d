package questionbank

import (
	"errors"
	"fmt"
)

type Type string

const (
	TypeMCQ    Type = "mcqs"
	TypeCoding Type = "coding"
	TypeBlank  Type = "blanks"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("unknown difficulty: %q", s)
}

// CodingMeta carries the extra fields only coding questions have.
type CodingMeta struct {
	Constraints string `json:"constraints,omitempty"`
	Input       string `json:"input,omitempty"`
	Output      string `json:"output,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// Question is immutable once stored. The variant is discriminated by Type:
// mcqs and blanks may carry Options, coding may carry CodingMeta.
type Question struct {
	ID         string      `json:"id"`
	Skill      string      `json:"skill"`
	Difficulty Difficulty  `json:"difficulty"`
	Type       Type        `json:"type"`
	Prompt     string      `json:"question"`
	Options    []string    `json:"options,omitempty"`
	Answer     string      `json:"answer"`
	Coding     *CodingMeta `json:"coding,omitempty"`
}

var (
	ErrEmptyPrompt   = errors.New("question prompt is empty")
	ErrEmptyAnswer   = errors.New("question answer is empty")
	ErrEmptySkill    = errors.New("question skill is empty")
	ErrOptionsOnCode = errors.New("coding questions take no options")
	ErrMetaOnChoice  = errors.New("only coding questions take coding metadata")
)

// Validate is applied at the store boundary; loose records never enter the bank.
func (q Question) Validate() error {
	if q.Skill == "" {
		return ErrEmptySkill
	}
	if q.Prompt == "" {
		return ErrEmptyPrompt
	}
	if q.Answer == "" {
		return ErrEmptyAnswer
	}
	if _, err := ParseDifficulty(string(q.Difficulty)); err != nil {
		return err
	}
	switch q.Type {
	case TypeMCQ, TypeBlank:
		if q.Coding != nil {
			return ErrMetaOnChoice
		}
	case TypeCoding:
		if len(q.Options) > 0 {
			return ErrOptionsOnCode
		}
	default:
		return fmt.Errorf("unknown question type: %q", q.Type)
	}
	return nil
}
