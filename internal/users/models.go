package users

import (
	"errors"
	"time"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// StartingTokens is the batch a newly approved student receives.
const StartingTokens = 10

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrRegistrationGone   = errors.New("registration not found or already decided")
)

// Account is an approved login. Students additionally carry a token balance
// and an exam-attempt counter; the balance is never negative in intended use
// (the ledger's conditional decrement enforces it).
type Account struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Tokens       int        `json:"tokens"`
	ExamAttempts int        `json:"exam_attempts"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Registration is a pending student application awaiting an admin decision.
type Registration struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Phone     string             `json:"phone"`
	Username  string             `json:"username"`
	Status    RegistrationStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	DecidedAt *time.Time         `json:"decided_at,omitempty"`
}
