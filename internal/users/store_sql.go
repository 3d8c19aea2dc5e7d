package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Register files a pending application. Duplicate usernames and emails are
// rejected against both open registrations and existing accounts.
func (s *Store) Register(ctx context.Context, r Registration, password string) (Registration, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM registrations WHERE username=$1 AND status='pending'`, r.Username).Scan(&n); err != nil {
		return Registration{}, err
	}
	if n == 0 {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE username=$1`, r.Username).Scan(&n); err != nil {
			return Registration{}, err
		}
	}
	if n > 0 {
		return Registration{}, ErrDuplicateUsername
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM registrations WHERE email=$1 AND status='pending'`, r.Email).Scan(&n); err != nil {
		return Registration{}, err
	}
	if n == 0 {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email=$1`, r.Email).Scan(&n); err != nil {
			return Registration{}, err
		}
	}
	if n > 0 {
		return Registration{}, ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return Registration{}, err
	}
	r.ID = uuid.NewString()
	r.Status = RegistrationPending
	r.CreatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `INSERT INTO registrations (id, name, email, phone, username, password_hash, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		r.ID, r.Name, r.Email, r.Phone, r.Username, string(hash), string(r.Status), r.CreatedAt.Unix())
	if err != nil {
		return Registration{}, fmt.Errorf("register: %w", err)
	}
	return r, nil
}

// UpdateRegistration lets an admin fix application details before deciding.
func (s *Store) UpdateRegistration(ctx context.Context, id, name, email, phone, username string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE registrations SET name=$1, email=$2, phone=$3, username=$4
		WHERE id=$5 AND status='pending'`, name, email, phone, username, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRegistrationGone
	}
	return nil
}

// Approve promotes a pending registration to a student account with the
// starting token batch. The promotion and the status flip are one transaction
// so a registration can never be approved twice.
func (s *Store) Approve(ctx context.Context, id string) (Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var r Registration
	var hash string
	var created int64
	err = tx.QueryRowContext(ctx, `SELECT id, name, email, phone, username, password_hash, created_at
		FROM registrations WHERE id=$1 AND status='pending'`, id).
		Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.Username, &hash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrRegistrationGone
	}
	if err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	a := Account{
		ID:        uuid.NewString(),
		Username:  r.Username,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Role:      RoleStudent,
		Tokens:    StartingTokens,
		CreatedAt: now,
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO users (id, username, name, email, phone, password_hash, role, tokens, exam_attempts, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,$9)`,
		a.ID, a.Username, a.Name, a.Email, a.Phone, hash, string(a.Role), a.Tokens, now.Unix())
	if err != nil {
		return Account{}, fmt.Errorf("approve: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE registrations SET status='approved', decided_at=$1 WHERE id=$2`, now.Unix(), id); err != nil {
		return Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Reject closes a pending registration without creating an account.
func (s *Store) Reject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE registrations SET status='rejected', decided_at=$1
		WHERE id=$2 AND status='pending'`, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRegistrationGone
	}
	return nil
}

// RegistrationsByStatus lists applications for the admin panel.
func (s *Store) RegistrationsByStatus(ctx context.Context, status RegistrationStatus) ([]Registration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, phone, username, status, created_at, decided_at
		FROM registrations WHERE status=$1 ORDER BY created_at`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Registration{}
	for rows.Next() {
		var r Registration
		var created int64
		var decided sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.Username, &r.Status, &created, &decided); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		if decided.Valid {
			t := time.Unix(decided.Int64, 0).UTC()
			r.DecidedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetByUsername fetches one account.
func (s *Store) GetByUsername(ctx context.Context, username string) (Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, name, email, phone, password_hash, role, tokens, exam_attempts, last_login, created_at
		FROM users WHERE username=$1`, username)
	return scanAccount(row)
}

// Authenticate verifies a password and stamps last_login.
func (s *Store) Authenticate(ctx context.Context, username, password string) (Account, error) {
	a, err := s.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return Account{}, ErrInvalidCredentials
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_login=$1 WHERE username=$2`, now.Unix(), username); err != nil {
		return Account{}, err
	}
	a.LastLogin = &now
	return a, nil
}

// ResetPassword replaces the stored hash. Only approved accounts can reset.
func (s *Store) ResetPassword(ctx context.Context, username, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE username=$2`, string(hash), username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateAccount inserts a ready account. Used by seeding for instructor and
// admin logins, which skip the registration flow.
func (s *Store) CreateAccount(ctx context.Context, a Account, password string) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (id, username, name, email, phone, password_hash, role, tokens, exam_attempts, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.Username, a.Name, a.Email, a.Phone, string(hash), string(a.Role), a.Tokens, a.ExamAttempts, a.CreatedAt.Unix())
	if err != nil {
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

// ListStudents returns student accounts, optionally filtered by a substring
// of the username or display name.
func (s *Store) ListStudents(ctx context.Context, search string) ([]Account, error) {
	q := `SELECT id, username, name, email, phone, password_hash, role, tokens, exam_attempts, last_login, created_at
		FROM users WHERE role='student'`
	args := []any{}
	if search != "" {
		args = append(args, "%"+search+"%")
		q += ` AND (LOWER(username) LIKE LOWER($1) OR LOWER(name) LIKE LOWER($1))`
	}
	q += ` ORDER BY username`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count reports how many accounts exist; seeding uses it to run only once.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	var lastLogin sql.NullInt64
	var created int64
	err := row.Scan(&a.ID, &a.Username, &a.Name, &a.Email, &a.Phone, &a.PasswordHash,
		&a.Role, &a.Tokens, &a.ExamAttempts, &lastLogin, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	if lastLogin.Valid {
		t := time.Unix(lastLogin.Int64, 0).UTC()
		a.LastLogin = &t
	}
	a.CreatedAt = time.Unix(created, 0).UTC()
	return a, nil
}
