package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillcourse/skillcourse-platform/internal/db"
	"github.com/skillcourse/skillcourse-platform/internal/questionbank"
	"github.com/skillcourse/skillcourse-platform/internal/users"
)

func runSeed(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(v.GetString("db-driver")), v.GetString("db-dsn"))
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()

	userStore := users.NewStore(dbh)

	adminPass := v.GetString("admin-password")
	if adminPass == "" {
		return fmt.Errorf("admin-password is required (flag or SKILLCOURSE_ADMIN_PASSWORD)")
	}
	if err := seedAccount(ctx, userStore, v.GetString("admin-user"), users.RoleAdmin, adminPass); err != nil {
		return err
	}

	if iu := v.GetString("instructor-user"); iu != "" {
		ip := v.GetString("instructor-password")
		if ip == "" {
			return fmt.Errorf("instructor-password is required with instructor-user")
		}
		if err := seedAccount(ctx, userStore, iu, users.RoleInstructor, ip); err != nil {
			return err
		}
	}

	if path := v.GetString("questions"); path != "" {
		n, err := loadQuestions(ctx, questionbank.NewSQLStore(dbh), path)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
		slog.Info("questions loaded", "path", path, "count", n)
	}
	return nil
}

func seedAccount(ctx context.Context, store *users.Store, username string, role users.Role, password string) error {
	_, err := store.GetByUsername(ctx, username)
	if err == nil {
		slog.Info("account already exists", "username", username)
		return nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return err
	}
	_, err = store.CreateAccount(ctx, users.Account{
		Username: username,
		Name:     username,
		Role:     role,
	}, password)
	if err != nil {
		return fmt.Errorf("create %s: %w", username, err)
	}
	slog.Info("account created", "username", username, "role", string(role))
	return nil
}

// loadQuestions reads a JSON array of questions and puts each one in the
// bank. Validation happens in the store; the first bad entry aborts.
func loadQuestions(ctx context.Context, store questionbank.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var batch []questionbank.Question
	if err := json.Unmarshal(data, &batch); err != nil {
		return 0, err
	}
	for i, q := range batch {
		if err := store.PutQuestion(ctx, q); err != nil {
			return i, fmt.Errorf("question %d: %w", i, err)
		}
	}
	return len(batch), nil
}
