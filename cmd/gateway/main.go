package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skillcourse/skillcourse-platform/internal/analytics"
	api "github.com/skillcourse/skillcourse-platform/internal/api/http"
	"github.com/skillcourse/skillcourse-platform/internal/assessment"
	"github.com/skillcourse/skillcourse-platform/internal/audit"
	auth "github.com/skillcourse/skillcourse-platform/internal/auth/middleware"
	"github.com/skillcourse/skillcourse-platform/internal/config"
	"github.com/skillcourse/skillcourse-platform/internal/db"
	"github.com/skillcourse/skillcourse-platform/internal/enrollment"
	"github.com/skillcourse/skillcourse-platform/internal/questionbank"
	"github.com/skillcourse/skillcourse-platform/internal/rbac"
	"github.com/skillcourse/skillcourse-platform/internal/storage"
	"github.com/skillcourse/skillcourse-platform/internal/tokens"
	"github.com/skillcourse/skillcourse-platform/internal/users"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gateway",
		Short: "Skill assessment and course platform API",
	}

	serve := serveCmd()
	root.AddCommand(serve, seedCmd())

	// Bare `gateway` serves.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("public-url", "", "Externally visible base URL")
	f.String("db-driver", "sqlite", "Database driver (sqlite, postgres)")
	f.String("db-dsn", "", "Database DSN (driver default when empty)")
	f.String("auth-secret", "", "HMAC secret for JWT signing (or SKILLCOURSE_AUTH_SECRET)")
	f.String("materials-path", "./data", "Base directory for course material files")
	f.StringSlice("cors-origins", []string{"http://localhost:3000"}, "Allowed CORS origins")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin and instructor accounts and optionally load questions",
		RunE:  runSeed,
	}
	f := cmd.Flags()
	f.String("db-driver", "sqlite", "Database driver (sqlite, postgres)")
	f.String("db-dsn", "", "Database DSN (driver default when empty)")
	f.String("admin-user", "admin", "Admin username")
	f.String("admin-password", "", "Admin password (or SKILLCOURSE_ADMIN_PASSWORD)")
	f.String("instructor-user", "", "Optional instructor username to create")
	f.String("instructor-password", "", "Password for the instructor account")
	f.String("questions", "", "Path to a JSON file of questions to load")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(v *viper.Viper) {
	var level slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// viperForCmd binds a command's flags and environment to a fresh viper
// instance, plus an optional skillcourse.{yaml,json,toml} config file.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SKILLCOURSE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("skillcourse")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/skillcourse")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}
	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)
	cfg := config.FromViper(v)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()

	secret := cfg.AuthSecret
	if secret == "" {
		secret = "supersecret-dev-key"
		slog.Warn("auth-secret not set, using the dev default")
	}
	authSvc := auth.NewAuthService(secret)

	userStore := users.NewStore(dbh)
	questionStore := questionbank.NewSQLStore(dbh)
	accessor := questionbank.NewAccessor(questionStore)
	ledger := tokens.NewLedger(dbh)
	resultStore := assessment.NewSQLResultStore(dbh)
	assessSvc := assessment.NewService(accessor, ledger, resultStore)
	sessions := assessment.NewManager()
	courseStore := enrollment.NewStore(dbh)
	analyticsStore := analytics.NewStore(dbh)
	activity := audit.NewLog(dbh)

	materials, err := storage.NewFSStore(cfg.MaterialsPath)
	if err != nil {
		return fmt.Errorf("material store: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public surface: login, registration, password reset.
	r.Post("/auth/login", auth.LoginHandler(authSvc, userStore))
	r.Post("/auth/register", api.RegisterHandler(userStore))
	r.Post("/auth/forgot-password", api.ForgotPasswordHandler(userStore))

	// Protected API (JWT → role in context → RBAC).
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh))

		// Student panel.
		pr.With(rbac.Require("profile:view")).
			Get("/me", api.ProfileHandler(userStore))
		pr.With(rbac.Require("results:view-own")).
			Get("/me/results", api.MyResultsHandler(resultStore))

		pr.Route("/assessment", func(ar chi.Router) {
			ar.Use(rbac.Require("assessment:run"))
			ar.Post("/skills/extract", api.ExtractSkillsHandler())
			ar.Get("/session", api.GetSessionHandler(sessions))
			ar.Post("/session/skill", api.SelectSkillHandler(sessions))
			ar.Post("/session/enter", api.EnterAssessmentHandler(sessions))
			ar.Post("/session/start", api.StartAssessmentHandler(sessions, assessSvc))
			ar.Get("/session/question", api.CurrentQuestionHandler(sessions))
			ar.Post("/session/answer", api.AnswerHandler(sessions))
			ar.Post("/session/next", api.NavigateHandler(sessions, true))
			ar.Post("/session/prev", api.NavigateHandler(sessions, false))
			ar.Post("/session/submit", api.SubmitHandler(sessions, assessSvc))
			ar.Post("/session/reset", api.ResetSessionHandler(sessions))
		})

		pr.With(rbac.Require("courses:browse")).
			Get("/courses", api.BrowseCoursesHandler(courseStore))
		pr.With(rbac.Require("courses:enroll")).
			Post("/courses/{courseID}/enroll", api.EnrollHandler(courseStore))
		pr.With(rbac.Require("courses:enroll")).
			Get("/me/courses", api.MyCoursesHandler(courseStore))
		pr.With(rbac.Require("content:purchase")).
			Post("/contents/{contentID}/purchase", api.PurchaseContentHandler(courseStore))
		pr.With(rbac.Require("courses:enroll")).
			Get("/contents/{contentID}/download", api.DownloadContentHandler(courseStore, materials))

		// Instructor panel.
		pr.With(rbac.Require("courses:create")).
			Post("/courses", api.CreateCourseHandler(courseStore, activity))
		pr.With(rbac.Require("courses:manage-own")).
			Post("/courses/{courseID}/contents", api.AddContentHandler(courseStore))
		pr.With(rbac.Require("courses:manage-own")).
			Post("/contents/{contentID}/file", api.UploadContentFileHandler(courseStore, materials))
		pr.With(rbac.Require("enrollments:decide")).
			Post("/courses/{courseID}/enrollments/decide", api.DecideEnrollmentHandler(courseStore, activity))

		pr.With(rbac.Require("students:list")).
			Get("/students", api.ListStudentsHandler(userStore))
		pr.With(rbac.Require("tokens:adjust")).
			Post("/students/{username}/tokens/grant", api.GrantTokenHandler(ledger, activity))
		pr.With(rbac.Require("tokens:adjust")).
			Post("/students/{username}/tokens/revoke", api.RevokeTokenHandler(ledger, activity))
		pr.With(rbac.Require("tokens:reset")).
			Post("/students/{username}/tokens/reset", api.ResetTokensHandler(ledger, activity))
		pr.With(rbac.Require("tokens:reset")).
			Post("/students/tokens/bulk-reset", api.BulkResetTokensHandler(ledger, activity))
		pr.With(rbac.Require("tokens:logs")).
			Get("/tokens/logs", api.TokenLogHandler(ledger))
		pr.With(rbac.Require("tokens:logs")).
			Get("/students/{username}/tokens/usage", api.UsageLogHandler(ledger))

		pr.With(rbac.Require("analytics:view")).
			Get("/analytics/tokens", api.TokenOverviewHandler(analyticsStore))
		pr.With(rbac.Require("analytics:view")).
			Get("/analytics/ranking", api.RankingHandler(analyticsStore))
		pr.With(rbac.Require("analytics:view")).
			Get("/analytics/skills/{username}", api.SkillBreakdownHandler(analyticsStore))
		pr.With(rbac.Require("analytics:view")).
			Get("/analytics/scores", api.ScoresOverTimeHandler(analyticsStore))
		pr.With(rbac.Require("analytics:view")).
			Get("/analytics/compare", api.CompareStudentsHandler(analyticsStore))

		// Admin panel (wildcard role only).
		pr.With(rbac.Require("registrations:decide")).
			Get("/registrations", api.RegistrationsHandler(userStore))
		pr.With(rbac.Require("registrations:decide")).
			Put("/registrations/{id}", api.UpdateRegistrationHandler(userStore))
		pr.With(rbac.Require("registrations:decide")).
			Post("/registrations/{id}/approve", api.ApproveRegistrationHandler(userStore, activity))
		pr.With(rbac.Require("registrations:decide")).
			Post("/registrations/{id}/reject", api.RejectRegistrationHandler(userStore, activity))
		pr.With(rbac.Require("courses:approve")).
			Get("/admin/courses/pending", api.PendingCoursesHandler(courseStore))
		pr.With(rbac.Require("courses:approve")).
			Post("/admin/courses/{courseID}/decide", api.DecideCourseHandler(courseStore, activity))
		pr.With(rbac.Require("questions:import")).
			Post("/admin/questions/import", api.ImportQuestionsHandler(questionStore, activity))
		pr.With(rbac.Require("activity:view")).
			Get("/admin/activity", api.ActivityLogHandler(activity))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	slog.Info("listening", "addr", cfg.HTTPAddr, "db", cfg.DBDriver)
	return http.ListenAndServe(cfg.HTTPAddr, r)
}
