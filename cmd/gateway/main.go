package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	api "github.com/coursekit/coursekit-lms/internal/api/http"
	auth "github.com/coursekit/coursekit-lms/internal/auth/middleware"
	"github.com/coursekit/coursekit-lms/internal/authoring"
	"github.com/coursekit/coursekit-lms/internal/config"
	"github.com/coursekit/coursekit-lms/internal/course"
	"github.com/coursekit/coursekit-lms/internal/db"
	"github.com/coursekit/coursekit-lms/internal/grading"
	"github.com/coursekit/coursekit-lms/internal/progression"
	rbac "github.com/coursekit/coursekit-lms/internal/rbac"
	syncx "github.com/coursekit/coursekit-lms/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if err := seedAdmin(ctx, dbh, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	store := course.NewSQLStore(dbh, cfg.DBDriver)
	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	svc := progression.NewService(store, grading.NewGrader(), events, time.Now)
	importer := authoring.NewImporter(store, time.Now)

	// --- Auth (local JWT) ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → DB role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.AuthClaimFallback))

		// Catalog
		pr.With(rbac.Require("course:view")).
			Get("/courses", api.ListCoursesHandler(store))
		pr.With(rbac.Require("course:view")).
			Get("/courses/{courseID}", api.GetCourseHandler(store))
		pr.With(rbac.Require("plan:view")).
			Get("/plans", api.ListPlansHandler(store))
		pr.With(rbac.Require("plan:view")).
			Get("/plans/{planID}", api.GetPlanHandler(store))
		pr.With(rbac.Require("course:view")).
			Get("/tests/{testID}", api.GetTestHandler(store))

		// Enrollment lifecycle
		pr.With(rbac.Require("enroll:self")).
			Post("/enrollments", api.EnrollHandler(svc))
		pr.With(rbac.RequireAny("enroll:self", "enroll:list")).
			Get("/enrollments", api.ListEnrollmentsHandler(store))
		pr.With(rbac.Require("enroll:approve")).
			Post("/enrollments/{enrollmentID}/approve", api.ApproveEnrollmentHandler(svc))
		pr.With(rbac.RequireAny("enroll:drop", "enroll:list")).
			Post("/enrollments/{enrollmentID}/drop", api.DropEnrollmentHandler(svc))

		// Learner signals + progress views
		pr.With(rbac.Require("progress:signal")).
			Post("/progress/video", api.VideoProgressHandler(svc))
		pr.With(rbac.Require("progress:signal")).
			Post("/progress/viewed", api.ViewedHandler(svc))
		pr.With(rbac.Require("progress:view-own")).
			Get("/courses/{courseID}/progress", api.MyProgressHandler(svc))
		pr.With(rbac.Require("progress:view-any")).
			Get("/users/{userID}/courses/{courseID}/progress", api.UserProgressHandler(svc))

		// Test attempts
		pr.With(rbac.Require("attempt:submit")).
			Post("/tests/{testID}/attempts", api.SubmitAttemptHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(store))

		// Transition feed for the notification/credential collaborator
		pr.With(rbac.Require("events:read")).
			Get("/events", api.EventsHandler(events))

		// Authoring (instructor/admin)
		pr.With(rbac.Require("authoring:write")).
			Post("/authoring/courses", api.CreateCourseHandler(store, time.Now))
		pr.With(rbac.Require("authoring:write")).
			Put("/authoring/courses/{courseID}", api.UpdateCourseHandler(store))
		pr.With(rbac.Require("authoring:write")).
			Post("/authoring/courses/{courseID}/items", api.CreateItemHandler(store))
		pr.With(rbac.Require("authoring:write")).
			Put("/authoring/items/{itemID}", api.UpdateItemHandler(store))
		pr.With(rbac.Require("authoring:write")).
			Post("/authoring/tests", api.CreateTestHandler(store, time.Now))
		pr.With(rbac.Require("authoring:write")).
			Get("/authoring/tests", api.ListTestsHandler(store))
		pr.With(rbac.Require("authoring:write")).
			Put("/authoring/tests/{testID}", api.UpdateTestHandler(store))
		pr.With(rbac.Require("authoring:write")).
			Get("/authoring/tests/{testID}", api.GetTestAuthoringHandler(store))
		pr.With(rbac.Require("authoring:write")).
			Post("/authoring/plans", api.CreatePlanHandler(store, time.Now))
		pr.With(rbac.Require("authoring:write")).
			Put("/authoring/plans/{planID}", api.UpdatePlanHandler(store))
		pr.With(rbac.Require("authoring:import")).
			Post("/authoring/import", api.ImportPackHandler(importer))

		// Users (instructor/admin; role changes admin-only)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("users:update")).
			Patch("/users/{userID}", api.UpdateUserRoleHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	if cfg.PublicURL != "" {
		log.Printf("public url %s", cfg.PublicURL)
	}
	log.Printf("listening on %s (mode=%s, db=%s, site=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.SiteID)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

// seedAdmin guarantees a usable admin login on a fresh database. Existing
// rows are left alone, so rotating ADMIN_PASS_HASH only affects new installs.
func seedAdmin(ctx context.Context, dbh *sql.DB, username, passHash string) error {
	if username == "" || passHash == "" {
		return nil
	}
	_, err := dbh.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES ($1,$2,$3,'admin',$4)
		ON CONFLICT (username) DO NOTHING`,
		username, username, passHash, time.Now().Unix())
	return err
}
