package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/garnizeh/hirehub/internal/account"
	"github.com/garnizeh/hirehub/internal/application"
	"github.com/garnizeh/hirehub/internal/job"
	"github.com/garnizeh/hirehub/internal/metrics"
	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Version   string
	BuildTime string

	Accounts      *account.Service
	Applications  *application.Service
	Jobs          *job.Service
	Notifications repository.NotificationRepo
	Tokens        TokenVerifier

	// OTPLimiter throttles the endpoints that send OTP emails; nil disables it.
	OTPLimiter     *RateLimiter
	AllowedOrigins []string
	Metrics        metrics.Recorder
	// Gatherer backs /metrics; nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
	Ping     func(ctx context.Context) error
}

func SetupRoutes(d Deps) http.Handler {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware(d.Metrics))
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{Ping: d.Ping}
	authHandler := NewAuthHandler(d.Accounts)
	appsHandler := NewApplicationsHandler(d.Applications)
	jobsHandler := NewJobsHandler(d.Jobs, d.Applications)
	notesHandler := NewNotificationsHandler(d.Notifications)
	adminHandler := NewAdminHandler(d.Accounts)

	otpLimited := func(h http.HandlerFunc) http.Handler {
		if d.OTPLimiter == nil {
			return h
		}
		return d.OTPLimiter.Middleware(h)
	}

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(d.Version, d.BuildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	if d.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(d.Gatherer)).Methods("GET")
	}
	r.Handle("/auth/signup", otpLimited(authHandler.Signup)).Methods("POST")
	r.HandleFunc("/auth/signup/verify", authHandler.VerifySignup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/admin/auth/login", authHandler.AdminLogin).Methods("POST")
	r.Handle("/reset-password/request", otpLimited(authHandler.RequestReset)).Methods("POST")
	r.HandleFunc("/reset-password/verify", authHandler.VerifyReset).Methods("POST")

	auth := JWTAuthMiddleware(d.Tokens)

	// Applications; the fixed paths are registered before /{applicationId}.
	apps := r.PathPrefix("/applications").Subrouter()
	apps.Use(auth)
	apps.Handle("/apply", RequireRole(models.RoleSeeker)(http.HandlerFunc(appsHandler.Apply))).Methods("POST")
	apps.Handle("/admin/all", RequireRole(models.RoleAdmin, models.RoleRecruiter)(http.HandlerFunc(appsHandler.ListAll))).Methods("GET")
	apps.HandleFunc("/user/{userId}", appsHandler.ListForUser).Methods("GET")
	apps.HandleFunc("/{applicationId}/status", appsHandler.UpdateStatus).Methods("PUT")
	apps.HandleFunc("/{applicationId}", appsHandler.Get).Methods("GET")
	apps.HandleFunc("/{applicationId}", appsHandler.Withdraw).Methods("DELETE")

	// Jobs
	jobs := r.PathPrefix("/jobs").Subrouter()
	jobs.Use(auth)
	jobs.HandleFunc("", jobsHandler.Search).Methods("GET")
	jobs.Handle("", RequireRole(models.RoleRecruiter)(http.HandlerFunc(jobsHandler.Post))).Methods("POST")
	jobs.HandleFunc("/{jobId}", jobsHandler.Get).Methods("GET")
	jobs.HandleFunc("/{jobId}", jobsHandler.Update).Methods("PUT")
	jobs.HandleFunc("/{jobId}", jobsHandler.Delete).Methods("DELETE")
	jobs.HandleFunc("/{jobId}/applications", jobsHandler.ListApplications).Methods("GET")

	recruiters := r.PathPrefix("/recruiters").Subrouter()
	recruiters.Use(auth)
	recruiters.HandleFunc("/{recruiterId}/jobs", jobsHandler.ListByRecruiter).Methods("GET")

	// Notifications
	notes := r.PathPrefix("/notifications").Subrouter()
	notes.Use(auth)
	notes.HandleFunc("", notesHandler.List).Methods("GET")
	notes.HandleFunc("/{notificationId}/seen", notesHandler.MarkSeen).Methods("PUT")

	// Admin moderation
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth, RequireRole(models.RoleAdmin))
	admin.HandleFunc("/recruiters", adminHandler.ListRecruiters).Methods("GET")
	admin.HandleFunc("/recruiters/{recruiterId}/toggle", adminHandler.ToggleRecruiter).Methods("PUT")
	admin.HandleFunc("/recruiters/{recruiterId}", adminHandler.DeleteRecruiter).Methods("DELETE")
	admin.HandleFunc("/users", adminHandler.ListUsers).Methods("GET")
	admin.HandleFunc("/users/{userId}/toggle", adminHandler.ToggleUser).Methods("PUT")
	admin.HandleFunc("/users/{userId}", adminHandler.DeleteUser).Methods("DELETE")

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSMiddleware(origins)(r)
}
