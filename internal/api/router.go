package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harrylevesque/primetrade/internal/auth"
	"github.com/harrylevesque/primetrade/internal/metrics"
	"github.com/harrylevesque/primetrade/internal/middleware"
	"github.com/harrylevesque/primetrade/internal/utils"
)

// PageRoutes mounts the server-rendered pages.
type PageRoutes interface {
	RegisterRoutes(r *mux.Router)
}

// RouterConfig holds everything NewRouter mounts.
type RouterConfig struct {
	Handler     *Handler
	AuthMW      *auth.Middleware
	Pages       PageRoutes
	AuthLimiter func(http.Handler) http.Handler
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      utils.Logger
}

// NewRouter builds the complete HTTP surface: API, pages, health and metrics.
func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(cfg.Logger.WithPrefix("http")))
	// Metrics wraps Recover so recovered panics are counted as 500s.
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.SecurityHeaders)

	limit := cfg.AuthLimiter
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "OK")
	}).Methods("GET")
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	h := cfg.Handler
	apiRouter := r.PathPrefix("/api").Subrouter()

	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	authRouter.Use(mux.MiddlewareFunc(limit))
	authRouter.HandleFunc("/signup", h.Signup).Methods("POST")
	authRouter.HandleFunc("/login", h.Login).Methods("POST")
	authRouter.HandleFunc("/logout", h.Logout).Methods("POST")

	apiRouter.HandleFunc("/db-test", h.DBTest).Methods("GET")

	protected := apiRouter.NewRoute().Subrouter()
	protected.Use(cfg.AuthMW.RequireAPI)
	protected.HandleFunc("/profile", h.GetProfile).Methods("GET")
	protected.HandleFunc("/profile", h.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/tasks", h.ListTasks).Methods("GET")
	protected.HandleFunc("/tasks", h.CreateTask).Methods("POST")
	protected.HandleFunc("/tasks/{id}", h.GetTask).Methods("GET")
	protected.HandleFunc("/tasks/{id}", h.UpdateTask).Methods("PUT")
	protected.HandleFunc("/tasks/{id}", h.DeleteTask).Methods("DELETE")

	apiRouter.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.ErrorResponse(w, http.StatusNotFound, "Not found")
	})

	if cfg.Pages != nil {
		cfg.Pages.RegisterRoutes(r)
	}
	return r
}
