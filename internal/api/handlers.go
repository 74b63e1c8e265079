package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/harrylevesque/primetrade/internal/auth"
	"github.com/harrylevesque/primetrade/internal/models"
	"github.com/harrylevesque/primetrade/internal/service"
	"github.com/harrylevesque/primetrade/internal/utils"
)

const maxBodyBytes = 1 << 20

// DBProbe returns the database clock, failing when the database is unreachable.
type DBProbe func(ctx context.Context) (time.Time, error)

// Handler serves the JSON API.
type Handler struct {
	accounts   *service.AccountService
	tasks      *service.TaskService
	authMW     *auth.Middleware
	probe      DBProbe
	cookieName string
	tokenTTL   time.Duration
	secure     bool
	logger     utils.Logger
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Accounts   *service.AccountService
	Tasks      *service.TaskService
	AuthMW     *auth.Middleware
	Probe      DBProbe
	CookieName string
	TokenTTL   time.Duration
	Secure     bool
	Logger     utils.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		accounts:   cfg.Accounts,
		tasks:      cfg.Tasks,
		authMW:     cfg.AuthMW,
		probe:      cfg.Probe,
		cookieName: cfg.CookieName,
		tokenTTL:   cfg.TokenTTL,
		secure:     cfg.Secure,
		logger:     cfg.Logger.WithPrefix("api"),
	}
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// fail writes err to the client, logging anything that is not a client error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if _, ok := utils.AsAPIError(err); !ok {
		h.logger.Error(fallback, map[string]interface{}{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
	}
	utils.WriteError(w, err, fallback)
}

func currentUserID(r *http.Request) int64 {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		return 0
	}
	return claims.UserID
}

// taskID parses {id}. A malformed id cannot name a task, so it is reported as not found.
func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		utils.ErrorResponse(w, http.StatusNotFound, service.MsgTaskNotFound)
		return 0, false
	}
	return id, true
}

// Signup handles POST /api/auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if !decode(w, r, &in) {
		return
	}
	if _, err := h.accounts.Signup(r.Context(), in); err != nil {
		h.fail(w, r, err, "Internal Server Error")
		return
	}
	utils.JSONResponse(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
}

// Login handles POST /api/auth/login and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if !decode(w, r, &in) {
		return
	}
	res, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "Internal Server Error")
		return
	}
	auth.SetAuthCookie(w, h.cookieName, res.Token, h.tokenTTL, h.secure)
	utils.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    res.User,
		"success": true,
	})
}

// Logout handles POST /api/auth/logout. It succeeds even without a valid session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, err := h.authMW.Authenticate(r); err == nil {
		if err := h.accounts.Logout(r.Context(), claims); err != nil {
			h.logger.Warn("failed to revoke token", map[string]interface{}{"error": err.Error()})
		}
	}
	auth.ClearAuthCookie(w, h.cookieName, h.secure)
	utils.JSONResponse(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// GetProfile handles GET /api/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.Profile(r.Context(), currentUserID(r))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch profile")
		return
	}
	utils.JSONResponse(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

// UpdateProfile handles PUT /api/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileUpdate
	if !decode(w, r, &in) {
		return
	}
	profile, err := h.accounts.UpdateProfile(r.Context(), currentUserID(r), in)
	if err != nil {
		h.fail(w, r, err, "Failed to update profile")
		return
	}
	utils.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"profile": profile,
	})
}

// ListTasks handles GET /api/tasks?search=&status=&sortBy=&order=.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := h.tasks.List(r.Context(), currentUserID(r), models.TaskFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
	})
	if err != nil {
		h.fail(w, r, err, "Failed to fetch tasks")
		return
	}
	utils.JSONResponse(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in service.TaskInput
	if !decode(w, r, &in) {
		return
	}
	task, err := h.tasks.Create(r.Context(), currentUserID(r), in)
	if err != nil {
		h.fail(w, r, err, "Failed to create task")
		return
	}
	utils.JSONResponse(w, http.StatusCreated, map[string]interface{}{
		"message": "Task created successfully",
		"task":    task,
	})
}

// GetTask handles GET /api/tasks/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := h.tasks.Get(r.Context(), currentUserID(r), id)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch task")
		return
	}
	utils.JSONResponse(w, http.StatusOK, map[string]interface{}{"task": task})
}

// UpdateTask handles PUT /api/tasks/{id}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var in service.TaskInput
	if !decode(w, r, &in) {
		return
	}
	task, err := h.tasks.Update(r.Context(), currentUserID(r), id, in)
	if err != nil {
		h.fail(w, r, err, "Failed to update task")
		return
	}
	utils.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Task updated successfully",
		"task":    task,
	})
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := h.tasks.Delete(r.Context(), currentUserID(r), id); err != nil {
		h.fail(w, r, err, "Failed to delete task")
		return
	}
	utils.JSONResponse(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// DBTest handles GET /api/db-test.
func (h *Handler) DBTest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	now, err := h.probe(ctx)
	if err != nil {
		h.logger.Error("database check failed", map[string]interface{}{"error": err.Error()})
		utils.JSONResponse(w, http.StatusInternalServerError, map[string]string{
			"status": "Disconnected",
			"error":  err.Error(),
			"hint":   "Check your database credentials in .env.local",
		})
		return
	}
	utils.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "Connected",
		"timestamp": now,
		"message":   "Database connection is healthy!",
	})
}
