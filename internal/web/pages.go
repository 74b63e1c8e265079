// Package web serves the server-rendered login, dashboard and profile pages.
package web

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"github.com/harrylevesque/primetrade/internal/auth"
	"github.com/harrylevesque/primetrade/internal/models"
	"github.com/harrylevesque/primetrade/internal/service"
	"github.com/harrylevesque/primetrade/internal/utils"
)

const msgCurrentPasswordRequired = "Please enter your current password to update profile"

type sortOption struct {
	Value string
	Label string
}

var sortOptions = []sortOption{
	{models.SortCreatedAt, "Created"},
	{models.SortUpdatedAt, "Updated"},
	{models.SortTitle, "Title"},
	{models.SortStatus, "Status"},
}

type formValues struct {
	Name  string
	Email string
}

// pageData is the view model shared by every page. Unused fields stay zero.
type pageData struct {
	CSRF  string
	Flash *Flash
	Error string
	User  *models.Profile

	Signup bool
	Form   formValues

	Tasks      []*models.Task
	Task       *models.Task
	Stats      models.TaskStats
	Filter     models.TaskFilter
	Statuses   []models.TaskStatus
	SortFields []sortOption
}

// Pages serves the HTML front end.
type Pages struct {
	accounts   *service.AccountService
	tasks      *service.TaskService
	authMW     *auth.Middleware
	sessions   sessions.Store
	limiter    func(http.Handler) http.Handler
	cookieName string
	tokenTTL   time.Duration
	secure     bool
	templates  map[string]*template.Template
	logger     utils.Logger
}

// Config wires Pages.
type Config struct {
	Accounts   *service.AccountService
	Tasks      *service.TaskService
	AuthMW     *auth.Middleware
	Sessions   sessions.Store
	Limiter    func(http.Handler) http.Handler
	CookieName string
	TokenTTL   time.Duration
	Secure     bool
	Logger     utils.Logger
}

// New parses the embedded templates and returns the page handlers.
func New(cfg Config) (*Pages, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = func(next http.Handler) http.Handler { return next }
	}
	return &Pages{
		accounts:   cfg.Accounts,
		tasks:      cfg.Tasks,
		authMW:     cfg.AuthMW,
		sessions:   cfg.Sessions,
		limiter:    limiter,
		cookieName: cfg.CookieName,
		tokenTTL:   cfg.TokenTTL,
		secure:     cfg.Secure,
		templates:  templates,
		logger:     cfg.Logger.WithPrefix("web"),
	}, nil
}

// RegisterRoutes mounts the pages on r.
func (p *Pages) RegisterRoutes(r *mux.Router) {
	r.PathPrefix("/static/").Handler(staticHandler()).Methods("GET")

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/auth", http.StatusFound)
	}).Methods("GET")

	r.Handle("/auth", p.authMW.RedirectIfAuthenticated(http.HandlerFunc(p.authPage))).Methods("GET")
	r.Handle("/auth/login", p.limiter(p.csrf(p.login))).Methods("POST")
	r.Handle("/auth/signup", p.limiter(p.csrf(p.signup))).Methods("POST")
	r.Handle("/auth/logout", p.csrf(p.logout)).Methods("POST")

	dash := r.PathPrefix("/dashboard").Subrouter()
	dash.Use(p.authMW.RequirePage)
	dash.HandleFunc("", p.dashboard).Methods("GET")
	dash.Handle("/tasks", p.csrf(p.createTask)).Methods("POST")
	dash.HandleFunc("/tasks/{id:[0-9]+}/edit", p.editTask).Methods("GET")
	dash.Handle("/tasks/{id:[0-9]+}", p.csrf(p.updateTask)).Methods("POST")
	dash.Handle("/tasks/{id:[0-9]+}/delete", p.csrf(p.deleteTask)).Methods("POST")
	dash.HandleFunc("/profile", p.profilePage).Methods("GET")
	dash.Handle("/profile", p.csrf(p.updateProfile)).Methods("POST")
}

// csrf rejects form posts whose token does not match the cookie.
func (p *Pages) csrf(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.ValidateCSRFToken(r) {
			p.logger.Warn("csrf token mismatch", map[string]interface{}{"path": r.URL.Path})
			http.Error(w, "Invalid CSRF token", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

// newPage prepares the shared view fields, minting a CSRF token if needed.
func (p *Pages) newPage(w http.ResponseWriter, r *http.Request) (*pageData, bool) {
	token, err := auth.EnsureCSRFToken(w, r, p.secure)
	if err != nil {
		p.logger.Error("failed to create csrf token", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return &pageData{
		CSRF:       token,
		Flash:      p.popFlash(w, r),
		Statuses:   models.TaskStatuses,
		SortFields: sortOptions,
	}, true
}

// userMessage is the text shown for err, hiding internal failures behind fallback.
func (p *Pages) userMessage(r *http.Request, err error, fallback string) (int, string) {
	if apiErr, ok := utils.AsAPIError(err); ok {
		return apiErr.Status, apiErr.Message
	}
	p.logger.Error(fallback, map[string]interface{}{"path": r.URL.Path, "error": err.Error()})
	return http.StatusInternalServerError, fallback
}

func userID(r *http.Request) int64 {
	claims, _ := auth.UserFromContext(r.Context())
	if claims == nil {
		return 0
	}
	return claims.UserID
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func (p *Pages) redirectWithFlash(w http.ResponseWriter, r *http.Request, to, kind, msg string) {
	p.addFlash(w, r, kind, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (p *Pages) authPage(w http.ResponseWriter, r *http.Request) {
	data, ok := p.newPage(w, r)
	if !ok {
		return
	}
	data.Signup = r.URL.Query().Get("mode") == "signup"
	p.render(w, http.StatusOK, "auth.html", data)
}

func (p *Pages) renderAuthError(w http.ResponseWriter, r *http.Request, signup bool, status int, msg string) {
	data, ok := p.newPage(w, r)
	if !ok {
		return
	}
	data.Signup = signup
	data.Error = msg
	data.Form = formValues{Name: r.PostFormValue("name"), Email: r.PostFormValue("email")}
	p.render(w, status, "auth.html", data)
}

func (p *Pages) login(w http.ResponseWriter, r *http.Request) {
	res, err := p.accounts.Login(r.Context(), service.LoginInput{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		status, msg := p.userMessage(r, err, "Internal Server Error")
		p.renderAuthError(w, r, false, status, msg)
		return
	}
	auth.SetAuthCookie(w, p.cookieName, res.Token, p.tokenTTL, p.secure)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (p *Pages) signup(w http.ResponseWriter, r *http.Request) {
	_, err := p.accounts.Signup(r.Context(), service.SignupInput{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Name:     r.PostFormValue("name"),
	})
	if err != nil {
		status, msg := p.userMessage(r, err, "Internal Server Error")
		p.renderAuthError(w, r, true, status, msg)
		return
	}
	p.redirectWithFlash(w, r, "/auth", "success", "Account created! Please log in.")
}

func (p *Pages) logout(w http.ResponseWriter, r *http.Request) {
	if claims, err := p.authMW.Authenticate(r); err == nil {
		if err := p.accounts.Logout(r.Context(), claims); err != nil {
			p.logger.Warn("failed to revoke token", map[string]interface{}{"error": err.Error()})
		}
	}
	auth.ClearAuthCookie(w, p.cookieName, p.secure)
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

// loadUser fetches the signed-in profile. A session whose user vanished is ended.
func (p *Pages) loadUser(w http.ResponseWriter, r *http.Request, data *pageData) bool {
	profile, err := p.accounts.Profile(r.Context(), userID(r))
	if err != nil {
		if apiErr, ok := utils.AsAPIError(err); ok && apiErr.Status == http.StatusNotFound {
			auth.ClearAuthCookie(w, p.cookieName, p.secure)
			http.Redirect(w, r, "/auth", http.StatusFound)
			return false
		}
		status, msg := p.userMessage(r, err, "Failed to fetch profile")
		http.Error(w, msg, status)
		return false
	}
	data.User = profile
	return true
}

func (p *Pages) dashboard(w http.ResponseWriter, r *http.Request) {
	data, ok := p.newPage(w, r)
	if !ok || !p.loadUser(w, r, data) {
		return
	}

	q := r.URL.Query()
	data.Filter = models.TaskFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
	}.Normalize()

	tasks, err := p.tasks.List(r.Context(), data.User.ID, data.Filter)
	if err != nil {
		status, msg := p.userMessage(r, err, "Failed to fetch tasks")
		data.Error = msg
		p.render(w, status, "dashboard.html", data)
		return
	}
	data.Tasks = tasks
	data.Stats = p.tasks.Stats(tasks)
	p.render(w, http.StatusOK, "dashboard.html", data)
}

func taskInputFromForm(r *http.Request) service.TaskInput {
	desc := r.PostFormValue("description")
	in := service.TaskInput{Title: r.PostFormValue("title"), Description: &desc}
	if status := r.PostFormValue("status"); status != "" {
		in.Status = &status
	}
	return in
}

func (p *Pages) createTask(w http.ResponseWriter, r *http.Request) {
	if _, err := p.tasks.Create(r.Context(), userID(r), taskInputFromForm(r)); err != nil {
		_, msg := p.userMessage(r, err, "Failed to create task")
		p.redirectWithFlash(w, r, "/dashboard", "error", msg)
		return
	}
	p.redirectWithFlash(w, r, "/dashboard", "success", "Task created successfully!")
}

func (p *Pages) editTask(w http.ResponseWriter, r *http.Request) {
	task, err := p.tasks.Get(r.Context(), userID(r), pathID(r))
	if err != nil {
		_, msg := p.userMessage(r, err, "Failed to fetch task")
		p.redirectWithFlash(w, r, "/dashboard", "error", msg)
		return
	}
	data, ok := p.newPage(w, r)
	if !ok || !p.loadUser(w, r, data) {
		return
	}
	data.Task = task
	p.render(w, http.StatusOK, "task_edit.html", data)
}

func (p *Pages) updateTask(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	in := taskInputFromForm(r)
	if _, err := p.tasks.Update(r.Context(), userID(r), id, in); err != nil {
		status, msg := p.userMessage(r, err, "Failed to update task")
		if status == http.StatusNotFound {
			p.redirectWithFlash(w, r, "/dashboard", "error", msg)
			return
		}
		data, ok := p.newPage(w, r)
		if !ok || !p.loadUser(w, r, data) {
			return
		}
		data.Error = msg
		data.Task = &models.Task{ID: id, Title: in.Title, Description: *in.Description}
		if in.Status != nil {
			data.Task.Status = models.TaskStatus(*in.Status)
		}
		p.render(w, status, "task_edit.html", data)
		return
	}
	p.redirectWithFlash(w, r, "/dashboard", "success", "Task updated successfully!")
}

func (p *Pages) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := p.tasks.Delete(r.Context(), userID(r), pathID(r)); err != nil {
		_, msg := p.userMessage(r, err, "Failed to delete task")
		p.redirectWithFlash(w, r, "/dashboard", "error", msg)
		return
	}
	p.redirectWithFlash(w, r, "/dashboard", "info", "Task deleted successfully!")
}

func (p *Pages) profilePage(w http.ResponseWriter, r *http.Request) {
	data, ok := p.newPage(w, r)
	if !ok || !p.loadUser(w, r, data) {
		return
	}
	data.Form = formValues{Name: data.User.Name, Email: data.User.Email}
	p.render(w, http.StatusOK, "profile.html", data)
}

func (p *Pages) updateProfile(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("name")
	email := r.PostFormValue("email")
	current := r.PostFormValue("current_password")

	fail := func(status int, msg string) {
		data, ok := p.newPage(w, r)
		if !ok || !p.loadUser(w, r, data) {
			return
		}
		data.Error = msg
		data.Form = formValues{Name: name, Email: email}
		p.render(w, status, "profile.html", data)
	}

	if current == "" {
		fail(http.StatusBadRequest, msgCurrentPasswordRequired)
		return
	}

	update := service.ProfileUpdate{Email: &email, CurrentPassword: &current}
	if strings.TrimSpace(name) != "" {
		update.Name = &name
	}
	if _, err := p.accounts.UpdateProfile(r.Context(), userID(r), update); err != nil {
		fail(p.userMessage(r, err, "Failed to update profile"))
		return
	}
	p.redirectWithFlash(w, r, "/dashboard", "success", "Profile updated successfully!")
}
