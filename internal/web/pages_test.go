package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/primetrade/internal/auth"
	"github.com/harrylevesque/primetrade/internal/metrics"
	"github.com/harrylevesque/primetrade/internal/service"
	"github.com/harrylevesque/primetrade/internal/store/memstore"
	"github.com/harrylevesque/primetrade/internal/utils"
)

// browser replays the cookies a real client would keep between requests.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T) *browser {
	t.Helper()
	logger := utils.NewNopLogger()
	m := metrics.NewNop()
	mem := memstore.New()
	tokens := auth.NewTokenManager([]byte("test-secret"), "primetrade", time.Hour, auth.NewMemoryRevocations())
	authMW := auth.NewMiddleware(tokens, auth.DefaultCookieName, false, logger)

	pages, err := New(Config{
		Accounts:   service.NewAccountService(mem.Users(), tokens, 4, m, logger),
		Tasks:      service.NewTaskService(mem.Tasks(), m),
		AuthMW:     authMW,
		Sessions:   NewFlashStore([]byte("0123456789abcdef0123456789abcdef"), false),
		CookieName: auth.DefaultCookieName,
		TokenTTL:   time.Hour,
		Logger:     logger,
	})
	require.NoError(t, err)

	r := mux.NewRouter()
	pages.RegisterRoutes(r)
	return &browser{t: t, handler: r, cookies: map[string]*http.Cookie{}}
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.send(httptest.NewRequest("GET", path, nil))
}

// post submits a form, adding the CSRF token the browser holds.
func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	if c, ok := b.cookies[auth.CSRFCookieName]; ok && form.Get(auth.CSRFFieldName) == "" {
		form.Set(auth.CSRFFieldName, c.Value)
	}
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

func (b *browser) signIn(email string) {
	b.t.Helper()
	b.get("/auth")
	rec := b.post("/auth/signup", url.Values{"email": {email}, "password": {"secret1"}, "name": {"Ada"}})
	require.Equal(b.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	rec = b.post("/auth/login", url.Values{"email": {email}, "password": {"secret1"}})
	require.Equal(b.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(b.t, "/dashboard", rec.Header().Get("Location"))
}

func TestRootRedirectsToAuth(t *testing.T) {
	b := newBrowser(t)
	rec := b.get("/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))
}

func TestAuthPageModes(t *testing.T) {
	b := newBrowser(t)

	rec := b.get("/auth")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome Back")
	assert.Contains(t, b.cookies, auth.CSRFCookieName)

	rec = b.get("/auth?mode=signup")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Create Account")
}

func TestFormPostWithoutCSRFIsForbidden(t *testing.T) {
	b := newBrowser(t)
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader("email=a%40b.co&password=secret1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := b.send(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	b.get("/auth")
	rec = b.post("/auth/login", url.Values{auth.CSRFFieldName: {"forged"}, "email": {"a@b.co"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSignupFlashAndLogin(t *testing.T) {
	b := newBrowser(t)
	b.get("/auth?mode=signup")

	rec := b.post("/auth/signup", url.Values{"email": {"ada@example.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))

	rec = b.get("/auth")
	assert.Contains(t, rec.Body.String(), "Account created! Please log in.")
	rec = b.get("/auth")
	assert.NotContains(t, rec.Body.String(), "Account created!")

	rec = b.post("/auth/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong12"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.Contains(t, rec.Body.String(), `value="ada@example.com"`)

	rec = b.post("/auth/login", url.Values{"email": {"ada@example.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, b.cookies, auth.DefaultCookieName)

	rec = b.get("/auth")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestSignupValidationError(t *testing.T) {
	b := newBrowser(t)
	b.get("/auth?mode=signup")

	rec := b.post("/auth/signup", url.Values{"email": {"ada@example.com"}, "password": {"123"}, "name": {"Ada"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Create Account")
	assert.Contains(t, rec.Body.String(), `value="Ada"`)
}

func TestDashboardRequiresLogin(t *testing.T) {
	b := newBrowser(t)
	rec := b.get("/dashboard")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))

	b.cookies[auth.DefaultCookieName] = &http.Cookie{Name: auth.DefaultCookieName, Value: "garbage"}
	rec = b.get("/dashboard/profile")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.NotContains(t, b.cookies, auth.DefaultCookieName)
}

func TestTaskLifecycleThroughPages(t *testing.T) {
	b := newBrowser(t)
	b.signIn("ada@example.com")

	rec := b.get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Welcome back, Ada!")
	assert.Contains(t, body, "No tasks found")

	rec = b.post("/dashboard/tasks", url.Values{"title": {"Write report"}, "description": {"quarterly"}, "status": {"in-progress"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = b.get("/dashboard")
	body = rec.Body.String()
	assert.Contains(t, body, "Task created successfully!")
	assert.Contains(t, body, "Write report")
	assert.Contains(t, body, "/dashboard/tasks/1/edit")

	rec = b.get("/dashboard/tasks/1/edit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Write report"`)

	rec = b.post("/dashboard/tasks/1", url.Values{"title": {""}, "status": {"completed"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Edit Task")

	rec = b.post("/dashboard/tasks/1", url.Values{"title": {"Final report"}, "status": {"completed"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = b.get("/dashboard?status=completed")
	body = rec.Body.String()
	assert.Contains(t, body, "Task updated successfully!")
	assert.Contains(t, body, "Final report")

	rec = b.get("/dashboard?search=nothing-matches")
	assert.Contains(t, rec.Body.String(), "No tasks found")

	rec = b.post("/dashboard/tasks/1/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = b.get("/dashboard")
	body = rec.Body.String()
	assert.Contains(t, body, "Task deleted successfully!")
	assert.Contains(t, body, "alert-info")
	assert.Contains(t, body, "No tasks found")
}

func TestForeignTaskIsNotReachable(t *testing.T) {
	owner := newBrowser(t)
	owner.signIn("owner@example.com")
	owner.post("/dashboard/tasks", url.Values{"title": {"Private"}})

	// Same server, second user.
	other := &browser{t: t, handler: owner.handler, cookies: map[string]*http.Cookie{}}
	other.signIn("other@example.com")

	rec := other.get("/dashboard/tasks/1/edit")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = other.get("/dashboard")
	assert.Contains(t, rec.Body.String(), "Task not found")
	assert.NotContains(t, rec.Body.String(), "Private")

	rec = other.post("/dashboard/tasks/1/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = owner.get("/dashboard")
	assert.Contains(t, rec.Body.String(), "Private")
}

func TestProfileUpdate(t *testing.T) {
	b := newBrowser(t)
	b.signIn("ada@example.com")

	rec := b.get("/dashboard/profile")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="ada@example.com"`)

	rec = b.post("/dashboard/profile", url.Values{"name": {"Grace"}, "email": {"grace@example.com"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgCurrentPasswordRequired)

	rec = b.post("/dashboard/profile", url.Values{"name": {"Grace"}, "email": {"grace@example.com"}, "current_password": {"wrong12"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Current password is incorrect")
	assert.Contains(t, rec.Body.String(), `value="Grace"`)

	rec = b.post("/dashboard/profile", url.Values{"name": {"Grace"}, "email": {"grace@example.com"}, "current_password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = b.get("/dashboard")
	body := rec.Body.String()
	assert.Contains(t, body, "Profile updated successfully!")
	assert.Contains(t, body, "Welcome back, Grace!")
	assert.Contains(t, body, "grace@example.com")
}

func TestLogoutEndsSession(t *testing.T) {
	b := newBrowser(t)
	b.signIn("ada@example.com")
	stolen := *b.cookies[auth.DefaultCookieName]

	rec := b.post("/auth/logout", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))
	assert.NotContains(t, b.cookies, auth.DefaultCookieName)

	b.cookies[auth.DefaultCookieName] = &stolen
	rec = b.get("/dashboard")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestStaticAssets(t *testing.T) {
	b := newBrowser(t)
	rec := b.get("/static/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}
