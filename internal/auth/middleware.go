package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/harrylevesque/primetrade/internal/utils"
)

type contextKey struct{}

// WithClaims returns a context carrying the authenticated identity.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// UserFromContext returns the identity stored by the middleware.
func UserFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok && claims != nil
}

// Middleware guards routes with the session token.
type Middleware struct {
	tokens     *TokenManager
	cookieName string
	secure     bool
	logger     utils.Logger
}

func NewMiddleware(tokens *TokenManager, cookieName string, secure bool, logger utils.Logger) *Middleware {
	return &Middleware{
		tokens:     tokens,
		cookieName: cookieName,
		secure:     secure,
		logger:     logger,
	}
}

// Authenticate resolves the token on r, if any.
func (m *Middleware) Authenticate(r *http.Request) (*Claims, error) {
	token := TokenFromRequest(r, m.cookieName)
	if token == "" {
		return nil, ErrInvalidToken
	}
	return m.tokens.Parse(r.Context(), token)
}

// RequireAPI rejects unauthenticated API calls with a JSON 401.
func (m *Middleware) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.Authenticate(r)
		if err != nil {
			m.logRejection(r, err)
			utils.ErrorResponse(w, http.StatusUnauthorized, "Unauthorized - Please login")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequirePage sends unauthenticated browsers to the login page and drops a bad cookie.
func (m *Middleware) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.Authenticate(r)
		if err != nil {
			m.logRejection(r, err)
			if _, cerr := r.Cookie(m.cookieName); cerr == nil {
				ClearAuthCookie(w, m.cookieName, m.secure)
			}
			http.Redirect(w, r, "/auth", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RedirectIfAuthenticated sends signed-in users from the login page to the dashboard.
func (m *Middleware) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := m.Authenticate(r); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) logRejection(r *http.Request, err error) {
	if errors.Is(err, ErrInvalidToken) && TokenFromRequest(r, m.cookieName) == "" {
		return
	}
	m.logger.Warn("rejected session token", map[string]interface{}{
		"path":   r.URL.Path,
		"reason": err.Error(),
	})
}
