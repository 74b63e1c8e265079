package auth

import (
	"crypto/hmac"
	"net/http"

	"github.com/harrylevesque/primetrade/internal/crypto"
)

const (
	// CSRFCookieName holds the per-browser token.
	CSRFCookieName = "csrf-token"
	// CSRFFieldName is the hidden form field echoing it.
	CSRFFieldName = "csrf_token"
)

// GenerateCSRFToken generates a CSRF token.
func GenerateCSRFToken() (string, error) {
	return crypto.RandomToken(32)
}

// SetCSRFToken sets a CSRF token in a cookie.
func SetCSRFToken(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// EnsureCSRFToken returns the request's CSRF token, minting and setting a new one if absent.
func EnsureCSRFToken(w http.ResponseWriter, r *http.Request, secure bool) (string, error) {
	if c, err := r.Cookie(CSRFCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	token, err := GenerateCSRFToken()
	if err != nil {
		return "", err
	}
	SetCSRFToken(w, token, secure)
	return token, nil
}

// ValidateCSRFToken compares the submitted form token with the cookie.
func ValidateCSRFToken(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	token := r.PostFormValue(CSRFFieldName)
	if token == "" {
		token = r.Header.Get("X-CSRF-Token")
	}
	return hmac.Equal([]byte(token), []byte(cookie.Value))
}
