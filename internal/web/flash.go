package web

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
)

const flashSession = "primetrade-flash"

// Flash is a one-shot message shown on the next page.
type Flash struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(Flash{})
}

// NewFlashStore returns a signed cookie store for flash messages.
func NewFlashStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (p *Pages) addFlash(w http.ResponseWriter, r *http.Request, kind, msg string) {
	session, _ := p.sessions.Get(r, flashSession)
	session.AddFlash(Flash{Kind: kind, Message: msg})
	if err := session.Save(r, w); err != nil {
		p.logger.Warn("failed to save flash", map[string]interface{}{"error": err.Error()})
	}
}

// popFlash returns and clears the pending flash, if any.
func (p *Pages) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	session, err := p.sessions.Get(r, flashSession)
	if err != nil {
		return nil
	}
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := session.Save(r, w); err != nil {
		p.logger.Warn("failed to clear flash", map[string]interface{}{"error": err.Error()})
	}
	f, ok := flashes[len(flashes)-1].(Flash)
	if !ok {
		return nil
	}
	return &f
}
