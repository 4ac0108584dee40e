// Package session resolves the authenticated principal from the
// request. Registration and credential storage live in a separate
// service; by the time a request reaches the core, the session cookie
// carries the principal's id, contact address and display name.
package session

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"

	"memorylane.app/core/appview/models"
)

const sessionName = "memorylane-session"

var ErrNoSession = errors.New("no active session")

type Store struct {
	cookies *sessions.CookieStore
}

func NewStore(secret string, dev bool) *Store {
	cookies := sessions.NewCookieStore([]byte(secret))
	cookies.Options.HttpOnly = true
	cookies.Options.SameSite = http.SameSiteLaxMode
	cookies.Options.Secure = !dev
	return &Store{cookies: cookies}
}

func (s *Store) Principal(r *http.Request) (*models.Principal, error) {
	sess, err := s.cookies.Get(r, sessionName)
	if err != nil {
		return nil, err
	}

	id, ok := sess.Values["user_id"].(string)
	if !ok || id == "" {
		return nil, ErrNoSession
	}
	email, _ := sess.Values["email"].(string)
	name, _ := sess.Values["name"].(string)

	return &models.Principal{Id: id, Email: email, Name: name}, nil
}

func (s *Store) SetPrincipal(w http.ResponseWriter, r *http.Request, p models.Principal) error {
	sess, _ := s.cookies.Get(r, sessionName)
	sess.Values["user_id"] = p.Id
	sess.Values["email"] = p.Email
	sess.Values["name"] = p.Name
	return sess.Save(r, w)
}

func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.cookies.Get(r, sessionName)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
