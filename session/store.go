// Package session keeps the client's access and refresh tokens and exposes
// them through an explicitly constructed Manager.
//
// Access tokens live in a two-tier cache: the cookie mirror is persisted in
// the jar and is authoritative across process restarts, while an encrypted
// in-memory copy serves reads until the process exits. Refresh tokens live
// only in their cookie.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmcleod/focusflow/jar"
)

// Kind identifies which token a Store holds.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"

	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrEmptyToken is returned when asked to store an empty token.
var ErrEmptyToken = errors.New("empty token")

// Store holds the single live value of one token kind.
// Setting a value always supersedes the previous one.
type Store interface {
	Kind() Kind
	Set(value string) error
	Get() (string, bool)
	Remove() error
}

// cookieStore persists one token kind as a cookie in the jar.
type cookieStore struct {
	jar    *jar.Jar
	kind   Kind
	name   string
	ttl    time.Duration
	secure bool
}

func (s *cookieStore) Kind() Kind { return s.kind }

func (s *cookieStore) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		Expires:  s.jar.Now().Add(s.ttl),
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// stage writes the cookie inside an existing jar batch.
func (s *cookieStore) stage(tx *jar.Tx, value string) error {
	if value == "" {
		return fmt.Errorf("%s token: %w", s.kind, ErrEmptyToken)
	}
	return tx.Set(s.cookie(value))
}

func (s *cookieStore) unstage(tx *jar.Tx) error {
	return tx.Remove(s.name)
}

func (s *cookieStore) readCookie() (string, bool, error) {
	c, err := s.jar.Get(s.name)
	if errors.Is(err, jar.ErrNoCookie) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if c.Value == "" {
		return "", false, nil
	}
	return c.Value, true, nil
}

func (s *cookieStore) set(value string) error {
	return s.jar.Batch(func(tx *jar.Tx) error { return s.stage(tx, value) })
}

func (s *cookieStore) remove() error {
	return s.jar.Batch(s.unstage)
}
