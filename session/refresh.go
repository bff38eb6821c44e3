package session

import (
	"log/slog"
)

// RefreshStore keeps the refresh token in its cookie only. There is no
// memory copy, so each read goes to the jar.
type RefreshStore struct {
	cookieStore
	logger *slog.Logger
}

var _ Store = (*RefreshStore)(nil)

func (s *RefreshStore) Set(value string) error {
	return s.set(value)
}

func (s *RefreshStore) Get() (string, bool) {
	value, ok, err := s.readCookie()
	if err != nil {
		s.logger.Warn("reading refresh token cookie failed", slog.String("error", err.Error()))
		return "", false
	}
	return value, ok
}

func (s *RefreshStore) Remove() error {
	return s.remove()
}
