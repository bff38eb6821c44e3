package session

import (
	"log/slog"
	"sync"

	"github.com/awnumar/memguard"
)

// AccessStore keeps the access token in a memguard Enclave and mirrors it to
// the accessToken cookie. Get reads memory first and falls back to the
// cookie, repopulating memory on a hit.
type AccessStore struct {
	cookieStore
	logger *slog.Logger

	mu  sync.Mutex
	mem *memguard.Enclave
}

var _ Store = (*AccessStore)(nil)

// Set writes the cookie mirror, then the memory copy.
func (s *AccessStore) Set(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.set(value); err != nil {
		return err
	}
	s.rememberLocked(value)
	return nil
}

func (s *AccessStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mem != nil {
		buf, err := s.mem.Open()
		if err == nil {
			// Copy out before Destroy unmaps the buffer.
			value := string(buf.Bytes())
			buf.Destroy()
			return value, true
		}
		s.logger.Warn("access token memory copy unreadable, falling back to cookie", slog.String("error", err.Error()))
		s.mem = nil
	}

	value, ok, err := s.readCookie()
	if err != nil {
		s.logger.Warn("reading access token cookie failed", slog.String("error", err.Error()))
		return "", false
	}
	if !ok {
		return "", false
	}
	s.rememberLocked(value)
	return value, true
}

func (s *AccessStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem = nil
	return s.remove()
}

func (s *AccessStore) remember(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rememberLocked(value)
}

func (s *AccessStore) rememberLocked(value string) {
	// NewEnclave wipes its input, so hand it a private copy.
	s.mem = memguard.NewEnclave([]byte(value))
}

// forget drops the memory copy only.
func (s *AccessStore) forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem = nil
}
