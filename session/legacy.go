package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// LegacyTokens are tokens found in a prior, unsecured location.
type LegacyTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LegacyStore is a prior token location that migration drains.
type LegacyStore interface {
	Load() (LegacyTokens, error)
	Clear() error
}

// FileLegacyStore reads plaintext tokens from a JSON file, the layout
// older clients wrote. A missing file holds no tokens.
type FileLegacyStore struct {
	Path string
}

var _ LegacyStore = FileLegacyStore{}

func (f FileLegacyStore) Load() (LegacyTokens, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return LegacyTokens{}, nil
	}
	if err != nil {
		return LegacyTokens{}, err
	}
	var t LegacyTokens
	if err := json.Unmarshal(data, &t); err != nil {
		return LegacyTokens{}, fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return t, nil
}

// Clear deletes the legacy file.
func (f FileLegacyStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
