package jar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmcleod/focusflow/internal/util"
)

const keyDerivationInfo = "focusflow:cookiejar:v1"

// LoadOrCreateKey returns the jar key derived from the seed file at path.
// A fresh random seed is written with 0600 permissions when the file does
// not exist yet. The returned slice is meant to be handed to New, which
// wipes it.
func LoadOrCreateKey(path string) ([]byte, error) {
	seed, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		seed, err = util.RandomBytes(util.AESKeySize)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			util.WipeBytes(seed)
			return nil, fmt.Errorf("creating key directory: %w", err)
		}
		if err := os.WriteFile(path, seed, 0o600); err != nil {
			util.WipeBytes(seed)
			return nil, fmt.Errorf("writing jar key: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("reading jar key: %w", err)
	}
	defer util.WipeBytes(seed)

	if len(seed) != util.AESKeySize {
		return nil, fmt.Errorf("jar key file %s must hold %d bytes, got %d", path, util.AESKeySize, len(seed))
	}
	return util.HKDF(seed, nil, []byte(keyDerivationInfo))
}

// NewEphemeralKey returns a random key for jars that never outlive the process.
func NewEphemeralKey() ([]byte, error) {
	return util.RandomBytes(util.AESKeySize)
}
