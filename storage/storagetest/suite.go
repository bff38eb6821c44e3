// Package storagetest holds the conformance suite shared by storage.Repository implementations.
package storagetest

import (
	"errors"
	"testing"

	"github.com/jmcleod/focusflow/storage"
)

var errAbort = errors.New("abort batch")

// RunRepositorySuite runs the common suite against any Repository implementation.
// The repository must be empty.
func RunRepositorySuite(t *testing.T, repo storage.Repository) {
	t.Helper()

	env := func(body string) *storage.Envelope {
		return &storage.Envelope{Ver: 1, Scheme: "aes256gcm", Nonce: make([]byte, 12), Ciphertext: []byte(body)}
	}

	t.Run("PutGet", func(t *testing.T) {
		if err := repo.Put("jar", "accessToken", env("a1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := repo.Get("jar", "accessToken")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got.Ciphertext) != "a1" {
			t.Errorf("expected ciphertext a1, got %q", got.Ciphertext)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = repo.Put("jar", "accessToken", env("a2"))
		got, err := repo.Get("jar", "accessToken")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got.Ciphertext) != "a2" {
			t.Errorf("expected last write to win, got %q", got.Ciphertext)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := repo.Get("jar", "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.Get("no-such-bucket", "accessToken"); !errors.Is(err, storage.ErrBucketNotFound) {
			t.Errorf("expected ErrBucketNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		_ = repo.Put("jar", "refreshToken", env("r1"))
		ids, err := repo.List("jar")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "accessToken" || ids[1] != "refreshToken" {
			t.Errorf("unexpected ids: %v", ids)
		}

		ids, err = repo.List("no-such-bucket")
		if err != nil {
			t.Errorf("expected no error listing a missing bucket, got %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("expected 0 ids, got %d", len(ids))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete("jar", "refreshToken"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repo.Get("jar", "refreshToken"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete("jar", "refreshToken"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("BatchCommits", func(t *testing.T) {
		err := repo.Batch("batch", func(tx storage.BatchTx) error {
			if err := tx.Put("accessToken", env("ba")); err != nil {
				return err
			}
			return tx.Put("refreshToken", env("br"))
		})
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		for id, want := range map[string]string{"accessToken": "ba", "refreshToken": "br"} {
			got, err := repo.Get("batch", id)
			if err != nil {
				t.Fatalf("Get %s failed: %v", id, err)
			}
			if string(got.Ciphertext) != want {
				t.Errorf("%s: expected %q, got %q", id, want, got.Ciphertext)
			}
		}
	})

	t.Run("BatchRollsBack", func(t *testing.T) {
		err := repo.Batch("batch", func(tx storage.BatchTx) error {
			_ = tx.Put("accessToken", env("should-not-exist"))
			_ = tx.Delete("refreshToken")
			return errAbort
		})
		if !errors.Is(err, errAbort) {
			t.Fatalf("expected errAbort, got %v", err)
		}
		got, err := repo.Get("batch", "accessToken")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got.Ciphertext) != "ba" {
			t.Errorf("expected rollback to keep %q, got %q", "ba", got.Ciphertext)
		}
		if _, err := repo.Get("batch", "refreshToken"); err != nil {
			t.Errorf("expected refreshToken to survive rollback, got %v", err)
		}
	})
}
