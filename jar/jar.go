// Package jar implements a persistent cookie jar for the client session.
//
// Cookies are sealed with AES-256-GCM before they reach the backing
// storage.Repository, so a copied cookie database does not expose token
// values without the jar key. The key itself is held in a memguard Enclave.
// Expiry is enforced lazily: an expired cookie is deleted the first time
// it is read.
package jar

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/focusflow/internal/util"
	"github.com/jmcleod/focusflow/storage"
)

const (
	defaultBucket = "cookies"
	aadPrefix     = "cookie:"
)

var (
	// ErrNoCookie is returned when a cookie is absent or expired.
	ErrNoCookie = errors.New("cookie not found")
	// ErrInvalidCookie is returned for cookies that cannot be stored.
	ErrInvalidCookie = errors.New("invalid cookie")
)

// record is the persisted form of a cookie.
type record struct {
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Path     string        `json:"path"`
	Expires  time.Time     `json:"expires,omitempty"`
	Secure   bool          `json:"secure"`
	HttpOnly bool          `json:"http_only"`
	SameSite http.SameSite `json:"same_site"`
}

func (r record) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     r.Name,
		Value:    r.Value,
		Path:     r.Path,
		Expires:  r.Expires,
		Secure:   r.Secure,
		HttpOnly: r.HttpOnly,
		SameSite: r.SameSite,
	}
}

// Jar stores cookies in a storage.Repository.
type Jar struct {
	repo   storage.Repository
	key    *memguard.Enclave
	bucket string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Jar.
type Option func(*Jar)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(j *Jar) {
		if now != nil {
			j.now = now
		}
	}
}

// WithBucket sets the storage bucket the jar writes to.
func WithBucket(bucket string) Option {
	return func(j *Jar) {
		if bucket != "" {
			j.bucket = bucket
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Jar) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// New creates a jar over repo. The 32-byte key is moved into a memguard
// Enclave and the caller's slice is wiped.
func New(repo storage.Repository, key []byte, opts ...Option) (*Jar, error) {
	if repo == nil {
		return nil, fmt.Errorf("cookie jar requires a repository")
	}
	if len(key) != util.AESKeySize {
		return nil, fmt.Errorf("cookie jar key must be exactly %d bytes, got %d", util.AESKeySize, len(key))
	}
	j := &Jar{
		repo:   repo,
		key:    memguard.NewEnclave(key),
		bucket: defaultBucket,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Now returns the jar's current time.
func (j *Jar) Now() time.Time {
	return j.now()
}

// Set stores c, replacing any cookie with the same name. A cookie with a
// negative MaxAge or an expiry in the past removes the stored cookie instead.
func (j *Jar) Set(c *http.Cookie) error {
	return j.Batch(func(tx *Tx) error { return tx.Set(c) })
}

// Get returns the named cookie or ErrNoCookie.
func (j *Jar) Get(name string) (*http.Cookie, error) {
	env, err := j.repo.Get(j.bucket, name)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrBucketNotFound) {
		return nil, ErrNoCookie
	}
	if err != nil {
		return nil, fmt.Errorf("reading cookie %s: %w", name, err)
	}

	rec, err := j.open(name, env)
	if err != nil {
		// Unreadable records are dropped; they were sealed under another key.
		j.logger.Warn("discarding unreadable cookie", slog.String("cookie", name), slog.String("error", err.Error()))
		if err := j.repo.Delete(j.bucket, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			j.logger.Warn("deleting unreadable cookie failed", slog.String("cookie", name), slog.String("error", err.Error()))
		}
		return nil, ErrNoCookie
	}
	if j.expired(rec) {
		if err := j.repo.Delete(j.bucket, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("deleting expired cookie %s: %w", name, err)
		}
		return nil, ErrNoCookie
	}
	return rec.cookie(), nil
}

// Remove deletes the named cookie. Removing a missing cookie is not an error.
func (j *Jar) Remove(name string) error {
	return j.Batch(func(tx *Tx) error { return tx.Remove(name) })
}

// All returns every live cookie, sorted by name.
func (j *Jar) All() ([]*http.Cookie, error) {
	names, err := j.repo.List(j.bucket)
	if err != nil {
		return nil, fmt.Errorf("listing cookies: %w", err)
	}
	sort.Strings(names)

	cookies := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		c, err := j.Get(name)
		if errors.Is(err, ErrNoCookie) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, c)
	}
	return cookies, nil
}

// Batch applies several cookie writes atomically: either every write
// made through tx is stored or none is.
func (j *Jar) Batch(fn func(tx *Tx) error) error {
	return j.repo.Batch(j.bucket, func(btx storage.BatchTx) error {
		return fn(&Tx{jar: j, tx: btx})
	})
}

func (j *Jar) expired(rec record) bool {
	return !rec.Expires.IsZero() && !j.now().Before(rec.Expires)
}

func (j *Jar) seal(rec record) (*storage.Envelope, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	defer util.WipeBytes(data)

	key, err := j.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening jar key: %w", err)
	}
	defer key.Destroy()

	return storage.SealRecord(key.Bytes(), data, []byte(aadPrefix+rec.Name))
}

func (j *Jar) open(name string, env *storage.Envelope) (record, error) {
	key, err := j.key.Open()
	if err != nil {
		return record{}, fmt.Errorf("opening jar key: %w", err)
	}
	defer key.Destroy()

	data, err := storage.OpenRecord(key.Bytes(), env, []byte(aadPrefix+name))
	if err != nil {
		return record{}, err
	}
	defer util.WipeBytes(data)

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, fmt.Errorf("decoding cookie %s: %w", name, err)
	}
	return rec, nil
}

// Tx stages cookie writes inside a Batch.
type Tx struct {
	jar *Jar
	tx  storage.BatchTx
}

// Set stages c. See Jar.Set for expiry handling.
func (t *Tx) Set(c *http.Cookie) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("%w: cookie name is required", ErrInvalidCookie)
	}

	rec := record{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: c.SameSite,
	}
	if rec.Path == "" {
		rec.Path = "/"
	}
	switch {
	case c.MaxAge < 0:
		return t.Remove(c.Name)
	case c.MaxAge > 0:
		rec.Expires = t.jar.now().Add(time.Duration(c.MaxAge) * time.Second)
	}
	if t.jar.expired(rec) {
		return t.Remove(c.Name)
	}

	env, err := t.jar.seal(rec)
	if err != nil {
		return fmt.Errorf("sealing cookie %s: %w", c.Name, err)
	}
	if err := t.tx.Put(c.Name, env); err != nil {
		return fmt.Errorf("writing cookie %s: %w", c.Name, err)
	}
	return nil
}

// Remove stages deletion of the named cookie.
func (t *Tx) Remove(name string) error {
	err := t.tx.Delete(name)
	if err != nil && !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrBucketNotFound) {
		return fmt.Errorf("removing cookie %s: %w", name, err)
	}
	return nil
}
