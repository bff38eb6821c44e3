// Package memory provides a thread-safe in-memory implementation of storage.Repository.
package memory

import (
	"sort"
	"sync"

	"github.com/jmcleod/focusflow/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Records are lost when the process exits, which makes it the backing for
// non-persistent cookie jars and tests.
type Repository struct {
	mu   sync.RWMutex
	data map[string]map[string]*storage.Envelope
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{data: make(map[string]map[string]*storage.Envelope)}
}

func (r *Repository) Put(bucket, recordID string, envelope *storage.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(bucket, recordID, envelope)
	return nil
}

func (r *Repository) putLocked(bucket, recordID string, envelope *storage.Envelope) {
	if _, ok := r.data[bucket]; !ok {
		r.data[bucket] = make(map[string]*storage.Envelope)
	}
	r.data[bucket][recordID] = envelope.Clone()
}

func (r *Repository) Get(bucket, recordID string) (*storage.Envelope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records, ok := r.data[bucket]
	if !ok {
		return nil, storage.ErrBucketNotFound
	}
	env, ok := records[recordID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return env.Clone(), nil
}

func (r *Repository) Delete(bucket, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(bucket, recordID)
}

func (r *Repository) deleteLocked(bucket, recordID string) error {
	records, ok := r.data[bucket]
	if !ok {
		return storage.ErrBucketNotFound
	}
	if _, ok := records[recordID]; !ok {
		return storage.ErrNotFound
	}
	delete(records, recordID)
	return nil
}

func (r *Repository) List(bucket string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.data[bucket]))
	for id := range r.data[bucket] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Batch executes fn within a batch transaction. On error, all writes are rolled back.
func (r *Repository) Batch(bucket string, fn func(tx storage.BatchTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.snapshotBucket(bucket)

	if err := fn(&batchTx{repo: r, bucket: bucket}); err != nil {
		r.restoreBucket(bucket, snapshot)
		return err
	}
	return nil
}

func (r *Repository) snapshotBucket(bucket string) map[string]*storage.Envelope {
	original, ok := r.data[bucket]
	if !ok {
		return nil
	}
	cp := make(map[string]*storage.Envelope, len(original))
	for k, v := range original {
		cp[k] = v.Clone()
	}
	return cp
}

func (r *Repository) restoreBucket(bucket string, snapshot map[string]*storage.Envelope) {
	if snapshot == nil {
		delete(r.data, bucket)
		return
	}
	r.data[bucket] = snapshot
}

type batchTx struct {
	repo   *Repository
	bucket string
}

func (tx *batchTx) Put(recordID string, envelope *storage.Envelope) error {
	tx.repo.putLocked(tx.bucket, recordID, envelope)
	return nil
}

func (tx *batchTx) Delete(recordID string) error {
	return tx.repo.deleteLocked(tx.bucket, recordID)
}
