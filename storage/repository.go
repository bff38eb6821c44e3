// Package storage provides the sealed-record storage layer behind the cookie jar.
package storage

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrBucketNotFound is returned when a bucket has never been written.
	ErrBucketNotFound = errors.New("bucket not found")
)

// BatchTx provides writes within an atomic transaction.
// The bucket is scoped to the batch, so methods don't require it.
type BatchTx interface {
	Put(recordID string, envelope *Envelope) error
	Delete(recordID string) error
}

// Repository defines the interface for sealed record storage.
// Implementations must be safe for concurrent use.
type Repository interface {
	Put(bucket string, recordID string, envelope *Envelope) error
	Get(bucket string, recordID string) (*Envelope, error)
	Delete(bucket string, recordID string) error
	List(bucket string) ([]string, error)
	Batch(bucket string, fn func(tx BatchTx) error) error
}
