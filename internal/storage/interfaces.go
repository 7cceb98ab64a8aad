// Package storage provides object storage for file content.
// File records live in the database; their bytes live in an S3-compatible bucket
// and are moved by clients through presigned URLs.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound indicates no object exists at the key.
var ErrObjectNotFound = errors.New("object not found")

// PresignedURL is a time-limited URL for direct object access.
type PresignedURL struct {
	// URL is the signed request URL.
	URL string `json:"url"`

	// Method is the HTTP method the URL is signed for.
	Method string `json:"method"`

	// ExpiresAt is when the signature stops being accepted.
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectStore defines the operations the file services need from object storage.
type ObjectStore interface {
	// PresignGet returns a URL that downloads the object at key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (*PresignedURL, error)

	// PresignPut returns a URL that uploads the object at key.
	PresignPut(ctx context.Context, key string, ttl time.Duration) (*PresignedURL, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
}
