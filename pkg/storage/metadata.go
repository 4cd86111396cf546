package storage

import (
	"context"
)

// MetadataStore persists token metadata payloads to durable storage and
// returns a public content URI for the uploaded object.
type MetadataStore interface {
	Upload(ctx context.Context, key string, payload interface{}) (string, error)
}
