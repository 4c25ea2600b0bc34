package adapter

import (
	"context"
	"io"
	"time"
)

// ArtifactStore holds uploaded answer sheets and rendered reports. Keys are
// opaque to the domain; downloads go through short-lived presigned URLs so
// the coordinator never streams report bytes itself.
type ArtifactStore interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader, size int64) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
