package core

import "context"

// BlobStore is a keyed store for uploaded files. Keys are of the form
// "{resourceID}/{filename}".
type BlobStore interface {
	// Upload stores data under key and returns a public URL for it.
	Upload(ctx context.Context, key string, data []byte) (url string, err error)
	Delete(ctx context.Context, key string) error
}
