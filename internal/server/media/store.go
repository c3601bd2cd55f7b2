// Package media stores uploaded files on the remote media host and removes
// them again when a compensating rollback is needed.
package media

import "context"

// Object references a file held by the media host. URL is what accounts
// store; ID is the store-specific key used for deletion.
type Object struct {
	URL string
	ID  string
}

// Store is the remote media host.
type Store interface {
	// Upload pushes the local file and returns its remote reference.
	Upload(ctx context.Context, localPath string) (*Object, error)
	// Delete removes the object with the given ID. It reports false when
	// there was nothing to delete.
	Delete(ctx context.Context, id string) (bool, error)
	// ExtractID recovers the object ID from a URL previously returned by
	// Upload, or "" when the URL does not belong to this store.
	ExtractID(url string) string
}
