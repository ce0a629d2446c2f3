package core

import "io"

// FileStorage is any service that can store and remove user-uploaded files
// (submission PDFs, profile photos) addressed by an opaque key.
type FileStorage interface {
	// Save stores the content under key, overwriting any previous content.
	Save(key string, content io.Reader) error
	// Delete removes the file under key. Deleting a missing key is not an error.
	Delete(key string) error
}
