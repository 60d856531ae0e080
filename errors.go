package buildcache

import "errors"

// Sentinel errors for save operations.
var (
	// ErrMissingInput is returned when a required input has no value from
	// either the prior-phase state or the user-supplied input.
	ErrMissingInput = errors.New("buildcache: missing input")

	// ErrTransientStore is returned when the existence check against the
	// object store fails for a reason other than "not found".
	ErrTransientStore = errors.New("buildcache: object store unavailable")

	// ErrArchiveCreation is returned when no paths match or the archive
	// cannot be written.
	ErrArchiveCreation = errors.New("buildcache: archive creation failed")

	// ErrUpload is returned when the object store rejects the archive upload.
	ErrUpload = errors.New("buildcache: upload failed")
)
