package models

import "errors"

// Error taxonomy shared by the migrator packages. Concrete errors wrap these
// so callers can branch with errors.Is.
var (
	// ErrFieldMissing indicates none of the candidate keys for a field were present.
	// Recoverable: reported as a completeness flag.
	ErrFieldMissing = errors.New("metadata field missing")

	// ErrMissingRequiredField indicates the dataset lacks its creation or
	// modification date. Such datasets are placeholders and are skipped.
	ErrMissingRequiredField = errors.New("required metadata field missing")

	// ErrRemoteWrite indicates the catalog answered success=false.
	ErrRemoteWrite = errors.New("catalog write failed")

	// ErrAuthFailure indicates the source platform rejected the credentials.
	// Fatal for a whole run.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrNotFound indicates a dataset path does not exist on the source platform.
	ErrNotFound = errors.New("not found")
)
