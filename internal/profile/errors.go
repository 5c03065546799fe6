package profile

import "errors"

var (
	// ErrProfileNotFound reports a lookup for a profile id or name that
	// does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrLastProfile reports an attempt to delete the only remaining
	// profile.
	ErrLastProfile = errors.New("cannot delete the last profile")

	// ErrLocked reports that another process holds the store lock.
	ErrLocked = errors.New("store is locked by another process")
)
