package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to insert or update
	// a URL record with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when no URL record matches the given
	// short code or id.
	ErrURLNotFound = errors.New("url not found")
)
