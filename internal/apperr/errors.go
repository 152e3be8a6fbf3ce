// Package apperr holds sentinel errors shared across packages and mapped to
// HTTP status codes by the dev server.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrNoIndex  = errors.New("search index not built")
)
