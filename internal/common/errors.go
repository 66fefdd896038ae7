// Package common holds sentinel errors shared across the client.
package common

import "errors"

var (
	// validation errors, rejected before any network call
	ErrEmptyContent       = errors.New("content is empty")
	ErrInvalidContentType = errors.New("invalid content type")

	// state errors
	ErrNotAuthenticated = errors.New("not authenticated")
)
