// Package app holds the application services and business logic.
package app

import "errors"

var (
	// ErrDuplicateUsername indicates that the username is already registered.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrInvalidCredentialFormat indicates an empty username or password.
	ErrInvalidCredentialFormat = errors.New("username and password are required")
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidSession indicates a missing, unknown or expired session token.
	ErrInvalidSession = errors.New("invalid session")
	// ErrEmptyContent indicates a comment without content.
	ErrEmptyContent = errors.New("comment content is empty")
	// ErrUndecodableImage indicates image bytes that are empty or not a supported image.
	ErrUndecodableImage = errors.New("image could not be decoded")
	// ErrInvalidLocation indicates coordinates out of range.
	ErrInvalidLocation = errors.New("location out of range")
	// ErrNotFound indicates a missing post or blob.
	ErrNotFound = errors.New("not found")
	// ErrFeedSuperseded indicates a feed load cancelled by a newer load for the same user.
	ErrFeedSuperseded = errors.New("feed load superseded by a newer request")
)
