package model

import "errors"

var (
	// Session related errors
	ErrSessionExpired   = errors.New("session expired")
	ErrNotAuthenticated = errors.New("not authenticated")

	// Upload related errors
	ErrUnsupportedFile = errors.New("unsupported resume file")
	ErrFileTooLarge    = errors.New("file exceeds upload limit")
	ErrUnreadableFile  = errors.New("resume file could not be read")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
