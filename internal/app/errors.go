package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrMessageEmpty     = errors.New("message content is empty")
	ErrCompletionFailed = errors.New("AI did not respond")
	ErrDocumentNotFound = errors.New("document not found")
)
