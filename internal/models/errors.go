package models

import "errors"

var (
	ErrDocumentNotFound  = errors.New("document not found, please upload the document again")
	ErrInsufficientText  = errors.New("the document doesn't contain enough readable text")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrSourceNotReady    = errors.New("question source not ready")
)
