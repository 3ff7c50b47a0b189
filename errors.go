package honyaku

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKey is returned when a key has no stored source text.
	ErrUnknownKey = errors.New("unknown cache key")

	// ErrNoTextFound is returned when OCR finds no text in an image.
	ErrNoTextFound = errors.New("no text found in image")
)

// TranslationError wraps a failed Service.Translate call. The provider
// error, if any, is its Cause.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates an AI provider failure (API error, rate limit, etc.).
type ProviderError struct {
	Message   string
	Cause     error
	Retryable bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates an analysis document that failed schema validation.
type ValidationError struct {
	Document string // The rejected document
	Cause    error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid analysis document: %v", e.Cause)
	}
	return "invalid analysis document"
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// InputError indicates user input that cannot be processed.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Message)
}
