package services

import (
	"errors"
	"fmt"
)

// ErrNoProviders is wrapped by AllProvidersFailedError when no provider was
// available to try.
var ErrNoProviders = errors.New("no AI providers available")

// AllProvidersFailedError is returned when every provider in the fallback
// order failed. It wraps the last provider error.
type AllProvidersFailedError struct {
	Attempted int
	LastErr   error
}

func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all AI providers failed (%d attempted): %v", e.Attempted, e.LastErr)
}

func (e *AllProvidersFailedError) Unwrap() error {
	return e.LastErr
}

var (
	ErrGenerationParse      = errors.New("AI response is not a valid course")
	ErrGenerationValidation = errors.New("generated course failed validation")
)

// GenerationStage names the step at which course generation failed.
type GenerationStage string

const (
	StageParse      GenerationStage = "parse"
	StageValidation GenerationStage = "validation"
)

// GenerationError reports a provider response that could not be turned into
// a usable course. It matches ErrGenerationParse or ErrGenerationValidation
// with errors.Is, and the underlying cause with errors.As.
type GenerationError struct {
	Stage  GenerationStage
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("course %s failed: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("course %s failed: %s", e.Stage, e.Reason)
}

func (e *GenerationError) Unwrap() []error {
	sentinel := ErrGenerationValidation
	if e.Stage == StageParse {
		sentinel = ErrGenerationParse
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

// PersistenceError reports that a generated course could not be stored.
// Nothing of the course is left behind when it is returned.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist course: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
