// Package apperr defines the machine-checkable error kinds shared by the
// orchestrator, the predictor and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure. The string value is part of the API.
type Kind string

const (
	KindAlreadyTraining        Kind = "already_training"
	KindNoValidVariants        Kind = "no_valid_variants"
	KindNoDataset              Kind = "no_dataset"
	KindNoModelsAvailable      Kind = "no_models_available"
	KindArtifactMissing        Kind = "artifact_missing"
	KindVariantTrainingFailed  Kind = "variant_training_failed"
	KindVariantInferenceFailed Kind = "variant_inference_failed"
	KindInferenceFailed        Kind = "inference_failed"
	KindInsufficientCapacity   Kind = "insufficient_capacity"
	KindUnknownVariant         Kind = "unknown_variant"
	KindInvalidRequest         Kind = "invalid_request"
	KindInternal               Kind = "internal"
)

// Error carries a Kind, a message meant for API clients and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Sentinels for errors.Is checks.
var (
	ErrAlreadyTraining      = &Error{Kind: KindAlreadyTraining, Message: "Training is already in progress"}
	ErrNoValidVariants      = &Error{Kind: KindNoValidVariants, Message: "No valid models selected"}
	ErrNoDataset            = &Error{Kind: KindNoDataset, Message: "No training data found. Please upload images first."}
	ErrNoModelsAvailable    = &Error{Kind: KindNoModelsAvailable, Message: "No trained models available. Please train models first."}
	ErrArtifactMissing      = &Error{Kind: KindArtifactMissing, Message: "Model not found"}
	ErrInsufficientCapacity = &Error{Kind: KindInsufficientCapacity, Message: "Insufficient host capacity to start training"}
)
