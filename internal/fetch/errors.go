package fetch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a resume could not be turned into text.
type ErrorKind string

const (
	KindGeneric         ErrorKind = "generic"
	KindTooLarge        ErrorKind = "too_large"
	KindUnsupportedType ErrorKind = "unsupported_type"
)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// ExtractionError is returned for every failure to retrieve or read a resume.
type ExtractionError struct {
	Kind      ErrorKind
	Reference string
	Reason    string
	Err       error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is lets callers match on the kind with errors.Is.
func (e *ExtractionError) Is(target error) bool {
	switch target {
	case ErrFileTooLarge:
		return e.Kind == KindTooLarge
	case ErrUnsupportedType:
		return e.Kind == KindUnsupportedType
	}
	return false
}

func newError(kind ErrorKind, reference, reason string, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Reference: reference, Reason: reason, Err: err}
}

func genericError(reference, reason string, err error) *ExtractionError {
	return newError(KindGeneric, reference, reason, err)
}

func tooLarge(reference string, limit int64) *ExtractionError {
	return newError(KindTooLarge, reference, fmt.Sprintf("file is larger than %d bytes", limit), nil)
}

// asExtractionError keeps typed errors untouched and wraps everything else as generic.
func asExtractionError(reference, reason string, err error) *ExtractionError {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr
	}
	return genericError(reference, reason, err)
}
