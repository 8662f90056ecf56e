package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated   = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInvalid           = errors.New("invalid request")
	ErrMissingInput      = errors.New("missing input")
	ErrEmptyInput        = errors.New("empty input")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUnparsableResponse  = errors.New("unparsable response")
	ErrPersistenceFailure  = errors.New("persistence failure")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInternal          = errors.New("internal")
)

// StageError labels a failure with the pipeline stage it came from
// ("ocr", "transcription", "analysis", "docstore", "filestore").
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AtStage wraps err with a stage label. Already-labelled errors keep
// their original stage.
func AtStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage label of err, or "" when it has none.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
