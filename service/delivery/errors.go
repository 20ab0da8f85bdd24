package delivery

import "errors"

// PermanentError marks a push failure that retrying cannot fix, such as a
// gateway rejecting the subscription outright.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}

// GoneError additionally signals that the subscription itself is dead
// (HTTP 404/410 from the push service) and should be pruned.
type GoneError struct {
	Err error
}

func (e *GoneError) Error() string {
	return e.Err.Error()
}

func (e *GoneError) Unwrap() error {
	return e.Err
}

func IsGone(err error) bool {
	var goneErr *GoneError
	return errors.As(err, &goneErr)
}
