package domain

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientData    = errors.New("not enough rated items to build a signature")
	ErrInsufficientOverlap = errors.New("not enough shared items between the pair")
	ErrUnauthorized        = errors.New("no resolvable caller identity")
)

// TransientUpstreamError marks a failure from an external collaborator
// (database, rate-limited API) that is worth retrying.
type TransientUpstreamError struct {
	Op  string
	Err error
}

func (e *TransientUpstreamError) Error() string {
	return "transient upstream failure in " + e.Op + ": " + e.Err.Error()
}

func (e *TransientUpstreamError) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var target *TransientUpstreamError
	return errors.As(err, &target)
}
