package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthenticated
	ErrInvalidCredential
	ErrBadRequest
	ErrNotFound
	ErrConflict
	ErrUpstreamUnavailable
	ErrUnparsableResponse
	ErrPersistenceFailure
	ErrTooMany
	ErrInternal
)
