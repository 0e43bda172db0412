package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrInvalid
	ErrConflict
	ErrInternal
	ErrAIUnavailable
	ErrMessagingFailed
	ErrTooMany
)
