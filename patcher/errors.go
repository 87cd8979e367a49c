package patcher

import "errors"

var (
	// ErrInvalidPattern is returned when registering an empty pattern or an
	// impossible repeat budget.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrStarted is returned when registering rules after input was fed.
	ErrStarted = errors.New("patcher already started")

	// ErrFlushed is returned when feeding input after Flush.
	ErrFlushed = errors.New("patcher already flushed")
)
