package resolver

import "errors"

var (
	// ErrNoUsableConnection means preferences ruled out every connection
	// and every connection config a server offers.
	ErrNoUsableConnection = errors.New("no usable connection")

	// ErrResponseMismatch means an answer did not correspond to the query
	// that was sent. Mismatches are treated as possible spoofing, never
	// returned to the caller as answers.
	ErrResponseMismatch = errors.New("response does not match query")

	// ErrAllServersFailed means every configured upstream server failed
	// to produce a usable answer.
	ErrAllServersFailed = errors.New("all upstream servers failed")
)
