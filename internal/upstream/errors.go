package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL indicates the submitted URL does not belong to the upstream host.
	ErrInvalidURL = errors.New("url does not belong to the upstream site")
	// ErrMalformedPage indicates the upstream HTML is missing expected structure.
	ErrMalformedPage = errors.New("upstream page is missing expected structure")
	// ErrUnknownURLType indicates a fetched page is neither a category nor a single post.
	ErrUnknownURLType = errors.New("url is not a recognized content page")
	// ErrUnknownCategory indicates no category exists for the requested id.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownVideo indicates no playable post exists for the requested id.
	ErrUnknownVideo = errors.New("unknown video")
	// ErrUpstreamUnavailable indicates a transport-level failure reaching the upstream.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// StatusError reports a non-success HTTP status returned by the upstream.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Message)
}
