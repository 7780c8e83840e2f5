package adapter

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingServerTimestamp is returned when a successful response lacks
	// the X-Last-Modified (storage) or X-Timestamp (token server) header.
	ErrMissingServerTimestamp = errors.New("missing server timestamp header in request")

	// ErrStorageReset means the token server moved the user to another
	// storage node. Local state must be reset before syncing again.
	ErrStorageReset = errors.New("the server has reset the storage for this account")

	// ErrRecordTooLarge is returned by a fully atomic upload when a record
	// cannot be queued.
	ErrRecordTooLarge = errors.New("outgoing record is too large to upload")

	// ErrRecordUploadFailed is returned when the server rejects records and
	// failures are not allowed.
	ErrRecordUploadFailed = errors.New("not all records were successfully uploaded")

	// ErrServerBatchProblem reports a server that broke the batch upload
	// protocol.
	ErrServerBatchProblem = errors.New("unexpected server behavior during batch upload")

	// ErrUnacceptableURL is returned for URLs without a host or usable port.
	ErrUnacceptableURL = errors.New("unacceptable url")

	// ErrHawk is returned when a request cannot be signed.
	ErrHawk = errors.New("hawk error")
)

// TokenserverHTTPError is a non-success token server status without a
// Retry-After header.
type TokenserverHTTPError struct {
	Status int
}

func (e *TokenserverHTTPError) Error() string {
	return fmt.Sprintf("HTTP status %d when requesting a token from the tokenserver", e.Status)
}

// StorageHTTPError wraps a storage error response.
type StorageHTTPError struct {
	Response ErrorResponse
}

func (e *StorageHTTPError) Error() string {
	return fmt.Sprintf("HTTP storage error: %s", e.Response)
}

// BackoffError says the server asked us not to come back before Until.
type BackoffError struct {
	Until time.Time
}

func (e *BackoffError) Error() string {
	return fmt.Sprintf("server requested backoff, retry after %s", e.Until.Format(time.RFC3339))
}

// RequestError is a transport level failure: the request never produced an
// HTTP response.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// BackoffUntil extracts the time of a [BackoffError] anywhere in err's chain.
func BackoffUntil(err error) (time.Time, bool) {
	var be *BackoffError
	if errors.As(err, &be) {
		return be.Until, true
	}
	return time.Time{}, false
}
