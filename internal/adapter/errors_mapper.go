package adapter

import (
	"fmt"
	"net/http"
)

// ErrorKind discriminates storage error responses.
type ErrorKind int

const (
	ErrorNotFound ErrorKind = iota
	ErrorUnauthorized
	ErrorPreconditionFailed
	ErrorServer
	ErrorRequestFailed
)

// ErrorResponse describes a non-success storage response.
type ErrorResponse struct {
	Kind   ErrorKind
	Route  string
	Status int
}

func (e ErrorResponse) String() string {
	switch e.Kind {
	case ErrorNotFound:
		return fmt.Sprintf("not found (%s)", e.Route)
	case ErrorUnauthorized:
		return fmt.Sprintf("unauthorized (%s)", e.Route)
	case ErrorPreconditionFailed:
		return fmt.Sprintf("precondition failed (%s)", e.Route)
	case ErrorServer:
		return fmt.Sprintf("server error %d (%s)", e.Status, e.Route)
	default:
		return fmt.Sprintf("request failed %d (%s)", e.Status, e.Route)
	}
}

// mapHTTPError classifies a storage status code. It returns nil for 2xx.
func mapHTTPError(status int, route string) *ErrorResponse {
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}

	switch {
	case status == http.StatusNotFound:
		return &ErrorResponse{Kind: ErrorNotFound, Route: route, Status: status}
	case status == http.StatusUnauthorized:
		return &ErrorResponse{Kind: ErrorUnauthorized, Route: route, Status: status}
	case status == http.StatusPreconditionFailed:
		return &ErrorResponse{Kind: ErrorPreconditionFailed, Route: route, Status: status}
	case status >= 500 && status <= 600:
		return &ErrorResponse{Kind: ErrorServer, Route: route, Status: status}
	default:
		return &ErrorResponse{Kind: ErrorRequestFailed, Route: route, Status: status}
	}
}

// NewPreconditionFailed builds the error returned when an upload would
// overwrite newer server data.
func NewPreconditionFailed(route string) error {
	return &StorageHTTPError{Response: ErrorResponse{
		Kind:   ErrorPreconditionFailed,
		Route:  route,
		Status: http.StatusPreconditionFailed,
	}}
}
