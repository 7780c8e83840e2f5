package models

import "errors"

var (
	// ErrPayloadMissingID is returned when a record body has no string "id".
	ErrPayloadMissingID = errors.New("payload has no id")

	// ErrUnknownServiceStatus is returned when parsing an unknown status name.
	ErrUnknownServiceStatus = errors.New("unknown service status")
)
