package config

import "errors"

// Validation errors returned when required configuration groups are
// incomplete or invalid.
var (
	// ErrInvalidConfig indicates a merged config that no source could have
	// meant (for example, a negative duration).
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidAccountConfigs indicates missing or malformed account
	// credentials.
	ErrInvalidAccountConfigs = errors.New("invalid account configuration")
	// ErrInvalidDeviceConfigs indicates a missing device id or an unknown
	// device type.
	ErrInvalidDeviceConfigs = errors.New("invalid device configuration")
	// ErrInvalidAdapterConfigs indicates invalid client adapter settings
	// (for example, a zero request timeout).
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates invalid client storage settings
	// (for example, an empty history DSN or state file).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidWorkerConfigs indicates invalid background worker settings
	// (for example, zero sync interval).
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
)
