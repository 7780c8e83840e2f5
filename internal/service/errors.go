package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInterrupted is returned when the sync's context was cancelled at one
	// of the checkpoints. The context error is wrapped alongside it.
	ErrInterrupted = errors.New("the operation was interrupted")

	// ErrSetupRace means the setup state machine visited the same state
	// twice. Another client is most likely racing us on meta/global.
	ErrSetupRace = errors.New("setup state machine cycle detected")

	// ErrSetupRequired is returned when the state machine reaches a state the
	// current mode does not allow, e.g. a fast sync that needs a full setup.
	ErrSetupRequired = errors.New("setup state machine needs a full sync")

	// ErrClientUpgradeRequired means meta/global has a newer storage version.
	ErrClientUpgradeRequired = errors.New("client upgrade required; server storage version too new")

	// ErrUnknownEngine is returned for engine names the manager does not know.
	ErrUnknownEngine = errors.New("unknown engine")

	// ErrUnsupportedFeature is returned for known engines that were never
	// registered with the manager.
	ErrUnsupportedFeature = errors.New("unsupported feature")

	// ErrConnectionClosed is returned when a registered store is gone.
	ErrConnectionClosed = errors.New("store is no longer available")

	// ErrKeysTimestampMismatch means crypto/keys was modified between the
	// info/collections and crypto/keys fetches.
	ErrKeysTimestampMismatch = errors.New("crypto/keys timestamp does not match info/collections")

	// ErrCollStateLoop is returned when a store keeps changing its sync ids.
	ErrCollStateLoop = errors.New("collection state machine did not settle")
)

// checkInterrupted is the interruption checkpoint used throughout a sync.
func checkInterrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return nil
}
