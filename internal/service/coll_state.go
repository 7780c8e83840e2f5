package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync15/internal/crypto"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/models"
)

// maxCollStateSteps bounds the number of transitions before a store is
// considered to be looping on its sync ids.
const maxCollStateSteps = 10

// CollState is what a collection sync needs once the store is connected to
// the current meta/global.
type CollState struct {
	Config       models.InfoConfiguration
	LastModified models.ServerTimestamp
	Key          *crypto.KeyBundle
}

type localCollState interface {
	isLocalCollState()
}

type collUnknown struct {
	assoc models.StoreSyncAssociation
}

type collDeclined struct{}

type collNoSuchCollection struct{}

type collSyncIDChanged struct {
	ids models.CollSyncIDs
}

type collReady struct {
	key *crypto.KeyBundle
}

func (collUnknown) isLocalCollState()          {}
func (collDeclined) isLocalCollState()         {}
func (collNoSuchCollection) isLocalCollState() {}
func (collSyncIDChanged) isLocalCollState()    {}
func (collReady) isLocalCollState()            {}

// getCollState connects store to the global state. It returns nil when the
// collection is declined or absent from meta/global. Stores whose sync ids
// differ from meta/global are reset along the way.
func getCollState(ctx context.Context, store Store, gs *models.GlobalState,
	rootKey *crypto.KeyBundle, log *logger.Logger) (*CollState, error) {
	assoc, err := store.GetSyncAssoc(ctx)
	if err != nil {
		return nil, err
	}
	name := store.CollectionName()

	var s localCollState = collUnknown{assoc: assoc}
	for step := 0; ; step++ {
		switch st := s.(type) {
		case collReady:
			return &CollState{
				Config:       gs.Config,
				LastModified: gs.Collections[name],
				Key:          st.key,
			}, nil
		case collDeclined, collNoSuchCollection:
			return nil, nil
		}

		if step >= maxCollStateSteps {
			log.Warn().Str("collection", name).Msg("local collection state machine appears to be looping")
			return nil, fmt.Errorf("%w: %s", ErrCollStateLoop, name)
		}
		s, err = advanceCollState(ctx, s, store, gs, rootKey, log)
		if err != nil {
			return nil, err
		}
	}
}

func advanceCollState(ctx context.Context, from localCollState, store Store, gs *models.GlobalState,
	rootKey *crypto.KeyBundle, log *logger.Logger) (localCollState, error) {
	name := store.CollectionName()
	switch s := from.(type) {
	case collUnknown:
		if gs.Global.IsDeclined(name) {
			return collDeclined{}, nil
		}
		engine, ok := gs.Global.Engines[name]
		if !ok {
			return collNoSuchCollection{}, nil
		}
		want := models.CollSyncIDs{Global: gs.Global.SyncID, Coll: engine.SyncID}
		if s.assoc.Connected == nil || *s.assoc.Connected != want {
			return collSyncIDChanged{ids: want}, nil
		}
		keys, err := crypto.CollectionKeysFromEncryptedBso(gs.Keys, rootKey)
		if err != nil {
			return nil, err
		}
		return collReady{key: keys.KeyForCollection(name)}, nil

	case collSyncIDChanged:
		assoc := models.ConnectedTo(s.ids)
		log.Info().Str("collection", name).Msg("resetting store, sync ids changed")
		if err := store.Reset(ctx, assoc); err != nil {
			return nil, err
		}
		return collUnknown{assoc: assoc}, nil

	default:
		return nil, fmt.Errorf("can't advance local collection state from %T", from)
	}
}
