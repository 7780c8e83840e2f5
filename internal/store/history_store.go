// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/telemetry"
	"github.com/MKhiriev/go-sync15/models"
)

// History engine limits.
const (
	MaxIncomingPlaces = 5000
	MaxOutgoingPlaces = 5000
	MaxVisits         = 20

	// HistoryTTL is the server ttl of uploaded records, 60 days.
	HistoryTTL uint32 = 5_184_000

	applyBatchSize = 50
	markBatchSize  = 500
)

const (
	lastSyncMetaKey     = "history_last_sync_time"
	globalSyncIDMetaKey = "history_global_sync_id"
	collSyncIDMetaKey   = "history_sync_id"

	// GlobalStateMetaKey holds the persisted global state migrated from
	// the legacy history state.
	GlobalStateMetaKey = "global_state_v2"

	legacyGlobalStateMetaKey     = "history_global_state"
	deletionHighWaterMarkMetaKey = "history_deleted_visits_high_water_mark"
)

// HistoryStore syncs the local browsing history with the "history"
// collection.
type HistoryStore struct {
	db     *DB
	logger *logger.Logger
	now    func() time.Time
}

// NewHistoryStore returns a store over an opened and migrated database.
func NewHistoryStore(db *DB, log *logger.Logger) *HistoryStore {
	if log == nil {
		log = logger.Nop()
	}
	return &HistoryStore{db: db, logger: log, now: time.Now}
}

func (s *HistoryStore) CollectionName() string {
	return models.HistoryCollection
}

func (s *HistoryStore) PrepareForSync(context.Context, func() models.ClientData) error {
	return nil
}

func (s *HistoryStore) GetCollectionRequests(ctx context.Context, serverTimestamp models.ServerTimestamp) ([]models.CollectionRequest, error) {
	since, _, err := getMetaInt(ctx, s.db, lastSyncMetaKey)
	if err != nil {
		return nil, err
	}
	sinceTS := models.ServerTimestampFromMillis(since)
	if sinceTS == serverTimestamp {
		return nil, nil
	}
	return []models.CollectionRequest{
		models.NewCollectionRequest(models.HistoryCollection).
			WithFull().
			NewerThan(sinceTS).
			WithLimit(MaxIncomingPlaces),
	}, nil
}

type plannedRecord struct {
	guid models.Guid
	plan incomingPlan
}

// ApplyIncoming plans every incoming record, applies the plans in batches
// and returns the local changes to upload.
func (s *HistoryStore) ApplyIncoming(ctx context.Context, inbound []models.IncomingChangeset,
	telem *telemetry.Engine) (models.OutgoingChangeset, error) {
	if len(inbound) != 1 {
		return models.OutgoingChangeset{}, fmt.Errorf("%w: got %d", ErrUnexpectedChangesets, len(inbound))
	}
	in := inbound[0]

	var incoming telemetry.EngineIncoming
	outgoing, err := s.applyPlan(ctx, in, &incoming)
	telem.Incoming(incoming)
	if err != nil {
		return models.OutgoingChangeset{}, err
	}

	// stored now so an interrupted upload does not re-reconcile what was
	// just applied
	if err = putMeta(ctx, s.db, lastSyncMetaKey, in.Timestamp.Millis()); err != nil {
		return models.OutgoingChangeset{}, err
	}
	return outgoing, nil
}

func (s *HistoryStore) applyPlan(ctx context.Context, in models.IncomingChangeset,
	incoming *telemetry.EngineIncoming) (models.OutgoingChangeset, error) {
	now := s.now()

	plans := make([]plannedRecord, 0, len(in.Changes))
	for _, change := range in.Changes {
		if err := ctx.Err(); err != nil {
			return models.OutgoingChangeset{}, err
		}
		item, err := models.HistorySyncRecordFromPayload(change.Payload)
		if err != nil {
			s.logger.Warn().Err(err).Str("func", "HistoryStore.applyPlan").Msg("error deserializing incoming record")
			incoming.AddFailed(1)
			continue
		}
		plan := incomingPlan{kind: planDelete}
		if item.Record != nil {
			plan = s.planIncomingRecord(ctx, s.db, item.Record, MaxVisits, now)
		}
		plans = append(plans, plannedRecord{guid: item.GUID, plan: plan})
	}

	for start := 0; start < len(plans); start += applyBatchSize {
		batch := plans[start:min(start+applyBatchSize, len(plans))]
		err := s.db.inTx(ctx, func(tx *sql.Tx) error {
			for _, p := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := s.applyOne(ctx, tx, p, incoming); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return models.OutgoingChangeset{}, fmt.Errorf("apply incoming history: %w", err)
		}
	}

	outgoing := models.NewOutgoingChangeset(models.HistoryCollection, in.Timestamp)
	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		changes, err := s.fetchOutgoing(ctx, tx, MaxOutgoingPlaces, MaxVisits)
		outgoing.Changes = changes
		return err
	})
	if err != nil {
		return models.OutgoingChangeset{}, fmt.Errorf("fetch outgoing history: %w", err)
	}
	return outgoing, nil
}

func (s *HistoryStore) applyOne(ctx context.Context, tx *sql.Tx, p plannedRecord, incoming *telemetry.EngineIncoming) error {
	log := s.logger.With().Str("func", "HistoryStore.applyOne").Str("guid", p.guid.String()).Logger()

	switch p.plan.kind {
	case planSkip:
		log.Debug().Msg("incoming: skipping item")
	case planInvalid:
		log.Warn().Err(p.plan.err).Msg("incoming: record skipped because it is invalid")
		incoming.AddFailed(1)
	case planFailed:
		log.Error().Err(p.plan.err).Msg("incoming: record failed to apply")
		incoming.AddFailed(1)
	case planDelete:
		// no local tombstone for deletions coming from the server
		if err := execAll(ctx, tx, []stmt{
			{deleteVisitsByGUID, []any{p.guid}},
			{deletePageByGUID, []any{p.guid}},
		}); err != nil {
			return err
		}
		incoming.AddApplied(1)
	case planApply:
		if err := s.applySyncedVisits(ctx, tx, p.guid, p.plan); err != nil {
			return err
		}
		incoming.AddApplied(1)
	case planReconciled:
		if err := execAll(ctx, tx, []stmt{{reconcilePage, []any{models.SyncStatusNormal, p.guid}}}); err != nil {
			return err
		}
		incoming.AddReconciled(1)
	}
	return nil
}

// applySyncedVisits adds the planned visits to the page for p.url,
// creating the page when it does not exist yet. A page that was never
// synced takes the incoming guid.
func (s *HistoryStore) applySyncedVisits(ctx context.Context, tx *sql.Tx, guid models.Guid, p incomingPlan) error {
	// visits older than the last local wipe must not trickle back in
	mark, _, err := getMetaInt(ctx, tx, deletionHighWaterMarkMetaKey)
	if err != nil {
		return err
	}
	visits := make([]models.HistoryRecordVisit, 0, len(p.visits))
	for _, v := range p.visits {
		if int64(models.VisitTimestampFromMicros(v.Date)) > mark {
			visits = append(visits, v)
		}
	}

	var counterIncr int64
	page, err := fetchPage(ctx, tx, p.url)
	if err != nil {
		return err
	}
	if page != nil {
		if page.guid != guid {
			if page.syncStatus == models.SyncStatusNew {
				if err = execAll(ctx, tx, []stmt{{updatePageGUID, []any{guid, page.id}}}); err != nil {
					return err
				}
				page.guid = guid
			}
			// the visits are taken even when the guid is kept
			counterIncr = 1
		}
	} else {
		if len(visits) == 0 {
			return nil
		}
		res, err := tx.ExecContext(ctx, insertPage, p.url, p.title, guid, models.SyncStatusNew, 0)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		page = &fetchedPage{id: id, guid: guid, url: p.url, title: p.title, syncStatus: models.SyncStatusNew}
	}

	if len(visits) > 0 {
		skip, err := existingVisitDates(ctx, tx, page.id, visits)
		if err != nil {
			return err
		}
		for _, v := range visits {
			date := int64(models.VisitTimestampFromMicros(v.Date))
			if _, ok := skip[date]; ok {
				continue
			}
			if _, err = tx.ExecContext(ctx, insertVisit, page.id, date, v.Transition, false); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
			skip[date] = struct{}{}
		}
	}

	// the change counter is kept so real local changes still get uploaded
	return execAll(ctx, tx, []stmt{
		{updateFrecency, []any{page.id, page.id}},
		{updateSyncedPage, []any{p.title, models.SyncStatusNormal, page.changeCounter + counterIncr, page.id}},
	})
}

func existingVisitDates(ctx context.Context, tx *sql.Tx, placeID int64, visits []models.HistoryRecordVisit) (map[int64]struct{}, error) {
	dates := make([]int64, len(visits))
	for i, v := range visits {
		dates[i] = int64(models.VisitTimestampFromMicros(v.Date))
	}
	query, args, err := buildExistingVisitDatesQuery(placeID, dates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	skip := make(map[int64]struct{}, len(visits))
	for rows.Next() {
		var d int64
		if err = rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		skip[d] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return skip, nil
}

type outgoingPage struct {
	id            int64
	guid          models.Guid
	url           string
	title         string
	frecency      int64
	changeCounter int64
}

// fetchOutgoing returns the tombstones and the changed pages to upload,
// at most maxPlaces of them in total. Tombstones come first. The uploaded
// pages are marked Normal right away and their change counters are
// remembered in sync_updated_meta for SyncFinished.
func (s *HistoryStore) fetchOutgoing(ctx context.Context, tx *sql.Tx, maxPlaces, maxVisits int) ([]models.Payload, error) {
	if _, err := tx.ExecContext(ctx, clearUpdatedMeta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	tombstones, err := queryGUIDs(ctx, tx, getTombstones, maxPlaces)
	if err != nil {
		return nil, err
	}
	result := make([]models.Payload, 0, len(tombstones))
	seen := make(map[models.Guid]struct{}, len(tombstones))
	for _, guid := range tombstones {
		result = append(result, models.NewTombstoneWithTTL(guid, HistoryTTL))
		seen[guid] = struct{}{}
	}

	left := maxPlaces - len(result)
	if left <= 0 {
		return result, nil
	}
	pages, err := queryOutgoingPages(ctx, tx, left)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(pages))
	for _, page := range pages {
		if _, ok := seen[page.guid]; ok {
			s.logger.Warn().Str("func", "HistoryStore.fetchOutgoing").Str("guid", page.guid.String()).
				Msg("found in both tombstones and live records")
			continue
		}
		visits, err := queryOutgoingVisits(ctx, tx, page.id, maxVisits)
		if err != nil {
			return nil, err
		}
		if len(visits) == 0 {
			continue
		}
		if _, err = tx.ExecContext(ctx, insertUpdatedMeta, page.id, page.changeCounter); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		payload, err := models.PayloadFromRecord(models.HistoryRecord{
			ID:        page.guid,
			Title:     page.title,
			HistURI:   page.url,
			SortIndex: page.frecency,
			TTL:       HistoryTTL,
			Visits:    visits,
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, page.id)
		result = append(result, payload)
	}

	// marked now so an interruption between upload and SyncFinished does
	// not leave uploaded pages as New
	for start := 0; start < len(ids); start += markBatchSize {
		query, args, err := buildMarkNormalQuery(ids[start:min(start+markBatchSize, len(ids))])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}
	return result, nil
}

func queryGUIDs(ctx context.Context, q queryer, query string, args ...any) ([]models.Guid, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var guids []models.Guid
	for rows.Next() {
		var g models.Guid
		if err = rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		guids = append(guids, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return guids, nil
}

func queryOutgoingPages(ctx context.Context, q queryer, limit int) ([]outgoingPage, error) {
	query, args, err := buildOutgoingPagesQuery(limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var pages []outgoingPage
	for rows.Next() {
		var p outgoingPage
		if err = rows.Scan(&p.id, &p.guid, &p.url, &p.title, &p.frecency, &p.changeCounter); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		pages = append(pages, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return pages, nil
}

func queryOutgoingVisits(ctx context.Context, q queryer, placeID int64, limit int) ([]models.HistoryRecordVisit, error) {
	rows, err := q.QueryContext(ctx, getOutgoingVisits, placeID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var visits []models.HistoryRecordVisit
	for rows.Next() {
		var (
			date       models.VisitTimestamp
			transition uint8
		)
		if err = rows.Scan(&date, &transition); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		visits = append(visits, models.HistoryRecordVisit{Date: date.Micros(), Transition: transition})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return visits, nil
}

// SyncFinished clears the change counters of everything that was not
// changed again during the upload and drops the uploaded tombstones.
func (s *HistoryStore) SyncFinished(ctx context.Context, newTimestamp models.ServerTimestamp, recordsSynced []models.Guid) error {
	s.logger.Info().Str("func", "HistoryStore.SyncFinished").
		Int("records", len(recordsSynced)).
		Msg("sync completed")

	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, []stmt{
			{finishSyncedRows, nil},
			{finishOtherRows, []any{models.SyncStatusNormal}},
			{clearUpdatedMeta, nil},
			{clearTombstones, nil},
		}); err != nil {
			return err
		}
		return putMeta(ctx, tx, lastSyncMetaKey, newTimestamp.Millis())
	})
}

func (s *HistoryStore) GetSyncAssoc(ctx context.Context) (models.StoreSyncAssociation, error) {
	global, okGlobal, err := getMetaString(ctx, s.db, globalSyncIDMetaKey)
	if err != nil {
		return models.StoreSyncAssociation{}, err
	}
	coll, okColl, err := getMetaString(ctx, s.db, collSyncIDMetaKey)
	if err != nil {
		return models.StoreSyncAssociation{}, err
	}
	if !okGlobal || !okColl {
		return models.Disconnected(), nil
	}
	return models.ConnectedTo(models.CollSyncIDs{Global: models.Guid(global), Coll: models.Guid(coll)}), nil
}

// Reset marks every page as never synced and forgets the last sync time.
// The sync ids are replaced by those of assoc, or removed when assoc is
// disconnected.
func (s *HistoryStore) Reset(ctx context.Context, assoc models.StoreSyncAssociation) error {
	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, []stmt{{resetAllPages, []any{models.SyncStatusNew}}}); err != nil {
			return err
		}
		if err := putMeta(ctx, tx, lastSyncMetaKey, int64(0)); err != nil {
			return err
		}
		if !assoc.IsConnected() {
			return execAll(ctx, tx, []stmt{
				{deleteMeta, []any{globalSyncIDMetaKey}},
				{deleteMeta, []any{collSyncIDMetaKey}},
			})
		}
		if err := putMeta(ctx, tx, globalSyncIDMetaKey, assoc.Connected.Global.String()); err != nil {
			return err
		}
		return putMeta(ctx, tx, collSyncIDMetaKey, assoc.Connected.Coll.String())
	})
}

// Wipe deletes all history and sync metadata. Incoming visits dated before
// the wipe are ignored from then on.
func (s *HistoryStore) Wipe(ctx context.Context) error {
	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		var mostRecent int64
		if err := tx.QueryRowContext(ctx, maxVisitDate).Scan(&mostRecent); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
		previous, _, err := getMetaInt(ctx, tx, deletionHighWaterMarkMetaKey)
		if err != nil {
			return err
		}
		// remote visits may be dated after now when clocks are skewed
		mark := max(s.now().UnixMilli(), previous, mostRecent)
		if err = putMeta(ctx, tx, deletionHighWaterMarkMetaKey, mark); err != nil {
			return err
		}

		if err = execAll(ctx, tx, []stmt{
			{deleteAllVisits, nil},
			{deleteAllVisitTombstones, nil},
			{clearTombstones, nil},
			{deleteAllPages, nil},
			{clearUpdatedMeta, nil},
			{deleteMeta, []any{globalSyncIDMetaKey}},
			{deleteMeta, []any{collSyncIDMetaKey}},
		}); err != nil {
			return err
		}
		return putMeta(ctx, tx, lastSyncMetaKey, int64(0))
	})
	if err != nil {
		return err
	}

	// sqlite cannot vacuum inside a transaction
	if _, err = s.db.ExecContext(ctx, vacuum); err != nil {
		s.logger.Warn().Err(err).Str("func", "HistoryStore.Wipe").Msg("vacuum failed")
	}
	return nil
}

// MigrateV1GlobalState moves a legacy global state saved by the history
// engine to the current keys: the sync ids to the history meta keys and
// the declined list to [GlobalStateMetaKey]. It returns the migrated
// persisted state, or "" when there was nothing to migrate.
//
// Run it before the first sync of a profile that may have been written by
// an older client.
func (s *HistoryStore) MigrateV1GlobalState(ctx context.Context) (string, error) {
	old, ok, err := getMetaString(ctx, s.db, legacyGlobalStateMetaKey)
	if err != nil || !ok {
		return "", err
	}
	s.logger.Info().Str("func", "HistoryStore.MigrateV1GlobalState").Msg("there's old global state - migrating")

	var migrated string
	err = s.db.inTx(ctx, func(tx *sql.Tx) error {
		ids, state := models.ExtractV1State(&old, models.HistoryCollection)
		if ids != nil {
			if err := putMeta(ctx, tx, globalSyncIDMetaKey, ids.Global.String()); err != nil {
				return err
			}
			if err := putMeta(ctx, tx, collSyncIDMetaKey, ids.Coll.String()); err != nil {
				return err
			}
		}
		if state != nil {
			migrated = state.String()
			if err := putMeta(ctx, tx, GlobalStateMetaKey, migrated); err != nil {
				return err
			}
		}
		return execAll(ctx, tx, []stmt{{deleteMeta, []any{legacyGlobalStateMetaKey}}})
	})
	if err != nil {
		return "", err
	}
	return migrated, nil
}

// ── meta helpers ──

type stmt struct {
	query string
	args  []any
}

func execAll(ctx context.Context, q queryer, stmts []stmt) error {
	for _, st := range stmts {
		if _, err := q.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}
	return nil
}

func getMetaString(ctx context.Context, q queryer, key string) (string, bool, error) {
	var v string
	err := q.QueryRowContext(ctx, getMeta, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return v, true, nil
}

func getMetaInt(ctx context.Context, q queryer, key string) (int64, bool, error) {
	var v int64
	err := q.QueryRowContext(ctx, getMeta, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return v, true, nil
}

func putMeta(ctx context.Context, q queryer, key string, value any) error {
	if _, err := q.ExecContext(ctx, upsertMeta, key, value); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}
