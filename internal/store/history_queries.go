package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-sync15/models"
)

const (
	getMeta    = `SELECT value FROM meta WHERE key = ?;`
	upsertMeta = `INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value;`
	deleteMeta = `DELETE FROM meta WHERE key = ?;`

	getPageByURL = `SELECT id, guid, url, title, sync_status, sync_change_counter
		FROM places
		WHERE url = ?;`

	getVisitsForPage = `SELECT is_local, visit_type, visit_date
		FROM visits
		WHERE place_id = ?
		ORDER BY visit_date DESC
		LIMIT ?;`

	insertPage = `INSERT INTO places (url, title, guid, sync_status, sync_change_counter)
		VALUES (?, ?, ?, ?, ?);`

	updatePageGUID = `UPDATE places SET guid = ? WHERE id = ?;`

	updateSyncedPage = `UPDATE places
		SET title = ?, sync_status = ?, sync_change_counter = ?
		WHERE id = ?;`

	updateFrecency = `UPDATE places
		SET frecency = (SELECT COUNT(*) FROM visits WHERE place_id = ?) * 100
		WHERE id = ?;`

	insertVisit = `INSERT INTO visits (place_id, visit_date, visit_type, is_local)
		VALUES (?, ?, ?, ?);`

	deleteVisitTombstone = `DELETE FROM visit_tombstones WHERE place_id = ? AND visit_date = ?;`

	reconcilePage = `UPDATE places SET sync_status = ?, sync_change_counter = 0 WHERE guid = ?;`

	deleteVisitsByGUID = `DELETE FROM visits WHERE place_id IN (SELECT id FROM places WHERE guid = ?);`
	deletePageByGUID   = `DELETE FROM places WHERE guid = ?;`

	getTombstones = `SELECT guid FROM places_tombstones LIMIT ?;`

	getOutgoingVisits = `SELECT visit_date, visit_type
		FROM visits
		WHERE place_id = ?
		ORDER BY visit_date DESC
		LIMIT ?;`

	insertUpdatedMeta = `INSERT OR REPLACE INTO sync_updated_meta (id, change_delta) VALUES (?, ?);`

	finishSyncedRows = `UPDATE places
		SET sync_change_counter = sync_change_counter -
			(SELECT change_delta FROM sync_updated_meta m WHERE places.id = m.id)
		WHERE id IN (SELECT id FROM sync_updated_meta);`
	finishOtherRows = `UPDATE places
		SET sync_change_counter = 0, sync_status = ?
		WHERE id NOT IN (SELECT id FROM sync_updated_meta);`
	clearUpdatedMeta = `DELETE FROM sync_updated_meta;`
	clearTombstones  = `DELETE FROM places_tombstones;`

	resetAllPages = `UPDATE places SET sync_change_counter = 0, sync_status = ?;`

	maxVisitDate = `SELECT COALESCE(MAX(visit_date), 0) FROM visits;`

	deleteAllVisits          = `DELETE FROM visits;`
	deleteAllVisitTombstones = `DELETE FROM visit_tombstones;`
	deleteAllPages           = `DELETE FROM places;`

	// local API
	bumpPageChange = `UPDATE places
		SET title = CASE WHEN ? = '' THEN title ELSE ? END,
			sync_change_counter = sync_change_counter + 1
		WHERE id = ?;`
	insertPlaceTombstone = `INSERT OR IGNORE INTO places_tombstones (guid) VALUES (?);`
	countPages           = `SELECT COUNT(*) FROM places;`
	getPageStatusByGUID  = `SELECT id, sync_status FROM places WHERE guid = ?;`

	vacuum = `VACUUM;`
)

// buildOutgoingPagesQuery selects the pages that need uploading, most
// frecent first.
func buildOutgoingPagesQuery(limit int) (string, []any, error) {
	return sq.Select("id", "guid", "url", "title", "frecency", "sync_change_counter").
		From("places").
		Where(sq.Or{
			sq.Gt{"sync_change_counter": 0},
			sq.NotEq{"sync_status": models.SyncStatusNormal},
		}).
		Where(sq.Eq{"hidden": 0}).
		OrderBy("frecency DESC").
		Limit(uint64(limit)).
		ToSql()
}

// buildMarkNormalQuery marks the given page ids as synced.
func buildMarkNormalQuery(ids []int64) (string, []any, error) {
	return sq.Update("places").
		Set("sync_status", models.SyncStatusNormal).
		Where(sq.Eq{"id": ids}).
		ToSql()
}

// buildExistingVisitDatesQuery returns the dates among dates that already
// exist for a page, either as visits or as visit tombstones.
func buildExistingVisitDatesQuery(placeID int64, dates []int64) (string, []any, error) {
	visits, visitArgs, err := sq.Select("visit_date").
		From("visits").
		Where(sq.Eq{"place_id": placeID, "visit_date": dates}).
		ToSql()
	if err != nil {
		return "", nil, err
	}
	tombstones, tombstoneArgs, err := sq.Select("visit_date").
		From("visit_tombstones").
		Where(sq.Eq{"place_id": placeID, "visit_date": dates}).
		ToSql()
	if err != nil {
		return "", nil, err
	}
	return visits + " UNION ALL " + tombstones, append(visitArgs, tombstoneArgs...), nil
}
