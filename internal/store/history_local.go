package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-sync15/models"
)

// RecordVisit adds a local visit to rawURL, creating the page when needed.
// The page is flagged for upload on the next sync.
func (s *HistoryStore) RecordVisit(ctx context.Context, rawURL, title string,
	transition models.VisitTransition, at time.Time) error {
	u, err := parseHistoryURL(rawURL)
	if err != nil {
		return err
	}
	if !CanAddURL(u) {
		return fmt.Errorf("%w: %s", ErrURLNotStorable, u.Scheme)
	}
	date := models.VisitTimestampFromTime(at)
	if !transition.Valid() || date < models.EarliestVisit {
		return ErrInvalidVisit
	}

	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		page, err := fetchPage(ctx, tx, u.String())
		if err != nil {
			return err
		}
		var id int64
		if page == nil {
			res, err := tx.ExecContext(ctx, insertPage, u.String(), title, models.NewRandomGuid(), models.SyncStatusNew, 0)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		} else {
			id = page.id
		}

		return execAll(ctx, tx, []stmt{
			{insertVisit, []any{id, int64(date), transition, true}},
			{deleteVisitTombstone, []any{id, int64(date)}},
			{updateFrecency, []any{id, id}},
			{bumpPageChange, []any{title, title, id}},
		})
	})
}

// DeletePlace removes a page and its visits. Pages that were synced before
// leave a tombstone, so the deletion is uploaded on the next sync.
func (s *HistoryStore) DeletePlace(ctx context.Context, guid models.Guid) error {
	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		var (
			id     int64
			status models.SyncStatus
		)
		err := tx.QueryRowContext(ctx, getPageStatusByGUID, guid).Scan(&id, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}

		stmts := []stmt{
			{deleteVisitsByGUID, []any{guid}},
			{deletePageByGUID, []any{guid}},
		}
		if status != models.SyncStatusNew {
			stmts = append(stmts, stmt{insertPlaceTombstone, []any{guid}})
		}
		return execAll(ctx, tx, stmts)
	})
}

// PageCount returns how many pages the store holds.
func (s *HistoryStore) PageCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countPages).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return n, nil
}
