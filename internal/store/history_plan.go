// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/MKhiriev/go-sync15/models"
)

// maxURLLength is the longest URL the history store keeps.
const maxURLLength = 65536

var ignoredSchemes = []string{
	"about", "imap", "news", "mailbox", "moz-anno", "view-source",
	"chrome", "resource", "data", "wyciwyg", "javascript", "blob",
}

// CanAddURL reports whether u may be stored in history.
func CanAddURL(u *url.URL) bool {
	if len(u.String()) > maxURLLength {
		return false
	}
	return !slices.Contains(ignoredSchemes, strings.ToLower(u.Scheme))
}

func parseHistoryURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}
	return u, nil
}

type planKind int

const (
	planSkip planKind = iota
	planInvalid
	planFailed
	planDelete
	planApply
	planReconciled
)

func (k planKind) String() string {
	switch k {
	case planSkip:
		return "skip"
	case planInvalid:
		return "invalid"
	case planFailed:
		return "failed"
	case planDelete:
		return "delete"
	case planApply:
		return "apply"
	default:
		return "reconciled"
	}
}

// incomingPlan is what to do with one incoming history record.
type incomingPlan struct {
	kind planKind
	err  error

	// set for planApply
	url    string
	title  string
	visits []models.HistoryRecordVisit
}

type fetchedPage struct {
	id            int64
	guid          models.Guid
	url           string
	title         string
	syncStatus    models.SyncStatus
	changeCounter int64
}

type fetchedVisit struct {
	isLocal    bool
	visitType  models.VisitTransition
	visitDate  models.VisitTimestamp
}

type visitKey struct {
	transition models.VisitTransition
	date       models.VisitTimestamp
}

// clampVisitDate moves future visits to now and rejects visits before
// [models.EarliestVisit].
func clampVisitDate(date, now models.VisitTimestamp) (models.VisitTimestamp, bool) {
	if date > now {
		return now, true
	}
	if date < models.EarliestVisit {
		return 0, false
	}
	return date, true
}

// planIncomingRecord compares rec with the local page for the same URL and
// decides what to apply. Only visits the page does not have yet are
// applied; when the page already holds maxVisits visits, incoming visits
// older than the oldest of them are dropped.
func (s *HistoryStore) planIncomingRecord(ctx context.Context, q queryer, rec *models.HistoryRecord,
	maxVisits int, now time.Time) incomingPlan {
	u, err := parseHistoryURL(rec.HistURI)
	if err != nil {
		return incomingPlan{kind: planInvalid, err: err}
	}
	if !rec.ID.IsValidForPlaces() {
		return incomingPlan{kind: planInvalid, err: fmt.Errorf("%w: %q", ErrInvalidGUID, rec.ID)}
	}
	if !CanAddURL(u) {
		return incomingPlan{kind: planSkip}
	}

	page, existing, err := fetchVisits(ctx, q, u.String(), maxVisits)
	if err != nil {
		return incomingPlan{kind: planFailed, err: err}
	}
	guidChanged := page != nil && page.guid != rec.ID

	nowTS := models.VisitTimestampFromTime(now)
	current := make(map[visitKey]struct{}, len(existing))
	for _, v := range existing {
		if !v.visitType.Valid() {
			continue
		}
		date, ok := clampVisitDate(v.visitDate, nowTS)
		if !ok {
			s.logger.Warn().Str("func", "HistoryStore.planIncomingRecord").Msg("ignored visit before 1993-01-23")
			continue
		}
		current[visitKey{v.visitType, date}] = struct{}{}
	}

	var earliestAllowed models.VisitTimestamp
	if len(existing) == maxVisits && maxVisits > 0 {
		earliestAllowed = existing[len(existing)-1].visitDate
	}

	var toApply []models.HistoryRecordVisit
	for _, v := range rec.Visits {
		transition := models.VisitTransition(v.Transition)
		if !transition.Valid() {
			continue
		}
		date, ok := clampVisitDate(models.VisitTimestampFromMicros(v.Date), nowTS)
		if !ok {
			s.logger.Warn().Str("func", "HistoryStore.planIncomingRecord").Msg("ignored visit before 1993-01-23")
			continue
		}
		if date < earliestAllowed {
			continue
		}
		key := visitKey{transition, date}
		if _, seen := current[key]; seen {
			continue
		}
		current[key] = struct{}{}
		toApply = append(toApply, models.HistoryRecordVisit{Date: date.Micros(), Transition: uint8(transition)})
	}

	if guidChanged || len(toApply) > 0 {
		return incomingPlan{kind: planApply, url: u.String(), title: rec.Title, visits: toApply}
	}
	return incomingPlan{kind: planReconciled}
}

// fetchVisits returns the page stored for rawURL and up to limit of its
// visits, newest first. The page is nil when the URL is unknown.
func fetchVisits(ctx context.Context, q queryer, rawURL string, limit int) (*fetchedPage, []fetchedVisit, error) {
	page, err := fetchPage(ctx, q, rawURL)
	if err != nil || page == nil {
		return nil, nil, err
	}

	rows, err := q.QueryContext(ctx, getVisitsForPage, page.id, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var visits []fetchedVisit
	for rows.Next() {
		var v fetchedVisit
		if err = rows.Scan(&v.isLocal, &v.visitType, &v.visitDate); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		visits = append(visits, v)
	}
	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return page, visits, nil
}

func fetchPage(ctx context.Context, q queryer, rawURL string) (*fetchedPage, error) {
	var p fetchedPage
	err := q.QueryRowContext(ctx, getPageByURL, rawURL).
		Scan(&p.id, &p.guid, &p.url, &p.title, &p.syncStatus, &p.changeCounter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return &p, nil
}
