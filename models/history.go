package models

import (
	"time"
)

// HistoryCollection is the server collection of the history engine.
const HistoryCollection = "history"

// VisitTransition is how the user reached a page.
type VisitTransition uint8

const (
	TransitionLink              VisitTransition = 1
	TransitionTyped             VisitTransition = 2
	TransitionBookmark          VisitTransition = 3
	TransitionEmbed             VisitTransition = 4
	TransitionRedirectPermanent VisitTransition = 5
	TransitionRedirectTemporary VisitTransition = 6
	TransitionDownload          VisitTransition = 7
	TransitionFramedLink        VisitTransition = 8
	TransitionReload            VisitTransition = 9
)

// Valid reports whether t is one of the known transitions.
func (t VisitTransition) Valid() bool {
	return t >= TransitionLink && t <= TransitionReload
}

// EarliestVisit is 1993-01-23, the earliest visit date accepted from the
// server, in milliseconds.
const EarliestVisit VisitTimestamp = 727_747_200_000

// VisitTimestamp is a local visit time in milliseconds since the epoch.
type VisitTimestamp int64

// VisitTimestampFromTime converts t to milliseconds.
func VisitTimestampFromTime(t time.Time) VisitTimestamp {
	return VisitTimestamp(t.UnixMilli())
}

// NowVisitTimestamp returns the current time as a visit timestamp.
func NowVisitTimestamp() VisitTimestamp {
	return VisitTimestampFromTime(time.Now())
}

// Micros converts to the server form (microseconds).
func (v VisitTimestamp) Micros() int64 {
	return int64(v) * 1000
}

// VisitTimestampFromMicros converts the server form to milliseconds.
func VisitTimestampFromMicros(us int64) VisitTimestamp {
	return VisitTimestamp(us / 1000)
}

// HistoryRecordVisit is one visit inside a history record. Date is in
// microseconds, as on the wire.
type HistoryRecordVisit struct {
	Date       int64 `json:"date"`
	Transition uint8 `json:"type"`
}

// HistoryRecord is the cleartext payload of a history BSO.
type HistoryRecord struct {
	ID        Guid                 `json:"id"`
	Title     string               `json:"title"`
	HistURI   string               `json:"histUri"`
	SortIndex int64                `json:"sortindex"`
	TTL       uint32               `json:"ttl"`
	Visits    []HistoryRecordVisit `json:"visits"`
}

// HistorySyncRecord is an incoming history payload: either a record or a
// tombstone (Record == nil).
type HistorySyncRecord struct {
	GUID   Guid
	Record *HistoryRecord
}

// HistorySyncRecordFromPayload decodes an incoming payload.
func HistorySyncRecordFromPayload(p Payload) (HistorySyncRecord, error) {
	if p.Deleted {
		return HistorySyncRecord{GUID: p.ID}, nil
	}
	var rec HistoryRecord
	if err := p.IntoRecord(&rec); err != nil {
		return HistorySyncRecord{}, err
	}
	return HistorySyncRecord{GUID: p.ID, Record: &rec}, nil
}

// SyncStatus is the sync state of a local history page.
type SyncStatus uint8

const (
	SyncStatusUnknown SyncStatus = 0
	SyncStatusNormal  SyncStatus = 1
	SyncStatusNew     SyncStatus = 2
)
