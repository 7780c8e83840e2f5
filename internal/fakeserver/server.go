// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package fakeserver is an in-memory Sync 1.5 token server and storage node.
// It serves the subset of the protocol the client uses: token fetches,
// info documents, single records, collection GET/POST/DELETE with batch
// uploads and X-If-Unmodified-Since preconditions.
//
// It is meant for tests and local experiments:
//
//	fs := fakeserver.New(fakeserver.Options{}, logger.Nop())
//	ts := httptest.NewServer(fs.Handler())
//	defer ts.Close()
//	// point the client's tokenserver url at ts.URL
package fakeserver

import (
	"maps"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/utils"
	"github.com/MKhiriev/go-sync15/models"
)

const (
	defaultUID           = 1
	defaultTokenDuration = time.Hour
)

// Options configures a [Server]. The zero value is usable.
type Options struct {
	// SignKey, when set, makes the token endpoint accept only access tokens
	// signed with it (HS256).
	SignKey string

	// TokenDuration is the lifetime of issued tokens. Defaults to one hour.
	TokenDuration time.Duration

	// InfoConfiguration is served at info/configuration. Nil means 404.
	InfoConfiguration *models.InfoConfiguration

	// DisableBatches makes collection POSTs ignore the batch parameter.
	DisableBatches bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// Record is a stored BSO as the server keeps it. Payload is opaque.
type Record struct {
	ID        models.Guid            `json:"id"`
	Modified  models.ServerTimestamp `json:"modified"`
	SortIndex *int32                 `json:"sortindex,omitempty"`
	TTL       *uint32                `json:"ttl,omitempty"`
	Payload   string                 `json:"payload"`
}

type collection struct {
	modified models.ServerTimestamp
	records  map[models.Guid]Record
}

type pendingBatch struct {
	collection string
	records    []Record
}

type injectedFailure struct {
	status     int
	retryAfter int
}

// Server holds the state of one user's account.
type Server struct {
	opts     Options
	uid      int64
	tokenID  string
	tokenKey string
	ids      *utils.UUIDGenerator

	mu          sync.Mutex
	collections map[string]*collection
	batches     map[string]*pendingBatch
	lastTS      models.ServerTimestamp
	backoffSecs int
	failures    []injectedFailure
	requests    int

	logger *logger.Logger
}

// New creates an empty server.
func New(opts Options, log *logger.Logger) *Server {
	if opts.TokenDuration <= 0 {
		opts.TokenDuration = defaultTokenDuration
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	ids := utils.NewUUIDGenerator()
	return &Server{
		opts:        opts,
		uid:         defaultUID,
		tokenID:     ids.Generate(),
		tokenKey:    ids.Generate(),
		ids:         ids,
		collections: map[string]*collection{},
		batches:     map[string]*pendingBatch{},
		logger:      log,
	}
}

// currentTimestamp is the server time rounded down to the 10ms precision of
// Sync 1.5 timestamps. It never goes back behind the last modification.
func (s *Server) currentTimestamp() models.ServerTimestamp {
	ms := s.opts.Now().UnixMilli()
	ts := models.ServerTimestampFromMillis(ms - ms%10)
	return max(ts, s.lastTS)
}

// tick returns a fresh modification time, strictly after the previous one.
func (s *Server) tick() models.ServerTimestamp {
	ts := s.currentTimestamp()
	if ts <= s.lastTS {
		ts = s.lastTS + 10
	}
	s.lastTS = ts
	return ts
}

func (s *Server) collectionModified(name string) models.ServerTimestamp {
	if c, ok := s.collections[name]; ok {
		return c.modified
	}
	return 0
}

// applyRecords stores records in the collection under a single new
// modification time and returns it.
func (s *Server) applyRecords(name string, records []Record) models.ServerTimestamp {
	ts := s.tick()
	c, ok := s.collections[name]
	if !ok {
		c = &collection{records: map[models.Guid]Record{}}
		s.collections[name] = c
	}
	for _, rec := range records {
		if old, exists := c.records[rec.ID]; exists {
			if rec.SortIndex == nil {
				rec.SortIndex = old.SortIndex
			}
			if rec.TTL == nil {
				rec.TTL = old.TTL
			}
			if rec.Payload == "" {
				rec.Payload = old.Payload
			}
		}
		rec.Modified = ts
		c.records[rec.ID] = rec
	}
	c.modified = ts
	return ts
}

// ── test helpers ──

// Collection returns a copy of the records stored in name.
func (s *Server) Collection(name string) map[models.Guid]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return map[models.Guid]Record{}
	}
	return maps.Clone(c.records)
}

// PutRecord stores rec as if a client uploaded it and returns the new
// collection timestamp.
func (s *Server) PutRecord(name string, rec Record) models.ServerTimestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyRecords(name, []Record{rec})
}

// SetBackoff makes every storage response carry X-Weave-Backoff. Zero
// turns it off.
func (s *Server) SetBackoff(secs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backoffSecs = secs
}

// FailNext makes the next storage request fail with status. A positive
// retryAfter adds a Retry-After header.
func (s *Server) FailNext(status, retryAfter int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, injectedFailure{status: status, retryAfter: retryAfter})
}

// RequestCount returns how many storage requests were served.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}
