package fakeserver

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/utils"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

var errPreconditionFailed = errors.New("collection modified since")

// uploadResult is the body of a collection POST.
type uploadResult struct {
	Batch    string                 `json:"batch,omitempty"`
	Modified models.ServerTimestamp `json:"modified,omitempty"`
	Success  []models.Guid          `json:"success"`
	Failed   map[models.Guid]string `json:"failed"`
}

// ── token server ──

func (s *Server) getToken(w http.ResponseWriter, r *http.Request) {
	accessToken, err := utils.ParseBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if r.Header.Get("X-KeyID") == "" {
		http.Error(w, "missing X-KeyID", http.StatusUnauthorized)
		return
	}
	if s.opts.SignKey != "" {
		if err = s.verifyAccessToken(accessToken); err != nil {
			logger.FromRequest(r).Debug().Err(err).Msg("rejecting access token")
			http.Error(w, "invalid access token", http.StatusUnauthorized)
			return
		}
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	token := models.TokenserverToken{
		ID:           s.tokenID,
		Key:          s.tokenKey,
		APIEndpoint:  fmt.Sprintf("%s://%s/1.5/%d", scheme, r.Host, s.uid),
		UID:          s.uid,
		Duration:     int64(s.opts.TokenDuration.Seconds()),
		HashedFxaUID: "hashed-" + strconv.FormatInt(s.uid, 10),
	}

	s.mu.Lock()
	now := s.currentTimestamp()
	s.mu.Unlock()

	w.Header().Set("X-Timestamp", strconv.FormatInt(now.Millis()/1000, 10))
	_, _ = utils.WriteJSON(w, token, http.StatusOK)
}

func (s *Server) verifyAccessToken(accessToken string) error {
	_, err := jwt.Parse(accessToken, func(t *jwt.Token) (any, error) {
		return []byte(s.opts.SignKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.opts.Now))
	return err
}

// ── info ──

func (s *Server) getInfoConfiguration(w http.ResponseWriter, r *http.Request) {
	if s.opts.InfoConfiguration == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.mu.Lock()
	now := s.currentTimestamp()
	s.mu.Unlock()

	utils.SetSyncTimestamps(w, now.String(), now.String())
	_, _ = utils.WriteJSON(w, s.opts.InfoConfiguration, http.StatusOK)
}

func (s *Server) getInfoCollections(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	info := models.InfoCollections{}
	var last models.ServerTimestamp
	for name, c := range s.collections {
		info[name] = c.modified
		last = max(last, c.modified)
	}
	now := s.currentTimestamp()
	s.mu.Unlock()

	utils.SetSyncTimestamps(w, now.String(), last.String())
	_, _ = utils.WriteJSON(w, info, http.StatusOK)
}

// ── single records ──

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	name, id := chi.URLParam(r, "collection"), models.Guid(chi.URLParam(r, "id"))

	s.mu.Lock()
	var rec Record
	var found bool
	if c, ok := s.collections[name]; ok {
		rec, found = c.records[id]
	}
	now := s.currentTimestamp()
	s.mu.Unlock()

	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	utils.SetSyncTimestamps(w, now.String(), rec.Modified.String())
	_, _ = utils.WriteJSON(w, rec, http.StatusOK)
}

func (s *Server) putRecord(w http.ResponseWriter, r *http.Request) {
	name, id := chi.URLParam(r, "collection"), models.Guid(chi.URLParam(r, "id"))

	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid record", http.StatusBadRequest)
		return
	}
	rec.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnmodifiedSince(r, name); err != nil {
		writePreconditionError(w, err)
		return
	}
	ts := s.applyRecords(name, []Record{rec})

	utils.SetSyncTimestamps(w, ts.String(), ts.String())
	_, _ = utils.WriteJSON(w, ts, http.StatusOK)
}

// ── collections ──

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	q := r.URL.Query()

	var newer, older *models.ServerTimestamp
	for key, dst := range map[string]**models.ServerTimestamp{"newer": &newer, "older": &older} {
		if v := q.Get(key); v != "" {
			ts, err := models.ParseServerTimestamp(v)
			if err != nil {
				http.Error(w, "invalid "+key, http.StatusBadRequest)
				return
			}
			*dst = &ts
		}
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	var ids map[models.Guid]struct{}
	if v := q.Get("ids"); v != "" {
		ids = map[models.Guid]struct{}{}
		for _, id := range strings.Split(v, ",") {
			ids[models.Guid(id)] = struct{}{}
		}
	}

	s.mu.Lock()
	var records []Record
	modified := s.collectionModified(name)
	if c, ok := s.collections[name]; ok {
		for _, rec := range c.records {
			if newer != nil && rec.Modified <= *newer {
				continue
			}
			if older != nil && rec.Modified >= *older {
				continue
			}
			if ids != nil {
				if _, want := ids[rec.ID]; !want {
					continue
				}
			}
			records = append(records, rec)
		}
	}
	now := s.currentTimestamp()
	s.mu.Unlock()

	sortRecords(records, models.RequestOrder(q.Get("sort")))
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	utils.SetSyncTimestamps(w, now.String(), modified.String())
	w.Header().Set("X-Weave-Records", strconv.Itoa(len(records)))
	if q.Get("full") == "" {
		out := make([]models.Guid, 0, len(records))
		for _, rec := range records {
			out = append(out, rec.ID)
		}
		_, _ = utils.WriteJSON(w, out, http.StatusOK)
		return
	}
	if records == nil {
		records = []Record{}
	}
	_, _ = utils.WriteJSON(w, records, http.StatusOK)
}

func sortRecords(records []Record, order models.RequestOrder) {
	switch order {
	case models.OrderNewest:
		slices.SortStableFunc(records, func(a, b Record) int { return cmp.Compare(b.Modified, a.Modified) })
	case models.OrderIndex:
		slices.SortStableFunc(records, func(a, b Record) int { return cmp.Compare(sortIndex(b), sortIndex(a)) })
	default:
		slices.SortStableFunc(records, func(a, b Record) int { return cmp.Compare(a.Modified, b.Modified) })
	}
}

func sortIndex(r Record) int32 {
	if r.SortIndex == nil {
		return 0
	}
	return *r.SortIndex
}

func (s *Server) postCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	q := r.URL.Query()

	var incoming []Record
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		http.Error(w, "invalid records", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnmodifiedSince(r, name); err != nil {
		writePreconditionError(w, err)
		return
	}

	result := uploadResult{Success: []models.Guid{}, Failed: map[models.Guid]string{}}
	valid := make([]Record, 0, len(incoming))
	maxPayload := models.DefaultInfoConfiguration().MaxRecordPayloadBytes
	if s.opts.InfoConfiguration != nil {
		maxPayload = s.opts.InfoConfiguration.MaxRecordPayloadBytes
	}
	for _, rec := range incoming {
		switch {
		case !rec.ID.IsValidForSyncServer():
			result.Failed[rec.ID] = "invalid id"
		case len(rec.Payload) > maxPayload:
			result.Failed[rec.ID] = "payload too large"
		default:
			valid = append(valid, rec)
			result.Success = append(result.Success, rec.ID)
		}
	}

	batchParam := q.Get("batch")
	commit := q.Get("commit") == "true"
	if s.opts.DisableBatches || batchParam == "" {
		ts := s.applyRecords(name, valid)
		result.Modified = ts
		utils.SetSyncTimestamps(w, ts.String(), ts.String())
		_, _ = utils.WriteJSON(w, result, http.StatusOK)
		return
	}

	var batchID string
	if batchParam == "true" {
		batchID = s.ids.Generate()
		s.batches[batchID] = &pendingBatch{collection: name}
	} else {
		batchID = batchParam
	}
	batch, ok := s.batches[batchID]
	if !ok || batch.collection != name {
		http.Error(w, "unknown batch", http.StatusBadRequest)
		return
	}
	batch.records = append(batch.records, valid...)

	if commit {
		delete(s.batches, batchID)
		ts := s.applyRecords(name, batch.records)
		logger.FromRequest(r).Debug().
			Str("collection", name).
			Str("batch", batchID).
			Int("records", len(batch.records)).
			Msg("batch committed")
		result.Modified = ts
		utils.SetSyncTimestamps(w, ts.String(), ts.String())
		_, _ = utils.WriteJSON(w, result, http.StatusOK)
		return
	}

	result.Batch = batchID
	modified := s.collectionModified(name)
	utils.SetSyncTimestamps(w, s.currentTimestamp().String(), modified.String())
	_, _ = utils.WriteJSON(w, result, http.StatusAccepted)
}

func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	delete(s.collections, name)
	ts := s.tick()

	utils.SetSyncTimestamps(w, ts.String(), ts.String())
	_, _ = utils.WriteJSON(w, ts, http.StatusOK)
}

func (s *Server) deleteAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.collections)
	clear(s.batches)
	ts := s.tick()

	utils.SetSyncTimestamps(w, ts.String(), ts.String())
	_, _ = utils.WriteJSON(w, ts, http.StatusOK)
}

func writePreconditionError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errPreconditionFailed) {
		status = http.StatusPreconditionFailed
	}
	http.Error(w, err.Error(), status)
}

// checkUnmodifiedSince must be called with s.mu held.
func (s *Server) checkUnmodifiedSince(r *http.Request, name string) error {
	v := r.Header.Get("X-If-Unmodified-Since")
	if v == "" {
		return nil
	}
	xius, err := models.ParseServerTimestamp(v)
	if err != nil {
		return fmt.Errorf("invalid X-If-Unmodified-Since: %w", err)
	}
	if s.collectionModified(name) > xius {
		return errPreconditionFailed
	}
	return nil
}
