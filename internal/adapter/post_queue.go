package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/models"
)

// limitTracker counts records and payload bytes against one pair of server
// limits: per POST or per batch.
type limitTracker struct {
	maxBytes   int
	maxRecords int
	curBytes   int
	curRecords int
}

func (l *limitTracker) clear() {
	l.curBytes = 0
	l.curRecords = 0
}

func (l *limitTracker) canAdd(payloadSize int) bool {
	return l.curRecords < l.maxRecords && payloadSize <= l.maxBytes-l.curBytes
}

func (l *limitTracker) canNeverAdd(payloadSize int) bool {
	return payloadSize >= l.maxBytes
}

func (l *limitTracker) recordAdded(payloadSize int) {
	l.curRecords++
	l.curBytes += payloadSize
}

// UploadResult is the body of a successful collection POST.
type UploadResult struct {
	Batch   *string                `json:"batch,omitempty"`
	Failed  map[models.Guid]string `json:"failed"`
	Success []models.Guid          `json:"success"`
}

// UploadInfo summarises a finished upload.
type UploadInfo struct {
	SuccessfulIDs     []models.Guid
	FailedIDs         []models.Guid
	ModifiedTimestamp models.ServerTimestamp
}

// BatchPoster sends one POST. Non-success statuses are reported through the
// Response, not as an error.
type BatchPoster interface {
	Post(ctx context.Context, req models.CollectionRequest, body []byte,
		xius models.ServerTimestamp) (Response[UploadResult], error)
}

// PostResponseHandler sees every POST response. midBatch is set while a
// batch is still open on the server. It must fail for non-success
// responses.
type PostResponseHandler interface {
	HandleResponse(resp Response[UploadResult], midBatch bool) error
}

// NormalResponseHandler collects the ids the server accepted or rejected.
// Ids reported mid-batch stay pending until the batch is committed.
type NormalResponseHandler struct {
	allowFailed    bool
	successfulIDs  []models.Guid
	failedIDs      []models.Guid
	pendingSuccess []models.Guid
	pendingFailed  []models.Guid
}

// NewNormalResponseHandler returns a handler. With allowFailed unset any
// rejected record fails the upload.
func NewNormalResponseHandler(allowFailed bool) *NormalResponseHandler {
	return &NormalResponseHandler{allowFailed: allowFailed}
}

func (h *NormalResponseHandler) HandleResponse(resp Response[UploadResult], midBatch bool) error {
	if !resp.IsSuccess() {
		return resp.StorageError()
	}
	if len(resp.Record.Failed) > 0 && !h.allowFailed {
		return ErrRecordUploadFailed
	}
	h.pendingSuccess = append(h.pendingSuccess, resp.Record.Success...)
	for id := range resp.Record.Failed {
		h.pendingFailed = append(h.pendingFailed, id)
	}
	if !midBatch {
		h.successfulIDs = append(h.successfulIDs, h.pendingSuccess...)
		h.failedIDs = append(h.failedIDs, h.pendingFailed...)
		h.pendingSuccess = nil
		h.pendingFailed = nil
	}
	return nil
}

// Completed returns what was uploaded. Anything still pending belonged to
// an uncommitted batch and counts as failed.
func (h *NormalResponseHandler) Completed(lastModified models.ServerTimestamp) UploadInfo {
	failed := make([]models.Guid, 0, len(h.failedIDs)+len(h.pendingFailed)+len(h.pendingSuccess))
	failed = append(failed, h.failedIDs...)
	failed = append(failed, h.pendingFailed...)
	failed = append(failed, h.pendingSuccess...)
	return UploadInfo{
		SuccessfulIDs:     append([]models.Guid(nil), h.successfulIDs...),
		FailedIDs:         failed,
		ModifiedTimestamp: lastModified,
	}
}

type batchStateKind int

const (
	batchNone batchStateKind = iota
	batchUnsupported
	batchOpen
)

// batchState tracks what we know about the server's batch support.
type batchState struct {
	kind batchStateKind
	id   string
}

// PostQueue packs encrypted records into POST bodies that respect the
// server's limits and drives the batch upload protocol.
type PostQueue struct {
	poster     BatchPoster
	handler    PostResponseHandler
	collection string

	postLimits      limitTracker
	batchLimits     limitTracker
	maxPayloadBytes int
	maxRequestBytes int

	queued       bytes.Buffer
	batch        batchState
	lastModified models.ServerTimestamp
	log          *logger.Logger
}

// NewPostQueue creates a queue. xius is sent as X-If-Unmodified-Since and
// follows the server as batches are committed.
func NewPostQueue(poster BatchPoster, collection string, cfg models.InfoConfiguration,
	xius models.ServerTimestamp, handler PostResponseHandler, log *logger.Logger) *PostQueue {
	return &PostQueue{
		poster:          poster,
		handler:         handler,
		collection:      collection,
		postLimits:      limitTracker{maxBytes: cfg.MaxPostBytes, maxRecords: cfg.MaxPostRecords},
		batchLimits:     limitTracker{maxBytes: cfg.MaxTotalBytes, maxRecords: cfg.MaxTotalRecords},
		maxPayloadBytes: cfg.MaxRecordPayloadBytes,
		maxRequestBytes: cfg.MaxRequestBytes,
		lastModified:    xius,
		log:             log,
	}
}

// LastModified is the server timestamp after the most recent commit.
func (q *PostQueue) LastModified() models.ServerTimestamp {
	return q.lastModified
}

func (q *PostQueue) inBatch() bool {
	return q.batch.kind == batchOpen
}

func (q *PostQueue) write(encoded []byte) {
	if q.queued.Len() == 0 {
		q.queued.WriteByte('[')
	} else {
		q.queued.WriteByte(',')
	}
	q.queued.Write(encoded)
}

// Enqueue adds record, posting what is already queued first when the record
// would not fit. It returns false for a record that can never be uploaded.
func (q *PostQueue) Enqueue(ctx context.Context, record models.EncryptedBso) (bool, error) {
	payloadLen := record.Payload.SerializedLen()
	if q.postLimits.canNeverAdd(payloadLen) ||
		q.batchLimits.canNeverAdd(payloadLen) ||
		payloadLen >= q.maxPayloadBytes {
		q.log.Warn().Int("bytes", payloadLen).Str("id", string(record.ID)).
			Msg("single record too large to submit to server")
		return false, nil
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("encode record %s: %w", record.ID, err)
	}
	// Separator plus the closing ']' of the final request.
	itemLen := len(encoded) + 2
	if itemLen >= q.maxRequestBytes {
		q.log.Warn().Int("bytes", itemLen).Str("id", string(record.ID)).
			Msg("single record too large to submit to server")
		return false, nil
	}

	canPost := q.postLimits.canAdd(payloadLen)
	canBatch := q.batchLimits.canAdd(payloadLen)
	canSend := q.queued.Len()+len(encoded)+1 < q.maxRequestBytes

	if !canPost || !canSend || !canBatch {
		q.log.Debug().Bool("can_post", canPost).Bool("can_send", canSend).Bool("can_batch", canBatch).
			Msg("post queue flushing")
		if err = q.Flush(ctx, !canBatch); err != nil {
			return false, err
		}
	}

	q.write(encoded)
	q.postLimits.recordAdded(payloadLen)
	q.batchLimits.recordAdded(payloadLen)
	return true, nil
}

// Flush posts whatever is queued. With wantCommit the open batch, if any,
// is committed.
func (q *PostQueue) Flush(ctx context.Context, wantCommit bool) error {
	if q.queued.Len() == 0 {
		return nil
	}
	q.queued.WriteByte(']')

	var batchID *string
	switch q.batch.kind {
	case batchNone:
		start := "true"
		batchID = &start
	case batchOpen:
		id := q.batch.id
		batchID = &id
	}
	isCommit := wantCommit && batchID != nil

	q.log.Info().Int("records", q.postLimits.curRecords).Int("bytes", q.queued.Len()).
		Str("collection", q.collection).Msg("posting records")

	req := models.NewCollectionRequest(q.collection).WithBatch(batchID).WithCommit(isCommit)
	body := append([]byte(nil), q.queued.Bytes()...)
	resp, err := q.poster.Post(ctx, req, body, q.lastModified)

	q.queued.Reset()
	if wantCommit || q.batch.kind == batchUnsupported {
		q.batchLimits.clear()
	}
	q.postLimits.clear()

	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		if herr := q.handler.HandleResponse(resp, !wantCommit); herr != nil {
			return herr
		}
		return resp.StorageError()
	}

	if wantCommit || q.batch.kind == batchUnsupported {
		q.lastModified = resp.LastModified
	}

	if wantCommit {
		q.log.Debug().Str("batch", q.batch.id).Msg("committed batch")
		q.batch = batchState{kind: batchNone}
		return q.handler.HandleResponse(resp, false)
	}

	if resp.Status != http.StatusAccepted {
		if q.inBatch() {
			return fmt.Errorf("%w: non-202 success while a batch was in progress", ErrServerBatchProblem)
		}
		q.lastModified = resp.LastModified
		q.batch = batchState{kind: batchUnsupported}
		q.batchLimits.clear()
		return q.handler.HandleResponse(resp, false)
	}

	if resp.Record.Batch == nil {
		return fmt.Errorf("%w: 202 without a batch id", ErrServerBatchProblem)
	}
	newID := *resp.Record.Batch
	switch q.batch.kind {
	case batchUnsupported:
		q.log.Warn().Msg("server started batching mid-upload")
	case batchOpen:
		if q.batch.id != newID {
			return fmt.Errorf("%w: batch id changed from %q to %q", ErrServerBatchProblem, q.batch.id, newID)
		}
	}
	q.batch = batchState{kind: batchOpen, id: newID}
	q.lastModified = resp.LastModified
	return q.handler.HandleResponse(resp, true)
}
