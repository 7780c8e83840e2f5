package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postedData struct {
	body         string
	batch        *string
	commit       bool
	xius         models.ServerTimestamp
	records      int
	payloadBytes int
}

// testPoster replays canned responses and checks every POST against the
// configured limits.
type testPoster struct {
	t         *testing.T
	cfg       models.InfoConfiguration
	queue     *PostQueue
	responses []Response[UploadResult]
	posts     []postedData
}

func (p *testPoster) Post(_ context.Context, req models.CollectionRequest, body []byte,
	xius models.ServerTimestamp) (Response[UploadResult], error) {
	p.t.Helper()
	assert.LessOrEqual(p.t, len(body), p.cfg.MaxRequestBytes)

	var recs []models.EncryptedBso
	require.NoError(p.t, json.Unmarshal(body, &recs))
	payloadBytes := 0
	for _, r := range recs {
		payloadBytes += r.Payload.SerializedLen()
	}
	assert.LessOrEqual(p.t, len(recs), p.cfg.MaxPostRecords)
	assert.LessOrEqual(p.t, payloadBytes, p.cfg.MaxPostBytes)
	assert.Equal(p.t, len(recs), p.queue.postLimits.curRecords)
	assert.Equal(p.t, payloadBytes, p.queue.postLimits.curBytes)

	p.posts = append(p.posts, postedData{
		body:         string(body),
		batch:        req.Batch,
		commit:       req.Commit,
		xius:         xius,
		records:      len(recs),
		payloadBytes: payloadBytes,
	})
	require.NotEmpty(p.t, p.responses, "unexpected POST")
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func fakePostResponse(status int, lm int64, batch string) Response[UploadResult] {
	var b *string
	if batch != "" {
		b = &batch
	}
	return Response[UploadResult]{
		Status:       status,
		LastModified: models.ServerTimestamp(lm),
		Route:        "storage/test",
		Record:       UploadResult{Batch: b},
	}
}

func newTestPostQueue(t *testing.T, cfg models.InfoConfiguration, lm int64,
	resps ...Response[UploadResult]) (*PostQueue, *testPoster, *NormalResponseHandler) {
	t.Helper()
	p := &testPoster{t: t, cfg: cfg, responses: resps}
	h := NewNormalResponseHandler(true)
	q := NewPostQueue(p, "test", cfg, models.ServerTimestamp(lm), h, logger.Nop())
	p.queue = q
	return q, p, h
}

var (
	payloadOverhead    = models.EncryptedPayload{}.SerializedLen()
	nonPayloadOverhead = func() int {
		b, err := json.Marshal(models.EncryptedBso{})
		if err != nil {
			panic(err)
		}
		return len(b) - payloadOverhead
	}()
)

// makeRecord builds a record whose serialized payload is exactly
// payloadSize bytes.
func makeRecord(payloadSize int) models.EncryptedBso {
	return models.EncryptedBso{
		Payload: models.EncryptedPayload{Ciphertext: strings.Repeat("x", payloadSize-payloadOverhead)},
	}
}

func requestBytesForPayloads(sizes ...int) int {
	n := 1
	for _, s := range sizes {
		n += s + 1 + nonPayloadOverhead
	}
	return n
}

func enqueueAll(t *testing.T, q *PostQueue, sizes ...int) {
	t.Helper()
	for _, s := range sizes {
		ok, err := q.Enqueue(context.Background(), makeRecord(s))
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func strp(s string) *string { return &s }

const pqTime = 11_111_111_000

// ── limits ──────────────────────────────────────────────────────────────────

func TestPostQueue_Basic(t *testing.T) {
	cfg := models.DefaultInfoConfiguration()
	cfg.MaxRequestBytes = 1000
	cfg.MaxRecordPayloadBytes = 1000
	q, p, _ := newTestPostQueue(t, cfg, pqTime, fakePostResponse(http.StatusOK, pqTime+100_000, ""))

	enqueueAll(t, q, 100)
	require.NoError(t, q.Flush(context.Background(), true))

	require.Len(t, p.posts, 1)
	assert.Equal(t, 1, p.posts[0].records)
	assert.Equal(t, 100, p.posts[0].payloadBytes)
	assert.Equal(t, requestBytesForPayloads(100), len(p.posts[0].body))
	assert.Equal(t, models.ServerTimestamp(pqTime), p.posts[0].xius)
	assert.Equal(t, models.ServerTimestamp(pqTime+100_000), q.LastModified())
}

func TestPostQueue_MaxRequestBytesNoBatch(t *testing.T) {
	cfg := models.DefaultInfoConfiguration()
	cfg.MaxRequestBytes = 250
	q, p, _ := newTestPostQueue(t, cfg, pqTime,
		fakePostResponse(http.StatusOK, pqTime+100_000, ""),
		fakePostResponse(http.StatusOK, pqTime+200_000, ""),
	)

	size := 100 - nonPayloadOverhead
	enqueueAll(t, q, size, size, size)
	require.NoError(t, q.Flush(context.Background(), true))

	require.Len(t, p.posts, 2)
	assert.Equal(t, 2, p.posts[0].records)
	assert.Equal(t, strp("true"), p.posts[0].batch)
	assert.False(t, p.posts[0].commit)
	assert.Equal(t, requestBytesForPayloads(size, size), len(p.posts[0].body))

	// The server answered 200: no batch support.
	assert.Equal(t, 1, p.posts[1].records)
	assert.Nil(t, p.posts[1].batch)
	assert.False(t, p.posts[1].commit)
	assert.Equal(t, models.ServerTimestamp(pqTime+100_000), p.posts[1].xius)
	assert.Equal(t, models.ServerTimestamp(pqTime+200_000), q.LastModified())
}

func TestPostQueue_MaxRecordPayloadBytes(t *testing.T) {
	cfg := models.DefaultInfoConfiguration()
	cfg.MaxRecordPayloadBytes = 150
	cfg.MaxRequestBytes = 350
	q, p, _ := newTestPostQueue(t, cfg, pqTime, fakePostResponse(http.StatusOK, pqTime+100_000, ""))

	size := 100 - nonPayloadOverhead
	enqueueAll(t, q, size)
	ok, err := q.Enqueue(context.Background(), makeRecord(151))
	require.NoError(t, err)
	assert.False(t, ok, "should not have fit")
	enqueueAll(t, q, size)
	require.NoError(t, q.Flush(context.Background(), true))

	require.Len(t, p.posts, 1)
	assert.Equal(t, 2, p.posts[0].records)
	assert.Equal(t, requestBytesForPayloads(size, size), len(p.posts[0].body))
}

func TestPostQueue_RecordLargerThanRequest(t *testing.T) {
	cfg := models.DefaultInfoConfiguration()
	cfg.MaxRequestBytes = 100
	q, p, _ := newTestPostQueue(t, cfg, pqTime)

	ok, err := q.Enqueue(context.Background(), makeRecord(99))
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, q.Flush(context.Background(), true))
	assert.Empty(t, p.posts)
}

// ── batches ─────────────────────────────────────────────────────────────────

func TestPostQueue_SingleBatch(t *testing.T) {
	q, p, _ := newTestPostQueue(t, models.DefaultInfoConfiguration(), pqTime,
		fakePostResponse(http.StatusAccepted, pqTime+100_000, "1234"))

	size := 100 - nonPayloadOverhead
	enqueueAll(t, q, size, size, size)
	require.NoError(t, q.Flush(context.Background(), true))

	require.Len(t, p.posts, 1)
	assert.Equal(t, 3, p.posts[0].records)
	assert.Equal(t, strp("true"), p.posts[0].batch)
	assert.True(t, p.posts[0].commit)
	assert.Equal(t, requestBytesForPayloads(size, size, size), len(p.posts[0].body))
}

func TestPostQueue_MultiPostBatchBytes(t *testing.T) {
	cfg := models.DefaultInfoConfiguration()
	cfg.MaxPostBytes = 200
	q, p, _ := newTestPostQueue(t, cfg, pqTime,
		fakePostResponse(http.StatusAccepted, pqTime, "1234"),
		fakePostResponse(http.StatusAccepted, pqTime+100_000, "1234"),
	)

	enqueueAll(t, q, 100, 100, 100)
	require.NoError(t, q.Flush(context.Background(), true))

	require.Len(t, p.posts, 2)
	assert.Equal(t, strp("true"), p.posts[0].batch)
	assert.Equal(t, 2, p.posts[0].records)
	assert.Equal(t, 200, p.posts[0].payloadBytes)
	assert.False(t, p.posts[0].commit)

	assert.Equal(t, strp("1234"), p.posts[1].batch)
	assert.Equal(t, 1, p.posts[1].records)
	assert.True(t, p.posts[1].commit)
	assert.Equal(t, requestBytesForPayloads(100), len(p.posts[1].body))
}

func TestPostQueue_MultiPostBatchRecords(t *testing.T) {
	cfg := models.DefaultInfoConfiguration()
	cfg.MaxPostRecords = 3
	q, p, _ := newTestPostQueue(t, cfg, pqTime,
		fakePostResponse(http.StatusAccepted, pqTime, "1234"),
		fakePostResponse(http.StatusAccepted, pqTime, "1234"),
		fakePostResponse(http.StatusAccepted, pqTime+100_000, "1234"),
	)

	enqueueAll(t, q, 100, 100, 100, 100, 100, 100, 100)
	require.NoError(t, q.Flush(context.Background(), true))

	require.Len(t, p.posts, 3)
	assert.Equal(t, []int{3, 3, 1}, []int{p.posts[0].records, p.posts[1].records, p.posts[2].records})
	assert.Equal(t, strp("true"), p.posts[0].batch)
	assert.Equal(t, strp("1234"), p.posts[1].batch)
	assert.Equal(t, strp("1234"), p.posts[2].batch)
	assert.Equal(t, []bool{false, false, true}, []bool{p.posts[0].commit, p.posts[1].commit, p.posts[2].commit})
	assert.Equal(t, models.ServerTimestamp(pqTime+100_000), q.LastModified())
}

func TestPostQueue_MultiPostMultiBatchRecords(t *testing.T) {
	cfg := models.DefaultInfoConfiguration()
	cfg.MaxPostRecords = 3
	cfg.MaxTotalRecords = 5
	q, p, _ := newTestPostQueue(t, cfg, pqTime,
		fakePostResponse(http.StatusAccepted, pqTime, "1234"),
		fakePostResponse(http.StatusAccepted, pqTime+100_000, "1234"),
		fakePostResponse(http.StatusAccepted, pqTime+100_000, "abcd"),
		fakePostResponse(http.StatusAccepted, pqTime+200_000, "abcd"),
	)

	enqueueAll(t, q, 100, 100, 100, 100, 100, 100, 100, 100, 100)
	require.NoError(t, q.Flush(context.Background(), true))

	require.Len(t, p.posts, 4)
	assert.Equal(t, []int{3, 2, 3, 1},
		[]int{p.posts[0].records, p.posts[1].records, p.posts[2].records, p.posts[3].records})
	assert.Equal(t, strp("true"), p.posts[0].batch)
	assert.Equal(t, strp("1234"), p.posts[1].batch)
	assert.True(t, p.posts[1].commit)
	assert.Equal(t, strp("true"), p.posts[2].batch)
	assert.Equal(t, models.ServerTimestamp(pqTime+100_000), p.posts[2].xius)
	assert.Equal(t, strp("abcd"), p.posts[3].batch)
	assert.True(t, p.posts[3].commit)
	assert.Equal(t, models.ServerTimestamp(pqTime+200_000), q.LastModified())
}

func TestPostQueue_FlushEmptyIsNoop(t *testing.T) {
	q, p, _ := newTestPostQueue(t, models.DefaultInfoConfiguration(), pqTime)
	require.NoError(t, q.Flush(context.Background(), true))
	assert.Empty(t, p.posts)
}

// ── server misbehaviour ─────────────────────────────────────────────────────

func TestPostQueue_BatchProblems(t *testing.T) {
	tests := []struct {
		name  string
		resps []Response[UploadResult]
	}{
		{
			name:  "202 without batch id",
			resps: []Response[UploadResult]{fakePostResponse(http.StatusAccepted, pqTime, "")},
		},
		{
			name: "batch id changes",
			resps: []Response[UploadResult]{
				fakePostResponse(http.StatusAccepted, pqTime, "1234"),
				fakePostResponse(http.StatusAccepted, pqTime, "5678"),
			},
		},
		{
			name: "200 inside a batch",
			resps: []Response[UploadResult]{
				fakePostResponse(http.StatusAccepted, pqTime, "1234"),
				fakePostResponse(http.StatusOK, pqTime, ""),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultInfoConfiguration()
			cfg.MaxPostRecords = 1
			q, _, _ := newTestPostQueue(t, cfg, pqTime, tt.resps...)

			ctx := context.Background()
			var err error
			for i := 0; i < 3 && err == nil; i++ {
				_, err = q.Enqueue(ctx, makeRecord(100))
			}
			assert.ErrorIs(t, err, ErrServerBatchProblem)
		})
	}
}

func TestPostQueue_ErrorResponse(t *testing.T) {
	resp := Response[UploadResult]{
		Status: http.StatusPreconditionFailed,
		Route:  "storage/test",
		Err:    mapHTTPError(http.StatusPreconditionFailed, "storage/test"),
	}
	q, _, _ := newTestPostQueue(t, models.DefaultInfoConfiguration(), pqTime, resp)

	enqueueAll(t, q, 100)
	err := q.Flush(context.Background(), true)

	var storageErr *StorageHTTPError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, ErrorPreconditionFailed, storageErr.Response.Kind)
}

// ── NormalResponseHandler ───────────────────────────────────────────────────

func TestNormalResponseHandler_Completed(t *testing.T) {
	h := NewNormalResponseHandler(true)

	ok := fakePostResponse(http.StatusOK, pqTime, "")
	ok.Record.Success = []models.Guid{"a", "b"}
	ok.Record.Failed = map[models.Guid]string{"c": "too big"}
	require.NoError(t, h.HandleResponse(ok, false))

	mid := fakePostResponse(http.StatusAccepted, pqTime, "1")
	mid.Record.Success = []models.Guid{"d"}
	require.NoError(t, h.HandleResponse(mid, true))

	info := h.Completed(pqTime + 1)
	assert.Equal(t, []models.Guid{"a", "b"}, info.SuccessfulIDs)
	assert.Equal(t, []models.Guid{"c", "d"}, info.FailedIDs, "uncommitted ids count as failed")
	assert.Equal(t, models.ServerTimestamp(pqTime+1), info.ModifiedTimestamp)
}

func TestNormalResponseHandler_PendingMergedOnCommit(t *testing.T) {
	h := NewNormalResponseHandler(true)

	mid := fakePostResponse(http.StatusAccepted, pqTime, "1")
	mid.Record.Success = []models.Guid{"a"}
	require.NoError(t, h.HandleResponse(mid, true))

	commit := fakePostResponse(http.StatusOK, pqTime, "")
	commit.Record.Success = []models.Guid{"b"}
	require.NoError(t, h.HandleResponse(commit, false))

	info := h.Completed(pqTime)
	assert.Equal(t, []models.Guid{"a", "b"}, info.SuccessfulIDs)
	assert.Empty(t, info.FailedIDs)
}

func TestNormalResponseHandler_FailedNotAllowed(t *testing.T) {
	h := NewNormalResponseHandler(false)

	resp := fakePostResponse(http.StatusOK, pqTime, "")
	resp.Record.Failed = map[models.Guid]string{"x": "nope"}

	assert.ErrorIs(t, h.HandleResponse(resp, false), ErrRecordUploadFailed)
}

func TestNormalResponseHandler_ErrorResponse(t *testing.T) {
	h := NewNormalResponseHandler(true)
	resp := Response[UploadResult]{Status: 503, Route: "storage/x", Err: mapHTTPError(503, "storage/x")}

	var storageErr *StorageHTTPError
	assert.ErrorAs(t, h.HandleResponse(resp, false), &storageErr)
}
