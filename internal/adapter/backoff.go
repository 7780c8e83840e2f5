package adapter

import (
	"sync/atomic"
	"time"
)

// BackoffListener remembers the largest X-Weave-Backoff (soft) and
// Retry-After (hard) values seen, in seconds. It is safe for concurrent use.
type BackoffListener struct {
	backoffSecs    atomic.Uint32
	retryAfterSecs atomic.Uint32
}

// NewBackoffListener returns a listener with no backoff noted.
func NewBackoffListener() *BackoffListener {
	return &BackoffListener{}
}

func updateMax(v *atomic.Uint32, noted uint32) {
	for {
		cur := v.Load()
		if noted <= cur || v.CompareAndSwap(cur, noted) {
			return
		}
	}
}

// NoteBackoff records an X-Weave-Backoff value.
func (b *BackoffListener) NoteBackoff(secs uint32) {
	updateMax(&b.backoffSecs, secs)
}

// NoteRetryAfter records a Retry-After value.
func (b *BackoffListener) NoteRetryAfter(secs uint32) {
	updateMax(&b.retryAfterSecs, secs)
}

// BackoffSecs returns the largest soft backoff seen.
func (b *BackoffListener) BackoffSecs() uint32 {
	return b.backoffSecs.Load()
}

// RetryAfterSecs returns the largest hard backoff seen.
func (b *BackoffListener) RetryAfterSecs() uint32 {
	return b.retryAfterSecs.Load()
}

// RequiredWait is how long the next sync must wait. Soft backoff is left
// out when ignoreSoft is set. Zero means no wait.
func (b *BackoffListener) RequiredWait(ignoreSoft bool) time.Duration {
	secs := b.RetryAfterSecs()
	if !ignoreSoft {
		secs = max(secs, b.BackoffSecs())
	}
	return time.Duration(secs) * time.Second
}

// Reset forgets everything noted so far.
func (b *BackoffListener) Reset() {
	b.backoffSecs.Store(0)
	b.retryAfterSecs.Store(0)
}
