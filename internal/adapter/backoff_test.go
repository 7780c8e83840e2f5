package adapter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffListener_KeepsMaximum(t *testing.T) {
	b := NewBackoffListener()

	b.NoteBackoff(30)
	b.NoteBackoff(10)
	b.NoteRetryAfter(5)
	b.NoteRetryAfter(20)

	assert.Equal(t, uint32(30), b.BackoffSecs())
	assert.Equal(t, uint32(20), b.RetryAfterSecs())
}

func TestBackoffListener_RequiredWait(t *testing.T) {
	b := NewBackoffListener()
	assert.Zero(t, b.RequiredWait(false))

	b.NoteBackoff(60)
	b.NoteRetryAfter(15)

	assert.Equal(t, 60*time.Second, b.RequiredWait(false))
	assert.Equal(t, 15*time.Second, b.RequiredWait(true))

	b.Reset()
	assert.Zero(t, b.RequiredWait(false))
}

func TestBackoffListener_Concurrent(t *testing.T) {
	b := NewBackoffListener()

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(v uint32) {
			defer wg.Done()
			b.NoteBackoff(v)
		}(uint32(i))
	}
	wg.Wait()

	assert.Equal(t, uint32(100), b.BackoffSecs())
}
