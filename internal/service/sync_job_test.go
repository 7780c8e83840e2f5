// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/mock"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// spySyncer counts Sync calls and remembers the reasons it was called with.
type spySyncer struct {
	calls   atomic.Int64
	mu      sync.Mutex
	reasons []models.SyncReason
}

func (s *spySyncer) Sync(_ context.Context, p models.SyncParams) (*models.SyncResultReport, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.reasons = append(s.reasons, p.Reason)
	s.mu.Unlock()
	return &models.SyncResultReport{Status: models.StatusOk, PersistedState: "state"}, nil
}

func (s *spySyncer) firstReason() models.SyncReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reasons[0]
}

// memState is an in-memory StateStore.
type memState struct {
	mu    sync.Mutex
	value string
}

func (m *memState) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

func (m *memState) Save(_ context.Context, v string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = v
	return nil
}

// ── RunOnce ──

func TestSyncJob_RunOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	syncer := mock.NewMockSyncer(ctrl)
	state := mock.NewMockStateStore(ctrl)
	job := NewSyncJob(syncer, state, models.SyncParams{SyncAllEngines: true, DeviceName: "Laptop"}, time.Minute, logger.Nop())

	state.EXPECT().Load(gomock.Any()).Return("old", nil)
	syncer.EXPECT().Sync(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p models.SyncParams) (*models.SyncResultReport, error) {
			assert.Equal(t, "old", p.PersistedState)
			assert.Equal(t, models.ReasonUser, p.Reason)
			assert.True(t, p.SyncAllEngines)
			assert.Equal(t, "Laptop", p.DeviceName)
			return &models.SyncResultReport{Status: models.StatusServiceError, PersistedState: "new"}, nil
		})
	state.EXPECT().Save(gomock.Any(), "new").Return(nil)

	report, err := job.RunOnce(context.Background(), models.ReasonUser)
	require.NoError(t, err)
	assert.Equal(t, models.StatusServiceError, report.Status)
}

func TestSyncJob_RunOnceErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("load fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		state := mock.NewMockStateStore(ctrl)
		job := NewSyncJob(mock.NewMockSyncer(ctrl), state, models.SyncParams{}, 0, nil)
		state.EXPECT().Load(gomock.Any()).Return("", boom)

		_, err := job.RunOnce(context.Background(), models.ReasonUser)
		require.ErrorIs(t, err, boom)
	})

	t.Run("sync rejects params", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		syncer := mock.NewMockSyncer(ctrl)
		state := mock.NewMockStateStore(ctrl)
		job := NewSyncJob(syncer, state, models.SyncParams{}, 0, nil)
		state.EXPECT().Load(gomock.Any()).Return("", nil)
		syncer.EXPECT().Sync(gomock.Any(), gomock.Any()).Return(nil, ErrUnknownEngine)

		_, err := job.RunOnce(context.Background(), models.ReasonUser)
		require.ErrorIs(t, err, ErrUnknownEngine)
	})

	t.Run("save fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		syncer := mock.NewMockSyncer(ctrl)
		state := mock.NewMockStateStore(ctrl)
		job := NewSyncJob(syncer, state, models.SyncParams{}, 0, nil)
		state.EXPECT().Load(gomock.Any()).Return("", nil)
		syncer.EXPECT().Sync(gomock.Any(), gomock.Any()).
			Return(&models.SyncResultReport{Status: models.StatusOk, PersistedState: "s"}, nil)
		state.EXPECT().Save(gomock.Any(), "s").Return(boom)

		report, err := job.RunOnce(context.Background(), models.ReasonUser)
		require.ErrorIs(t, err, boom)
		assert.NotNil(t, report)
	})
}

// ── Start / Stop ──

func TestSyncJob_DefaultInterval(t *testing.T) {
	job := NewSyncJob(&spySyncer{}, &memState{}, models.SyncParams{}, 0, nil)
	assert.Equal(t, defaultSyncInterval, job.interval)
}

func TestSyncJob_Start_SyncsAtStartupAndOnTicks(t *testing.T) {
	spy := &spySyncer{}
	state := &memState{}
	job := NewSyncJob(spy, state, models.SyncParams{}, 10*time.Millisecond, logger.Nop())

	job.Start(context.Background())
	time.Sleep(55 * time.Millisecond)
	job.Stop()

	require.GreaterOrEqual(t, spy.calls.Load(), int64(3))
	assert.Equal(t, models.ReasonStartup, spy.firstReason())
	v, _ := state.Load(context.Background())
	assert.Equal(t, "state", v)
}

func TestSyncJob_Stop_StopsGoroutine(t *testing.T) {
	spy := &spySyncer{}
	job := NewSyncJob(spy, &memState{}, models.SyncParams{}, 10*time.Millisecond, logger.Nop())

	job.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	callsAfterStop := spy.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, callsAfterStop, spy.calls.Load())
}

func TestSyncJob_Stop_BeforeStart_NoPanic(t *testing.T) {
	job := NewSyncJob(&spySyncer{}, &memState{}, models.SyncParams{}, time.Minute, nil)
	assert.NotPanics(t, func() { job.Stop() })
}

func TestSyncJob_Start_TwiceRestarts(t *testing.T) {
	spy := &spySyncer{}
	job := NewSyncJob(spy, &memState{}, models.SyncParams{}, time.Hour, logger.Nop())

	job.Start(context.Background())
	job.Start(context.Background())
	job.Stop()

	// Each Start syncs once at startup before the first tick.
	assert.LessOrEqual(t, spy.calls.Load(), int64(2))
}

func TestSyncJob_ContextCancelStops(t *testing.T) {
	spy := &spySyncer{}
	job := NewSyncJob(spy, &memState{}, models.SyncParams{}, 10*time.Millisecond, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	job.Start(ctx)
	cancel()
	done := make(chan struct{})
	go func() {
		job.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop after context cancel")
	}
}
