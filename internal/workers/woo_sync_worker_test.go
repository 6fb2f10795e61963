package workers

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storybook-service/internal/services"
)

type fakeSyncer struct {
	calls  atomic.Int32
	status atomic.Value
	err    error
}

func (f *fakeSyncer) Sync(ctx context.Context, status string) (*services.SyncResult, error) {
	f.calls.Add(1)
	f.status.Store(status)
	if f.err != nil {
		return nil, f.err
	}
	return &services.SyncResult{Imported: 2, Failed: 1}, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestWooSyncWorker_ForceRunUpdatesStats(t *testing.T) {
	syncer := &fakeSyncer{}
	w := NewWooSyncWorker(syncer, nil, "", time.Hour, quietLogger())

	result, err := w.ForceRun(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, services.DefaultSyncStatus, syncer.status.Load())
	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Runs)
	assert.Equal(t, int64(2), stats.TotalImported)
	assert.Equal(t, int64(1), stats.TotalFailed)
	assert.Empty(t, stats.LastError)
}

func TestWooSyncWorker_RecordsErrors(t *testing.T) {
	w := NewWooSyncWorker(&fakeSyncer{err: errors.New("upstream down")}, nil, "processing", time.Hour, quietLogger())

	_, err := w.ForceRun(context.Background())

	assert.Error(t, err)
	assert.Equal(t, "upstream down", w.Stats().LastError)
}

func TestWooSyncWorker_StartStop(t *testing.T) {
	syncer := &fakeSyncer{}
	w := NewWooSyncWorker(syncer, nil, "processing", 10*time.Millisecond, quietLogger())

	w.Start()
	w.Start()
	assert.True(t, w.IsRunning())

	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	w.Stop()
	assert.False(t, w.IsRunning())
	w.Stop()
}

func TestNewWooSyncWorker_DefaultInterval(t *testing.T) {
	w := NewWooSyncWorker(&fakeSyncer{}, nil, "", 0, quietLogger())
	assert.Equal(t, DefaultSyncInterval, w.interval)
}
