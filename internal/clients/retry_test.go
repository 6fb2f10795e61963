package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func response(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func TestDoHTTP_RetriesTransientStatus(t *testing.T) {
	r := NewRetrier(nil)
	r.sleep = noSleep

	calls := 0
	resp, result := r.DoHTTP(context.Background(), func(ctx context.Context) (*http.Response, error) {
		calls++
		if calls < 3 {
			return response(http.StatusServiceUnavailable), nil
		}
		return response(http.StatusOK), nil
	})

	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, result.Attempts)
}

func TestDoHTTP_DoesNotRetryClientErrors(t *testing.T) {
	r := NewRetrier(nil)
	r.sleep = noSleep

	calls := 0
	resp, result := r.DoHTTP(context.Background(), func(ctx context.Context) (*http.Response, error) {
		calls++
		return response(http.StatusUnauthorized), nil
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 1, result.Attempts)
}

func TestDoHTTP_GivesUpAfterMaxRetries(t *testing.T) {
	r := NewRetrier(&RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffFactor: 2})
	r.sleep = noSleep

	calls := 0
	resp, result := r.DoHTTP(context.Background(), func(ctx context.Context) (*http.Response, error) {
		calls++
		return nil, errors.New("connection refused")
	})

	assert.Nil(t, resp)
	assert.Equal(t, 3, calls)
	assert.Error(t, result.LastError)
}

func TestShouldRetry_ContextCancelIsPermanent(t *testing.T) {
	r := NewRetrier(nil)
	assert.False(t, r.ShouldRetry(0, context.Canceled))
	assert.True(t, r.ShouldRetry(0, errors.New("reset by peer")))
	assert.True(t, r.ShouldRetry(http.StatusTooManyRequests, nil))
	assert.False(t, r.ShouldRetry(http.StatusNotFound, nil))
}

func TestParseRetryAfter(t *testing.T) {
	resp := response(http.StatusTooManyRequests)
	resp.Header.Set("Retry-After", "4")

	assert.Equal(t, 4*time.Second, ParseRetryAfter(resp))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(nil))
}

func TestCalculateBackoff_CapsRetryAfter(t *testing.T) {
	r := NewRetrier(&RetryConfig{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, BackoffFactor: 2})

	assert.Equal(t, 5*time.Second, r.CalculateBackoff(0, time.Minute))
	assert.Equal(t, 2*time.Second, r.CalculateBackoff(1, 0))
	assert.Equal(t, 5*time.Second, r.CalculateBackoff(10, 0))
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, 30*time.Second)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	now = now.Add(31 * time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(1, time.Second)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(2 * time.Second)
	require.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(1, time.Second)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(2 * time.Second)

	require.True(t, cb.Allow())
	assert.False(t, cb.Allow(), "second caller must wait for the trial")
	assert.False(t, cb.Allow())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_AbandonedTrialFreesSlot(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(1, time.Second)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(2 * time.Second)
	require.True(t, cb.Allow())
	require.False(t, cb.Allow())

	cb.RecordAbandoned()
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow())
}
