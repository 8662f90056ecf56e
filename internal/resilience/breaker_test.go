package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "github.com/evonota/evonota/internal/pkg/errors"
)

func TestBreaker_TripsOnUpstreamFailures(t *testing.T) {
	breaker := NewBreaker("test", Config{MinRequests: 3, FailureRatio: 0.6, OpenTimeout: time.Minute})
	calls := 0
	fail := func(ctx context.Context) error {
		calls++
		return errs.ErrUpstreamUnavailable
	}

	for i := 0; i < 3; i++ {
		err := breaker.Do(context.Background(), fail)
		require.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
	}
	require.Equal(t, 3, calls)

	// Open breaker sheds the call without reaching the upstream.
	err := breaker.Do(context.Background(), fail)
	require.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
	require.Equal(t, 3, calls)
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	breaker := NewBreaker("test", Config{MinRequests: 3, FailureRatio: 0.6})
	calls := 0
	badInput := func(ctx context.Context) error {
		calls++
		return errs.ErrUnsupportedFormat
	}

	for i := 0; i < 10; i++ {
		err := breaker.Do(context.Background(), badInput)
		require.ErrorIs(t, err, errs.ErrUnsupportedFormat)
	}
	require.Equal(t, 10, calls)
}

func TestBreaker_NilRunsDirectly(t *testing.T) {
	var breaker *Breaker
	called := false
	err := breaker.Do(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}
