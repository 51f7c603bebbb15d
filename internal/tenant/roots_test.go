package tenant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/tenantfs/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, tenantID string) (string, error)

func (f resolverFunc) ResolveRoot(ctx context.Context, tenantID string) (string, error) {
	return f(ctx, tenantID)
}

func TestRootsCachesAfterFirstLookup(t *testing.T) {
	resolver := testutil.NewMockRootResolver(t, map[string]string{"srv-A": "/srv/a/"})
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	roots := NewRoots(resolver, Options{Metrics: metrics})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		root, err := roots.Root(ctx, "srv-A")
		require.NoError(t, err)
		assert.Equal(t, "/srv/a", root)
	}

	resolver.AssertNumberOfCalls(t, "ResolveRoot", 1)
	assert.Equal(t, 1, roots.Len())
	assert.Equal(t, float64(2), promtest.ToFloat64(metrics.RootCache.WithLabelValues("hit")))
	assert.Equal(t, float64(1), promtest.ToFloat64(metrics.RootCache.WithLabelValues("miss")))
}

func TestRootsInvalidateForcesLookup(t *testing.T) {
	resolver := new(testutil.MockRootResolver)
	resolver.On("ResolveRoot", mock.Anything, "srv-A").Return("/srv/a", nil).Once()
	resolver.On("ResolveRoot", mock.Anything, "srv-A").Return("/srv/moved", nil).Once()
	roots := NewRoots(resolver, Options{})
	ctx := context.Background()

	root, err := roots.Root(ctx, "srv-A")
	require.NoError(t, err)
	assert.Equal(t, "/srv/a", root)

	roots.Invalidate("srv-A")
	assert.Equal(t, 0, roots.Len())

	root, err = roots.Root(ctx, "srv-A")
	require.NoError(t, err)
	assert.Equal(t, "/srv/moved", root)
	resolver.AssertExpectations(t)
}

func TestRootsConcurrentMissesShareLookup(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	roots := NewRoots(resolverFunc(func(ctx context.Context, id string) (string, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		return "/srv/" + id, nil
	}), Options{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			root, err := roots.Root(context.Background(), "srv-A")
			assert.NoError(t, err)
			results[i] = root
		}(i)
	}

	<-entered
	close(release)
	wg.Wait()

	// Callers either joined the in-flight lookup or found its cached answer.
	assert.Equal(t, int32(1), calls.Load())
	for _, root := range results {
		assert.Equal(t, "/srv/srv-A", root)
	}
}

func TestRootsInvalidateDuringLookupDoesNotRepopulate(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	roots := NewRoots(resolverFunc(func(ctx context.Context, id string) (string, error) {
		if calls.Add(1) == 1 {
			entered <- struct{}{}
			<-release
			return "/srv/stale", nil
		}
		return "/srv/fresh", nil
	}), Options{})

	result := make(chan string)
	go func() {
		root, err := roots.Root(context.Background(), "srv-A")
		assert.NoError(t, err)
		result <- root
	}()

	<-entered
	roots.Invalidate("srv-A")
	close(release)
	assert.Equal(t, "/srv/stale", <-result)
	assert.Equal(t, 0, roots.Len())

	root, err := roots.Root(context.Background(), "srv-A")
	require.NoError(t, err)
	assert.Equal(t, "/srv/fresh", root)
}

func TestRootsCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var lookupErr error
	roots := NewRoots(resolverFunc(func(ctx context.Context, id string) (string, error) {
		close(entered)
		<-release
		lookupErr = ctx.Err()
		return "/srv/" + id, nil
	}), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := roots.Root(ctx, "srv-A")
		first <- err
	}()
	<-entered

	second := make(chan string, 1)
	go func() {
		root, err := roots.Root(context.Background(), "srv-A")
		assert.NoError(t, err)
		second <- root
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	assert.Equal(t, "/srv/srv-A", <-second)
	assert.NoError(t, lookupErr)
	assert.Equal(t, 1, roots.Len())
}

func TestRootsNotFoundDoesNotTripBreaker(t *testing.T) {
	resolver := new(testutil.MockRootResolver)
	resolver.On("ResolveRoot", mock.Anything, "ghost").Return("", ErrTenantNotFound)
	roots := NewRoots(resolver, Options{MaxFailures: 1})

	for i := 0; i < 3; i++ {
		_, err := roots.Root(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrTenantNotFound)
		assert.NotErrorIs(t, err, resilience.ErrCircuitOpen)
	}
	resolver.AssertNumberOfCalls(t, "ResolveRoot", 3)
}

func TestRootsFailuresOpenBreaker(t *testing.T) {
	errDown := errors.New("directory unavailable")
	resolver := new(testutil.MockRootResolver)
	resolver.On("ResolveRoot", mock.Anything, "srv-A").Return("", errDown)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	roots := NewRoots(resolver, Options{MaxFailures: 2, Metrics: metrics})

	for i := 0; i < 2; i++ {
		_, err := roots.Root(context.Background(), "srv-A")
		assert.ErrorIs(t, err, errDown)
	}

	_, err := roots.Root(context.Background(), "srv-A")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	resolver.AssertNumberOfCalls(t, "ResolveRoot", 2)
	assert.Equal(t, float64(1), promtest.ToFloat64(metrics.BreakerTrips))
}

func TestRootsRejectsRelativeRoot(t *testing.T) {
	resolver := testutil.NewMockRootResolver(t, map[string]string{"srv-A": "volumes/a"})
	roots := NewRoots(resolver, Options{})

	_, err := roots.Root(context.Background(), "srv-A")
	assert.Error(t, err)
	assert.Equal(t, 0, roots.Len())
}
