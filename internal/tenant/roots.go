package tenant

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/resilience"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrTenantNotFound is returned by resolvers for unknown tenant ids.
var ErrTenantNotFound = errors.New("tenant not found")

// RootResolver is the external lookup of a tenant's root directory.
type RootResolver interface {
	ResolveRoot(ctx context.Context, tenantID string) (string, error)
}

// Options configures a Roots cache.
type Options struct {
	// MaxFailures is the number of consecutive lookup failures that opens the breaker
	MaxFailures uint32
	// Cooldown is how long the breaker stays open
	Cooldown time.Duration
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
}

// Roots caches tenant roots in front of a RootResolver.
type Roots struct {
	resolver RootResolver
	breaker  *resilience.Breaker
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	group    singleflight.Group

	mu          sync.RWMutex
	roots       map[string]string
	generations map[string]uint64
}

// NewRoots creates an empty cache over resolver.
func NewRoots(resolver RootResolver, opts Options) *Roots {
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	r := &Roots{
		resolver:    resolver,
		logger:      opts.Logger.Named("tenant-roots"),
		metrics:     opts.Metrics,
		roots:       make(map[string]string),
		generations: make(map[string]uint64),
	}

	maxFailures := opts.MaxFailures
	r.breaker = resilience.New("tenant-roots", resilience.Settings{
		Timeout: opts.Cooldown,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrTenantNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			r.logger.Warn("breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			r.metrics.SetBreakerState(name, int(to))
		},
	})

	return r
}

// Root returns the cached root of tenantID, resolving it on a miss.
// It implements paths.RootLookup.
func (r *Roots) Root(ctx context.Context, tenantID string) (string, error) {
	r.mu.RLock()
	root, ok := r.roots[tenantID]
	generation := r.generations[tenantID]
	r.mu.RUnlock()

	r.metrics.RecordRootLookup(ok)
	if ok {
		return root, nil
	}

	key := tenantID + "@" + strconv.FormatUint(generation, 10)
	// The shared lookup outlives any single caller; each caller stops waiting on its own ctx.
	ch := r.group.DoChan(key, func() (interface{}, error) {
		r.mu.RLock()
		root, ok := r.roots[tenantID]
		r.mu.RUnlock()
		if ok {
			return root, nil
		}

		root, err := r.lookup(context.WithoutCancel(ctx), tenantID)
		if err != nil {
			return "", err
		}

		r.mu.Lock()
		if r.generations[tenantID] == generation {
			r.roots[tenantID] = root
		}
		r.mu.Unlock()
		return root, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached root of tenantID. Lookups already in flight
// complete but do not repopulate the cache.
func (r *Roots) Invalidate(tenantID string) {
	r.mu.Lock()
	delete(r.roots, tenantID)
	r.generations[tenantID]++
	r.mu.Unlock()

	r.logger.Debug("tenant root invalidated", zap.String("tenant", tenantID))
}

// Len returns the number of cached roots.
func (r *Roots) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roots)
}

func (r *Roots) lookup(ctx context.Context, tenantID string) (string, error) {
	var root string
	err := r.breaker.Execute(func() error {
		var err error
		root, err = r.resolver.ResolveRoot(ctx, tenantID)
		return err
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
			return "", fmt.Errorf("resolve root of tenant %s: %w", tenantID, err)
		}
		if !errors.Is(err, ErrTenantNotFound) {
			r.logger.Error("tenant root lookup failed", zap.String("tenant", tenantID), zap.Error(err))
		}
		return "", err
	}

	if !filepath.IsAbs(root) {
		return "", fmt.Errorf("tenant %s: root %q is not absolute", tenantID, root)
	}
	return filepath.Clean(root), nil
}
