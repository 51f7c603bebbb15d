package filesystem

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// Coordinator serializes operations per destination directory. Operations
// on one key run one at a time in arrival order; different keys run in parallel.
type Coordinator struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu     sync.Mutex
	chains map[string]*lockChain
}

// lockChain is the queue of one key. tail is closed when the most recently
// queued job settles. The chain is dropped from the map when refs reaches zero.
type lockChain struct {
	tail chan struct{}
	refs int
}

// NewCoordinator creates a coordinator. logger and metrics may be nil.
func NewCoordinator(logger *logging.Logger, metrics *monitoring.Metrics) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		logger:  logger.Named("coordinator"),
		metrics: metrics,
		chains:  make(map[string]*lockChain),
	}
}

// RunExclusive waits for every earlier job on destination to settle, then
// runs op. op receives a context that is not cancelled with ctx, so a started
// job always runs to completion. If ctx ends while still queued,
// ErrLockAcquisitionFailed is returned and op never runs.
func (c *Coordinator) RunExclusive(ctx context.Context, destination string, op func(context.Context) error) (err error) {
	key := filepath.Clean(destination)
	queued := time.Now()

	c.mu.Lock()
	chain, ok := c.chains[key]
	if !ok {
		chain = &lockChain{}
		c.chains[key] = chain
	}
	prev := chain.tail
	done := make(chan struct{})
	chain.tail = done
	chain.refs++
	c.publishLocked()
	c.mu.Unlock()

	settle := func() {
		close(done)
		c.mu.Lock()
		chain.refs--
		if chain.refs == 0 {
			delete(c.chains, key)
		}
		c.publishLocked()
		c.mu.Unlock()
	}

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			c.metrics.IncLockTimeouts()
			c.logger.Warn("gave up waiting for destination lock",
				zap.String("destination", key),
				zap.Duration("waited", time.Since(queued)))
			// Successors must still wait for our predecessor.
			go func() {
				<-prev
				settle()
			}()
			return fmt.Errorf("%w: %s: %v", ErrLockAcquisitionFailed, key, ctx.Err())
		}
	}
	defer settle()

	wait := time.Since(queued)
	c.metrics.ObserveLockWait(wait)
	c.logger.Debug("destination lock acquired", zap.String("destination", key), zap.Duration("waited", wait))

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("operation panicked", zap.String("destination", key), zap.Any("panic", r))
			err = fmt.Errorf("operation on %s panicked: %v", key, r)
		}
	}()
	return op(context.WithoutCancel(ctx))
}

// Pending returns the number of keys with a running or queued job
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chains)
}

func (c *Coordinator) publishLocked() {
	if c.metrics == nil {
		return
	}
	jobs := 0
	for _, chain := range c.chains {
		jobs += chain.refs
	}
	c.metrics.SetLockQueue(len(c.chains), jobs)
}
