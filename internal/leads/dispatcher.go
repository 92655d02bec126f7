package leads

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
)

// persistTimeout bounds one background persistence attempt.
const persistTimeout = 10 * time.Second

type job struct {
	scope  tenant.Info
	params PersistParams
}

// Dispatcher runs lead persistence off the request path. Enqueue never
// blocks; when the queue is full the job is dropped, logged, and
// counted. Lead capture is best effort by contract.
type Dispatcher struct {
	store  *Store
	queue  chan job
	logger *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once

	// mu guards closed so Enqueue can never send on a closed queue,
	// whatever order callers shut things down in.
	mu     sync.Mutex
	closed bool
}

func NewDispatcher(store *Store, queueSize int, logger *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		store:  store,
		queue:  make(chan job, queueSize),
		logger: logger,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Enqueue submits a persistence attempt. The caller's context is only
// used to read the tenant scope; the work itself runs under the
// dispatcher's own deadline so request cancellation cannot abort it.
func (d *Dispatcher) Enqueue(ctx context.Context, params PersistParams) {
	info, err := tenant.FromContext(ctx)
	if err != nil {
		d.logger.Warn("dropping lead job without tenant scope", zap.Error(err))
		recordDrop("no_tenant")
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		recordDrop("stopped")
		return
	}
	select {
	case d.queue <- job{scope: *info, params: params}:
	default:
		d.logger.Warn("lead queue full, dropping job",
			zap.String("tenant_id", info.TenantID))
		recordDrop("queue_full")
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for j := range d.queue {
		d.process(j)
	}
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	ctx = tenant.NewContext(ctx, &j.scope)

	result, err := d.store.PersistLeadIfAny(ctx, j.params)
	if err != nil {
		d.logger.Error("lead persistence failed",
			zap.String("tenant_id", j.scope.TenantID),
			zap.Error(err),
		)
		recordDrop("persist_error")
		return
	}
	if result.ID != "" {
		d.logger.Debug("lead persisted",
			zap.String("tenant_id", j.scope.TenantID),
			zap.String("lead_id", result.ID),
			zap.Bool("created", result.Created),
		)
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.queue)
	})
	d.wg.Wait()
}
