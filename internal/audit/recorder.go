package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/logging"
)

const (
	defaultQueueSize = 256
	writeTimeout     = 5 * time.Second
)

// Recorder writes audit entries in the background so request handlers never
// wait on the audit table. Entries are written one at a time in the order
// they were queued; when the queue is full new entries are dropped and
// logged.
type Recorder struct {
	repo   Repository
	logger *logging.Logger
	queue  chan *AuditLog

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

// NewRecorder creates a recorder with the given queue size (0 for default).
// Call Start before recording and Stop on shutdown.
func NewRecorder(repo Repository, logger *logging.Logger, size int) *Recorder {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan *AuditLog, size),
		done:   make(chan struct{}),
	}
}

// Start drains the queue until Stop is called.
func (r *Recorder) Start() {
	go func() {
		defer close(r.done)
		for entry := range r.queue {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			if err := r.repo.Create(ctx, entry); err != nil {
				r.logger.Warn("audit write failed", "action", entry.Action,
					"entity_type", entry.EntityType, "entity_id", entry.EntityID, "error", err)
			}
			cancel()
		}
	}()
}

// Record queues an entry. It never blocks.
func (r *Recorder) Record(entry AuditLog) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		r.logger.Warn("audit entry after shutdown dropped", "action", entry.Action)
		return
	}
	select {
	case r.queue <- &entry:
	default:
		r.dropped.Add(1)
		r.logger.Warn("audit queue full, entry dropped",
			"action", entry.Action, "entity_type", entry.EntityType, "entity_id", entry.EntityID)
	}
}

// Pending returns the number of queued entries. Nil-safe.
func (r *Recorder) Pending() int {
	if r == nil {
		return 0
	}
	return len(r.queue)
}

// Dropped returns how many entries were discarded. Nil-safe.
func (r *Recorder) Dropped() int64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Stop closes the queue and waits for pending entries to be written or ctx
// to expire.
func (r *Recorder) Stop(ctx context.Context) {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	select {
	case <-r.done:
	case <-ctx.Done():
	}
}
