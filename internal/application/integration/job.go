package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/google/uuid"
)

// JobHandle tracks a background sync job. The summary is updated by the
// job's supervisor goroutine and can be read at any time.
type JobHandle struct {
	ID uuid.UUID

	mu      sync.RWMutex
	summary integration.SyncSummary
	done    chan struct{}
}

func newJobHandle(summary integration.SyncSummary) *JobHandle {
	return &JobHandle{
		ID:      summary.JobID,
		summary: summary,
		done:    make(chan struct{}),
	}
}

// Done is closed once the job finished
func (h *JobHandle) Done() <-chan struct{} {
	return h.done
}

// Summary returns a snapshot of the job summary
func (h *JobHandle) Summary() integration.SyncSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.summary
	s.Errors = append([]integration.RecordError(nil), h.summary.Errors...)
	s.PhaseErrors = append([]string(nil), h.summary.PhaseErrors...)
	return s
}

// Wait blocks until the job finished or ctx is done
func (h *JobHandle) Wait(ctx context.Context) (integration.SyncSummary, error) {
	select {
	case <-h.done:
		return h.Summary(), nil
	case <-ctx.Done():
		return h.Summary(), ctx.Err()
	}
}

func (h *JobHandle) update(fn func(s *integration.SyncSummary)) {
	h.mu.Lock()
	fn(&h.summary)
	h.mu.Unlock()
}

func (h *JobHandle) finish(at time.Time) integration.SyncSummary {
	h.update(func(s *integration.SyncSummary) { s.Finish(at) })
	return h.Summary()
}

// markDone wakes up waiters once the job released its resources
func (h *JobHandle) markDone() {
	close(h.done)
}

// JobRegistry keeps the most recent jobs for status queries
type JobRegistry struct {
	mu      sync.RWMutex
	jobs    map[uuid.UUID]*JobHandle
	order   []uuid.UUID
	maxSize int
}

// NewJobRegistry creates a registry holding at most maxSize jobs
func NewJobRegistry(maxSize int) *JobRegistry {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &JobRegistry{
		jobs:    make(map[uuid.UUID]*JobHandle),
		order:   make([]uuid.UUID, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add registers a job, evicting the oldest finished job when full
func (r *JobRegistry) Add(h *JobHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[h.ID] = h
	r.order = append(r.order, h.ID)
	for len(r.order) > r.maxSize {
		evicted := false
		for i, id := range r.order {
			if r.jobs[id].Summary().Status.IsTerminal() {
				delete(r.jobs, id)
				r.order = append(r.order[:i], r.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			// every job still running; keep them all
			return
		}
	}
}

// Remove drops a job that never started
func (r *JobRegistry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns a job by id
func (r *JobRegistry) Get(id uuid.UUID) (*JobHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.jobs[id]
	return h, ok
}

// ListByStore returns summaries of a store's jobs, newest first.
// A nil store id lists every job.
func (r *JobRegistry) ListByStore(storeID uuid.UUID) []integration.SyncSummary {
	r.mu.RLock()
	handles := make([]*JobHandle, 0, len(r.jobs))
	for _, h := range r.jobs {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	out := make([]integration.SyncSummary, 0, len(handles))
	for _, h := range handles {
		s := h.Summary()
		if storeID == uuid.Nil || s.StoreID == storeID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
