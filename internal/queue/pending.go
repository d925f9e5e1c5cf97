package queue

import (
	"sync"
	"time"
)

// Record tracks a single library item awaiting a ready notification.
// RetryCount is bumped by the reconciler on every pass where the item's
// metadata has not arrived yet.
type Record struct {
	ItemID     string    `json:"item_id"`
	RetryCount int       `json:"retry_count"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// PendingItems is the system of record for items awaiting notification:
// a mutex-guarded map keyed by item id. Event handlers insert concurrently
// with the reconciler's snapshot/requeue/remove; all operations are safe
// without external locking.
//
// At most one record exists per item id. Enqueue is idempotent, so a
// duplicate item-added event for an already-queued id is a no-op.
type PendingItems struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewPending() *PendingItems {
	return &PendingItems{records: make(map[string]Record)}
}

// Enqueue inserts a fresh record with RetryCount=0 unless the id is already
// queued. Returns true if a new record was created.
func (p *PendingItems) Enqueue(itemID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.records[itemID]; exists {
		return false
	}
	p.records[itemID] = Record{ItemID: itemID, EnqueuedAt: time.Now().UTC()}
	return true
}

// Snapshot returns a point-in-time copy of all current records. Iterating
// the result never blocks concurrent inserts, and mutations made after the
// call are not reflected in it. Order is unspecified.
func (p *PendingItems) Snapshot() []Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Record, 0, len(p.records))
	for _, rec := range p.records {
		out = append(out, rec)
	}
	return out
}

// Requeue atomically replaces the record for rec.ItemID. Used by the
// reconciler to bump RetryCount. A requeue for an id that was removed in
// the meantime reinstates it; the next pass re-examines the item and takes
// the drop path again if it is gone.
func (p *PendingItems) Requeue(rec Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[rec.ItemID] = rec
}

// Remove deletes the record for itemID. Removing an absent id is a no-op.
func (p *PendingItems) Remove(itemID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, itemID)
}

// Contains reports whether itemID is currently queued.
func (p *PendingItems) Contains(itemID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.records[itemID]
	return ok
}

// Len returns the current number of queued records.
// Exposed to the metrics gauge and the queue snapshot endpoint.
func (p *PendingItems) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}
