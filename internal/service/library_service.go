package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mediahub/library-notifier/internal/domain"
	"github.com/mediahub/library-notifier/internal/events"
	"github.com/mediahub/library-notifier/internal/queue"
	"github.com/mediahub/library-notifier/internal/repository"
)

// LibraryService coordinates the item store, the event bus and the pending
// queue. It owns the ingest path (persist + publish) and the event side of
// the notification pipeline: every non-virtual item-added event becomes at
// most one pending record. HTTP handlers and the reconciler depend on this
// service and the queue, not on each other.
type LibraryService struct {
	repo    repository.ItemRepository
	pending *queue.PendingItems
	bus     *events.Bus
	logger  *zap.Logger

	unsubscribe func()
	onEnqueued  func()
}

// NewLibraryService constructs the service. onEnqueued is an optional
// metrics hook (nil = no-op).
func NewLibraryService(
	repo repository.ItemRepository,
	pending *queue.PendingItems,
	bus *events.Bus,
	logger *zap.Logger,
	onEnqueued func(),
) *LibraryService {
	if onEnqueued == nil {
		onEnqueued = func() {}
	}
	return &LibraryService{
		repo:       repo,
		pending:    pending,
		bus:        bus,
		logger:     logger,
		onEnqueued: onEnqueued,
	}
}

// Start subscribes to item-added events. Events published before Start or
// after Stop are not observed.
func (s *LibraryService) Start() {
	s.unsubscribe = s.bus.Subscribe(s.handleItemAdded)
}

// Stop removes the event subscription. The pending queue keeps its records;
// whether they are drained is up to the reconciler's own lifecycle.
func (s *LibraryService) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// handleItemAdded runs synchronously on the publisher's goroutine, so it
// does nothing but filter and insert. Virtual placeholders never enter the
// queue; a duplicate event for an already-queued id is a no-op.
func (s *LibraryService) handleItemAdded(e events.ItemAdded) {
	if e.Virtual {
		return
	}
	if s.pending.Enqueue(e.ItemID) {
		s.onEnqueued()
		s.logger.Debug("item queued for notification", zap.String("item_id", e.ItemID))
	}
}

// AddItem validates and persists a scanner-reported item, then publishes the
// item-added event. The event fires after the insert commits so the
// reconciler can always look the item up.
func (s *LibraryService) AddItem(ctx context.Context, req domain.CreateItemRequest) (*domain.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &domain.Item{
		ID:             req.ID,
		ParentID:       req.ParentID,
		Kind:           req.Kind,
		Name:           req.Name,
		Overview:       req.Overview,
		IndexNumber:    req.IndexNumber,
		ProductionYear: req.ProductionYear,
		Virtual:        req.Virtual,
		ProviderIDs:    req.ProviderIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("persist item: %w", err)
	}

	s.bus.Publish(events.ItemAdded{ItemID: item.ID, Virtual: item.Virtual})
	return item, nil
}

// AttachProviders merges enrichment-discovered provider ids into the item.
// This is what flips an already-queued item to ready on the next sweep.
func (s *LibraryService) AttachProviders(ctx context.Context, id string, req domain.AttachProvidersRequest) (*domain.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.MergeProviderIDs(ctx, id, req.ProviderIDs); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *LibraryService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *LibraryService) ListItems(ctx context.Context, limit int) ([]*domain.Item, error) {
	return s.repo.List(ctx, limit)
}

// DeleteItem removes the item from the store. Its pending record, if any,
// is left alone: the reconciler observes the missing item on its next pass
// and takes the silent-drop path.
func (s *LibraryService) DeleteItem(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// PendingSnapshot exposes the queue's current records for the admin surface.
func (s *LibraryService) PendingSnapshot() []queue.Record {
	return s.pending.Snapshot()
}
