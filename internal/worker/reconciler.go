package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mediahub/library-notifier/internal/dispatch"
	"github.com/mediahub/library-notifier/internal/domain"
	"github.com/mediahub/library-notifier/internal/payload"
	"github.com/mediahub/library-notifier/internal/queue"
	"github.com/mediahub/library-notifier/internal/repository"
)

// Drop reasons reported through the OnDropped hook.
const (
	DropVanished  = "vanished"  // item deleted while waiting in the queue
	DropExhausted = "exhausted" // metadata never arrived within the retry budget
)

// Hooks carries the metric callback functions injected by main.
// Nil hooks are replaced with no-ops so the reconciler stays metrics-agnostic.
type Hooks struct {
	OnDispatched func(kind domain.Kind, latency time.Duration)
	OnDropped    func(reason string)
}

// Reconciler periodically sweeps the pending-item queue and decides, per
// item, between promotion (dispatch a notification), retry (metadata not
// attached yet) and drop (item vanished, or retries exhausted).
//
// An item counts as metadata-ready once at least one provider id is
// attached. That is a proxy for "enrichment finished", not a guarantee of
// complete metadata — a deliberate, accepted imprecision.
//
// The sweep runs on a single goroutine, so passes never overlap. Delivery
// is best-effort: a ready item leaves the queue after one dispatch attempt
// whatever the outcome, and a silently dropped item is gone for good.
type Reconciler struct {
	pending    *queue.PendingItems
	repo       repository.ItemRepository
	disp       dispatch.Dispatcher
	server     payload.ServerInfo
	interval   time.Duration
	maxRetries int
	logger     *zap.Logger
	hooks      Hooks

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReconciler(
	pending *queue.PendingItems,
	repo repository.ItemRepository,
	disp dispatch.Dispatcher,
	server payload.ServerInfo,
	interval time.Duration,
	maxRetries int,
	logger *zap.Logger,
	hooks Hooks,
) *Reconciler {
	if hooks.OnDispatched == nil {
		hooks.OnDispatched = func(domain.Kind, time.Duration) {}
	}
	if hooks.OnDropped == nil {
		hooks.OnDropped = func(string) {}
	}
	return &Reconciler{
		pending:    pending,
		repo:       repo,
		disp:       disp,
		server:     server,
		interval:   interval,
		maxRetries: maxRetries,
		logger:     logger,
		hooks:      hooks,
	}
}

// Start launches the sweep loop on its own goroutine. The loop runs until
// Stop is called or ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

// Stop cancels the loop and blocks until any in-flight sweep has finished.
// Safe to call once after Start; the timer is released before it returns.
func (r *Reconciler) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Reconciler) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started",
		zap.Duration("interval", r.interval),
		zap.Int("max_retries", r.maxRetries),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopping")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep is one guarded pass; a panic here must never kill the loop.
func (r *Reconciler) sweep(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("reconcile pass panicked", zap.Any("panic", p))
		}
	}()
	r.Reconcile(ctx)
}

// Reconcile performs a single pass over a point-in-time snapshot of the
// pending queue. Exported so tests can drive ticks deterministically.
// A failure on one item never prevents the remaining items in the same
// snapshot from being processed.
func (r *Reconciler) Reconcile(ctx context.Context) {
	for _, rec := range r.pending.Snapshot() {
		r.processItem(ctx, rec)
	}
}

func (r *Reconciler) processItem(ctx context.Context, rec queue.Record) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic while processing pending item",
				zap.String("item_id", rec.ItemID),
				zap.Any("panic", p),
			)
		}
	}()

	log := r.logger.With(zap.String("item_id", rec.ItemID))

	item, err := r.repo.GetByID(ctx, rec.ItemID)
	if errors.Is(err, domain.ErrNotFound) {
		// Deleted while waiting; nothing to announce.
		r.pending.Remove(rec.ItemID)
		r.hooks.OnDropped(DropVanished)
		log.Debug("pending item vanished, dropped")
		return
	}
	if err != nil {
		// Transient lookup failure: leave the record untouched so the next
		// pass re-examines it without burning a retry.
		log.Warn("item lookup failed", zap.Error(err))
		return
	}

	if len(item.ProviderIDs) == 0 {
		if rec.RetryCount >= r.maxRetries {
			r.pending.Remove(rec.ItemID)
			r.hooks.OnDropped(DropExhausted)
			log.Debug("metadata never arrived, dropped",
				zap.Int("retries", rec.RetryCount))
			return
		}
		rec.RetryCount++
		r.pending.Requeue(rec)
		return
	}

	start := time.Now()
	parent, grandparent := r.resolveAncestors(ctx, item, log)
	data := payload.BuildItemAdded(payload.Input{
		Item:        item,
		Parent:      parent,
		Grandparent: grandparent,
		Server:      r.server,
		Now:         time.Now(),
	})

	// One attempt only. The dispatcher owns delivery failures; the item is
	// considered handled either way.
	if err := r.disp.SendItemAddedNotification(ctx, data, string(item.Kind)); err != nil {
		log.Warn("dispatch reported failure", zap.Error(err))
	}
	r.pending.Remove(rec.ItemID)
	r.hooks.OnDispatched(item.Kind, time.Since(start))
	log.Info("item-added notification dispatched",
		zap.String("kind", string(item.Kind)),
		zap.String("name", item.Name),
	)
}

// resolveAncestors walks the parent chain as far as payload construction
// needs: one level for a season, two for an episode. A broken chain is not
// fatal — the payload simply omits the series/season fields.
func (r *Reconciler) resolveAncestors(ctx context.Context, item *domain.Item, log *zap.Logger) (parent, grandparent *domain.Item) {
	if !item.Kind.HasAncestors() || item.ParentID == "" {
		return nil, nil
	}

	parent, err := r.repo.GetByID(ctx, item.ParentID)
	if err != nil {
		log.Warn("parent lookup failed", zap.String("parent_id", item.ParentID), zap.Error(err))
		return nil, nil
	}

	if item.Kind == domain.KindEpisode && parent.ParentID != "" {
		grandparent, err = r.repo.GetByID(ctx, parent.ParentID)
		if err != nil {
			log.Warn("grandparent lookup failed", zap.String("grandparent_id", parent.ParentID), zap.Error(err))
			grandparent = nil
		}
	}
	return parent, grandparent
}
