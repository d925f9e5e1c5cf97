package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mediahub/library-notifier/internal/domain"
	"github.com/mediahub/library-notifier/internal/payload"
	"github.com/mediahub/library-notifier/internal/queue"
	"github.com/mediahub/library-notifier/internal/repository"
	"github.com/mediahub/library-notifier/internal/worker"
)

// fakeDispatcher records every dispatch and can be told to fail or panic
// for specific item ids.
type fakeDispatcher struct {
	mu       sync.Mutex
	calls    []dispatchCall
	failFor  map[string]error
	panicFor map[string]bool
	notify   chan string
}

type dispatchCall struct {
	itemID   string
	itemType string
	data     map[string]any
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		failFor:  make(map[string]error),
		panicFor: make(map[string]bool),
	}
}

func (d *fakeDispatcher) SendItemAddedNotification(_ context.Context, data map[string]any, itemType string) error {
	id, _ := data["ItemId"].(string)
	if d.panicFor[id] {
		panic("dispatcher exploded for " + id)
	}

	d.mu.Lock()
	d.calls = append(d.calls, dispatchCall{itemID: id, itemType: itemType, data: data})
	d.mu.Unlock()

	if d.notify != nil {
		d.notify <- id
	}
	return d.failFor[id]
}

func (d *fakeDispatcher) callsFor(itemID string) []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []dispatchCall
	for _, c := range d.calls {
		if c.itemID == itemID {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	pending    *queue.PendingItems
	repo       *repository.MockItemRepository
	disp       *fakeDispatcher
	reconciler *worker.Reconciler
	dropped    []string
}

func newFixture(t *testing.T, maxRetries int) *fixture {
	t.Helper()
	f := &fixture{
		pending: queue.NewPending(),
		repo:    repository.NewMockItemRepository(),
		disp:    newFakeDispatcher(),
	}
	f.reconciler = worker.NewReconciler(
		f.pending, f.repo, f.disp,
		payload.ServerInfo{ID: "srv-1", Name: "den", URL: "https://media.example.com"},
		time.Hour, // lifecycle tests override by calling Reconcile directly
		maxRetries,
		zap.NewNop(),
		worker.Hooks{OnDropped: func(reason string) { f.dropped = append(f.dropped, reason) }},
	)
	return f
}

func (f *fixture) addItem(t *testing.T, item *domain.Item) {
	t.Helper()
	if err := f.repo.Create(context.Background(), item); err != nil {
		t.Fatalf("seed item %s: %v", item.ID, err)
	}
}

func TestReconciler_RetryBound(t *testing.T) {
	const maxRetries = 3
	f := newFixture(t, maxRetries)
	ctx := context.Background()

	f.addItem(t, &domain.Item{ID: "m1", Kind: domain.KindMovie, Name: "Heat"})
	f.pending.Enqueue("m1")

	// Passes 1..N bump the retry count; pass N+1 drops.
	for i := 1; i <= maxRetries; i++ {
		f.reconciler.Reconcile(ctx)
		if !f.pending.Contains("m1") {
			t.Fatalf("pass %d: item dropped too early", i)
		}
	}
	f.reconciler.Reconcile(ctx)

	if f.pending.Contains("m1") {
		t.Fatal("item should be gone after retries are exhausted")
	}
	if len(f.disp.callsFor("m1")) != 0 {
		t.Fatal("dispatch must never fire for an item that never became ready")
	}
	if len(f.dropped) != 1 || f.dropped[0] != worker.DropExhausted {
		t.Fatalf("expected one %q drop, got %v", worker.DropExhausted, f.dropped)
	}
}

func TestReconciler_PromotionOnReadiness(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	f.addItem(t, &domain.Item{ID: "m1", Kind: domain.KindMovie, Name: "Heat", ProductionYear: 1995})
	f.pending.Enqueue("m1")

	// Tick 1: no provider ids yet — requeued, not dispatched.
	f.reconciler.Reconcile(ctx)
	if got := len(f.disp.callsFor("m1")); got != 0 {
		t.Fatalf("tick 1: expected no dispatch, got %d", got)
	}

	// Metadata enrichment lands between ticks.
	if err := f.repo.MergeProviderIDs(ctx, "m1", map[string]string{"Imdb": "tt113277"}); err != nil {
		t.Fatal(err)
	}

	// Tick 2: ready — dispatched exactly once and removed.
	f.reconciler.Reconcile(ctx)
	calls := f.disp.callsFor("m1")
	if len(calls) != 1 {
		t.Fatalf("tick 2: expected exactly one dispatch, got %d", len(calls))
	}
	if calls[0].itemType != "movie" {
		t.Fatalf("expected item type tag movie, got %q", calls[0].itemType)
	}
	if calls[0].data["Provider_imdb"] != "tt113277" {
		t.Fatalf("payload missing provider id: %v", calls[0].data)
	}

	// Tick 3: nothing left to do.
	f.reconciler.Reconcile(ctx)
	if len(f.disp.callsFor("m1")) != 1 {
		t.Fatal("tick 3: item was dispatched again after removal")
	}
	if f.pending.Contains("m1") {
		t.Fatal("tick 3: item still queued")
	}
}

func TestReconciler_VanishedItemDroppedSilently(t *testing.T) {
	f := newFixture(t, 10)

	f.pending.Enqueue("ghost")
	f.reconciler.Reconcile(context.Background())

	if f.pending.Contains("ghost") {
		t.Fatal("vanished item should be removed from the queue")
	}
	if len(f.disp.callsFor("ghost")) != 0 {
		t.Fatal("vanished item must not be dispatched")
	}
	if len(f.dropped) != 1 || f.dropped[0] != worker.DropVanished {
		t.Fatalf("expected one %q drop, got %v", worker.DropVanished, f.dropped)
	}
}

// TestReconciler_TransientLookupErrorLeavesRecord: an infrastructure hiccup
// during lookup must not burn a retry or drop the item.
func TestReconciler_TransientLookupErrorLeavesRecord(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	f.addItem(t, &domain.Item{ID: "m1", Kind: domain.KindMovie, Name: "Heat"})
	f.pending.Enqueue("m1")

	f.repo.GetByIDErr = errors.New("connection reset")
	f.reconciler.Reconcile(ctx)

	recs := f.pending.Snapshot()
	if len(recs) != 1 || recs[0].RetryCount != 0 {
		t.Fatalf("expected untouched record, got %+v", recs)
	}

	// Repo recovers: the normal retry path resumes.
	f.repo.GetByIDErr = nil
	f.reconciler.Reconcile(ctx)
	if got := f.pending.Snapshot()[0].RetryCount; got != 1 {
		t.Fatalf("expected RetryCount=1 after recovery, got %d", got)
	}
}

// TestReconciler_TickIsolation: one item panicking mid-processing must not
// prevent its siblings in the same snapshot from being dispatched.
func TestReconciler_TickIsolation(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	f.addItem(t, &domain.Item{ID: "bad", Kind: domain.KindMovie, Name: "Bad",
		ProviderIDs: map[string]string{"Imdb": "tt1"}})
	f.addItem(t, &domain.Item{ID: "good", Kind: domain.KindMovie, Name: "Good",
		ProviderIDs: map[string]string{"Imdb": "tt2"}})
	f.disp.panicFor["bad"] = true

	f.pending.Enqueue("bad")
	f.pending.Enqueue("good")

	f.reconciler.Reconcile(ctx)

	if len(f.disp.callsFor("good")) != 1 {
		t.Fatal("sibling item should have been dispatched despite the panic")
	}
	if f.pending.Contains("good") {
		t.Fatal("dispatched sibling should have been removed")
	}
	// The panicking item never reached Remove; it stays queued for the next
	// pass rather than being lost.
	if !f.pending.Contains("bad") {
		t.Fatal("panicking item should still be queued")
	}

	// The loop survives: a later pass still works.
	f.disp.panicFor["bad"] = false
	f.reconciler.Reconcile(ctx)
	if len(f.disp.callsFor("bad")) != 1 {
		t.Fatal("recovered item should be dispatched on the next pass")
	}
}

// TestReconciler_DispatchFailureStillRemoves: delivery outcome is the
// dispatcher's concern; the item leaves the queue after one attempt.
func TestReconciler_DispatchFailureStillRemoves(t *testing.T) {
	f := newFixture(t, 10)

	f.addItem(t, &domain.Item{ID: "m1", Kind: domain.KindMovie, Name: "Heat",
		ProviderIDs: map[string]string{"Imdb": "tt1"}})
	f.disp.failFor["m1"] = errors.New("destination unreachable")
	f.pending.Enqueue("m1")

	f.reconciler.Reconcile(context.Background())

	if f.pending.Contains("m1") {
		t.Fatal("item should be removed regardless of dispatch outcome")
	}
	if len(f.disp.callsFor("m1")) != 1 {
		t.Fatal("expected exactly one dispatch attempt")
	}
}

// TestReconciler_EpisodeAncestorChain checks the reconciler resolves the
// season and series before building the payload.
func TestReconciler_EpisodeAncestorChain(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	f.addItem(t, &domain.Item{ID: "sr1", Kind: domain.KindSeries, Name: "Show", ProductionYear: 2019})
	f.addItem(t, &domain.Item{ID: "se1", ParentID: "sr1", Kind: domain.KindSeason, Name: "Season 2", IndexNumber: 2})
	f.addItem(t, &domain.Item{ID: "ep1", ParentID: "se1", Kind: domain.KindEpisode, Name: "The One",
		IndexNumber: 5, ProviderIDs: map[string]string{"Tvdb": "99"}})

	f.pending.Enqueue("ep1")
	f.reconciler.Reconcile(ctx)

	calls := f.disp.callsFor("ep1")
	if len(calls) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(calls))
	}
	data := calls[0].data
	if data["SeriesName"] != "Show" {
		t.Errorf("expected SeriesName=Show, got %v", data["SeriesName"])
	}
	if data["SeasonNumber"] != 2 || data["EpisodeNumber"] != 5 {
		t.Errorf("unexpected numbers: season=%v episode=%v", data["SeasonNumber"], data["EpisodeNumber"])
	}
	if data["EpisodeNumber00"] != "05" {
		t.Errorf("expected EpisodeNumber00=05, got %v", data["EpisodeNumber00"])
	}
	if data["Year"] != 2019 {
		t.Errorf("expected Year fallback to the series, got %v", data["Year"])
	}
}

// TestReconciler_StartStop drives the real ticker: a ready item is picked up
// without manual Reconcile calls, and Stop returns only after the loop exits.
func TestReconciler_StartStop(t *testing.T) {
	pending := queue.NewPending()
	repo := repository.NewMockItemRepository()
	disp := newFakeDispatcher()
	disp.notify = make(chan string, 1)

	rec := worker.NewReconciler(
		pending, repo, disp,
		payload.ServerInfo{ID: "srv-1"},
		10*time.Millisecond, 5,
		zap.NewNop(), worker.Hooks{},
	)

	_ = repo.Create(context.Background(), &domain.Item{
		ID: "m1", Kind: domain.KindMovie, Name: "Heat",
		ProviderIDs: map[string]string{"Imdb": "tt1"},
	})
	pending.Enqueue("m1")

	rec.Start(context.Background())

	select {
	case id := <-disp.notify:
		if id != "m1" {
			t.Fatalf("expected m1 dispatched, got %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ticker never promoted the ready item")
	}

	done := make(chan struct{})
	go func() {
		rec.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
