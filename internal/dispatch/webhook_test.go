package dispatch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mediahub/library-notifier/internal/dispatch"
	"github.com/mediahub/library-notifier/internal/ratelimiter"
)

type received struct {
	body     map[string]any
	itemType string
}

func newDestination(t *testing.T, status int) (*httptest.Server, func() []received) {
	t.Helper()
	var mu sync.Mutex
	var got []received

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("destination got invalid JSON: %v", err)
		}
		mu.Lock()
		got = append(got, received{body: body, itemType: r.Header.Get("X-Item-Type")})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []received {
		mu.Lock()
		defer mu.Unlock()
		return append([]received(nil), got...)
	}
}

func newDispatcher(urls []string) *dispatch.WebhookDispatcher {
	limiters := ratelimiter.New(urls, 100)
	return dispatch.NewWebhookDispatcher(urls, 2*time.Second, limiters, zap.NewNop())
}

func TestWebhookDispatcher_FansOutToAllDestinations(t *testing.T) {
	s1, got1 := newDestination(t, http.StatusOK)
	s2, got2 := newDestination(t, http.StatusNoContent)

	d := newDispatcher([]string{s1.URL, s2.URL})

	data := map[string]any{"Name": "Heat", "ItemId": "m1"}
	if err := d.SendItemAddedNotification(context.Background(), data, "movie"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, got := range [][]received{got1(), got2()} {
		if len(got) != 1 {
			t.Fatalf("destination %d: expected 1 delivery, got %d", i, len(got))
		}
		if got[0].body["Name"] != "Heat" {
			t.Errorf("destination %d: payload not forwarded verbatim: %v", i, got[0].body)
		}
		if got[0].itemType != "movie" {
			t.Errorf("destination %d: expected X-Item-Type=movie, got %q", i, got[0].itemType)
		}
	}
}

// TestWebhookDispatcher_FailingDestinationDoesNotBlockOthers verifies
// destinations stay independent: a 500 from the first endpoint must not
// stop delivery to the second, and the error is still reported.
func TestWebhookDispatcher_FailingDestinationDoesNotBlockOthers(t *testing.T) {
	bad, _ := newDestination(t, http.StatusInternalServerError)
	good, gotGood := newDestination(t, http.StatusOK)

	d := newDispatcher([]string{bad.URL, good.URL})

	err := d.SendItemAddedNotification(context.Background(), map[string]any{"ItemId": "x"}, "movie")
	if err == nil {
		t.Fatal("expected an error from the failing destination")
	}
	if len(gotGood()) != 1 {
		t.Fatal("healthy destination should still have received the payload")
	}
}

func TestWebhookDispatcher_UnreachableDestination(t *testing.T) {
	// Reserve a port, then close it so the POST is refused.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := newDispatcher([]string{url})
	if err := d.SendItemAddedNotification(context.Background(), map[string]any{}, "movie"); err == nil {
		t.Fatal("expected an error for an unreachable destination")
	}
}

func TestWebhookDispatcher_NoDestinationsIsANoOp(t *testing.T) {
	d := newDispatcher(nil)
	if err := d.SendItemAddedNotification(context.Background(), map[string]any{}, "movie"); err != nil {
		t.Fatalf("unexpected error with zero destinations: %v", err)
	}
}
