package dispatch

import "context"

// Dispatcher fans a finished item-added payload out to every configured
// destination. The reconciler awaits the call but does not act on its
// outcome: delivery problems are the dispatcher's to log, not the
// pipeline's to retry.
//
// Mocking this interface in tests gives full control over delivery
// behaviour without real HTTP calls.
type Dispatcher interface {
	SendItemAddedNotification(ctx context.Context, data map[string]any, itemType string) error
}
