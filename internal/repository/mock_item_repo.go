package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/mediahub/library-notifier/internal/domain"
)

// MockItemRepository is a hand-written, in-memory implementation of
// ItemRepository used in unit tests. No mock-generation library needed.
type MockItemRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item

	// Optional error overrides — set in tests to simulate failure paths.
	CreateErr  error
	GetByIDErr error
	MergeErr   error
}

func NewMockItemRepository() *MockItemRepository {
	return &MockItemRepository{items: make(map[string]*domain.Item)}
}

func (m *MockItemRepository) Create(_ context.Context, item *domain.Item) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[item.ID]; exists {
		return domain.ErrDuplicateItem
	}
	m.items[item.ID] = cloneItem(item)
	return nil
}

func (m *MockItemRepository) GetByID(_ context.Context, id string) (*domain.Item, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneItem(item), nil
}

func (m *MockItemRepository) MergeProviderIDs(_ context.Context, id string, providerIDs map[string]string) error {
	if m.MergeErr != nil {
		return m.MergeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if item.ProviderIDs == nil {
		item.ProviderIDs = make(map[string]string, len(providerIDs))
	}
	for k, v := range providerIDs {
		item.ProviderIDs[k] = v
	}
	return nil
}

func (m *MockItemRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MockItemRepository) List(_ context.Context, limit int) ([]*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Item, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, cloneItem(item))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneItem(item *domain.Item) *domain.Item {
	clone := *item
	if item.ProviderIDs != nil {
		clone.ProviderIDs = make(map[string]string, len(item.ProviderIDs))
		for k, v := range item.ProviderIDs {
			clone.ProviderIDs[k] = v
		}
	}
	return &clone
}

// compile-time check that the mock keeps pace with the interface
var _ ItemRepository = (*MockItemRepository)(nil)
