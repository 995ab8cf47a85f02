package mock

import (
	"context"
	"sync"

	"github.com/adammck/blobstream/pkg/api"
)

type MockIndexStore struct {
	mu       sync.Mutex
	Contents map[string]api.Index
}

var _ api.IndexStore = (*MockIndexStore)(nil)

func New() *MockIndexStore {
	return &MockIndexStore{
		Contents: make(map[string]api.Index),
	}
}

func (m *MockIndexStore) StoreIndex(ctx context.Context, segment string, entries api.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Contents[segment] = entries
	return nil
}

func (m *MockIndexStore) GetIndex(ctx context.Context, segment string) (api.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.Contents[segment]
	if !ok {
		return nil, &api.IndexNotFound{Segment: segment}
	}
	return entries, nil
}

func (m *MockIndexStore) DeleteIndex(ctx context.Context, segment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Contents, segment)
	return nil
}
