package vessel

import (
	"context"
	"sync"
)

// MockResolver is an in-memory Resolver for unit tests.
type MockResolver struct {
	mu       sync.RWMutex
	labels   map[string]string   // key (label or sample key) -> label
	metadata map[string][]string // label + "\x00" + key -> values

	ResolveErr  error
	MetadataErr error
}

func NewMockResolver() *MockResolver {
	return &MockResolver{
		labels:   make(map[string]string),
		metadata: make(map[string][]string),
	}
}

// AddVessel registers a vessel label resolvable by itself and by sampleKey.
func (m *MockResolver) AddVessel(label, sampleKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels[label] = label
	if sampleKey != "" {
		m.labels[sampleKey] = label
	}
}

func (m *MockResolver) SetMetadata(label, key string, values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[label+"\x00"+key] = values
}

func (m *MockResolver) ResolveKeys(_ context.Context, keys []string) (map[string]string, error) {
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	resolved := make(map[string]string)
	for _, k := range keys {
		if label, ok := m.labels[k]; ok {
			resolved[k] = label
		}
	}
	return resolved, nil
}

func (m *MockResolver) MetadataValues(_ context.Context, label, key string) ([]string, error) {
	if m.MetadataErr != nil {
		return nil, m.MetadataErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[label+"\x00"+key], nil
}
