package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu      sync.Mutex
	records map[string]map[string]Record // namespace -> requestID -> record
	events  []Event

	RetrieveFunc    func(ctx context.Context, namespace, query string, topK int) ([]string, error)
	CreateEventFunc func(ctx context.Context, ev Event) error
	SaveRecordFunc  func(ctx context.Context, requestID string, namespaces []string, text string) error

	RetrieveCalls []string // namespaces in call order
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates an empty mock memory store.
func NewMockStore() *MockStore {
	return &MockStore{records: make(map[string]map[string]Record)}
}

// Retrieve ranks the stored records of namespace against query.
func (m *MockStore) Retrieve(ctx context.Context, namespace, query string, topK int) ([]string, error) {
	m.mu.Lock()
	m.RetrieveCalls = append(m.RetrieveCalls, namespace)
	fn := m.RetrieveFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, namespace, query, topK)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	recs := make([]Record, 0, len(m.records[namespace]))
	for _, r := range m.records[namespace] {
		recs = append(recs, r)
	}
	return Rank(recs, query, topK), nil
}

// CreateEvent appends ev to the event log.
func (m *MockStore) CreateEvent(ctx context.Context, ev Event) error {
	if m.CreateEventFunc != nil {
		return m.CreateEventFunc(ctx, ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, ev)
	return nil
}

// SaveRecord stores text under every namespace.
func (m *MockStore) SaveRecord(ctx context.Context, requestID string, namespaces []string, text string) error {
	if m.SaveRecordFunc != nil {
		return m.SaveRecordFunc(ctx, requestID, namespaces, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, ns := range namespaces {
		if m.records[ns] == nil {
			m.records[ns] = make(map[string]Record)
		}
		m.records[ns][requestID] = Record{ID: requestID, Text: text, UpdatedAt: now}
	}
	return nil
}

// AddRecord seeds a record directly.
func (m *MockStore) AddRecord(namespace, id, text string) {
	_ = m.SaveRecord(context.Background(), id, []string{namespace}, text)
}

// Events returns a copy of the recorded events.
func (m *MockStore) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Records returns the texts stored under namespace, keyed by request id.
func (m *MockStore) Records(namespace string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.records[namespace]))
	for id, r := range m.records[namespace] {
		out[id] = r.Text
	}
	return out
}

// RecordIDs returns the request ids that start with prefix across all namespaces.
func (m *MockStore) RecordIDs(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, recs := range m.records {
		for id := range recs {
			if strings.HasPrefix(id, prefix) && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
