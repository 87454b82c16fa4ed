package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/chat"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu            sync.RWMutex
	turns         map[uuid.UUID][]chat.Turn
	conversations map[uuid.UUID]*chat.Conversation
	pingError     error
	saveError     error
	loadError     error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		turns:         make(map[uuid.UUID][]chat.Turn),
		conversations: make(map[uuid.UUID]*chat.Conversation),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes SaveResponse and SaveConversation fail.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SetLoadError makes LoadHistory and LoadConversation fail.
func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) LoadHistory(ctx context.Context, id uuid.UUID) ([]chat.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadError != nil {
		return nil, m.loadError
	}
	turns := m.turns[id]
	out := make([]chat.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MockStorage) SaveResponse(ctx context.Context, id uuid.UUID, turn chat.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.turns[id] = append(m.turns[id], turn)
	return nil
}

func (m *MockStorage) LoadConversation(ctx context.Context, id uuid.UUID) (*chat.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadError != nil {
		return nil, m.loadError
	}
	conv, ok := m.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := *conv
	return &cp, nil
}

func (m *MockStorage) SaveConversation(ctx context.Context, conv *chat.Conversation) error {
	if conv == nil {
		return errors.New("conversation cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *conv
	cp.UpdatedAt = time.Now()
	m.conversations[conv.ID] = &cp
	return nil
}
