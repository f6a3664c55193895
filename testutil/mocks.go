// Package testutil provides hand-rolled mocks for pipeline tests
package testutil

import (
	"context"
	"sync"

	classifier "github.com/FrenchMajesty/tiered-classifier"
	"github.com/FrenchMajesty/tiered-classifier/clients/openai"
)

// MockTier is a mock implementation of Tier for testing
type MockTier struct {
	NameValue     string
	VersionValue  string
	FallbackValue classifier.Label

	ClassifyBatchFunc func(ctx context.Context, texts []string) ([]classifier.Label, error)

	mu        sync.Mutex
	CallCount int
	TextsSeen [][]string
}

func (m *MockTier) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

func (m *MockTier) Version() string {
	if m.VersionValue == "" {
		return "v0"
	}
	return m.VersionValue
}

func (m *MockTier) Fallback() classifier.Label {
	return m.FallbackValue
}

func (m *MockTier) ClassifyBatch(ctx context.Context, texts []string) ([]classifier.Label, error) {
	m.mu.Lock()
	m.CallCount++
	copied := make([]string, len(texts))
	copy(copied, texts)
	m.TextsSeen = append(m.TextsSeen, copied)
	m.mu.Unlock()

	if m.ClassifyBatchFunc != nil {
		return m.ClassifyBatchFunc(ctx, texts)
	}

	// Default: one label per text attributed to this tier
	labels := make([]classifier.Label, len(texts))
	for i := range labels {
		labels[i] = classifier.Label{Source: m.Name()}
	}
	return labels, nil
}

// TextsClassified returns the total number of texts submitted to the tier
// across all calls
func (m *MockTier) TextsClassified() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, texts := range m.TextsSeen {
		total += len(texts)
	}
	return total
}

// MemStore is an in-memory CacheStore for testing
type MemStore struct {
	mu       sync.Mutex
	Data     map[string][]byte
	GetCount int
	PutCount int
}

func NewMemStore() *MemStore {
	return &MemStore{Data: make(map[string][]byte)}
}

func (s *MemStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetCount++
	val, ok := s.Data[key]
	return val, ok
}

func (s *MemStore) Put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PutCount++
	s.Data[key] = value
}

// Len returns the number of stored entries
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Data)
}

// MockChatClient is a mock implementation of the chat completion client
type MockChatClient struct {
	ChatCompletionFunc func(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)

	mu        sync.Mutex
	CallCount int
	LastReq   openai.ChatCompletionRequest
}

func (m *MockChatClient) ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastReq = req
	m.mu.Unlock()

	if m.ChatCompletionFunc != nil {
		return m.ChatCompletionFunc(ctx, req)
	}

	content := "[]"
	return &openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatMessage{Role: "assistant", Content: &content}},
		},
	}, nil
}
