package extract_test

import (
	"context"
	"errors"
	"sync"

	"github.com/persomem/persomem-go/pkg/llm"
)

// mockProvider implements llm.Provider with a pluggable structured-call
// handler. The plain-text generation methods are unused by the
// extraction pipeline and fail loudly if reached. Request capture is
// mutex-guarded because layer calls run concurrently.
type mockProvider struct {
	handler func(ctx context.Context, req *llm.StructuredRequest) (*llm.StructuredResult, error)

	mu       sync.Mutex
	requests []*llm.StructuredRequest
}

func (m *mockProvider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return "", errors.New("mockProvider: Generate not supported")
}

func (m *mockProvider) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	return "", errors.New("mockProvider: GenerateWithMessages not supported")
}

func (m *mockProvider) GenerateStructured(ctx context.Context, req *llm.StructuredRequest) (*llm.StructuredResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.handler(ctx, req)
}

func (m *mockProvider) Close() error { return nil }

// contentProvider returns a provider that always answers with the given
// content.
func contentProvider(content string) *mockProvider {
	return &mockProvider{
		handler: func(ctx context.Context, req *llm.StructuredRequest) (*llm.StructuredResult, error) {
			return &llm.StructuredResult{Content: content}, nil
		},
	}
}

// lastUserMessage returns the content of the final message of the last
// captured request.
func (m *mockProvider) lastUserMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	req := m.requests[len(m.requests)-1]
	return req.Messages[len(req.Messages)-1].Content
}

const gatekeeperAllFalse = `{
	"activity":   {"reasoning": "none", "shouldExtract": false},
	"context":    {"reasoning": "none", "shouldExtract": false},
	"experience": {"reasoning": "none", "shouldExtract": false},
	"identity":   {"reasoning": "none", "shouldExtract": false},
	"preference": {"reasoning": "none", "shouldExtract": false}
}`

const gatekeeperPreferenceOnly = `{
	"activity":   {"reasoning": "small talk", "shouldExtract": false},
	"context":    {"reasoning": "small talk", "shouldExtract": false},
	"experience": {"reasoning": "small talk", "shouldExtract": false},
	"identity":   {"reasoning": "small talk", "shouldExtract": false},
	"preference": {"reasoning": "stated a dislike", "shouldExtract": true}
}`

const preferencePayload = `{
	"preferences": [
		{"type": "food", "conclusionDirectives": "Avoid suggesting cilantro", "tags": ["food"]}
	]
}`
