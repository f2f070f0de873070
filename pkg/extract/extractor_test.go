package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persomem/persomem-go/pkg/extract"
	"github.com/persomem/persomem-go/pkg/llm"
)

func newPreferenceExtractor(t *testing.T, provider llm.Provider) *extract.Extractor {
	t.Helper()
	extractor, err := extract.NewLayerExtractor(extract.LayerPreference, extract.Deps{
		Provider: provider,
		Model:    "test-model",
	})
	require.NoError(t, err)
	return extractor
}

func TestStructuredCallEmptyContextPlaceholder(t *testing.T) {
	provider := contentProvider(preferencePayload)
	extractor := newPreferenceExtractor(t, provider)

	_, err := extractor.StructuredCall(context.Background(), &extract.Options{})
	require.NoError(t, err)

	assert.Contains(t, provider.lastUserMessage(), "No similar memories retrieved.")
}

func TestStructuredCallJoinsRetrievedContext(t *testing.T) {
	provider := contentProvider(preferencePayload)
	extractor := newPreferenceExtractor(t, provider)

	_, err := extractor.StructuredCall(context.Background(), &extract.Options{
		TemplateProps: extract.TemplateProps{
			RetrievedContexts: []string{"first memory", "second memory"},
		},
	})
	require.NoError(t, err)

	userMessage := provider.lastUserMessage()
	assert.Contains(t, userMessage, "first memory\n\nsecond memory")
	assert.NotContains(t, userMessage, "No similar memories retrieved.")
}

func TestStructuredCallMessageOrder(t *testing.T) {
	provider := contentProvider(preferencePayload)
	extractor := newPreferenceExtractor(t, provider)

	_, err := extractor.StructuredCall(context.Background(), &extract.Options{
		AdditionalMessages: []llm.Message{
			{Role: "user", Content: "turn one"},
			{Role: "assistant", Content: "turn two"},
		},
	})
	require.NoError(t, err)

	messages := provider.requests[0].Messages
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "turn one", messages[1].Content)
	assert.Equal(t, "turn two", messages[2].Content)
	assert.Equal(t, "user", messages[3].Role)
}

func TestStructuredCallSchemaNameSanitized(t *testing.T) {
	provider := contentProvider(preferencePayload)
	extractor := newPreferenceExtractor(t, provider)

	_, err := extractor.StructuredCall(context.Background(), nil)
	require.NoError(t, err)

	req := provider.requests[0]
	require.NotNil(t, req.Schema)
	assert.Equal(t, "memory_preference", req.Schema.Name)
	assert.True(t, req.Schema.Strict)
	assert.Equal(t, "test-model", req.Model)
}

func TestStructuredCallDecodesPayload(t *testing.T) {
	provider := contentProvider(preferencePayload)
	extractor := newPreferenceExtractor(t, provider)

	out, err := extractor.StructuredCall(context.Background(), nil)
	require.NoError(t, err)

	result, ok := out.(*extract.PreferenceExtraction)
	require.True(t, ok, "unexpected payload type %T", out)
	require.Len(t, result.Preferences, 1)
	assert.Equal(t, "Avoid suggesting cilantro", result.Preferences[0].ConclusionDirectives)
}

func TestStructuredCallRepairsAlmostValidJSON(t *testing.T) {
	// Trailing comma: invalid JSON, but repairable.
	provider := contentProvider("```json\n{\"preferences\": [{\"type\": \"food\", \"conclusionDirectives\": \"x\"},]}\n```")
	extractor := newPreferenceExtractor(t, provider)

	out, err := extractor.StructuredCall(context.Background(), nil)
	require.NoError(t, err)

	result := out.(*extract.PreferenceExtraction)
	require.Len(t, result.Preferences, 1)
	assert.Equal(t, "x", result.Preferences[0].ConclusionDirectives)
}

func TestCallbackOrdering(t *testing.T) {
	provider := contentProvider(preferencePayload)
	extractor := newPreferenceExtractor(t, provider)

	var sequence []string
	_, err := extractor.StructuredCall(context.Background(), &extract.Options{
		Callbacks: extract.Callbacks{
			OnExtractRequest: func(agent string, payload *llm.StructuredRequest) error {
				sequence = append(sequence, "request")
				assert.Equal(t, "memory.preference", agent)
				return nil
			},
			OnExtractResponse: func(agent string, response *llm.StructuredResult) error {
				sequence = append(sequence, "response")
				return nil
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"request", "response"}, sequence)
}

func TestCallbackErrorDoesNotMaskResult(t *testing.T) {
	provider := contentProvider(preferencePayload)
	extractor := newPreferenceExtractor(t, provider)

	out, err := extractor.StructuredCall(context.Background(), &extract.Options{
		Callbacks: extract.Callbacks{
			OnExtractResponse: func(agent string, response *llm.StructuredResult) error {
				return errors.New("observer exploded")
			},
		},
	})
	require.NoError(t, err, "a callback failure must not fail the call")
	assert.NotNil(t, out)
}

func TestCallbackPanicIsRecovered(t *testing.T) {
	provider := contentProvider(preferencePayload)
	extractor := newPreferenceExtractor(t, provider)

	out, err := extractor.StructuredCall(context.Background(), &extract.Options{
		Callbacks: extract.Callbacks{
			OnExtractRequest: func(agent string, payload *llm.StructuredRequest) error {
				panic("observer panicked")
			},
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestGenerationErrorPropagates(t *testing.T) {
	generationErr := errors.New("rate limited")
	provider := &mockProvider{
		handler: func(ctx context.Context, req *llm.StructuredRequest) (*llm.StructuredResult, error) {
			return nil, generationErr
		},
	}
	extractor := newPreferenceExtractor(t, provider)

	var observed error
	_, err := extractor.StructuredCall(context.Background(), &extract.Options{
		Callbacks: extract.Callbacks{
			OnExtractError: func(agent string, callErr error) error {
				observed = callErr
				return nil
			},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, generationErr)
	assert.ErrorIs(t, observed, generationErr, "OnExtractError must see the failure")
}

func TestValidationFailureReachesErrorCallback(t *testing.T) {
	// Repairs to a JSON array, which still fails to decode as an object.
	provider := contentProvider("[1, 2")
	extractor := newPreferenceExtractor(t, provider)

	errorCallbackFired := false
	_, err := extractor.StructuredCall(context.Background(), &extract.Options{
		Callbacks: extract.Callbacks{
			OnExtractError: func(agent string, callErr error) error {
				errorCallbackFired = true
				return nil
			},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrInvalidResult)
	assert.True(t, errorCallbackFired)
}

func TestUnknownLayerRejected(t *testing.T) {
	_, err := extract.NewLayerExtractor(extract.Layer("mood"), extract.Deps{
		Provider: contentProvider("{}"),
	})
	assert.ErrorIs(t, err, extract.ErrUnknownLayer)
}

func TestIdentityPromptIncludesKnownIdentities(t *testing.T) {
	provider := contentProvider(`{"identities": []}`)
	extractor, err := extract.NewLayerExtractor(extract.LayerIdentity, extract.Deps{
		Provider: provider,
	})
	require.NoError(t, err)

	_, err = extractor.StructuredCall(context.Background(), &extract.Options{
		TemplateProps: extract.TemplateProps{
			RetrievedIdentitiesContext: `<user_memories_identities identities="1"/>`,
		},
	})
	require.NoError(t, err)
	assert.Contains(t, provider.lastUserMessage(), `<user_memories_identities identities="1"/>`)
}
