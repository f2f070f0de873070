package extract_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persomem/persomem-go/pkg/extract"
	"github.com/persomem/persomem-go/pkg/llm"
)

func personaToolResponse(arguments string) *mockProvider {
	return &mockProvider{
		handler: func(ctx context.Context, req *llm.StructuredRequest) (*llm.StructuredResult, error) {
			return &llm.StructuredResult{
				ToolInvocations: []llm.ToolInvocation{
					{Name: extract.PersonaToolName, Arguments: arguments},
				},
			}, nil
		},
	}
}

func TestPersonaPromptFallbacks(t *testing.T) {
	provider := personaToolResponse(`{"persona": "# P"}`)
	persona := extract.NewPersonaExtractor(extract.Deps{Provider: provider})

	_, err := persona.ToolCall(context.Background(), nil)
	require.NoError(t, err)

	userPrompt := provider.lastUserMessage()
	assert.Contains(t, userPrompt, "No existing persona provided.")
	assert.Equal(t, 4, strings.Count(userPrompt, "N/A"))
}

func TestPersonaPromptSectionOrder(t *testing.T) {
	provider := personaToolResponse(`{"persona": "# P"}`)
	persona := extract.NewPersonaExtractor(extract.Deps{Provider: provider})

	_, err := persona.ToolCall(context.Background(), &extract.PersonaOptions{
		ExistingPersona:   "  # Old persona  ",
		RetrievedMemories: []string{"memory one", "memory two"},
		RecentEvents:      "booked a trip",
		UserNotes:         "call me Sam",
		ExtraContext:      "works in publishing",
	})
	require.NoError(t, err)

	userPrompt := provider.lastUserMessage()
	positions := []int{
		strings.Index(userPrompt, "# Old persona"),
		strings.Index(userPrompt, "memory one\n\nmemory two"),
		strings.Index(userPrompt, "booked a trip"),
		strings.Index(userPrompt, "call me Sam"),
		strings.Index(userPrompt, "works in publishing"),
	}
	for i, pos := range positions {
		require.GreaterOrEqual(t, pos, 0, "section %d missing", i)
		if i > 0 {
			assert.Greater(t, pos, positions[i-1], "section %d out of order", i)
		}
	}
	assert.NotContains(t, userPrompt, "N/A")
	assert.NotContains(t, userPrompt, "  # Old persona", "sections must be trimmed")
}

func TestPersonaToolInvocationParsing(t *testing.T) {
	provider := personaToolResponse(`{"persona": "# P"}`)
	persona := extract.NewPersonaExtractor(extract.Deps{Provider: provider})

	result, err := persona.ToolCall(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "# P", result.Persona)
	assert.Empty(t, result.Diff)
	assert.Empty(t, result.MemoryIDs)
	assert.Empty(t, result.Tagline)
}

func TestPersonaBareObjectParsing(t *testing.T) {
	provider := contentProvider(`{"persona": "# P", "tagline": "quiet builder"}`)
	persona := extract.NewPersonaExtractor(extract.Deps{Provider: provider})

	result, err := persona.ToolCall(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "# P", result.Persona)
	assert.Equal(t, "quiet builder", result.Tagline)
}

func TestPersonaMissingPersonaFails(t *testing.T) {
	provider := personaToolResponse(`{"diff": "changed nothing"}`)
	persona := extract.NewPersonaExtractor(extract.Deps{Provider: provider})

	_, err := persona.ToolCall(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrInvalidResult)
}

func TestPersonaEmptyResponseFails(t *testing.T) {
	provider := contentProvider("")
	persona := extract.NewPersonaExtractor(extract.Deps{Provider: provider})

	_, err := persona.ToolCall(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrNoToolInvocation)
}

func TestPersonaRequestCarriesToolNotSchema(t *testing.T) {
	provider := personaToolResponse(`{"persona": "# P"}`)
	persona := extract.NewPersonaExtractor(extract.Deps{Provider: provider})

	_, err := persona.ToolCall(context.Background(), nil)
	require.NoError(t, err)

	req := provider.requests[0]
	assert.Nil(t, req.Schema, "persona path must not declare an output schema")
	require.Len(t, req.Tools, 1)
	assert.Equal(t, extract.PersonaToolName, req.Tools[0].Name)
	require.NotNil(t, req.Tools[0].Parameters)
	assert.Contains(t, req.Tools[0].Parameters.Required, "persona")
}

func TestPersonaStructuredCallAlias(t *testing.T) {
	provider := personaToolResponse(`{"persona": "# P"}`)
	persona := extract.NewPersonaExtractor(extract.Deps{Provider: provider})

	result, err := persona.StructuredCall(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "# P", result.Persona)
}
