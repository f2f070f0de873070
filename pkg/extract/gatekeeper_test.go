package extract_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persomem/persomem-go/pkg/extract"
)

func TestGatekeeperSchemaRequiresAllLayers(t *testing.T) {
	provider := contentProvider(gatekeeperAllFalse)
	gatekeeper := extract.NewGatekeeper(extract.Deps{Provider: provider})

	_, err := gatekeeper.Check(context.Background(), nil)
	require.NoError(t, err)

	req := provider.requests[0]
	require.NotNil(t, req.Schema)
	assert.Equal(t, "memory_gatekeeper", req.Schema.Name)

	s := req.Schema.Schema
	assert.ElementsMatch(t,
		[]string{"activity", "context", "experience", "identity", "preference"},
		s.Required)
	assert.Equal(t, false, s.AdditionalProperties)

	for _, layer := range []string{"activity", "context", "experience", "identity", "preference"} {
		decision := s.Properties[layer]
		require.NotNil(t, decision, "layer %q missing from schema", layer)
		assert.ElementsMatch(t, []string{"reasoning", "shouldExtract"}, decision.Required)
	}
}

func TestGatekeeperCheck(t *testing.T) {
	provider := contentProvider(gatekeeperPreferenceOnly)
	gatekeeper := extract.NewGatekeeper(extract.Deps{Provider: provider})

	decision, err := gatekeeper.Check(context.Background(), &extract.Options{
		TemplateProps: extract.TemplateProps{TopK: 5},
	})
	require.NoError(t, err)

	assert.False(t, decision.Decision(extract.LayerActivity).ShouldExtract)
	assert.True(t, decision.Decision(extract.LayerPreference).ShouldExtract)
	assert.Equal(t, "stated a dislike", decision.Preference.Reasoning)
}

func TestGatekeeperMissingLayerFails(t *testing.T) {
	missingIdentity := `{
		"activity":   {"reasoning": "x", "shouldExtract": true},
		"context":    {"reasoning": "x", "shouldExtract": true},
		"experience": {"reasoning": "x", "shouldExtract": true},
		"preference": {"reasoning": "x", "shouldExtract": true}
	}`
	gatekeeper := extract.NewGatekeeper(extract.Deps{Provider: contentProvider(missingIdentity)})

	_, err := gatekeeper.Check(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrInvalidResult)
	assert.Contains(t, err.Error(), "identity")
}

func TestGatekeeperDecisionRoundTrip(t *testing.T) {
	original := extract.GatekeeperDecision{
		Activity:   extract.LayerDecision{Reasoning: "a", ShouldExtract: true},
		Context:    extract.LayerDecision{Reasoning: "b", ShouldExtract: false},
		Experience: extract.LayerDecision{Reasoning: "c", ShouldExtract: true},
		Identity:   extract.LayerDecision{Reasoning: "d", ShouldExtract: false},
		Preference: extract.LayerDecision{Reasoning: "e", ShouldExtract: true},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded extract.GatekeeperDecision
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original, decoded)
}

func TestGatekeeperPromptUsesContextAndTopK(t *testing.T) {
	provider := contentProvider(gatekeeperAllFalse)
	gatekeeper := extract.NewGatekeeper(extract.Deps{Provider: provider})

	_, err := gatekeeper.Check(context.Background(), &extract.Options{
		TemplateProps: extract.TemplateProps{
			TopK:              7,
			RetrievedContexts: []string{"prior memory"},
		},
	})
	require.NoError(t, err)

	userMessage := provider.lastUserMessage()
	assert.Contains(t, userMessage, "prior memory")
	assert.Contains(t, userMessage, "top 7")
}
