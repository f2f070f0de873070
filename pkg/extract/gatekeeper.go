package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/persomem/persomem-go/pkg/llm"
	"github.com/persomem/persomem-go/pkg/prompt"
	"github.com/persomem/persomem-go/pkg/schema"
)

// gatekeeperVariant implements the decision stage that runs before any
// layer extractor. Its schema is built by hand rather than generated:
// strict mode needs every layer key declared required, with no room for
// the model to omit one.
type gatekeeperVariant struct {
	resultSchema *schema.Schema
}

func newGatekeeperVariant() *gatekeeperVariant {
	decision := schema.Object(map[string]*schema.Schema{
		"reasoning":     schema.String("Short justification for the decision"),
		"shouldExtract": schema.Boolean("Whether this layer is worth extracting"),
	})
	properties := make(map[string]*schema.Schema, len(AllLayers()))
	for _, layer := range AllLayers() {
		properties[string(layer)] = decision
	}
	return &gatekeeperVariant{resultSchema: schema.Object(properties)}
}

func (v *gatekeeperVariant) Name() string                 { return "memory.gatekeeper" }
func (v *gatekeeperVariant) PromptName() string           { return prompt.NameGatekeeper }
func (v *gatekeeperVariant) ResultSchema() *schema.Schema { return v.resultSchema }
func (v *gatekeeperVariant) Tools() []llm.ToolDefinition  { return nil }

func (v *gatekeeperVariant) BuildUserPrompt(tmpl prompt.Template, opts *Options) (string, error) {
	if tmpl.User == "" {
		return "", ErrTemplateNotLoaded
	}
	return prompt.Render(tmpl.User, map[string]any{
		"retrieved_context": opts.JoinedContext(),
		"top_k":             opts.TopK,
	}), nil
}

// DecodeResult requires a decision for every layer. A syntactically
// valid object that is missing a layer key is treated the same as a
// malformed response.
func (v *gatekeeperVariant) DecodeResult(raw string) (any, error) {
	fields, err := decodeJSON[map[string]json.RawMessage](raw)
	if err != nil {
		return nil, err
	}
	decision := &GatekeeperDecision{}
	targets := map[Layer]*LayerDecision{
		LayerActivity:   &decision.Activity,
		LayerContext:    &decision.Context,
		LayerExperience: &decision.Experience,
		LayerIdentity:   &decision.Identity,
		LayerPreference: &decision.Preference,
	}
	for layer, target := range targets {
		rawDecision, ok := (*fields)[string(layer)]
		if !ok {
			return nil, fmt.Errorf("%w: missing decision for layer %q", ErrInvalidResult, layer)
		}
		if err := json.Unmarshal(rawDecision, target); err != nil {
			return nil, fmt.Errorf("%w: layer %q: %v", ErrInvalidResult, layer, err)
		}
	}
	return decision, nil
}

// Gatekeeper decides which memory layers an extraction run should
// invoke.
type Gatekeeper struct {
	*Extractor
}

// NewGatekeeper creates the gatekeeper decision stage.
func NewGatekeeper(deps Deps) *Gatekeeper {
	return &Gatekeeper{Extractor: NewExtractor(newGatekeeperVariant(), deps)}
}

// Check runs the decision stage and returns one verdict per layer.
func (g *Gatekeeper) Check(ctx context.Context, opts *Options) (*GatekeeperDecision, error) {
	out, err := g.StructuredCall(ctx, opts)
	if err != nil {
		return nil, err
	}
	decision, ok := out.(*GatekeeperDecision)
	if !ok {
		return nil, newError("gatekeeper.check", fmt.Errorf("%w: unexpected payload %T", ErrInvalidResult, out))
	}
	return decision, nil
}
