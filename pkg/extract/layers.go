package extract

import (
	"fmt"
	"strings"

	"github.com/persomem/persomem-go/pkg/llm"
	"github.com/persomem/persomem-go/pkg/prompt"
	"github.com/persomem/persomem-go/pkg/schema"
)

// ExtractedActivity is one activity memory produced by the activity layer.
type ExtractedActivity struct {
	ActivityType string   `json:"activityType" jsonschema:"description=Kind of activity (task/event/habit/errand)"`
	Narrative    string   `json:"narrative" jsonschema:"description=Self-contained description of the activity"`
	Status       string   `json:"status,omitempty" jsonschema:"description=Current status such as planned or completed"`
	Timezone     string   `json:"timezone,omitempty"`
	StartsAt     string   `json:"startsAt,omitempty" jsonschema:"description=ISO-8601 start time if known"`
	EndsAt       string   `json:"endsAt,omitempty" jsonschema:"description=ISO-8601 end time if known"`
	Notes        string   `json:"notes,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// ActivityExtraction is the activity layer's result payload.
type ActivityExtraction struct {
	Activities []ExtractedActivity `json:"activities"`
}

// ExtractedContext is one situational-context memory.
type ExtractedContext struct {
	Type          string   `json:"type" jsonschema:"description=Context category such as project or living situation"`
	Title         string   `json:"title"`
	Description   string   `json:"description" jsonschema:"description=Self-contained description of the situation"`
	CurrentStatus string   `json:"currentStatus,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// ContextExtraction is the context layer's result payload.
type ContextExtraction struct {
	Contexts []ExtractedContext `json:"contexts"`
}

// ExtractedExperience is one experience memory.
type ExtractedExperience struct {
	Type            string   `json:"type"`
	Situation       string   `json:"situation" jsonschema:"description=What happened"`
	KeyLearning     string   `json:"keyLearning" jsonschema:"description=The takeaway worth remembering"`
	Action          string   `json:"action,omitempty"`
	Reasoning       string   `json:"reasoning,omitempty"`
	PossibleOutcome string   `json:"possibleOutcome,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// ExperienceExtraction is the experience layer's result payload.
type ExperienceExtraction struct {
	Experiences []ExtractedExperience `json:"experiences"`
}

// ExtractedIdentity is one identity memory about a person referenced in
// the conversation.
type ExtractedIdentity struct {
	Name         string   `json:"name" jsonschema:"description=Name the person is referred to by"`
	Relationship string   `json:"relationship,omitempty" jsonschema:"description=Relationship to the user"`
	Role         string   `json:"role,omitempty"`
	Type         string   `json:"type,omitempty"`
	Description  string   `json:"description" jsonschema:"description=What is known about this person"`
	Tags         []string `json:"tags,omitempty"`
}

// IdentityExtraction is the identity layer's result payload.
type IdentityExtraction struct {
	Identities []ExtractedIdentity `json:"identities"`
}

// ExtractedPreference is one preference memory.
type ExtractedPreference struct {
	Type                 string   `json:"type"`
	ConclusionDirectives string   `json:"conclusionDirectives" jsonschema:"description=Actionable directive derived from the preference"`
	Suggestions          string   `json:"suggestions,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
}

// PreferenceExtraction is the preference layer's result payload.
type PreferenceExtraction struct {
	Preferences []ExtractedPreference `json:"preferences"`
}

// layerVariant implements Variant for the five schema-validated layer
// extractors. The four non-identity layers are structurally identical
// and differ only in template and result schema; the identity layer
// additionally renders the known-identities block.
type layerVariant struct {
	layer             Layer
	promptName        string
	resultSchema      *schema.Schema
	decode            func(raw string) (any, error)
	includeIdentities bool
}

func (v *layerVariant) Name() string                  { return "memory." + string(v.layer) }
func (v *layerVariant) PromptName() string            { return v.promptName }
func (v *layerVariant) ResultSchema() *schema.Schema  { return v.resultSchema }
func (v *layerVariant) Tools() []llm.ToolDefinition   { return nil }
func (v *layerVariant) DecodeResult(raw string) (any, error) {
	return v.decode(raw)
}

func (v *layerVariant) BuildUserPrompt(tmpl prompt.Template, opts *Options) (string, error) {
	if tmpl.User == "" {
		return "", ErrTemplateNotLoaded
	}
	props := opts.TemplateProps
	values := map[string]any{
		"available_categories": strings.Join(props.AvailableCategories, ", "),
		"language":             props.Language,
		"retrieved_context":    props.JoinedContext(),
		"session_date":         props.SessionDate,
		"top_k":                props.TopK,
		"username":             props.Username,
	}
	if v.includeIdentities {
		identities := props.RetrievedIdentitiesContext
		if strings.TrimSpace(identities) == "" {
			identities = "No known identities."
		}
		values["existing_identities_context"] = identities
	}
	return prompt.Render(tmpl.User, values), nil
}

func decodeAs[T any](raw string) (any, error) {
	out, err := decodeJSON[T](raw)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NewLayerExtractor creates the extractor for one memory layer.
//
// Returns ErrUnknownLayer for a layer outside the fixed five.
func NewLayerExtractor(layer Layer, deps Deps) (*Extractor, error) {
	var v *layerVariant
	switch layer {
	case LayerActivity:
		v = &layerVariant{
			layer:        layer,
			promptName:   prompt.NameActivity,
			resultSchema: schema.Generate[ActivityExtraction](),
			decode:       decodeAs[ActivityExtraction],
		}
	case LayerContext:
		v = &layerVariant{
			layer:        layer,
			promptName:   prompt.NameContext,
			resultSchema: schema.Generate[ContextExtraction](),
			decode:       decodeAs[ContextExtraction],
		}
	case LayerExperience:
		v = &layerVariant{
			layer:        layer,
			promptName:   prompt.NameExperience,
			resultSchema: schema.Generate[ExperienceExtraction](),
			decode:       decodeAs[ExperienceExtraction],
		}
	case LayerIdentity:
		v = &layerVariant{
			layer:             layer,
			promptName:        prompt.NameIdentity,
			resultSchema:      schema.Generate[IdentityExtraction](),
			decode:            decodeAs[IdentityExtraction],
			includeIdentities: true,
		}
	case LayerPreference:
		v = &layerVariant{
			layer:        layer,
			promptName:   prompt.NamePreference,
			resultSchema: schema.Generate[PreferenceExtraction](),
			decode:       decodeAs[PreferenceExtraction],
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, layer)
	}
	return NewExtractor(v, deps), nil
}
