package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/persomem/persomem-go/pkg/llm"
	"github.com/persomem/persomem-go/pkg/prompt"
	"github.com/persomem/persomem-go/pkg/schema"
)

// PersonaToolName is the tool the model invokes to commit an updated
// persona document.
const PersonaToolName = "commit_user_persona"

// PersonaOptions are the inputs of one persona extraction. Every text
// section is optional; absent sections are rendered with a literal
// placeholder.
type PersonaOptions struct {
	Language string
	Username string

	// ExistingPersona is the current persona document, if one exists.
	ExistingPersona string

	// RetrievedMemories are pre-rendered memory fragments.
	RetrievedMemories []string

	// RecentEvents is a pre-rendered block of recent user activity.
	RecentEvents string

	// UserNotes are notes and requests the user left for the assistant.
	UserNotes string

	// ExtraContext is any additional profile context.
	ExtraContext string

	SourceID string
	UserID   string
}

func (o *PersonaOptions) normalized() *PersonaOptions {
	out := PersonaOptions{}
	if o != nil {
		out = *o
	}
	if out.Language == "" {
		out.Language = "English"
	}
	if out.Username == "" {
		out.Username = "User"
	}
	return &out
}

// PersonaExtractor maintains the user persona document. Unlike the
// layer extractors it constrains the model through a tool definition
// rather than an output schema, because the persona is a long free-form
// document plus optional metadata.
type PersonaExtractor struct {
	provider llm.Provider
	model    string
	prompts  *prompt.Registry
	logger   *log.Logger

	loadOnce sync.Once
	loadErr  error
	tmpl     prompt.Template

	tool llm.ToolDefinition
}

// NewPersonaExtractor creates the persona extractor.
func NewPersonaExtractor(deps Deps) *PersonaExtractor {
	deps = deps.withDefaults()
	return &PersonaExtractor{
		provider: deps.Provider,
		model:    deps.Model,
		prompts:  deps.Prompts,
		logger:   deps.Logger,
		tool: llm.ToolDefinition{
			Name:        PersonaToolName,
			Description: "Commit the updated user persona document together with optional change metadata.",
			Parameters:  schema.Generate[PersonaResult](),
		},
	}
}

// Name returns the extractor identifier.
func (p *PersonaExtractor) Name() string { return "user.persona" }

// EnsurePromptTemplate loads the persona prompt template once. A load
// failure is permanent for this instance.
func (p *PersonaExtractor) EnsurePromptTemplate() error {
	p.loadOnce.Do(func() {
		p.tmpl, p.loadErr = p.prompts.Lookup(prompt.NameUserPersona)
	})
	if p.loadErr != nil {
		return newError("persona.template", p.loadErr)
	}
	return nil
}

const (
	noPersonaPlaceholder = "No existing persona provided."
	emptySection         = "N/A"
)

func sectionValue(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

// buildUserPrompt assembles the fixed-section persona prompt. Sections
// appear in a fixed order regardless of which inputs are present.
func (p *PersonaExtractor) buildUserPrompt(opts *PersonaOptions) string {
	memories := strings.TrimSpace(strings.Join(opts.RetrievedMemories, "\n\n"))

	var b strings.Builder
	b.WriteString("## Existing Persona\n\n")
	b.WriteString(sectionValue(opts.ExistingPersona, noPersonaPlaceholder))
	b.WriteString("\n\n## Retrieved Memories / Signals\n\n")
	b.WriteString(sectionValue(memories, emptySection))
	b.WriteString("\n\n## Recent Events\n\n")
	b.WriteString(sectionValue(opts.RecentEvents, emptySection))
	b.WriteString("\n\n## User Notes / Requests\n\n")
	b.WriteString(sectionValue(opts.UserNotes, emptySection))
	b.WriteString("\n\n## Extra Profile Context\n\n")
	b.WriteString(sectionValue(opts.ExtraContext, emptySection))
	b.WriteString("\n")
	return b.String()
}

// ToolCall runs one persona extraction. It renders the system prompt,
// assembles the sectioned user prompt, sends both plus the commit tool
// to the provider, and parses the committed persona out of the first
// tool invocation (or out of the bare response content when the model
// answered without invoking the tool).
func (p *PersonaExtractor) ToolCall(ctx context.Context, opts *PersonaOptions) (*PersonaResult, error) {
	const op = "persona.tool_call"

	if err := p.EnsurePromptTemplate(); err != nil {
		return nil, err
	}
	opts = opts.normalized()

	system := prompt.Render(p.tmpl.System, map[string]any{
		"language": opts.Language,
		"username": opts.Username,
	})
	messages := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: p.buildUserPrompt(opts)},
	}

	resp, err := p.provider.GenerateStructured(ctx, &llm.StructuredRequest{
		Messages: messages,
		Model:    p.model,
		Tools:    []llm.ToolDefinition{p.tool},
	})
	if err != nil {
		return nil, newError(op, err)
	}

	result, err := p.parseResponse(resp)
	if err != nil {
		return nil, newError(op, err)
	}
	return result, nil
}

// StructuredCall is an alias for ToolCall so the persona extractor
// presents the same outward operation as the layer extractors.
func (p *PersonaExtractor) StructuredCall(ctx context.Context, opts *PersonaOptions) (*PersonaResult, error) {
	return p.ToolCall(ctx, opts)
}

func (p *PersonaExtractor) parseResponse(resp *llm.StructuredResult) (*PersonaResult, error) {
	var raw string
	switch {
	case len(resp.ToolInvocations) > 0:
		invocation := resp.ToolInvocations[0]
		if invocation.Name != PersonaToolName {
			p.logger.Warn("unexpected persona tool invocation", "tool", invocation.Name)
		}
		raw = invocation.Arguments
	case strings.TrimSpace(resp.Content) != "":
		raw = resp.Content
	default:
		return nil, ErrNoToolInvocation
	}

	result, err := decodeJSON[PersonaResult](raw)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.Persona) == "" {
		return nil, fmt.Errorf("%w: missing persona", ErrInvalidResult)
	}
	return result, nil
}
