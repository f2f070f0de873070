// Package extract implements the personal-memory extraction pipeline: a
// gatekeeper stage deciding which memory layers are worth extracting, one
// schema-validated extractor per layer, and a tool-invoking persona
// extractor, all sharing a single structured-call orchestration.
package extract

import (
	"strings"
	"time"

	"github.com/persomem/persomem-go/pkg/llm"
)

// Layer identifies one category of long-term memory.
type Layer string

// The fixed set of memory layers.
const (
	LayerActivity   Layer = "activity"
	LayerContext    Layer = "context"
	LayerExperience Layer = "experience"
	LayerIdentity   Layer = "identity"
	LayerPreference Layer = "preference"
)

// AllLayers returns the five memory layers in their canonical order.
func AllLayers() []Layer {
	return []Layer{LayerActivity, LayerContext, LayerExperience, LayerIdentity, LayerPreference}
}

// Source identifies the origin kind of an extraction run.
type Source string

// Supported extraction sources.
const (
	SourceChatTopic       Source = "chat_topic"
	SourceBenchmarkImport Source = "benchmark_import"
	SourceDocumentBatch   Source = "document_batch"
)

// Job identifies one extraction run. It is constructed by the caller
// before any extractor call and never mutated afterwards.
type Job struct {
	// Source is the origin kind of the content being processed.
	Source Source `json:"source"`

	// SourceID is the opaque identifier of the source (topic id, batch id).
	SourceID string `json:"source_id"`

	// UserID identifies the user whose memories are being extracted.
	UserID string `json:"user_id"`

	// Layers optionally restricts the run to an explicit subset of layers.
	Layers []Layer `json:"layers,omitempty"`

	// Force bypasses freshness checks and runs every layer regardless of
	// the gatekeeper decision.
	Force bool `json:"force,omitempty"`

	// SourceUpdatedAt is when the source content last changed.
	SourceUpdatedAt time.Time `json:"source_updated_at,omitempty"`
}

// NoRetrievedMemories is rendered into prompts when no prior memories
// were retrieved for the user.
const NoRetrievedMemories = "No similar memories retrieved."

// TemplateProps are the placeholder values available to every layer's
// prompt. They are read-only per call.
type TemplateProps struct {
	// Language is the output language. Defaults to "English".
	Language string

	// Username is the display name of the user. Defaults to "User".
	Username string

	// TopK is the desired memory count. Defaults to 10.
	TopK int

	// SessionDate is the current session date rendered into prompts.
	SessionDate string

	// AvailableCategories lists the category names offered to the model.
	AvailableCategories []string

	// RetrievedContexts holds prior-memory text fragments in retrieval order.
	RetrievedContexts []string

	// RetrievedIdentitiesContext is the pre-rendered identity block.
	RetrievedIdentitiesContext string
}

// withDefaults returns a copy with the documented field defaults applied.
func (p TemplateProps) withDefaults() TemplateProps {
	if p.Language == "" {
		p.Language = "English"
	}
	if p.Username == "" {
		p.Username = "User"
	}
	if p.TopK == 0 {
		p.TopK = 10
	}
	return p
}

// JoinedContext returns the retrieved contexts joined by one blank line,
// or NoRetrievedMemories when none were retrieved.
func (p TemplateProps) JoinedContext() string {
	if len(p.RetrievedContexts) == 0 {
		return NoRetrievedMemories
	}
	return strings.Join(p.RetrievedContexts, "\n\n")
}

// Callbacks are optional hooks around a structured call. Errors (and
// panics) raised by a callback are logged and discarded; they never
// change the outcome of the call they observe.
type Callbacks struct {
	// OnExtractRequest fires before the generation request is sent.
	OnExtractRequest func(agent string, payload *llm.StructuredRequest) error

	// OnExtractResponse fires after a successful generation response.
	OnExtractResponse func(agent string, response *llm.StructuredResult) error

	// OnExtractError fires when the call fails, before the error is
	// returned to the caller.
	OnExtractError func(agent string, err error) error
}

// Options carries the per-call inputs of a structured call. Options are
// constructed per call and not persisted.
type Options struct {
	TemplateProps

	// AdditionalMessages are inserted verbatim between the system and
	// user prompt, in order.
	AdditionalMessages []llm.Message

	// Callbacks are the optional observation hooks for this call.
	Callbacks Callbacks

	// SourceID identifies the source being processed.
	SourceID string

	// UserID identifies the user being processed.
	UserID string

	// MessageIDs are the identifiers of the source messages, for audit.
	MessageIDs []string
}

// normalized returns a copy of the options with template-prop defaults
// applied. A nil receiver yields usable defaults.
func (o *Options) normalized() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	out.TemplateProps = out.TemplateProps.withDefaults()
	return &out
}

// LayerDecision is the gatekeeper's verdict for one layer.
type LayerDecision struct {
	// Reasoning is a short justification of the decision.
	Reasoning string `json:"reasoning"`

	// ShouldExtract reports whether the layer is worth extracting.
	ShouldExtract bool `json:"shouldExtract"`
}

// GatekeeperDecision holds one decision per layer. All five layers are
// always present; the gatekeeper's schema declares them all required.
type GatekeeperDecision struct {
	Activity   LayerDecision `json:"activity"`
	Context    LayerDecision `json:"context"`
	Experience LayerDecision `json:"experience"`
	Identity   LayerDecision `json:"identity"`
	Preference LayerDecision `json:"preference"`
}

// Decision returns the decision recorded for the given layer.
func (d *GatekeeperDecision) Decision(layer Layer) LayerDecision {
	switch layer {
	case LayerActivity:
		return d.Activity
	case LayerContext:
		return d.Context
	case LayerExperience:
		return d.Experience
	case LayerIdentity:
		return d.Identity
	case LayerPreference:
		return d.Preference
	default:
		return LayerDecision{}
	}
}

// LayerOutput is the tagged outcome of one layer extraction: exactly one
// of Data or Err is set once the call has completed.
type LayerOutput struct {
	// Data is the validated extraction payload (nil on failure).
	Data any `json:"data,omitempty"`

	// Err is the failure that aborted this layer (nil on success).
	Err error `json:"-"`
}

// Result is the aggregate outcome of one extraction run.
type Result struct {
	// RunID uniquely identifies this run.
	RunID int64 `json:"run_id"`

	// Job echoes the inputs that produced this result, for audit.
	Job Job `json:"job"`

	// Decision is the gatekeeper decision that selected the layers.
	Decision *GatekeeperDecision `json:"decision,omitempty"`

	// Outputs maps each invoked layer to its tagged outcome.
	Outputs map[Layer]LayerOutput `json:"outputs"`

	// Processed counts the layers that were invoked.
	Processed int `json:"processed"`

	// Succeeded counts the layers that returned data.
	Succeeded int `json:"succeeded"`

	// Failed counts the layers that returned an error.
	Failed int `json:"failed"`

	// Skipped reports that the run was short-circuited by a freshness
	// check before any extractor was invoked.
	Skipped bool `json:"skipped,omitempty"`
}

// PersonaResult is the payload committed by the persona extractor.
// Persona is the only required field; the summary metadata may be absent
// even on success.
type PersonaResult struct {
	// Persona is the full persona document.
	Persona string `json:"persona" jsonschema:"description=The updated persona document in Markdown"`

	// Diff summarizes what changed relative to the previous persona.
	Diff string `json:"diff,omitempty" jsonschema:"description=Summary of changes against the existing persona"`

	// MemoryIDs lists the memory records the persona drew from.
	MemoryIDs []string `json:"memoryIds,omitempty" jsonschema:"description=IDs of memories used as evidence"`

	// Reasoning explains the persona update.
	Reasoning string `json:"reasoning,omitempty" jsonschema:"description=Why the persona was updated this way"`

	// SourceIDs lists the sources the persona drew from.
	SourceIDs []string `json:"sourceIds,omitempty" jsonschema:"description=IDs of sources used as evidence"`

	// Tagline is a one-line summary of the user.
	Tagline string `json:"tagline,omitempty" jsonschema:"description=One-line summary of the user"`
}
