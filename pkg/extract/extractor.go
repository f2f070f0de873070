package extract

import (
	"context"
	"regexp"
	"sync"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/persomem/persomem-go/pkg/llm"
	"github.com/persomem/persomem-go/pkg/prompt"
	"github.com/persomem/persomem-go/pkg/schema"
)

// Variant is the per-layer half of the extractor protocol. A variant
// supplies the prompt, the result schema, optional tool definitions, and
// the user-prompt strategy; Extractor supplies the shared structured-call
// orchestration implemented once in terms of this interface.
type Variant interface {
	// Name is the extractor identifier used for tracing, callbacks, and
	// (sanitized) schema naming.
	Name() string

	// PromptName is the registry name of the variant's fixed template.
	PromptName() string

	// ResultSchema is the schema the result must conform to. A nil
	// schema means the raw generation result passes through unchanged.
	ResultSchema() *schema.Schema

	// Tools lists the tool definitions to expose, or nil for the
	// schema-constrained path.
	Tools() []llm.ToolDefinition

	// BuildUserPrompt renders the user prompt from the loaded template
	// and the normalized call options.
	BuildUserPrompt(tmpl prompt.Template, opts *Options) (string, error)

	// DecodeResult validates the raw response content against the
	// declared result schema and returns the typed payload.
	DecodeResult(raw string) (any, error)
}

// Deps are the collaborators shared by every extractor.
type Deps struct {
	// Provider is the structured generation service.
	Provider llm.Provider

	// Model is the model identifier sent with every request.
	Model string

	// Prompts resolves prompt templates. Defaults to the built-in registry.
	Prompts *prompt.Registry

	// Tracer receives the extraction spans. Defaults to the global tracer.
	Tracer trace.Tracer

	// Logger receives operational log lines. Defaults to the standard logger.
	Logger *log.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Prompts == nil {
		d.Prompts = prompt.NewRegistry()
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer("persomem")
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	return d
}

var nonWordRuns = regexp.MustCompile(`\W+`)

// sanitizeSchemaName replaces non-word character runs with underscores,
// producing an identifier accepted by schema-constrained generation APIs.
func sanitizeSchemaName(name string) string {
	return nonWordRuns.ReplaceAllString(name, "_")
}

// Extractor runs the shared structured-call orchestration for one
// variant. An Extractor instance is safe for concurrent use: the prompt
// template is loaded once and immutable afterwards, and no other state
// is shared between calls.
type Extractor struct {
	variant  Variant
	provider llm.Provider
	model    string
	prompts  *prompt.Registry
	tracer   trace.Tracer
	logger   *log.Logger

	// schemaName is the sanitized variant name, computed at construction.
	schemaName string

	tmplOnce sync.Once
	tmpl     prompt.Template
	tmplErr  error
}

// NewExtractor creates an extractor for the given variant.
func NewExtractor(variant Variant, deps Deps) *Extractor {
	deps = deps.withDefaults()
	return &Extractor{
		variant:    variant,
		provider:   deps.Provider,
		model:      deps.Model,
		prompts:    deps.Prompts,
		tracer:     deps.Tracer,
		logger:     deps.Logger,
		schemaName: sanitizeSchemaName(variant.Name()),
	}
}

// Name returns the extractor's identifier.
func (e *Extractor) Name() string {
	return e.variant.Name()
}

// EnsurePromptTemplate loads the variant's prompt template exactly once
// per extractor instance. Subsequent calls are no-ops. A load failure is
// fatal for the instance and returned from every later call.
func (e *Extractor) EnsurePromptTemplate() error {
	e.tmplOnce.Do(func() {
		e.tmpl, e.tmplErr = e.prompts.Lookup(e.variant.PromptName())
	})
	return e.tmplErr
}

// StructuredCall performs one schema-validated extraction.
//
// The call renders system and user prompts, assembles the message
// sequence (system, additional messages verbatim, user), dispatches the
// generation request inside nested tracing spans, fires the optional
// callbacks, and validates the response against the variant's result
// schema. Failures are recorded on the spans, forwarded to
// OnExtractError, and returned to the caller; they are never absorbed.
func (e *Extractor) StructuredCall(ctx context.Context, opts *Options) (any, error) {
	op := e.variant.Name() + ".structured_call"

	if err := e.EnsurePromptTemplate(); err != nil {
		return nil, newError(op, err)
	}

	opts = opts.normalized()
	props := opts.TemplateProps

	systemPrompt := prompt.Render(e.tmpl.System, map[string]any{
		"language":     props.Language,
		"username":     props.Username,
		"top_k":        props.TopK,
		"session_date": props.SessionDate,
	})

	userPrompt, err := e.variant.BuildUserPrompt(e.tmpl, opts)
	if err != nil {
		return nil, newError(op, err)
	}

	messages := make([]llm.Message, 0, len(opts.AdditionalMessages)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, opts.AdditionalMessages...)
	messages = append(messages, llm.Message{Role: "user", Content: userPrompt})

	req := &llm.StructuredRequest{
		Messages: messages,
		Model:    e.model,
		Tools:    e.variant.Tools(),
	}
	if s := e.variant.ResultSchema(); s != nil {
		req.Schema = &llm.OutputSchema{Name: e.schemaName, Schema: s, Strict: true}
	}

	ctx, outerSpan := e.tracer.Start(ctx, e.variant.Name())
	defer outerSpan.End()
	ctx, callSpan := e.tracer.Start(ctx, "structured_call")
	defer callSpan.End()
	ctx, genSpan := e.tracer.Start(ctx, "generate", trace.WithAttributes(
		attribute.String("operation.name", "structured_call"),
		attribute.String("gen_ai.request.model", req.Model),
		attribute.String("extract.retrieved_context", props.JoinedContext()),
		attribute.String("extract.identities_context", props.RetrievedIdentitiesContext),
		attribute.String("extract.language", props.Language),
		attribute.String("extract.source_id", opts.SourceID),
		attribute.Int("extract.top_k", props.TopK),
		attribute.String("extract.user_id", opts.UserID),
	))
	defer genSpan.End()

	result, err := e.dispatch(ctx, req, opts)
	if err != nil {
		err = newError(op, err)
		genSpan.RecordError(err)
		genSpan.SetStatus(codes.Error, err.Error())
		callSpan.RecordError(err)
		callSpan.SetStatus(codes.Error, err.Error())
		outerSpan.SetStatus(codes.Error, err.Error())
		if cb := opts.Callbacks.OnExtractError; cb != nil {
			cbErr := err
			invokeBestEffort(e.logger, e.variant.Name(), "onExtractError", func() error {
				return cb(e.variant.Name(), cbErr)
			})
		}
		return nil, err
	}

	genSpan.SetStatus(codes.Ok, "")
	callSpan.SetStatus(codes.Ok, "")
	outerSpan.SetStatus(codes.Ok, "")
	return result, nil
}

// dispatch sends the request and validates the response. The
// before-request callback always fires before the generation call and
// the after-response callback after it returns; validation happens after
// the response callback so a validation failure still reaches
// OnExtractError in StructuredCall.
func (e *Extractor) dispatch(ctx context.Context, req *llm.StructuredRequest, opts *Options) (any, error) {
	if cb := opts.Callbacks.OnExtractRequest; cb != nil {
		invokeBestEffort(e.logger, e.variant.Name(), "onExtractRequest", func() error {
			return cb(e.variant.Name(), req)
		})
	}

	resp, err := e.provider.GenerateStructured(ctx, req)
	if err != nil {
		return nil, err
	}

	if cb := opts.Callbacks.OnExtractResponse; cb != nil {
		invokeBestEffort(e.logger, e.variant.Name(), "onExtractResponse", func() error {
			return cb(e.variant.Name(), resp)
		})
	}

	if e.variant.ResultSchema() == nil {
		return resp, nil
	}
	return e.variant.DecodeResult(resp.Content)
}
