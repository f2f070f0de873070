package llm

import "github.com/persomem/persomem-go/pkg/schema"

// StructuredRequest describes one structured generation call.
//
// Exactly one of two shapes is expected back:
//   - schema path: Schema is set, the provider constrains output to it
//     and StructuredResult.Content carries the schema-shaped JSON;
//   - tool path: Tools is set, the model invokes one of them and
//     StructuredResult.ToolInvocations carries the calls.
type StructuredRequest struct {
	// Messages is the ordered conversation to send.
	Messages []Message `json:"messages"`

	// Model is the model identifier to use.
	Model string `json:"model"`

	// Schema is the optional output schema constraint.
	Schema *OutputSchema `json:"schema,omitempty"`

	// Tools is the optional list of tool definitions exposed to the model.
	Tools []ToolDefinition `json:"tools,omitempty"`
}

// OutputSchema names a JSON schema used to constrain model output.
type OutputSchema struct {
	// Name identifies the schema in the request. Providers generally
	// restrict it to word characters.
	Name string `json:"name"`

	// Schema is the JSON schema the output must conform to.
	Schema *schema.Schema `json:"schema"`

	// Strict enables strict schema adherence where the provider supports it.
	Strict bool `json:"strict"`
}

// ToolDefinition describes a single tool/function the model may invoke.
type ToolDefinition struct {
	// Name is the tool name the model calls it by.
	Name string `json:"name"`

	// Description tells the model when to use the tool.
	Description string `json:"description,omitempty"`

	// Parameters is the JSON schema of the tool's arguments.
	Parameters *schema.Schema `json:"parameters"`
}

// ToolInvocation is one tool call returned by the model.
type ToolInvocation struct {
	// Name is the invoked tool's name.
	Name string `json:"name"`

	// Arguments is the JSON-encoded argument object.
	Arguments string `json:"arguments"`
}

// StructuredResult is the outcome of a structured generation call.
type StructuredResult struct {
	// Content is the raw text content of the response. On the schema
	// path this is the schema-shaped JSON document.
	Content string `json:"content,omitempty"`

	// ToolInvocations lists the tool calls made by the model, in order.
	// Populated on the tool path.
	ToolInvocations []ToolInvocation `json:"tool_invocations,omitempty"`
}
