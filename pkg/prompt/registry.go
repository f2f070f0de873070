package prompt

import "fmt"

// Template is one extractor's prompt pair. System is rendered with the
// shared template props; User is rendered by the extractor's own
// user-prompt strategy. User may be empty for extractors that assemble
// the user prompt in code.
type Template struct {
	System string
	User   string
}

// Registry resolves extractor names to their fixed prompt templates.
//
// The registry is immutable after construction; extractors load their
// template from it exactly once.
type Registry struct {
	templates map[string]Template
}

// NewRegistry creates a Registry seeded with the built-in templates.
func NewRegistry() *Registry {
	return &Registry{templates: builtinTemplates()}
}

// Lookup returns the template registered under name.
//
// Returns an error if no template is registered, which is fatal for the
// extractor that needs it.
func (r *Registry) Lookup(name string) (Template, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("prompt: no template registered for %q", name)
	}
	return tmpl, nil
}

// Register adds or replaces a template. Intended for callers that ship
// their own prompt text.
func (r *Registry) Register(name string, tmpl Template) {
	r.templates[name] = tmpl
}
