package prompt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persomem/persomem-go/pkg/prompt"
)

func TestRenderSubstitutesValues(t *testing.T) {
	out := prompt.Render("Hello {name}, top {top_k}", map[string]any{
		"name":  "Ada",
		"top_k": 10,
	})
	assert.Equal(t, "Hello Ada, top 10", out)
}

func TestRenderBlanksUnknownPlaceholders(t *testing.T) {
	out := prompt.Render("A {known} B {unknown} C", map[string]any{
		"known": "x",
	})
	assert.Equal(t, "A x B  C", out)
}

func TestRenderNilValue(t *testing.T) {
	out := prompt.Render("v={v}", map[string]any{"v": nil})
	assert.Equal(t, "v=", out)
}

func TestRenderRepeatedPlaceholder(t *testing.T) {
	out := prompt.Render("{u} and {u}", map[string]any{"u": "Ada"})
	assert.Equal(t, "Ada and Ada", out)
}

func TestRegistryLookup(t *testing.T) {
	registry := prompt.NewRegistry()

	for _, name := range []string{
		prompt.NameGatekeeper,
		prompt.NameActivity,
		prompt.NameContext,
		prompt.NameExperience,
		prompt.NameIdentity,
		prompt.NamePreference,
		prompt.NameUserPersona,
	} {
		tmpl, err := registry.Lookup(name)
		require.NoError(t, err, "template %q should be registered", name)
		assert.NotEmpty(t, tmpl.System, "template %q should have a system prompt", name)
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	registry := prompt.NewRegistry()

	_, err := registry.Lookup("no_such_template")
	assert.Error(t, err)
}

func TestRegistryRegisterOverride(t *testing.T) {
	registry := prompt.NewRegistry()
	registry.Register(prompt.NameActivity, prompt.Template{System: "custom", User: "custom user"})

	tmpl, err := registry.Lookup(prompt.NameActivity)
	require.NoError(t, err)
	assert.Equal(t, "custom", tmpl.System)
}

func TestPersonaTemplateHasNoUserPart(t *testing.T) {
	registry := prompt.NewRegistry()

	tmpl, err := registry.Lookup(prompt.NameUserPersona)
	require.NoError(t, err)
	assert.Empty(t, tmpl.User, "persona user prompt is assembled in code, not templated")
}
