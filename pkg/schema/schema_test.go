package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persomem/persomem-go/pkg/schema"
)

func TestObjectRequiresAllPropertiesSorted(t *testing.T) {
	s := schema.Object(map[string]*schema.Schema{
		"zulu":  schema.String(""),
		"alpha": schema.Boolean(""),
		"mike":  schema.String(""),
	})

	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"alpha", "mike", "zulu"}, s.Required)
	assert.Equal(t, false, s.AdditionalProperties)
}

func TestObjectExplicitRequired(t *testing.T) {
	s := schema.Object(map[string]*schema.Schema{
		"a": schema.String(""),
		"b": schema.String(""),
	}, "a")

	assert.Equal(t, []string{"a"}, s.Required)
}

func TestMarshalOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(schema.String("a name"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"string","description":"a name"}`, string(raw))
}

type generateSample struct {
	Name     string   `json:"name" jsonschema:"description=Display name"`
	Count    int      `json:"count"`
	Score    float64  `json:"score,omitempty"`
	Hidden   string   `json:"-"`
	Tags     []string `json:"tags,omitempty"`
	Optional *string  `json:"optional,omitempty"`
	Kind     string   `json:"kind,omitempty" jsonschema:"enum=a,enum=b"`
}

func TestGenerateStruct(t *testing.T) {
	s := schema.Generate[generateSample]()

	require.Equal(t, "object", s.Type)
	assert.NotContains(t, s.Properties, "Hidden")
	assert.NotContains(t, s.Properties, "-")

	require.Contains(t, s.Properties, "name")
	assert.Equal(t, "string", s.Properties["name"].Type)
	assert.Equal(t, "Display name", s.Properties["name"].Description)

	require.Contains(t, s.Properties, "count")
	assert.Equal(t, "integer", s.Properties["count"].Type)

	require.Contains(t, s.Properties, "score")
	assert.Equal(t, "number", s.Properties["score"].Type)

	require.Contains(t, s.Properties, "tags")
	assert.Equal(t, "array", s.Properties["tags"].Type)
	assert.Equal(t, "string", s.Properties["tags"].Items.Type)

	require.Contains(t, s.Properties, "kind")
	assert.Equal(t, []any{"a", "b"}, s.Properties["kind"].Enum)
}

func TestGenerateRequiredExcludesOptional(t *testing.T) {
	s := schema.Generate[generateSample]()

	assert.Contains(t, s.Required, "name")
	assert.Contains(t, s.Required, "count")
	assert.NotContains(t, s.Required, "score")
	assert.NotContains(t, s.Required, "optional")
	assert.NotContains(t, s.Required, "tags")
}

type nestedSample struct {
	Items []generateSample `json:"items"`
}

func TestGenerateNested(t *testing.T) {
	s := schema.Generate[nestedSample]()

	require.Contains(t, s.Properties, "items")
	items := s.Properties["items"]
	require.Equal(t, "array", items.Type)
	require.NotNil(t, items.Items)
	assert.Equal(t, "object", items.Items.Type)
	assert.Contains(t, items.Items.Properties, "name")
}
