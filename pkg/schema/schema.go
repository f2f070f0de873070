// Package schema defines the JSON Schema value type used for structured
// LLM output and tool parameter definitions, plus a reflection-based
// generator for deriving schemas from Go result types.
package schema

import (
	"encoding/json"
	"sort"
)

// Schema represents a JSON Schema document.
//
// It covers the subset of the standard needed for structured output and
// tool definitions: object/array/primitive types, required properties,
// enums, and additionalProperties control.
type Schema struct {
	// Type specifies the data type (e.g., "object", "array", "string", "boolean").
	Type string `json:"type,omitempty"`

	// Description documents the value for the model.
	Description string `json:"description,omitempty"`

	// Properties maps property names to their schemas (object types).
	Properties map[string]*Schema `json:"properties,omitempty"`

	// Required lists the property names that must be present.
	Required []string `json:"required,omitempty"`

	// Items defines the element schema for array types.
	Items *Schema `json:"items,omitempty"`

	// AdditionalProperties controls whether undeclared properties are allowed.
	// Set to false for strict schemas.
	AdditionalProperties any `json:"additionalProperties,omitempty"`

	// Enum lists the allowed values.
	Enum []any `json:"enum,omitempty"`
}

// MarshalJSON implements json.Marshaler so a *Schema can be handed
// directly to SDK fields typed as json.Marshaler.
func (s *Schema) MarshalJSON() ([]byte, error) {
	type plain Schema
	return json.Marshal((*plain)(s))
}

// Object builds an object schema with the given properties. Every
// property is required and undeclared properties are rejected, which is
// the strict shape expected by schema-constrained generation.
func Object(properties map[string]*Schema, required ...string) *Schema {
	if len(required) == 0 {
		required = make([]string, 0, len(properties))
		for name := range properties {
			required = append(required, name)
		}
		sort.Strings(required)
	}
	return &Schema{
		Type:                 "object",
		Properties:           properties,
		Required:             required,
		AdditionalProperties: false,
	}
}

// String returns a string schema with the given description.
func String(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

// Boolean returns a boolean schema with the given description.
func Boolean(description string) *Schema {
	return &Schema{Type: "boolean", Description: description}
}

// Array returns an array schema with the given element schema.
func Array(items *Schema) *Schema {
	return &Schema{Type: "array", Items: items}
}
