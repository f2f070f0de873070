package schema

import (
	"reflect"
	"strings"
)

// Generate derives a JSON schema from the Go type T using reflection.
//
// Field names follow the json struct tag. Fields tagged json:"-" are
// skipped. A field is required when it is neither a pointer nor marked
// omitempty. The jsonschema struct tag supports "description=..." and
// "required" entries.
//
// Example:
//
//	type Decision struct {
//	    Reasoning     string `json:"reasoning" jsonschema:"description=Why this layer applies"`
//	    ShouldExtract bool   `json:"shouldExtract"`
//	}
//	s := schema.Generate[Decision]()
func Generate[T any]() *Schema {
	return generateType(reflect.TypeOf((*T)(nil)).Elem())
}

func generateType(t reflect.Type) *Schema {
	switch t.Kind() {
	case reflect.Ptr:
		return generateType(t.Elem())
	case reflect.Struct:
		return generateStruct(t)
	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: generateType(t.Elem())}
	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: generateType(t.Elem())}
	case reflect.String:
		return &Schema{Type: "string"}
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}
	default:
		return &Schema{Type: "object"}
	}
}

func generateStruct(t reflect.Type) *Schema {
	s := &Schema{
		Type:                 "object",
		Properties:           map[string]*Schema{},
		AdditionalProperties: false,
	}
	required := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		omitEmpty := false
		if jsonTag != "" {
			if idx := strings.Index(jsonTag, ","); idx != -1 {
				if jsonTag[:idx] != "" {
					name = jsonTag[:idx]
				}
				omitEmpty = strings.Contains(jsonTag[idx:], "omitempty")
			} else {
				name = jsonTag
			}
		}

		fieldSchema := generateType(field.Type)
		requiredByTag := applySchemaTag(field.Tag.Get("jsonschema"), fieldSchema)
		s.Properties[name] = fieldSchema

		if (field.Type.Kind() != reflect.Ptr && !omitEmpty) || requiredByTag {
			required = append(required, name)
		}
	}

	if len(required) > 0 {
		s.Required = required
	}
	return s
}

// applySchemaTag parses a jsonschema struct tag into the schema and
// reports whether the field was explicitly marked required.
func applySchemaTag(tag string, s *Schema) bool {
	if tag == "" {
		return false
	}
	requiredByTag := false
	for _, item := range strings.Split(tag, ",") {
		switch key, value, found := strings.Cut(item, "="); {
		case found && key == "description":
			s.Description = value
		case found && key == "enum":
			s.Enum = append(s.Enum, value)
		case !found && item == "required":
			requiredByTag = true
		}
	}
	return requiredByTag
}
