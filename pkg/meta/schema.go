package meta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SchemaDocument is a structural description of the configuration fields an
// agent accepts. It is derived once from a declared struct by pure
// reflection and serializes with deterministic key order (field declaration
// order), so exporting the same model twice yields byte-identical text.
type SchemaDocument struct {
	Title      string     `json:"title"`
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	Required   []string   `json:"required,omitempty"`
}

// FieldSchema describes a single configuration field.
type FieldSchema struct {
	Type        string       `json:"type"`
	Description string       `json:"description,omitempty"`
	Default     any          `json:"default,omitempty"`
	Items       *FieldSchema `json:"items,omitempty"`
	Properties  Properties   `json:"properties,omitempty"`
	Required    []string     `json:"required,omitempty"`
}

// Property is a named field schema. Properties keeps declaration order,
// which Go maps would not.
type Property struct {
	Name   string
	Schema *FieldSchema
}

// Properties is an ordered set of field schemas serialized as a JSON object.
type Properties []Property

// MarshalJSON writes the properties as an object in declaration order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		schema, err := json.Marshal(prop.Schema)
		if err != nil {
			return nil, err
		}
		buf.Write(schema)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving its key order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}
	out := Properties{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("properties: expected string key, got %v", keyTok)
		}
		var schema FieldSchema
		if err := dec.Decode(&schema); err != nil {
			return fmt.Errorf("properties: field %q: %w", key, err)
		}
		out = append(out, Property{Name: key, Schema: &schema})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// Field returns the schema for the named field, or nil if not declared.
func (p Properties) Field(name string) *FieldSchema {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Schema
		}
	}
	return nil
}

// SchemaFor derives a SchemaDocument from a declared configuration struct
// (or pointer to one). Field names come from the json tag when present.
// Per-field tags: desc (human-readable description), default (literal
// default value), required ("true"/"false" override). A non-pointer field
// without a default is required; pointer fields are optional.
//
// SchemaFor is a pure read of the declaration: it never calls methods on
// the model and returns the same document for the same type every time.
func SchemaFor(model any) (*SchemaDocument, error) {
	if model == nil {
		return nil, NewContractViolation("", "config_schema", "config model is nil")
	}

	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, NewContractViolation("", "config_schema",
			fmt.Sprintf("config model must be a struct, got %s", t.Kind()))
	}

	props, required, err := structSchema(t)
	if err != nil {
		return nil, err
	}
	return &SchemaDocument{
		Title:      t.Name(),
		Type:       "object",
		Properties: props,
		Required:   required,
	}, nil
}

func structSchema(t reflect.Type) (Properties, []string, error) {
	props := Properties{}
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := fieldName(field)
		if name == "" {
			continue
		}

		schema, optional, err := fieldSchema(field.Type)
		if err != nil {
			return nil, nil, NewContractViolation("", "config_schema",
				fmt.Sprintf("field %q: %s", name, err))
		}

		if desc := field.Tag.Get("desc"); desc != "" {
			schema.Description = desc
		}

		hasDefault := false
		if def, ok := field.Tag.Lookup("default"); ok {
			val, err := parseDefault(def, schema.Type)
			if err != nil {
				return nil, nil, NewContractViolation("", "config_schema",
					fmt.Sprintf("field %q: %s", name, err))
			}
			schema.Default = val
			hasDefault = true
		}

		req := !optional && !hasDefault
		if override, ok := field.Tag.Lookup("required"); ok {
			req = override == "true"
		}
		if req {
			required = append(required, name)
		}

		props = append(props, Property{Name: name, Schema: schema})
	}
	return props, required, nil
}

func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	name := strings.Split(tag, ",")[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// fieldSchema maps a Go type to its schema. The second return value reports
// whether the field is optional by declaration (a pointer type).
func fieldSchema(t reflect.Type) (*FieldSchema, bool, error) {
	optional := false
	for t.Kind() == reflect.Pointer {
		optional = true
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return &FieldSchema{Type: "string"}, optional, nil
	case reflect.Bool:
		return &FieldSchema{Type: "boolean"}, optional, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &FieldSchema{Type: "integer"}, optional, nil
	case reflect.Float32, reflect.Float64:
		return &FieldSchema{Type: "number"}, optional, nil
	case reflect.Slice, reflect.Array:
		items, _, err := fieldSchema(t.Elem())
		if err != nil {
			return nil, false, err
		}
		return &FieldSchema{Type: "array", Items: items}, optional, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, false, fmt.Errorf("map keys must be strings, got %s", t.Key().Kind())
		}
		return &FieldSchema{Type: "object"}, optional, nil
	case reflect.Struct:
		props, required, err := structSchema(t)
		if err != nil {
			return nil, false, err
		}
		return &FieldSchema{Type: "object", Properties: props, Required: required}, optional, nil
	default:
		return nil, false, fmt.Errorf("unsupported type %s", t.Kind())
	}
}

func parseDefault(raw, schemaType string) (any, error) {
	switch schemaType {
	case "string":
		return raw, nil
	case "boolean":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("default %q is not a boolean", raw)
		}
		return v, nil
	case "integer":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("default %q is not an integer", raw)
		}
		return v, nil
	case "number":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("default %q is not a number", raw)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("default values are not supported for %s fields", schemaType)
	}
}
