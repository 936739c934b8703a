package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// NewTool creates a Tool whose JSON schema is derived from the input struct T.
//
// Field tags drive the schema:
//
//	json:"name,omitempty"   property name; omitempty makes it optional
//	description:"..."       property description
//	default:"..."           default value shown to the model
//	enum:"a,b,c"            allowed string values
//
// Example:
//
//	type ChartInput struct {
//	    DataJSON string `json:"data_json" description:"Records as JSON"`
//	}
//
//	tool := ai.NewTool("get_dataframe_info", "Describe a data set",
//	    func(ctx context.Context, in ChartInput) (string, error) {
//	        return describe(in.DataJSON)
//	    })
//
// Panics if T has exported fields without json tags.
func NewTool[T any](name, description string, fn func(context.Context, T) (string, error)) *Tool {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if err := checkJSONTags(typ); err != nil {
		panic(fmt.Sprintf("NewTool(%s): %v", name, err))
	}

	return &Tool{
		Name:        name,
		Description: description,
		InputSchema: objectSchema(typ),
		Execute: func(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
			// round trip through JSON so numbers and nested values land in typed fields
			raw, err := json.Marshal(args)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal arguments: %w", err)
			}
			var input T
			if err := json.Unmarshal(raw, &input); err != nil {
				return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
			}

			out, err := fn(ctx, input)
			if err != nil {
				return nil, err
			}
			return TextResult(out), nil
		},
	}
}

func checkJSONTags(typ reflect.Type) error {
	typ = deref(typ)
	if typ.Kind() != reflect.Struct {
		return nil
	}
	var missing []string
	for _, f := range reflect.VisibleFields(typ) {
		if f.IsExported() && !f.Anonymous && f.Tag.Get("json") == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("struct %s has exported fields without json tags: %v", typ.Name(), missing)
	}
	return nil
}

func objectSchema(typ reflect.Type) map[string]interface{} {
	typ = deref(typ)
	schema := map[string]interface{}{"type": "object"}
	if typ.Kind() != reflect.Struct {
		return schema
	}

	properties := map[string]interface{}{}
	var required []string
	for _, f := range reflect.VisibleFields(typ) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		properties[name] = propertySchema(f)
		if !strings.Contains(opts, "omitempty") {
			required = append(required, name)
		}
	}

	schema["properties"] = properties
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func propertySchema(f reflect.StructField) map[string]interface{} {
	prop := typeSchema(f.Type)
	if d := f.Tag.Get("description"); d != "" {
		prop["description"] = d
	}
	if d := f.Tag.Get("default"); d != "" {
		prop["default"] = d
	}
	if e := f.Tag.Get("enum"); e != "" {
		prop["enum"] = strings.Split(e, ",")
	}
	return prop
}

func typeSchema(t reflect.Type) map[string]interface{} {
	t = deref(t)
	switch t.Kind() {
	case reflect.String:
		return map[string]interface{}{"type": "string"}
	case reflect.Bool:
		return map[string]interface{}{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]interface{}{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]interface{}{"type": "number"}
	case reflect.Slice, reflect.Array:
		s := map[string]interface{}{"type": "array"}
		if elem := deref(t.Elem()); elem.Kind() != reflect.Interface {
			s["items"] = typeSchema(elem)
		}
		return s
	case reflect.Struct:
		return objectSchema(t)
	case reflect.Map:
		return map[string]interface{}{"type": "object"}
	default:
		return map[string]interface{}{"type": "string"}
	}
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
