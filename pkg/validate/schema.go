package validate

import (
	"encoding/json"

	"github.com/workpipe/workpipe/pkg/ast"
)

// typeToJSONSchema renders a WorkPipe type expression as a JSON Schema
// document, so an agent_task's output_schema can be validated with the
// same jsonschema compiler the rest of the ecosystem uses rather than a
// hand-rolled structural check.
func typeToJSONSchema(t ast.Type) map[string]any {
	switch v := t.(type) {
	case ast.PrimitiveType:
		switch v.Name {
		case "string":
			return map[string]any{"type": "string"}
		case "int":
			return map[string]any{"type": "integer"}
		case "float":
			return map[string]any{"type": "number"}
		case "bool":
			return map[string]any{"type": "boolean"}
		case "json":
			return map[string]any{}
		case "null":
			return map[string]any{"type": "null"}
		default:
			return map[string]any{}
		}
	case ast.StringLitType:
		return map[string]any{"const": v.Value}
	case ast.ListType:
		return map[string]any{"type": "array", "items": typeToJSONSchema(v.Elem)}
	case ast.ObjectType:
		props := map[string]any{}
		var required []any
		for _, f := range v.Fields {
			props[f.Name] = typeToJSONSchema(f.Type)
			required = append(required, f.Name)
		}
		return map[string]any{"type": "object", "properties": props, "required": required}
	case ast.UnionType:
		var anyOf []any
		for _, m := range v.Members {
			anyOf = append(anyOf, typeToJSONSchema(m))
		}
		if v.Nullable {
			anyOf = append(anyOf, map[string]any{"type": "null"})
		}
		return map[string]any{"anyOf": anyOf}
	default:
		return map[string]any{}
	}
}

func toJSONText(doc map[string]any) string {
	b, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(b)
}
