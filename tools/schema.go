package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/richinex/relay/llm"
)

// GenerateSchema derives a JSON Schema object from an input struct.
// Fields without omitempty are required; descriptions come from
// jsonschema_description tags.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		return emptyObjectSchema()
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return emptyObjectSchema()
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}

func emptyObjectSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// queryToolSchema is the parameter schema shared by retrieval tools.
func queryToolSchema(name, description string) llm.ToolSchema {
	return llm.ToolSchema{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Natural-language search query.",
				},
			},
			"required": []any{"query"},
		},
	}
}
