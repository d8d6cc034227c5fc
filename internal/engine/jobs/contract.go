package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RequestSchema returns the JSON-Schema of the create-job body. Every key is
// required, including the nullable ones, so "not set" is always explicit.
func RequestSchema() map[string]any {
	str := map[string]any{"type": "string"}
	boolean := map[string]any{"type": "boolean"}
	meters := map[string]any{"type": "integer", "minimum": 0}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"kabkota", "kecamatan", "query", "types", "filters", "strategy", "columns", "excel"},
		"properties": map[string]any{
			"kabkota": map[string]any{"type": "string", "minLength": 1},
			"kecamatan": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
			"query": map[string]any{"type": []string{"string", "null"}, "minLength": 1},
			"types": map[string]any{"type": "array", "items": str},
			"filters": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"minRating", "openNow", "limitPerKecamatan"},
				"properties": map[string]any{
					"minRating":         map[string]any{"type": "number", "minimum": 0, "maximum": 5},
					"openNow":           map[string]any{"type": []string{"boolean", "null"}},
					"limitPerKecamatan": map[string]any{"type": []string{"integer", "null"}},
				},
			},
			"strategy": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"mode", "gridSizeMeters", "gridOverlapMeters", "dedupeMeters"},
				"properties": map[string]any{
					"mode":              map[string]any{"enum": []string{"grid", "centroid"}},
					"gridSizeMeters":    meters,
					"gridOverlapMeters": meters,
					"dedupeMeters":      meters,
				},
			},
			"columns": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    str,
			},
			"excel": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"sheetPerKecamatan", "withMetadataSheet", "autoFit", "freezeHeader"},
				"properties": map[string]any{
					"sheetPerKecamatan": boolean,
					"withMetadataSheet": boolean,
					"autoFit":           boolean,
					"freezeHeader":      boolean,
				},
			},
		},
	}
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(RequestSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("job_request.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("job_request.json")
	})
	return schema, schemaErr
}

// ValidateRequestJSON checks a create-job body against RequestSchema.
func ValidateRequestJSON(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal request: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("request does not match contract: %w", err)
	}
	return nil
}
