package contract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var questionDef = map[string]any{
	"type":     "object",
	"required": []any{"question_text", "context", "rubric"},
	"properties": map[string]any{
		"question_text": map[string]any{"type": "string", "minLength": 1},
		"context":       map[string]any{"type": "string"},
		"rubric":        map[string]any{"type": "string"},
	},
}

var examDef = map[string]any{
	"type":     "object",
	"required": []any{"questions"},
	"properties": map[string]any{
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"question_number", "question_text", "context", "rubric"},
				"properties": map[string]any{
					"question_number": map[string]any{"type": "integer", "minimum": 1},
					"question_text":   map[string]any{"type": "string", "minLength": 1},
					"context":         map[string]any{"type": "string"},
					"rubric":          map[string]any{"type": "string"},
				},
			},
		},
	},
}

var gradingDef = map[string]any{
	"type":     "object",
	"required": []any{"grade", "feedback"},
	"properties": map[string]any{
		"grade":      map[string]any{"type": "number", "minimum": 0, "maximum": 100},
		"feedback":   map[string]any{"type": "string"},
		"strengths":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"weaknesses": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

var finalGradeDef = map[string]any{
	"type":     "object",
	"required": []any{"final_grade", "explanation", "question_scores"},
	"properties": map[string]any{
		"final_grade": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
		"explanation": map[string]any{"type": "string"},
		"question_scores": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
		},
	},
}

// schemaCache caches compiled schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

func compiledSchema(name string, def map[string]any) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a parsed JSON value, not Go literals with typed
	// numbers. Round-trip through encoding/json to normalize.
	defBytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}

// decode validates raw against the named schema and unmarshals it into T.
// All failure modes collapse to ok=false.
func decode[T any](name string, def map[string]any, raw map[string]any) (v *T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during contract validation", "schema", name, "panic", r)
			v, ok = nil, false
		}
	}()

	if raw == nil {
		return nil, false
	}

	data, err := json.Marshal(raw)
	if err != nil {
		slog.Warn("contract validation failed", "schema", name, "error", err)
		return nil, false
	}

	// Validate the normalized JSON value, then decode into the typed struct.
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		slog.Warn("contract validation failed", "schema", name, "error", err)
		return nil, false
	}

	schema, err := compiledSchema(name, def)
	if err != nil {
		slog.Error("contract schema unusable", "schema", name, "error", err)
		return nil, false
	}
	if err := schema.Validate(parsed); err != nil {
		slog.Warn("contract validation rejected response", "schema", name, "error", err)
		return nil, false
	}

	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("contract decode failed", "schema", name, "error", err)
		return nil, false
	}
	return out, true
}

// DecodeQuestion validates and decodes a generated-question response.
func DecodeQuestion(raw map[string]any) (*GeneratedQuestion, bool) {
	return decode[GeneratedQuestion]("generated-question", questionDef, raw)
}

// DecodeExam validates and decodes a full-exam response. The count and
// numbering constraints are the generator's to enforce; this checks shape
// and field types only.
func DecodeExam(raw map[string]any) (*GeneratedExam, bool) {
	return decode[GeneratedExam]("generated-exam", examDef, raw)
}

// DecodeGrading validates and decodes a grading response.
func DecodeGrading(raw map[string]any) (*GradingResult, bool) {
	return decode[GradingResult]("grading-result", gradingDef, raw)
}

// DecodeFinalGrade validates and decodes a final-grade response.
func DecodeFinalGrade(raw map[string]any) (*FinalGrade, bool) {
	return decode[FinalGrade]("final-grade", finalGradeDef, raw)
}
