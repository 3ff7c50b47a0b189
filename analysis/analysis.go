// Package analysis defines the bunsetsu/morpheme breakdown document
// returned by the language model and validates it against a JSON Schema.
package analysis

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Empty is the document served when no valid analysis is available.
const Empty = "{}"

//go:embed schema.json
var schemaJSON string

var schema = mustLoadSchema()

func mustLoadSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("analysis: invalid embedded schema: %v", err))
	}
	return s
}

// Document is a full breakdown of one Japanese text.
type Document struct {
	CreateDatetime    time.Time  `json:"create_datetime"`
	BunsetsuBreakdown []Bunsetsu `json:"bunsetsu_breakdown"`
}

// Bunsetsu is one phrase-level unit of the text.
type Bunsetsu struct {
	Index                 int        `json:"index"`
	JapanesePhrase        string     `json:"japanese_phrase"`
	EnglishTranslation    string     `json:"english_translation"`
	MorphologicalAnalysis []Morpheme `json:"morphological_analysis"`
}

// Morpheme is the smallest meaningful unit within a bunsetsu.
type Morpheme struct {
	TokenID            int    `json:"token_id"`
	SurfaceForm        string `json:"surface_form"`
	BaseForm           string `json:"base_form"`
	POS                string `json:"POS"`
	EnglishExplanation string `json:"english_explanation"`
	Romaji             string `json:"romaji"`
}

// Schema returns the JSON Schema documents must satisfy. It is embedded
// verbatim in the analysis prompt.
func Schema() string {
	return schemaJSON
}

// Clean strips the markdown code fence models often wrap JSON in.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// SchemaError lists the violations found in a document.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "schema validation failed: " + strings.Join(e.Violations, "; ")
}

// Validate checks doc against the schema. The create_datetime field must
// additionally parse as an RFC 3339 timestamp.
func Validate(doc string) error {
	if strings.TrimSpace(doc) == "" {
		return &SchemaError{Violations: []string{"document is empty"}}
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("validating document: %w", err)
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return &SchemaError{Violations: violations}
	}

	var probe struct {
		CreateDatetime string `json:"create_datetime"`
	}
	if err := json.Unmarshal([]byte(doc), &probe); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	if _, err := parseTimestamp(probe.CreateDatetime); err != nil {
		return &SchemaError{Violations: []string{"create_datetime: " + err.Error()}}
	}

	return nil
}

// Parse validates doc and decodes it.
func Parse(doc string) (*Document, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	var raw struct {
		CreateDatetime    string     `json:"create_datetime"`
		BunsetsuBreakdown []Bunsetsu `json:"bunsetsu_breakdown"`
	}
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}

	ts, _ := parseTimestamp(raw.CreateDatetime)
	return &Document{CreateDatetime: ts, BunsetsuBreakdown: raw.BunsetsuBreakdown}, nil
}

// parseTimestamp accepts RFC 3339 with or without a zone offset, matching
// what models typically emit for "ISO 8601".
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
