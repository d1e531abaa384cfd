// Package schema validates untyped facet payloads and decodes them into the
// typed values of package record.
package schema

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/w-h-a/calls/record"
)

//go:embed schemas/*.json
var files embed.FS

var (
	compileOnce sync.Once
	compiled    map[record.Facet]*jsonschema.Schema
)

// Violation is one failed constraint, located by JSON pointer.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type ValidationError struct {
	Facet      record.Facet
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		path := v.Path
		if len(path) == 0 {
			path = "/"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", path, v.Message))
	}
	return fmt.Sprintf("%s payload is invalid: %s", e.Facet, strings.Join(parts, "; "))
}

// Source returns the JSON Schema text for a facet.
func Source(f record.Facet) (string, error) {
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", record.ErrUnknownFacet, f)
	}
	b, err := files.ReadFile("schemas/" + f.String() + ".json")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Validate checks raw, a value produced by encoding/json decoding into any,
// against the facet schema. Unknown keys are allowed.
func Validate(f record.Facet, raw any) error {
	s, err := schemaFor(f)
	if err != nil {
		return err
	}

	if err := s.Validate(raw); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &ValidationError{Facet: f, Violations: flatten(ve)}
		}
		return &ValidationError{Facet: f, Violations: []Violation{{Message: err.Error()}}}
	}

	return nil
}

// Decode validates raw and converts it into the typed facet value. Nothing is
// coerced: a payload that fails validation produces no value.
func Decode(f record.Facet, raw any) (record.FacetValue, error) {
	if err := Validate(f, raw); err != nil {
		return nil, err
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, &ValidationError{Facet: f, Violations: []Violation{{Message: err.Error()}}}
	}

	var target record.FacetValue
	switch f {
	case record.Sentiment:
		target = &record.SentimentAnalysis{}
	case record.IntentAndTopics:
		target = &record.IntentTopicsAnalysis{}
	case record.CallQuality:
		target = &record.CallQualityAnalysis{}
	case record.ComplianceAndRisk:
		target = &record.ComplianceRiskAnalysis{}
	case record.OutcomeAndFollowup:
		target = &record.OutcomeFollowupAnalysis{}
	}

	if err := json.Unmarshal(b, target); err != nil {
		return nil, &ValidationError{Facet: f, Violations: []Violation{{Message: err.Error()}}}
	}

	return target, nil
}

// CheckRecord validates every facet present on rec.
func CheckRecord(rec *record.CallRecord) error {
	for _, f := range record.Facets {
		v, ok := rec.Facet(f)
		if !ok {
			continue
		}

		b, err := json.Marshal(v)
		if err != nil {
			return err
		}

		var raw any
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}

		if err := Validate(f, raw); err != nil {
			return err
		}
	}

	return nil
}

func schemaFor(f record.Facet) (*jsonschema.Schema, error) {
	compileOnce.Do(compile)

	s, ok := compiled[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", record.ErrUnknownFacet, f)
	}

	return s, nil
}

func compile() {
	compiled = make(map[record.Facet]*jsonschema.Schema, len(record.Facets))

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true

	for _, f := range record.Facets {
		src, err := Source(f)
		if err != nil {
			detail := "failed to read facet schema"
			slog.ErrorContext(context.Background(), detail, "facet", f, "error", err)
			panic(detail)
		}

		url := fmt.Sprintf("https://calls.schemas.local/%s.schema.json", f)
		if err := c.AddResource(url, strings.NewReader(src)); err != nil {
			detail := "failed to load facet schema"
			slog.ErrorContext(context.Background(), detail, "facet", f, "error", err)
			panic(detail)
		}

		s, err := c.Compile(url)
		if err != nil {
			detail := "failed to compile facet schema"
			slog.ErrorContext(context.Background(), detail, "facet", f, "error", err)
			panic(detail)
		}

		compiled[f] = s
	}
}

func flatten(ve *jsonschema.ValidationError) []Violation {
	var out []Violation

	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, Violation{Path: e.InstanceLocation, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})

	return out
}
