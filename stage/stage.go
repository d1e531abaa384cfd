// Package stage turns one call record into one analysis facet by asking the
// oracle for a JSON object and validating it against the facet schema.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/w-h-a/calls/generator"
	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/schema"
)

// SystemDirective is sent with every oracle request.
const SystemDirective = `You are an AI assistant that analyzes customer support or sales calls.

CRITICAL INSTRUCTIONS:
- You ALWAYS respond with a single valid JSON object.
- Do NOT include any explanations, markdown, backticks, or surrounding text.
- Do NOT include trailing commas.
- If you are unsure about a value, use null or an empty list [] as appropriate.
- Follow exactly the field names, types, and allowed values described in the user message.`

type Stage interface {
	Facet() record.Facet
	// Run computes the facet for rec. It never mutates rec and never
	// retries; a failure is always a *Error.
	Run(ctx context.Context, rec *record.CallRecord) (record.FacetValue, map[string]any, error)
}

type executor struct {
	def Definition
	gen generator.Generator
}

func (x *executor) Facet() record.Facet {
	return x.def.Facet
}

func (x *executor) Run(ctx context.Context, rec *record.CallRecord) (record.FacetValue, map[string]any, error) {
	f := x.def.Facet

	prompt, err := x.def.Prompt(rec)
	if err != nil {
		return nil, nil, newError(f, KindTransport, fmt.Errorf("build prompt: %w", err))
	}

	reply, err := x.gen.Generate(ctx, generator.Request{
		System: SystemDirective,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return nil, nil, newError(f, KindTransport, err)
	}

	text, ok := reply.Text()
	if !ok {
		return nil, nil, newError(f, KindType, fmt.Errorf("reply parts: %s", partTypes(reply)))
	}

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, nil, newError(f, KindFormat, err)
	}

	value, err := schema.Decode(f, raw)
	if err != nil {
		return nil, nil, newError(f, KindSchema, err)
	}

	payload, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, newError(f, KindSchema, errors.New("payload is not an object"))
	}

	return value, payload, nil
}

func partTypes(reply generator.Reply) string {
	if len(reply.Parts) == 0 {
		return "none"
	}
	types := make([]string, 0, len(reply.Parts))
	for _, p := range reply.Parts {
		types = append(types, p.Type)
	}
	return strings.Join(types, ",")
}

// New builds the stage described by def on top of gen.
func New(def Definition, gen generator.Generator) Stage {
	return &executor{def: def, gen: gen}
}
