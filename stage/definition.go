package stage

import (
	"encoding/json"
	"strings"

	"github.com/w-h-a/calls/record"
)

// Param is an extra input rendered into the prompt as JSON.
type Param struct {
	Name        string
	Instruction string
	Value       any
}

// Definition is everything that distinguishes one stage from another.
type Definition struct {
	Facet      record.Facet
	Directive  string
	Fields     string
	Guidelines string
	Params     []Param
}

// Prompt renders the request for rec. The output depends only on the
// definition and the record's metadata and transcript.
func (d Definition) Prompt(rec *record.CallRecord) (string, error) {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString("You are performing ")
	b.WriteString(d.Directive)
	b.WriteString(" for a single customer call.\n\n")

	b.WriteString("You must respond with a SINGLE valid JSON object with exactly these fields:\n\n")
	b.WriteString(strings.TrimSpace(d.Fields))
	b.WriteString("\n\n")

	if len(d.Params) > 0 {
		b.WriteString("The client has the following compliance rules:\n\n")
		for _, p := range d.Params {
			value, err := json.Marshal(p.Value)
			if err != nil {
				return "", err
			}
			b.WriteString("- ")
			b.WriteString(p.Name)
			b.WriteString(": ")
			b.WriteString(p.Instruction)
			b.WriteString("\n  ")
			b.WriteString(p.Name)
			b.WriteString(" (JSON): ")
			b.Write(value)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("Guidelines:\n")
	b.WriteString(strings.TrimSpace(d.Guidelines))
	b.WriteString("\n\n")

	b.WriteString("Remember:\n")
	b.WriteString("- Do NOT add extra top-level fields.\n")
	b.WriteString("- Do NOT include explanations or markdown.\n")
	b.WriteString("- The output must be a single JSON object.\n\n")

	b.WriteString("Call metadata (JSON):\n")
	b.Write(metadata)
	b.WriteString("\n\n")

	b.WriteString("Transcript:\n\"\"\"")
	b.WriteString(rec.Transcript)
	b.WriteString("\"\"\"")

	return b.String(), nil
}
