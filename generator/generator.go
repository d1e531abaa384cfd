package generator

import (
	"context"
	"strings"
)

const (
	PartText     = "text"
	PartToolCall = "tool_call"
	PartRefusal  = "refusal"
	PartBlob     = "blob"
)

// Generator is the text-understanding oracle: one synchronous request, one reply.
type Generator interface {
	Generate(ctx context.Context, req Request) (Reply, error)
}

type Request struct {
	System string
	Prompt string
	// JSON asks the provider to constrain the reply to a single JSON object
	// where it supports that.
	JSON bool
}

type Reply struct {
	Parts []Part
}

type Part struct {
	Type string
	Text string
}

// Text joins the textual parts of the reply. ok is false when the reply
// carried no textual content at all.
func (r Reply) Text() (text string, ok bool) {
	var b strings.Builder
	for _, p := range r.Parts {
		if p.Type != PartText {
			continue
		}
		ok = true
		b.WriteString(p.Text)
	}
	return b.String(), ok
}

func TextReply(text string) Reply {
	return Reply{Parts: []Part{{Type: PartText, Text: text}}}
}
