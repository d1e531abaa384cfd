package generator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/w-h-a/calls/generator"
)

func TestReplyText(t *testing.T) {
	text, ok := generator.Reply{Parts: []generator.Part{
		{Type: generator.PartText, Text: `{"a":`},
		{Type: generator.PartToolCall, Text: "lookup"},
		{Type: generator.PartText, Text: `1}`},
	}}.Text()
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, text)

	_, ok = generator.Reply{Parts: []generator.Part{{Type: generator.PartRefusal, Text: "no"}}}.Text()
	assert.False(t, ok)

	_, ok = generator.Reply{}.Text()
	assert.False(t, ok)

	text, ok = generator.TextReply("").Text()
	assert.True(t, ok)
	assert.Empty(t, text)
}
