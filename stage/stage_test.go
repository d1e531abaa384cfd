package stage_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/calls/generator"
	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/schema"
	"github.com/w-h-a/calls/stage"
)

type fakeGenerator struct {
	reply    generator.Reply
	err      error
	requests []generator.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req generator.Request) (generator.Reply, error) {
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func newCall() *record.CallRecord {
	return record.New(record.Metadata{
		CallID:        "conversation_1732041234",
		ClientID:      "client_123",
		AudioRef:      "recordings/conversation.wav",
		ExtraMetadata: map[string]any{},
	}, "Hello, I'd like to reschedule my appointment.")
}

func TestSentiment(t *testing.T) {
	gen := &fakeGenerator{reply: generator.TextReply(`{"overall":"neutral","score":0.1,"emotion_tags":["calm"],"sentiment_timeline":[],"notes":null}`)}
	rec := newCall()

	value, raw, err := stage.Sentiment(gen).Run(context.Background(), rec)
	require.NoError(t, err)

	s, ok := value.(*record.SentimentAnalysis)
	require.True(t, ok)
	assert.Equal(t, record.SentimentNeutral, s.Overall)
	require.NotNil(t, s.Score)
	assert.InDelta(t, 0.1, *s.Score, 1e-9)
	assert.Equal(t, []string{"calm"}, s.EmotionTags)
	assert.Empty(t, s.SentimentTimeline)
	assert.Nil(t, s.Notes)

	assert.Equal(t, map[string]any{
		"overall":            "neutral",
		"score":              0.1,
		"emotion_tags":       []any{"calm"},
		"sentiment_timeline": []any{},
		"notes":              nil,
	}, raw)

	assert.Nil(t, rec.Sentiment, "stages never mutate the record")

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, stage.SystemDirective, req.System)
	assert.True(t, req.JSON)
	assert.Contains(t, req.Prompt, "SENTIMENT AND EMOTION ANALYSIS")
	assert.Contains(t, req.Prompt, `"call_id":"conversation_1732041234"`)
	assert.Contains(t, req.Prompt, `"""Hello, I'd like to reschedule my appointment."""`)
}

func TestCompliance_InvalidRiskLevel(t *testing.T) {
	gen := &fakeGenerator{reply: generator.TextReply(`{
		"required_phrases_present": [],
		"missing_required_phrases": ["your call is being recorded"],
		"forbidden_phrases_detected": [],
		"pii_detected": [],
		"risk_level": "severe"
	}`)}

	s := stage.Compliance(gen, []string{"your call is being recorded"}, nil)
	assert.Equal(t, record.ComplianceAndRisk, s.Facet())

	value, raw, err := s.Run(context.Background(), newCall())
	require.ErrorIs(t, err, stage.ErrOracleSchema)
	assert.Nil(t, value)
	assert.Nil(t, raw)
	assert.Equal(t, stage.KindSchema, stage.KindOf(err))

	var ve *schema.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "/risk_level", ve.Violations[0].Path)

	var se *stage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, record.ComplianceAndRisk, se.Facet)

	prompt := gen.requests[0].Prompt
	assert.Contains(t, prompt, `REQUIRED_PHRASES (JSON): ["your call is being recorded"]`)
	assert.Contains(t, prompt, `FORBIDDEN_PHRASES (JSON): []`)
}

func TestCompliance_Valid(t *testing.T) {
	gen := &fakeGenerator{reply: generator.TextReply(`{
		"required_phrases_present": [],
		"missing_required_phrases": ["your call is being recorded"],
		"forbidden_phrases_detected": [],
		"pii_detected": [{"type": "phone_number", "original_value": null, "masked_value": "+9715XXXXXXX"}],
		"risk_level": "high",
		"notes": "Recording disclosure missing."
	}`)}

	value, _, err := stage.Compliance(gen, []string{"your call is being recorded"}, []string{"guaranteed refund"}).Run(context.Background(), newCall())
	require.NoError(t, err)

	c := value.(*record.ComplianceRiskAnalysis)
	assert.Equal(t, record.RiskHigh, c.RiskLevel)
	assert.Equal(t, []string{"your call is being recorded"}, c.MissingRequiredPhrases)
	require.Len(t, c.PIIDetected, 1)
	assert.Equal(t, "phone_number", c.PIIDetected[0].Type)
}

func TestRun_Failures(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		gen  *fakeGenerator
		want error
		kind string
	}{
		{
			name: "transport",
			gen:  &fakeGenerator{err: cause},
			want: stage.ErrOracleTransport,
			kind: stage.KindTransport,
		},
		{
			name: "fenced json",
			gen:  &fakeGenerator{reply: generator.TextReply("```json\n{\"overall\":\"neutral\"}\n```")},
			want: stage.ErrOracleFormat,
			kind: stage.KindFormat,
		},
		{
			name: "trailing comma",
			gen:  &fakeGenerator{reply: generator.TextReply(`{"overall":"neutral",}`)},
			want: stage.ErrOracleFormat,
			kind: stage.KindFormat,
		},
		{
			name: "tool call only",
			gen:  &fakeGenerator{reply: generator.Reply{Parts: []generator.Part{{Type: generator.PartToolCall, Text: "lookup"}}}},
			want: stage.ErrOracleType,
			kind: stage.KindType,
		},
		{
			name: "empty text",
			gen:  &fakeGenerator{reply: generator.TextReply("")},
			want: stage.ErrOracleFormat,
			kind: stage.KindFormat,
		},
		{
			name: "empty reply",
			gen:  &fakeGenerator{},
			want: stage.ErrOracleType,
			kind: stage.KindType,
		},
		{
			name: "json array",
			gen:  &fakeGenerator{reply: generator.TextReply(`["neutral"]`)},
			want: stage.ErrOracleSchema,
			kind: stage.KindSchema,
		},
		{
			name: "missing required key",
			gen:  &fakeGenerator{reply: generator.TextReply(`{"overall":"neutral","emotion_tags":[]}`)},
			want: stage.ErrOracleSchema,
			kind: stage.KindSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, raw, err := stage.Sentiment(tt.gen).Run(context.Background(), newCall())
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, value)
			assert.Nil(t, raw)
			assert.Equal(t, tt.kind, stage.KindOf(err))
		})
	}

	_, _, err := stage.Sentiment(&fakeGenerator{err: cause}).Run(context.Background(), newCall())
	assert.ErrorIs(t, err, cause)
}

func TestAll(t *testing.T) {
	stages := stage.All(&fakeGenerator{})
	require.Len(t, stages, len(record.Facets))
	for i, s := range stages {
		assert.Equal(t, record.Facets[i], s.Facet())
	}
}

func TestForFacet(t *testing.T) {
	s, err := stage.ForFacet(record.CallQuality, &fakeGenerator{})
	require.NoError(t, err)
	assert.Equal(t, record.CallQuality, s.Facet())

	_, err = stage.ForFacet(record.Facet("mood"), &fakeGenerator{})
	require.ErrorIs(t, err, record.ErrUnknownFacet)
}

func TestPrompt_Deterministic(t *testing.T) {
	gen := &fakeGenerator{reply: generator.TextReply(`{}`)}
	s := stage.Compliance(gen, []string{"b", "a"}, []string{"x"})

	s.Run(context.Background(), newCall())
	s.Run(context.Background(), newCall())

	require.Len(t, gen.requests, 2)
	assert.Equal(t, gen.requests[0].Prompt, gen.requests[1].Prompt)
	assert.Contains(t, gen.requests[0].Prompt, `REQUIRED_PHRASES (JSON): ["b","a"]`)
	assert.True(t, strings.HasSuffix(gen.requests[0].Prompt, `"""`))
}
