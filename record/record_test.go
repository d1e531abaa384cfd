package record_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/calls/record"
)

func ptr[T any](v T) *T { return &v }

func fullRecord() *record.CallRecord {
	start := time.Date(2024, 11, 19, 10, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Minute)
	due := record.NewDate(2024, 11, 22)

	rec := record.New(record.Metadata{
		CallID:          "conversation_1732041234",
		ClientID:        "client_123",
		AudioRef:        "recordings/conversation.wav",
		CallStartTime:   &start,
		CallEndTime:     &end,
		DurationSeconds: ptr(180.0),
		AgentName:       ptr("amira"),
		ExtraMetadata:   map[string]any{"queue": "billing", "size_bytes": 2048.0},
	}, "Hello, I'd like to reschedule my appointment.")

	rec.Sentiment = &record.SentimentAnalysis{
		Overall:     record.SentimentNeutral,
		Score:       ptr(0.1),
		EmotionTags: []string{"calm"},
		SentimentTimeline: []record.SentimentSegment{
			{SegmentLabel: "intro", Sentiment: record.SentimentNeutral, StartSecond: ptr(0.0)},
		},
	}
	rec.IntentAndTopics = &record.IntentTopicsAnalysis{
		PrimaryIntent:    ptr("reschedule_appointment"),
		SecondaryIntents: []string{},
		Topics:           []string{"scheduling"},
		KeyPhrases:       []string{"reschedule my appointment"},
		IntentConfidence: ptr(0.9),
	}
	rec.CallQuality = &record.CallQualityAnalysis{
		OverallQualityScore: ptr(82),
		Scores:              record.CallQualityScores{Greeting: ptr(90)},
		Strengths:           []string{"polite"},
		Improvements:        []string{"confirm the new slot"},
	}
	rec.ComplianceAndRisk = &record.ComplianceRiskAnalysis{
		RequiredPhrasesPresent:   []string{},
		MissingRequiredPhrases:   []string{"your call is being recorded"},
		ForbiddenPhrasesDetected: []string{},
		PIIDetected:              []record.PIIRedaction{{Type: "phone_number", MaskedValue: ptr("+9715XXXXXXX")}},
		RiskLevel:                record.RiskMedium,
	}
	rec.OutcomeAndFollowup = &record.OutcomeFollowupAnalysis{
		ResolutionStatus: record.Resolved,
		FinalOutcome:     ptr("appointment_rescheduled"),
		FollowupActions: []record.FollowupAction{
			{Description: "Send SMS confirmation", Owner: ptr("agent"), DueDate: &due},
		},
	}
	rec.CustomMetrics = &record.CustomMetrics{AppointmentRescheduled: ptr(true), Extra: map[string]any{}}
	rec.RawOracleOutputs = map[string]any{
		"sentiment": map[string]any{"overall": "neutral", "score": 0.1},
	}

	return rec
}

func TestCallRecord_RoundTrip(t *testing.T) {
	rec := fullRecord()

	data, err := json.MarshalIndent(rec, "", "  ")
	require.NoError(t, err)

	var decoded record.CallRecord
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, *rec, decoded)
}

func TestCallRecord_MinimalRoundTrip(t *testing.T) {
	rec := record.New(record.Metadata{CallID: "a", ClientID: "c", AudioRef: "a.wav"}, "text")

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded record.CallRecord
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, *rec, decoded)
	assert.Nil(t, decoded.Sentiment)
	assert.False(t, decoded.HasFacet(record.Sentiment))
}

func TestCallRecord_UnknownFieldsSurvive(t *testing.T) {
	input := `{
		"metadata": {"call_id": "x", "client_id": "c", "audio_ref": "x.wav", "extra_metadata": {}, "audio_file": "legacy.wav", "queue": "billing"},
		"transcript": "hi",
		"reviewer": {"name": "ops", "flags": [1, 2]},
		"custom_metrics": {"refund_requested": true, "extra": {}, "nps": 9},
		"raw_oracle_outputs": {}
	}`

	var rec record.CallRecord
	require.NoError(t, json.Unmarshal([]byte(input), &rec))
	assert.Equal(t, "x.wav", rec.Metadata.AudioRef)
	require.NotNil(t, rec.CustomMetrics)
	assert.True(t, *rec.CustomMetrics.RefundRequested)

	out, err := json.Marshal(rec)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(out, &generic))

	assert.Equal(t, map[string]any{"name": "ops", "flags": []any{1.0, 2.0}}, generic["reviewer"])
	assert.Equal(t, "hi", generic["transcript"])

	metadata := generic["metadata"].(map[string]any)
	assert.Equal(t, "legacy.wav", metadata["audio_file"])
	assert.Equal(t, "billing", metadata["queue"])
	assert.Equal(t, "x", metadata["call_id"])

	metrics := generic["custom_metrics"].(map[string]any)
	assert.Equal(t, 9.0, metrics["nps"])
	assert.Equal(t, true, metrics["refund_requested"])

	var again record.CallRecord
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, rec, again)

	rec.Transcript = "edited"
	edited, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(edited), `"audio_file":"legacy.wav"`)
	assert.Contains(t, string(edited), `"nps":9`)
}

func TestCallRecord_UnknownFieldsKeepFieldOrder(t *testing.T) {
	input := `{"metadata":{"call_id":"x","zone":"eu","agent":"a"},"transcript":"hi","aardvark":1,"raw_oracle_outputs":{}}`

	var rec record.CallRecord
	require.NoError(t, json.Unmarshal([]byte(input), &rec))

	out, err := json.Marshal(rec)
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, `{"metadata":{"call_id":"x",`), s)
	assert.Less(t, strings.Index(s, `"raw_oracle_outputs"`), strings.Index(s, `"aardvark"`))
	assert.Less(t, strings.Index(s, `"extra_metadata"`), strings.Index(s, `"agent"`))
	assert.Less(t, strings.Index(s, `"agent"`), strings.Index(s, `"zone"`))
}

func TestCallRecord_SetFacet(t *testing.T) {
	rec := record.New(record.Metadata{CallID: "a"}, "text")

	raw := map[string]any{"overall": "positive"}
	require.NoError(t, rec.SetFacet(&record.SentimentAnalysis{Overall: record.SentimentPositive}, raw))

	v, ok := rec.Facet(record.Sentiment)
	require.True(t, ok)
	assert.Equal(t, record.Sentiment, v.Facet())
	assert.Equal(t, raw, rec.RawOracleOutputs["sentiment"])

	err := rec.SetFacet(&record.SentimentAnalysis{Overall: record.SentimentNegative}, map[string]any{})
	require.ErrorIs(t, err, record.ErrFacetPresent)
	assert.Equal(t, record.SentimentPositive, rec.Sentiment.Overall)
	assert.Equal(t, raw, rec.RawOracleOutputs["sentiment"])

	require.ErrorIs(t, rec.SetFacet(nil, nil), record.ErrFacetMissing)
	require.ErrorIs(t, rec.SetFacet((*record.CallQualityAnalysis)(nil), nil), record.ErrFacetMissing)
	assert.False(t, rec.HasFacet(record.CallQuality))
	_, present := rec.RawOracleOutputs["call_quality"]
	assert.False(t, present)
}

func TestParseFacet(t *testing.T) {
	f, err := record.ParseFacet(" Compliance_And_Risk ")
	require.NoError(t, err)
	assert.Equal(t, record.ComplianceAndRisk, f)

	_, err = record.ParseFacet("mood")
	require.ErrorIs(t, err, record.ErrUnknownFacet)
}

func TestDate(t *testing.T) {
	var d record.Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-02-29"`), &d))
	assert.Equal(t, "2024-02-29", d.String())

	require.Error(t, json.Unmarshal([]byte(`"2023-02-29"`), &d))
	require.Error(t, json.Unmarshal([]byte(`"next week"`), &d))
}
