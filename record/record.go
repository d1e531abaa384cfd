package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

var (
	ErrUnknownFacet = errors.New("unknown facet")
	ErrFacetPresent = errors.New("facet already present")
	ErrFacetMissing = errors.New("facet value is required")
)

type Metadata struct {
	CallID          string         `json:"call_id"`
	ClientID        string         `json:"client_id"`
	AudioRef        string         `json:"audio_ref"`
	CallStartTime   *time.Time     `json:"call_start_time"`
	CallEndTime     *time.Time     `json:"call_end_time"`
	DurationSeconds *float64       `json:"duration_seconds"`
	AgentName       *string        `json:"agent_name"`
	CustomerPhone   *string        `json:"customer_phone"`
	ExtraMetadata   map[string]any `json:"extra_metadata"`

	unknown map[string]json.RawMessage
}

var metadataFields = []string{
	"call_id",
	"client_id",
	"audio_ref",
	"call_start_time",
	"call_end_time",
	"duration_seconds",
	"agent_name",
	"customer_phone",
	"extra_metadata",
}

type CustomMetrics struct {
	AppointmentBooked      *bool          `json:"appointment_booked"`
	AppointmentRescheduled *bool          `json:"appointment_rescheduled"`
	RefundRequested        *bool          `json:"refund_requested"`
	UpsellAttempted        *bool          `json:"upsell_attempted"`
	UpsellSuccessful       *bool          `json:"upsell_successful"`
	Extra                  map[string]any `json:"extra"`

	unknown map[string]json.RawMessage
}

var customMetricsFields = []string{
	"appointment_booked",
	"appointment_rescheduled",
	"refund_requested",
	"upsell_attempted",
	"upsell_successful",
	"extra",
}

// CallRecord is one call: immutable metadata and transcript plus the facets
// computed for it so far.
type CallRecord struct {
	Metadata           Metadata                 `json:"metadata"`
	Transcript         string                   `json:"transcript"`
	Sentiment          *SentimentAnalysis       `json:"sentiment"`
	IntentAndTopics    *IntentTopicsAnalysis    `json:"intent_and_topics"`
	CallQuality        *CallQualityAnalysis     `json:"call_quality"`
	ComplianceAndRisk  *ComplianceRiskAnalysis  `json:"compliance_and_risk"`
	OutcomeAndFollowup *OutcomeFollowupAnalysis `json:"outcome_and_followup"`
	CustomMetrics      *CustomMetrics           `json:"custom_metrics"`
	RawOracleOutputs   map[string]any           `json:"raw_oracle_outputs"`

	// top-level keys this version does not know about, kept for round trips
	extra map[string]json.RawMessage
}

var knownFields = []string{
	"metadata",
	"transcript",
	"sentiment",
	"intent_and_topics",
	"call_quality",
	"compliance_and_risk",
	"outcome_and_followup",
	"custom_metrics",
	"raw_oracle_outputs",
}

func (r *CallRecord) ID() string {
	return r.Metadata.CallID
}

// Facet returns the value of the named facet and whether it has been computed.
func (r *CallRecord) Facet(f Facet) (FacetValue, bool) {
	switch f {
	case Sentiment:
		if r.Sentiment != nil {
			return r.Sentiment, true
		}
	case IntentAndTopics:
		if r.IntentAndTopics != nil {
			return r.IntentAndTopics, true
		}
	case CallQuality:
		if r.CallQuality != nil {
			return r.CallQuality, true
		}
	case ComplianceAndRisk:
		if r.ComplianceAndRisk != nil {
			return r.ComplianceAndRisk, true
		}
	case OutcomeAndFollowup:
		if r.OutcomeAndFollowup != nil {
			return r.OutcomeAndFollowup, true
		}
	}
	return nil, false
}

func (r *CallRecord) HasFacet(f Facet) bool {
	_, ok := r.Facet(f)
	return ok
}

// SetFacet assigns a computed facet together with the raw oracle payload it
// was decoded from. A facet that is already present is never replaced.
func (r *CallRecord) SetFacet(v FacetValue, raw map[string]any) error {
	if v == nil {
		return ErrFacetMissing
	}

	f := v.Facet()
	if r.HasFacet(f) {
		return fmt.Errorf("%w: %s on %s", ErrFacetPresent, f, r.ID())
	}

	switch value := v.(type) {
	case *SentimentAnalysis:
		if value == nil {
			return ErrFacetMissing
		}
		r.Sentiment = value
	case *IntentTopicsAnalysis:
		if value == nil {
			return ErrFacetMissing
		}
		r.IntentAndTopics = value
	case *CallQualityAnalysis:
		if value == nil {
			return ErrFacetMissing
		}
		r.CallQuality = value
	case *ComplianceRiskAnalysis:
		if value == nil {
			return ErrFacetMissing
		}
		r.ComplianceAndRisk = value
	case *OutcomeFollowupAnalysis:
		if value == nil {
			return ErrFacetMissing
		}
		r.OutcomeAndFollowup = value
	default:
		return fmt.Errorf("%w: %T", ErrUnknownFacet, v)
	}

	if r.RawOracleOutputs == nil {
		r.RawOracleOutputs = map[string]any{}
	}
	r.RawOracleOutputs[f.String()] = raw

	return nil
}

type (
	callRecordAlias    CallRecord
	metadataAlias      Metadata
	customMetricsAlias CustomMetrics
)

func (r CallRecord) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(callRecordAlias(r))
	if err != nil {
		return nil, err
	}
	return appendUnknown(base, r.extra)
}

func (r *CallRecord) UnmarshalJSON(b []byte) error {
	var alias callRecordAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return err
	}

	extra, err := splitUnknown(b, knownFields)
	if err != nil {
		return err
	}

	*r = CallRecord(alias)
	r.extra = extra

	return nil
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(metadataAlias(m))
	if err != nil {
		return nil, err
	}
	return appendUnknown(base, m.unknown)
}

func (m *Metadata) UnmarshalJSON(b []byte) error {
	var alias metadataAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return err
	}

	unknown, err := splitUnknown(b, metadataFields)
	if err != nil {
		return err
	}

	*m = Metadata(alias)
	m.unknown = unknown

	return nil
}

func (c CustomMetrics) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(customMetricsAlias(c))
	if err != nil {
		return nil, err
	}
	return appendUnknown(base, c.unknown)
}

func (c *CustomMetrics) UnmarshalJSON(b []byte) error {
	var alias customMetricsAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return err
	}

	unknown, err := splitUnknown(b, customMetricsFields)
	if err != nil {
		return err
	}

	*c = CustomMetrics(alias)
	c.unknown = unknown

	return nil
}

// splitUnknown returns the compacted members of the object b whose keys are
// not in known, or nil when there are none.
func splitUnknown(b []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}

	for _, k := range known {
		delete(all, k)
	}

	if len(all) == 0 {
		return nil, nil
	}

	unknown := make(map[string]json.RawMessage, len(all))
	for k, v := range all {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, err
		}
		unknown[k] = json.RawMessage(buf.Bytes())
	}

	return unknown, nil
}

// appendUnknown writes the unknown members after the struct's own fields,
// sorted by key, so the declared field order is kept.
func appendUnknown(base []byte, unknown map[string]json.RawMessage) ([]byte, error) {
	if len(unknown) == 0 {
		return base, nil
	}

	base = bytes.TrimSpace(base)
	if len(base) < 2 || base[len(base)-1] != '}' {
		return nil, fmt.Errorf("cannot extend non-object JSON %q", base)
	}

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	empty := len(bytes.TrimSpace(base[1:len(base)-1])) == 0

	for _, k := range slices.Sorted(maps.Keys(unknown)) {
		if !empty {
			buf.WriteByte(',')
		}
		empty = false

		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(unknown[k])
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func New(metadata Metadata, transcript string) *CallRecord {
	return &CallRecord{
		Metadata:         metadata,
		Transcript:       transcript,
		RawOracleOutputs: map[string]any{},
	}
}
