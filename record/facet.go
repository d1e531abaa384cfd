package record

import (
	"fmt"
	"strings"
)

type Facet string

const (
	Sentiment          Facet = "sentiment"
	IntentAndTopics    Facet = "intent_and_topics"
	CallQuality        Facet = "call_quality"
	ComplianceAndRisk  Facet = "compliance_and_risk"
	OutcomeAndFollowup Facet = "outcome_and_followup"
)

// Facets lists every facet in pipeline order.
var Facets = []Facet{
	Sentiment,
	IntentAndTopics,
	CallQuality,
	ComplianceAndRisk,
	OutcomeAndFollowup,
}

func (f Facet) String() string {
	return string(f)
}

func (f Facet) Valid() bool {
	for _, known := range Facets {
		if f == known {
			return true
		}
	}
	return false
}

func ParseFacet(s string) (Facet, error) {
	f := Facet(strings.TrimSpace(strings.ToLower(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFacet, s)
	}
	return f, nil
}

// FacetValue is implemented by the five typed analysis results.
type FacetValue interface {
	Facet() Facet
}

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type ResolutionStatus string

const (
	Resolved          ResolutionStatus = "resolved"
	PartiallyResolved ResolutionStatus = "partially_resolved"
	Unresolved        ResolutionStatus = "unresolved"
)

type SentimentSegment struct {
	SegmentLabel string         `json:"segment_label"`
	StartSecond  *float64       `json:"start_second"`
	EndSecond    *float64       `json:"end_second"`
	Sentiment    SentimentLabel `json:"sentiment"`
	Notes        *string        `json:"notes"`
}

type SentimentAnalysis struct {
	Overall           SentimentLabel     `json:"overall"`
	Score             *float64           `json:"score"`
	EmotionTags       []string           `json:"emotion_tags"`
	SentimentTimeline []SentimentSegment `json:"sentiment_timeline"`
	Notes             *string            `json:"notes"`
}

func (*SentimentAnalysis) Facet() Facet { return Sentiment }

type IntentTopicsAnalysis struct {
	PrimaryIntent    *string  `json:"primary_intent"`
	SecondaryIntents []string `json:"secondary_intents"`
	Topics           []string `json:"topics"`
	KeyPhrases       []string `json:"key_phrases"`
	IntentConfidence *float64 `json:"intent_confidence"`
	Notes            *string  `json:"notes"`
}

func (*IntentTopicsAnalysis) Facet() Facet { return IntentAndTopics }

type CallQualityScores struct {
	Greeting              *int `json:"greeting"`
	ListeningAndEmpathy   *int `json:"listening_and_empathy"`
	ClarityOfExplanations *int `json:"clarity_of_explanations"`
	Professionalism       *int `json:"professionalism"`
	ScriptAdherence       *int `json:"script_adherence"`
}

type CallQualityAnalysis struct {
	OverallQualityScore *int              `json:"overall_quality_score"`
	Scores              CallQualityScores `json:"scores"`
	Strengths           []string          `json:"strengths"`
	Improvements        []string          `json:"improvements"`
	Notes               *string           `json:"notes"`
}

func (*CallQualityAnalysis) Facet() Facet { return CallQuality }

type PIIRedaction struct {
	Type          string  `json:"type"`
	OriginalValue *string `json:"original_value"`
	MaskedValue   *string `json:"masked_value"`
}

type ComplianceRiskAnalysis struct {
	RequiredPhrasesPresent   []string       `json:"required_phrases_present"`
	MissingRequiredPhrases   []string       `json:"missing_required_phrases"`
	ForbiddenPhrasesDetected []string       `json:"forbidden_phrases_detected"`
	PIIDetected              []PIIRedaction `json:"pii_detected"`
	RiskLevel                RiskLevel      `json:"risk_level"`
	Notes                    *string        `json:"notes"`
}

func (*ComplianceRiskAnalysis) Facet() Facet { return ComplianceAndRisk }

type FollowupAction struct {
	Description string  `json:"description"`
	Owner       *string `json:"owner"`
	DueDate     *Date   `json:"due_date"`
}

type OutcomeFollowupAnalysis struct {
	ResolutionStatus   ResolutionStatus `json:"resolution_status"`
	FinalOutcome       *string          `json:"final_outcome"`
	FollowupActions    []FollowupAction `json:"followup_actions"`
	EscalationRequired bool             `json:"escalation_required"`
	EscalationReason   *string          `json:"escalation_reason"`
	Notes              *string          `json:"notes"`
}

func (*OutcomeFollowupAnalysis) Facet() Facet { return OutcomeAndFollowup }
