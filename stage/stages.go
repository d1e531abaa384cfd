package stage

import (
	"fmt"

	"github.com/w-h-a/calls/generator"
	"github.com/w-h-a/calls/record"
)

var sentimentDefinition = Definition{
	Facet:     record.Sentiment,
	Directive: "SENTIMENT AND EMOTION ANALYSIS",
	Fields: `
- overall: one of "positive", "neutral", or "negative"
- score: a number between -1.0 and 1.0, or null
- emotion_tags: an array of strings
- sentiment_timeline: an array (possibly empty) of objects, each with:
    - segment_label: string
    - start_second: number or null
    - end_second: number or null
    - sentiment: one of "positive", "neutral", or "negative"
    - notes: string or null
- notes: string or null`,
	Guidelines: `
- "overall" reflects the entire call from the customer's perspective.
- "score": use approximately -1.0 (very negative) to +1.0 (very positive).
- "emotion_tags": 1-5 high-level emotions like "frustration", "confusion", "relief", "satisfaction", etc.
- "sentiment_timeline": 0-5 coarse segments that show sentiment changes. If you cannot infer timing, use null for start_second and end_second but still describe logical segments (e.g. "intro", "problem_explained", "resolution").
- "notes": 1-3 sentences summarizing the emotional journey.`,
}

var intentTopicsDefinition = Definition{
	Facet:     record.IntentAndTopics,
	Directive: "INTENT AND TOPICS ANALYSIS",
	Fields: `
- primary_intent: string or null
- secondary_intents: array of strings
- topics: array of strings
- key_phrases: array of strings
- intent_confidence: number between 0.0 and 1.0, or null
- notes: string or null`,
	Guidelines: `
- "primary_intent": the main reason for the call, e.g. "book_appointment", "reschedule_appointment", "billing_question", "complaint", "technical_issue", "general_inquiry".
- "secondary_intents": other relevant intents, if any.
- "topics": broader themes, e.g. "scheduling", "pricing", "refunds", "product_information", "support", "onboarding".
- "key_phrases": 3-10 short important phrases the customer or agent said that relate to the main intents (paraphrasing is OK).
- "intent_confidence": between 0.0 and 1.0 based on how clear the primary intent is.
- "notes": 1-3 sentences explaining your reasoning if the intent is ambiguous.`,
}

var qualityDefinition = Definition{
	Facet:     record.CallQuality,
	Directive: "CALL QUALITY AND AGENT PERFORMANCE ANALYSIS",
	Fields: `
- overall_quality_score: integer between 0 and 100, or null
- scores: an object with the following optional integer fields (0-100 or null):
    - greeting
    - listening_and_empathy
    - clarity_of_explanations
    - professionalism
    - script_adherence
- strengths: array of strings
- improvements: array of strings
- notes: string or null`,
	Guidelines: `
- All scores should be between 0 and 100 where:
  - 0-39: poor
  - 40-59: fair
  - 60-79: good
  - 80-100: excellent
- "overall_quality_score" is NOT a simple average; adjust based on your judgment of the whole call.
- "strengths": 2-5 concrete points about what the agent did well (behavior-level, not generic praise).
- "improvements": 2-5 specific, actionable suggestions (what to do differently next time).
- "notes": optional narrative summary of quality (1-3 sentences).`,
}

var complianceDefinition = Definition{
	Facet:     record.ComplianceAndRisk,
	Directive: "COMPLIANCE AND RISK ANALYSIS",
	Fields: `
- required_phrases_present: array of strings
- missing_required_phrases: array of strings
- forbidden_phrases_detected: array of strings
- pii_detected: array of objects, each with:
    - type: string (e.g. "phone_number", "email", "card_number", "address")
    - original_value: string or null
    - masked_value: string or null
- risk_level: one of "low", "medium", "high", "critical"
- notes: string or null`,
	Guidelines: `
- For required phrases:
  - If a phrase or a clear paraphrase appears, include it in required_phrases_present.
  - If a phrase does not appear, include it in missing_required_phrases.
- For forbidden phrases:
  - If a phrase or a clear paraphrase appears, include it in forbidden_phrases_detected.
- For PII:
  - Detect things like phone numbers, email addresses, payment card numbers, and physical addresses.
  - "type": label such as "phone_number", "email", "card_number", "address".
  - "masked_value": use a partially hidden version, e.g. "+9715XXXXXXX".
  - "original_value": can be null if you want to avoid storing the real value.
- risk_level:
  - "low": no significant issues.
  - "medium": minor missing required phrases or light PII risk.
  - "high": clear missing required phrases or use of forbidden phrases or sensitive PII.
  - "critical": severe compliance breach or potential legal exposure.
- notes: 1-3 sentences explaining why you chose that risk level.`,
}

var outcomeDefinition = Definition{
	Facet:     record.OutcomeAndFollowup,
	Directive: "OUTCOME AND FOLLOW-UP ANALYSIS",
	Fields: `
- resolution_status: one of "resolved", "partially_resolved", "unresolved"
- final_outcome: string or null
- followup_actions: array of objects, each with:
    - description: string
    - owner: string or null (e.g. "agent", "customer", "backoffice", "finance_team")
    - due_date: string in "YYYY-MM-DD" format or null
- escalation_required: true or false
- escalation_reason: string or null
- notes: string or null`,
	Guidelines: `
- "resolution_status":
  - "resolved": the customer's main issue was clearly addressed.
  - "partially_resolved": some progress but still pending.
  - "unresolved": the main issue remains unaddressed.
- "final_outcome": a short label such as "appointment_booked", "appointment_rescheduled", "appointment_cancelled", "information_provided", "refund_approved", "refund_declined", "issue_escalated", "no_clear_outcome", etc.
- "followup_actions": 0-5 items with specific actions (e.g. "Send SMS confirmation for rescheduled appointment").
  - "owner": who should do it (e.g. "agent", "customer", "backoffice").
  - If no clear due date, set due_date to null.
- "escalation_required": true if the case clearly needs a more senior person/department.
- "escalation_reason": short explanation if escalation_required is true.
- "notes": 1-3 sentences summarizing the outcome and next steps in natural language.`,
}

func Sentiment(gen generator.Generator) Stage {
	return New(sentimentDefinition, gen)
}

func IntentTopics(gen generator.Generator) Stage {
	return New(intentTopicsDefinition, gen)
}

func Quality(gen generator.Generator) Stage {
	return New(qualityDefinition, gen)
}

// Compliance checks the transcript against the client's phrase rules. The
// oracle reports phrases verbatim from these lists.
func Compliance(gen generator.Generator, required, forbidden []string) Stage {
	if required == nil {
		required = []string{}
	}
	if forbidden == nil {
		forbidden = []string{}
	}

	def := complianceDefinition
	def.Params = []Param{
		{
			Name:        "REQUIRED_PHRASES",
			Instruction: "these should be said at least once during the call. Use the exact phrase from the list when reporting them, even if the call used a close paraphrase.",
			Value:       required,
		},
		{
			Name:        "FORBIDDEN_PHRASES",
			Instruction: "these should NOT be said. Use the exact phrase from the list when reporting them, even if the call used a close paraphrase.",
			Value:       forbidden,
		},
	}

	return New(def, gen)
}

func Outcome(gen generator.Generator) Stage {
	return New(outcomeDefinition, gen)
}

// All returns the five stages in pipeline order.
func All(gen generator.Generator, opts ...Option) []Stage {
	options := NewOptions(opts...)

	return []Stage{
		Sentiment(gen),
		IntentTopics(gen),
		Quality(gen),
		Compliance(gen, options.RequiredPhrases, options.ForbiddenPhrases),
		Outcome(gen),
	}
}

// ForFacet returns the stage that computes f.
func ForFacet(f record.Facet, gen generator.Generator, opts ...Option) (Stage, error) {
	for _, s := range All(gen, opts...) {
		if s.Facet() == f {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", record.ErrUnknownFacet, f)
}
