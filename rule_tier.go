package classifier

import (
	"context"
	"regexp"
	"strings"
)

// topicPattern maps a compiled keyword pattern to a topic
type topicPattern struct {
	topic string
	regex *regexp.Regexp
}

// RuleTier labels records with deterministic keyword and pattern rules. It is
// a pure function of the text: no I/O, no state, near-zero latency. It sets
// the claim flag, a coarse topic and an urgency heuristic.
type RuleTier struct {
	claimRegex   *regexp.Regexp
	urgentRegex  *regexp.Regexp
	topicRules   []topicPattern
	defaultTopic string
}

const ruleTierVersion = "rules-v1"

// NewRuleTier creates the rule tier with the built-in rule set
func NewRuleTier() *RuleTier {
	return &RuleTier{
		claimRegex: regexp.MustCompile(`(?i)\b(refund|chargeback|compensat\w*|lawsuit|sue|lawyer|attorney|defective|false advertis\w*|scam|fraud)\b`),
		urgentRegex: regexp.MustCompile(`(?i)\b(urgent|asap|immediately|right now|emergency|unacceptable)\b|!{2,}`),
		topicRules: []topicPattern{
			{"billing", regexp.MustCompile(`(?i)\b(bill|billing|charge[ds]?|payment|invoice|subscription|price|refund)\b`)},
			{"outage", regexp.MustCompile(`(?i)\b(down|outage|offline|crash\w*|error|not working|can'?t log ?in|broken)\b`)},
			{"delivery", regexp.MustCompile(`(?i)\b(deliver\w*|shipping|shipment|package|arrive[ds]?|late|lost|tracking)\b`)},
			{"quality", regexp.MustCompile(`(?i)\b(defective|damaged|poor quality|cheap|fell apart|stopped working)\b`)},
			{"support", regexp.MustCompile(`(?i)\b(support|agent|help|waiting|no response|on hold|ticket)\b`)},
		},
		defaultTopic: "general",
	}
}

// Name implements Tier
func (t *RuleTier) Name() string { return "rule" }

// Version implements Tier
func (t *RuleTier) Version() string { return ruleTierVersion }

// ClassifyBatch implements Tier
func (t *RuleTier) ClassifyBatch(ctx context.Context, texts []string) ([]Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels := make([]Label, len(texts))
	for i, text := range texts {
		labels[i] = t.classify(text)
	}
	return labels, nil
}

func (t *RuleTier) classify(text string) Label {
	isClaim := t.claimRegex.MatchString(text)

	topic := t.defaultTopic
	for _, rule := range t.topicRules {
		if rule.regex.MatchString(text) {
			topic = rule.topic
			break
		}
	}

	urgency := UrgencyLow
	switch {
	case t.urgentRegex.MatchString(text) || isClaim:
		urgency = UrgencyHigh
	case strings.Contains(text, "?") || strings.Contains(text, "!"):
		urgency = UrgencyMedium
	}

	return Label{
		Topic:   topic,
		Urgency: urgency,
		IsClaim: BoolPtr(isClaim),
		Source:  t.Name(),
	}
}

// Fallback implements Tier
func (t *RuleTier) Fallback() Label {
	return Label{
		Topic:   t.defaultTopic,
		Urgency: UrgencyLow,
		IsClaim: BoolPtr(false),
		Source:  t.Name(),
	}
}

var _ Tier = (*RuleTier)(nil)
