package classifier

import "fmt"

// Mode controls how aggressively the expensive LLM tier is used
type Mode string

const (
	// ModeFast skips the LLM tier entirely
	ModeFast Mode = "fast"

	// ModeBalanced routes a strategically sampled subset to the LLM tier
	ModeBalanced Mode = "balanced"

	// ModePrecise routes every record to the LLM tier
	ModePrecise Mode = "precise"
)

// ParseMode validates a mode string
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFast, ModeBalanced, ModePrecise:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
}

// Record is one unit of work: a stable position in the input collection, the
// text to classify, and any pass-through fields from the source. The pipeline
// never mutates records; it returns an enriched copy.
type Record struct {
	Index  int
	Text   string
	Fields map[string]string
}

// NewRecords wraps raw texts into positioned records
func NewRecords(texts []string) []Record {
	records := make([]Record, len(texts))
	for i, text := range texts {
		records[i] = Record{Index: i, Text: text}
	}
	return records
}

// Label is the output of one or more tiers for a record. Fields are optional:
// the zero value means "not set by any tier yet". Later, more expensive tiers
// overwrite fields set by cheaper ones via Merge.
type Label struct {
	Sentiment  string  `json:"sentiment,omitempty"`
	Topic      string  `json:"topic,omitempty"`
	Urgency    string  `json:"urgency,omitempty"`
	IsClaim    *bool   `json:"is_claim,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Source names the tier that last contributed to this label
	Source string `json:"source,omitempty"`
}

// Sentiment values assigned by the model and LLM tiers
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Urgency values assigned by the rule and LLM tiers
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// Merge returns a copy of l with every set field of other overwriting the
// corresponding field of l. Unset fields of other leave l untouched.
func (l Label) Merge(other Label) Label {
	out := l
	if other.Sentiment != "" {
		out.Sentiment = other.Sentiment
	}
	if other.Topic != "" {
		out.Topic = other.Topic
	}
	if other.Urgency != "" {
		out.Urgency = other.Urgency
	}
	if other.IsClaim != nil {
		out.IsClaim = other.IsClaim
	}
	if other.Confidence != 0 {
		out.Confidence = other.Confidence
	}
	if other.Source != "" {
		out.Source = other.Source
	}
	return out
}

// IsZero reports whether no tier has populated any field
func (l Label) IsZero() bool {
	return l.Sentiment == "" && l.Topic == "" && l.Urgency == "" &&
		l.IsClaim == nil && l.Confidence == 0 && l.Source == ""
}

// LabeledRecord pairs a record with its final merged label
type LabeledRecord struct {
	Record
	Label Label
}

// BoolPtr is a convenience for building Label literals
func BoolPtr(b bool) *bool {
	return &b
}
