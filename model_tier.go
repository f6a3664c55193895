package classifier

import (
	"context"
	"math"
	"strings"
	"sync"
)

// ModelTier scores sentiment with a local weighted-lexicon model. The lexicon
// is loaded once, lazily, on the first batch and reused for the lifetime of
// the tier, so constructing the tier stays cheap for modes that never reach it.
type ModelTier struct {
	loadOnce sync.Once
	loadErr  error
	lexicon  map[string]float64
	negators map[string]struct{}
}

const modelTierVersion = "lexicon-v1"

// DefaultConfidence is assigned in place of a model score when a record never
// received one, so no record leaves the pipeline without a confidence value.
const DefaultConfidence = 0.5

// NewModelTier creates the sentiment model tier. The model itself is not
// loaded until the first call to ClassifyBatch.
func NewModelTier() *ModelTier {
	return &ModelTier{}
}

// Name implements Tier
func (t *ModelTier) Name() string { return "model" }

// Version implements Tier
func (t *ModelTier) Version() string { return modelTierVersion }

// ClassifyBatch implements Tier
func (t *ModelTier) ClassifyBatch(ctx context.Context, texts []string) ([]Label, error) {
	t.loadOnce.Do(t.load)
	if t.loadErr != nil {
		return nil, t.loadErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels := make([]Label, len(texts))
	for i, text := range texts {
		sentiment, confidence := t.score(text)
		labels[i] = Label{
			Sentiment:  sentiment,
			Confidence: confidence,
			Source:     t.Name(),
		}
	}
	return labels, nil
}

// score tokenizes the text and sums signed lexicon weights. A negator flips
// the sign of the following sentiment-bearing token.
func (t *ModelTier) score(text string) (string, float64) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return SentimentNeutral, DefaultConfidence
	}

	var total float64
	var hits int
	negate := false
	for _, tok := range tokens {
		if _, ok := t.negators[tok]; ok {
			negate = true
			continue
		}
		weight, ok := t.lexicon[tok]
		if !ok {
			continue
		}
		if negate {
			weight = -weight
			negate = false
		}
		total += weight
		hits++
	}

	if hits == 0 {
		return SentimentNeutral, DefaultConfidence
	}

	mean := total / float64(hits)
	// Squash the mean weight into a confidence in [0.5, 1)
	confidence := 0.5 + 0.5*math.Tanh(math.Abs(mean))
	confidence = math.Round(confidence*100) / 100

	switch {
	case mean > 0.1:
		return SentimentPositive, confidence
	case mean < -0.1:
		return SentimentNegative, confidence
	default:
		return SentimentNeutral, confidence
	}
}

// Fallback implements Tier
func (t *ModelTier) Fallback() Label {
	return Label{
		Sentiment:  SentimentNeutral,
		Confidence: DefaultConfidence,
		Source:     t.Name(),
	}
}

func (t *ModelTier) load() {
	t.lexicon = defaultLexicon()
	t.negators = map[string]struct{}{
		"not": {}, "no": {}, "never": {}, "isnt": {}, "wasnt": {},
		"dont": {}, "didnt": {}, "cant": {}, "wont": {}, "couldnt": {},
	}
}

func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, text)
	return strings.Fields(cleaned)
}

// defaultLexicon is the built-in sentiment weight table. Weights are signed:
// positive terms above zero, negative terms below.
func defaultLexicon() map[string]float64 {
	return map[string]float64{
		"love": 2.0, "great": 1.8, "excellent": 2.0, "amazing": 2.0,
		"good": 1.2, "happy": 1.5, "thanks": 1.0, "thank": 1.0,
		"helpful": 1.4, "fast": 0.8, "perfect": 2.0, "awesome": 1.9,
		"best": 1.6, "resolved": 1.2, "works": 0.8, "recommend": 1.5,
		"pleased": 1.3, "satisfied": 1.4, "quick": 0.8, "friendly": 1.2,

		"hate": -2.0, "terrible": -2.0, "awful": -2.0, "horrible": -2.0,
		"bad": -1.2, "angry": -1.6, "worst": -2.0, "broken": -1.4,
		"useless": -1.8, "slow": -0.8, "disappointed": -1.5, "refund": -1.0,
		"scam": -2.0, "fraud": -2.0, "waiting": -0.6, "ignored": -1.4,
		"unacceptable": -1.8, "frustrated": -1.5, "poor": -1.2, "late": -0.8,
		"defective": -1.6, "ridiculous": -1.4, "cancel": -1.0,
	}
}

var _ Tier = (*ModelTier)(nil)
