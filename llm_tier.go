package classifier

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/FrenchMajesty/tiered-classifier/clients/openai"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// ChatClient is the surface the LLM tier needs from a chat completion API
type ChatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

const llmTierVersion = "llm-v1"

const defaultLLMModel = "gpt-4.1-mini"

const llmSystemPrompt = `You are a customer-support triage assistant. You receive a numbered list of social media posts directed at a support team.

For every post return one JSON object with these fields:
- "sentiment": "positive", "negative" or "neutral"
- "topic": one of "billing", "outage", "delivery", "quality", "support", "general"
- "urgency": "high", "medium" or "low"
- "claim": true if the author demands a refund, compensation or threatens escalation, else false
- "confidence": your confidence in this assessment, 0.0 to 1.0

Respond with ONLY a JSON array, one object per post, in the same order as the input. No prose, no markdown fences.`

// LLMTier labels records with a remote chat completion model. It is the most
// expensive and least reliable tier: calls are rate limited, and construction
// of the underlying client (including the API key lookup) is deferred until
// the first batch so cheaper modes never pay for it.
type LLMTier struct {
	factory func() (ChatClient, error)
	model   string
	limiter *rate.Limiter

	initOnce sync.Once
	client   ChatClient
	initErr  error
}

// LLMOption customizes an LLMTier
type LLMOption func(*LLMTier)

// WithLLMModel overrides the chat model name
func WithLLMModel(model string) LLMOption {
	return func(t *LLMTier) { t.model = model }
}

// WithLLMRateLimit caps batched LLM calls per second
func WithLLMRateLimit(rps float64) LLMOption {
	return func(t *LLMTier) {
		if rps > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewLLMTier creates an LLM tier around a lazily-built chat client. No rate
// limit applies unless WithLLMRateLimit is given.
func NewLLMTier(factory func() (ChatClient, error), opts ...LLMOption) *LLMTier {
	t := &LLMTier{
		factory: factory,
		model:   defaultLLMModel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewDefaultLLMTier creates an LLM tier backed by the OpenAI client, reading
// OPENAI_API_KEY from the environment on first use
func NewDefaultLLMTier(opts ...LLMOption) *LLMTier {
	opts = append([]LLMOption{WithLLMRateLimit(2)}, opts...)
	return NewLLMTier(func() (ChatClient, error) {
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		return openai.NewClient(key), nil
	}, opts...)
}

// Name implements Tier
func (t *LLMTier) Name() string { return "llm" }

// Version implements Tier
func (t *LLMTier) Version() string { return llmTierVersion }

// ClassifyBatch implements Tier
func (t *LLMTier) ClassifyBatch(ctx context.Context, texts []string) ([]Label, error) {
	t.initOnce.Do(func() {
		t.client, t.initErr = t.factory()
	})
	if t.initErr != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", t.initErr)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	prompt := buildBatchPrompt(texts)
	system := llmSystemPrompt

	resp, err := t.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatMessage{
			{Role: openai.MessageRoleSystem, Content: &system},
			{Role: openai.MessageRoleUser, Content: &prompt},
		},
		Temperature:         0.1,
		MaxCompletionTokens: 60 * len(texts),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get LLM response: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return nil, fmt.Errorf("no response from LLM")
	}

	return t.parseBatchResponse(*resp.Choices[0].Message.Content, len(texts))
}

// buildBatchPrompt numbers the texts so the model keeps them aligned
func buildBatchPrompt(texts []string) string {
	var b strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(text))
	}
	return b.String()
}

// parseBatchResponse extracts one label per post from the model's JSON array.
// A malformed or misaligned response fails the whole batch; the orchestrator
// handles the fallback.
func (t *LLMTier) parseBatchResponse(content string, want int) ([]Label, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	parsed := gjson.Parse(content)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("LLM response is not a JSON array")
	}

	items := parsed.Array()
	if len(items) != want {
		return nil, fmt.Errorf("LLM returned %d labels for %d posts", len(items), want)
	}

	labels := make([]Label, want)
	for i, item := range items {
		label := Label{
			Sentiment:  normalizeEnum(item.Get("sentiment").String(), SentimentPositive, SentimentNegative, SentimentNeutral),
			Topic:      strings.ToLower(strings.TrimSpace(item.Get("topic").String())),
			Urgency:    normalizeEnum(item.Get("urgency").String(), UrgencyHigh, UrgencyMedium, UrgencyLow),
			Confidence: item.Get("confidence").Float(),
			Source:     t.Name(),
		}
		if claim := item.Get("claim"); claim.Exists() {
			label.IsClaim = BoolPtr(claim.Bool())
		}
		if label.Confidence <= 0 || label.Confidence > 1 {
			label.Confidence = DefaultConfidence
		}
		labels[i] = label
	}
	return labels, nil
}

// normalizeEnum lowercases the value and keeps it only if it is one of the
// allowed variants
func normalizeEnum(value string, allowed ...string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	return ""
}

// Fallback implements Tier. The zero label leaves the cheaper tiers' fields
// in place when the LLM fails.
func (t *LLMTier) Fallback() Label {
	return Label{}
}

var _ Tier = (*LLMTier)(nil)
