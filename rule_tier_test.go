package classifier_test

import (
	"context"
	"testing"

	classifier "github.com/FrenchMajesty/tiered-classifier"
)

func TestRuleTier_Classify(t *testing.T) {
	cases := []struct {
		name        string
		text        string
		wantTopic   string
		wantUrgency string
		wantClaim   bool
	}{
		{
			name:        "refund demand is a high urgency claim",
			text:        "I want a refund right now, this is a scam",
			wantTopic:   "billing",
			wantUrgency: classifier.UrgencyHigh,
			wantClaim:   true,
		},
		{
			name:        "outage report",
			text:        "your app has been down all morning",
			wantTopic:   "outage",
			wantUrgency: classifier.UrgencyLow,
			wantClaim:   false,
		},
		{
			name:        "late package with question mark",
			text:        "where is my package? tracking says late",
			wantTopic:   "delivery",
			wantUrgency: classifier.UrgencyMedium,
			wantClaim:   false,
		},
		{
			name:        "lawsuit threat without topic keywords",
			text:        "you will hear from my lawyer",
			wantTopic:   "general",
			wantUrgency: classifier.UrgencyHigh,
			wantClaim:   true,
		},
		{
			name:        "urgent keyword without claim",
			text:        "urgent: need help with my account",
			wantTopic:   "support",
			wantUrgency: classifier.UrgencyHigh,
			wantClaim:   false,
		},
		{
			name:        "repeated exclamation marks read as urgent",
			text:        "answer me!!",
			wantTopic:   "general",
			wantUrgency: classifier.UrgencyHigh,
			wantClaim:   false,
		},
		{
			name:        "plain statement",
			text:        "just sharing my experience with the product",
			wantTopic:   "general",
			wantUrgency: classifier.UrgencyLow,
			wantClaim:   false,
		},
		{
			name:        "topic rules match in priority order",
			text:        "billing error on my invoice and the site is broken",
			wantTopic:   "billing",
			wantUrgency: classifier.UrgencyLow,
			wantClaim:   false,
		},
	}

	tier := classifier.NewRuleTier()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			labels, err := tier.ClassifyBatch(context.Background(), []string{tc.text})
			if err != nil {
				t.Fatalf("ClassifyBatch failed: %v", err)
			}
			label := labels[0]

			if label.Topic != tc.wantTopic {
				t.Errorf("topic: expected %q, got %q", tc.wantTopic, label.Topic)
			}
			if label.Urgency != tc.wantUrgency {
				t.Errorf("urgency: expected %q, got %q", tc.wantUrgency, label.Urgency)
			}
			if label.IsClaim == nil || *label.IsClaim != tc.wantClaim {
				t.Errorf("claim: expected %v, got %v", tc.wantClaim, label.IsClaim)
			}
			if label.Source != "rule" {
				t.Errorf("source: expected rule, got %q", label.Source)
			}
		})
	}
}

func TestRuleTier_Deterministic(t *testing.T) {
	tier := classifier.NewRuleTier()
	text := "my package never arrived and I want compensation!!"

	first, err := tier.ClassifyBatch(context.Background(), []string{text})
	if err != nil {
		t.Fatalf("ClassifyBatch failed: %v", err)
	}
	second, err := tier.ClassifyBatch(context.Background(), []string{text})
	if err != nil {
		t.Fatalf("ClassifyBatch failed: %v", err)
	}

	if first[0].Topic != second[0].Topic ||
		first[0].Urgency != second[0].Urgency ||
		*first[0].IsClaim != *second[0].IsClaim {
		t.Error("identical text produced different labels")
	}
}

func TestRuleTier_Fallback(t *testing.T) {
	fallback := classifier.NewRuleTier().Fallback()
	if fallback.Topic != "general" || fallback.Urgency != classifier.UrgencyLow {
		t.Errorf("unexpected fallback: %+v", fallback)
	}
	if fallback.IsClaim == nil || *fallback.IsClaim {
		t.Error("fallback must not flag a claim")
	}
}

func TestRuleTier_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := classifier.NewRuleTier().ClassifyBatch(ctx, []string{"hello"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
