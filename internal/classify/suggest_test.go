package classify

import (
	"context"
	"testing"

	"samadhan/internal/domain"
)

func mustSuggest(t *testing.T, g domain.Grievance) []string {
	t.Helper()
	out, err := RuleSuggester{}.Suggest(context.Background(), g)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	return out
}

func TestSuggestCriticalWaterSupply(t *testing.T) {
	out := mustSuggest(t, domain.Grievance{
		Category:  domain.DeptWaterSupply,
		Priority:  domain.PriorityCritical,
		Sentiment: domain.SentimentNegative,
	})
	want := []string{
		"This is a critical issue requiring immediate attention.",
		"Consider escalating to the department head.",
		"Check if this is an isolated issue or affects the entire area.",
		"Verify if any maintenance work is scheduled in the area.",
	}
	if len(out) != len(want) {
		t.Fatalf("got %d suggestions, want %d: %v", len(out), len(want), out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("suggestion %d = %q, want %q", i, out[i], want[i])
		}
	}
}

func TestSuggestHighRoads(t *testing.T) {
	out := mustSuggest(t, domain.Grievance{
		Category: domain.DeptRoads,
		Priority: domain.PriorityHigh,
	})
	if len(out) != 3 {
		t.Fatalf("got %d suggestions, want 3: %v", len(out), out)
	}
	if out[0] != "This issue should be addressed within 24-48 hours." {
		t.Fatalf("priority advisory first, got %q", out[0])
	}
}

func TestSuggestGenericFallback(t *testing.T) {
	out := mustSuggest(t, domain.Grievance{
		Category: domain.DeptEducation,
		Priority: domain.PriorityMedium,
	})
	if len(out) != 1 || out[0] != genericAdvisory {
		t.Fatalf("want single generic advisory, got %v", out)
	}
}

func TestSuggestPositiveClosingNote(t *testing.T) {
	out := mustSuggest(t, domain.Grievance{
		Category:  domain.DeptHealthcare,
		Priority:  domain.PriorityLow,
		Sentiment: domain.SentimentPositive,
	})
	if len(out) == 0 {
		t.Fatalf("expected suggestions")
	}
	last := out[len(out)-1]
	if last != "This is positive feedback. Consider acknowledging the citizen's appreciation." {
		t.Fatalf("positive note must come last, got %q", last)
	}
}
