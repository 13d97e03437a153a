package classify

import (
	"context"
	"strings"

	"samadhan/internal/domain"
)

// Result is the full routing decision for one piece of complaint text.
// Either all fields are set or the classification failed; there is no
// partially-filled result.
type Result struct {
	Sentiment domain.Sentiment
	Priority  domain.Priority
	Category  domain.Department
	Summary   string
}

// Classifier maps raw complaint text to a routing decision. The context
// models the async boundary of a real classification backend; the
// keyword implementation never blocks, but callers must treat every
// invocation as one that may fail. Implementations must be
// deterministic for identical input text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Keyword lists for sentiment scoring. Matching is case-insensitive
// substring containment; each keyword contributes at most one point no
// matter how often it occurs.
var (
	negativeWords = []string{"not", "problem", "issue", "bad", "poor", "terrible", "broken", "corruption", "fail", "damage", "danger"}
	positiveWords = []string{"good", "great", "excellent", "thank", "appreciate", "helpful", "resolved", "fixed", "improved"}
)

// categoryRules are evaluated in order; the first group with any match
// wins. The order is part of the contract, not an optimization.
var categoryRules = []struct {
	dept     domain.Department
	keywords []string
}{
	{domain.DeptWaterSupply, []string{"water", "supply", "tap"}},
	{domain.DeptElectricity, []string{"electricity", "power", "outage"}},
	{domain.DeptSanitation, []string{"garbage", "waste", "trash", "sanitation"}},
	{domain.DeptRoads, []string{"road", "street", "highway", "pothole"}},
	{domain.DeptHealthcare, []string{"hospital", "doctor", "medical", "health"}},
	{domain.DeptEducation, []string{"school", "college", "education", "teacher"}},
	{domain.DeptLawEnforcement, []string{"police", "crime", "security", "theft"}},
	{domain.DeptHousing, []string{"house", "housing", "apartment"}},
	{domain.DeptAgriculture, []string{"farm", "crop", "agriculture"}},
}

var (
	urgentWords       = []string{"urgent", "immediately", "emergency", "danger", "critical", "life", "death", "serious", "accident"}
	highPriorityWords = []string{"children", "elderly", "disabled", "sick", "many people", "community", "days", "week"}
)

const (
	summaryMaxLen = 100
	summaryCutLen = 95
	summaryMarker = "…"
)

// KeywordClassifier is the deterministic rule-based classifier. It is
// pure and total over all string inputs, including the empty string.
type KeywordClassifier struct{}

var _ Classifier = KeywordClassifier{}

func (KeywordClassifier) Classify(ctx context.Context, text string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	lower := strings.ToLower(text)
	sentiment := scoreSentiment(lower)
	return Result{
		Sentiment: sentiment,
		Priority:  scorePriority(lower, sentiment),
		Category:  scoreCategory(lower),
		Summary:   Summarize(text),
	}, nil
}

func scoreSentiment(lower string) domain.Sentiment {
	negative := countMatches(lower, negativeWords)
	positive := countMatches(lower, positiveWords)
	switch {
	case negative > positive:
		return domain.SentimentNegative
	case positive > negative:
		return domain.SentimentPositive
	default:
		return domain.SentimentNeutral
	}
}

func scoreCategory(lower string) domain.Department {
	for _, rule := range categoryRules {
		if anyMatch(lower, rule.keywords) {
			return rule.dept
		}
	}
	return domain.DeptOther
}

func scorePriority(lower string, sentiment domain.Sentiment) domain.Priority {
	switch {
	case anyMatch(lower, urgentWords):
		return domain.PriorityCritical
	case anyMatch(lower, highPriorityWords) || sentiment == domain.SentimentNegative:
		return domain.PriorityHigh
	case sentiment == domain.SentimentNeutral:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Summarize truncates long text to 95 runes plus an ellipsis marker;
// shorter text passes through unchanged.
func Summarize(text string) string {
	runes := []rune(text)
	if len(runes) <= summaryMaxLen {
		return text
	}
	return string(runes[:summaryCutLen]) + summaryMarker
}

func countMatches(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

func anyMatch(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
