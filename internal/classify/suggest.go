package classify

import (
	"context"

	"samadhan/internal/domain"
)

// Suggester produces ordered handling advisories for a classified
// grievance. Order is significant: priority advisories first, then
// category advisories, then a sentiment-based closing note.
type Suggester interface {
	Suggest(ctx context.Context, g domain.Grievance) ([]string, error)
}

var categoryAdvisories = map[domain.Department][]string{
	domain.DeptWaterSupply: {
		"Check if this is an isolated issue or affects the entire area.",
		"Verify if any maintenance work is scheduled in the area.",
	},
	domain.DeptElectricity: {
		"Check if there are any scheduled power outages in the area.",
		"Verify if the issue is with the main grid or local distribution.",
	},
	domain.DeptRoads: {
		"Assess the severity of road damage and potential for accidents.",
		"Check if this road is under municipal or state highway authority.",
	},
	domain.DeptSanitation: {
		"Check the regular garbage collection schedule for this area.",
		"Verify if this is a temporary disruption or a recurring issue.",
	},
}

const genericAdvisory = "Gather more information about the specific nature of the complaint."

// RuleSuggester is the fixed-table advisory generator.
type RuleSuggester struct{}

var _ Suggester = RuleSuggester{}

func (RuleSuggester) Suggest(ctx context.Context, g domain.Grievance) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var suggestions []string
	switch g.Priority {
	case domain.PriorityCritical:
		suggestions = append(suggestions,
			"This is a critical issue requiring immediate attention.",
			"Consider escalating to the department head.")
	case domain.PriorityHigh:
		suggestions = append(suggestions,
			"This issue should be addressed within 24-48 hours.")
	}
	if advisories, ok := categoryAdvisories[g.Category]; ok {
		suggestions = append(suggestions, advisories...)
	} else {
		suggestions = append(suggestions, genericAdvisory)
	}
	if g.Sentiment == domain.SentimentPositive {
		suggestions = append(suggestions,
			"This is positive feedback. Consider acknowledging the citizen's appreciation.")
	}
	return suggestions, nil
}
