package analyzer

import (
	"math"
	"strings"

	"call-sentiment-go/internal/types"
)

// topicMarkers is the fixed topic taxonomy. Keywords are matched as plain
// substrings with no word-boundary check, so "discounted" counts for
// "discount".
var topicMarkers = map[string][]string{
	"pricing":      {"price", "cost", "fee", "discount", "expensive", "cheap"},
	"product":      {"feature", "product", "service", "quality", "work"},
	"support":      {"help", "support", "assist", "guide", "resolve"},
	"technical":    {"error", "issue", "problem", "bug", "fix"},
	"satisfaction": {"happy", "satisfied", "great", "amazing", "good"},
}

// ScoreTopics scores text against the taxonomy. Each matched topic gets the
// fraction of its keyword list found in the text; matched topics are then
// renormalized to sum to 1 and rounded to 2 decimals. Topics with no match
// are omitted. The returned map is empty, never nil, when nothing matches.
func ScoreTopics(text string) types.TopicScores {
	lower := strings.ToLower(text)
	scores := types.TopicScores{}
	for topic, keywords := range topicMarkers {
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}
		if matches > 0 {
			scores[topic] = float64(matches) / float64(len(keywords))
		}
	}
	if len(scores) > 0 {
		total := 0.0
		for _, v := range scores {
			total += v
		}
		for topic, v := range scores {
			scores[topic] = round2(v / total)
		}
	}
	return scores
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
