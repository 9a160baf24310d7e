// Package aggregator folds annotated utterances into speaker-level and
// conversation-level statistics.
package aggregator

import (
	"math"
	"sort"

	"call-sentiment-go/internal/types"
)

// Aggregator accumulates one conversation. It is per-request state: create
// one with New, Add utterances in transcript order, then Finalize exactly
// once. Order matters — emotion tie-breaks and the timeline depend on it.
type Aggregator struct {
	speakers    map[string]*types.SpeakerAggregate
	timeline    []types.TimelineEntry
	topicTotals map[string]float64
	moods       []types.MoodAnnotation
}

func New() *Aggregator {
	return &Aggregator{
		speakers:    map[string]*types.SpeakerAggregate{},
		timeline:    []types.TimelineEntry{},
		topicTotals: map[string]float64{},
	}
}

// Add records one annotated utterance. A missing speaker field becomes
// "Unknown".
func (a *Aggregator) Add(utt types.Utterance, mood types.MoodAnnotation, topics types.TopicScores) {
	speaker := utt.Speaker
	if speaker == "" {
		speaker = "Unknown"
	}

	sp, ok := a.speakers[speaker]
	if !ok {
		sp = &types.SpeakerAggregate{
			Messages:    []types.MoodAnnotation{},
			Emotions:    []string{},
			TopEmotions: []types.EmotionCount{},
		}
		a.speakers[speaker] = sp
	}
	sp.Messages = append(sp.Messages, mood)
	sp.Emotions = append(sp.Emotions, mood.Emotion)

	a.timeline = append(a.timeline, types.TimelineEntry{
		When:   utt.Timestamp,
		Who:    speaker,
		Mood:   mood,
		Topics: topics,
	})
	for topic, score := range topics {
		a.topicTotals[topic] += score
	}
	a.moods = append(a.moods, mood)
}

// Finalize computes the overall mood, per-speaker averages and emotion
// rankings, and the normalized conversation-wide topic distribution.
func (a *Aggregator) Finalize() types.ConversationResult {
	res := types.ConversationResult{
		SpeakerAnalysis: map[string]*types.SpeakerAggregate{},
		Topics:          types.TopicScores{},
		Timeline:        a.timeline,
	}

	if len(a.moods) > 0 {
		var score, confidence float64
		for _, m := range a.moods {
			score += m.Score
			confidence += m.Confidence
		}
		n := float64(len(a.moods))
		res.OverallMood = types.OverallMood{
			Score:      round2(score / n),
			Confidence: round2(confidence / n),
		}
	}

	total := 0.0
	for _, v := range a.topicTotals {
		total += v
	}
	if total > 0 {
		for topic, v := range a.topicTotals {
			res.Topics[topic] = round2(v / total)
		}
	}

	for name, sp := range a.speakers {
		if len(sp.Messages) > 0 {
			sum := 0.0
			for _, m := range sp.Messages {
				sum += m.Score
			}
			sp.AvgMood = round2(sum / float64(len(sp.Messages)))
		}
		sp.TopEmotions = topEmotions(sp.Emotions, 2)
		res.SpeakerAnalysis[name] = sp
	}
	return res
}

// topEmotions counts each distinct emotion and returns up to limit pairs,
// most frequent first. Ties keep first-appearance order, which a stable sort
// over the insertion sequence gives for free.
func topEmotions(emotions []string, limit int) []types.EmotionCount {
	counts := map[string]int{}
	order := []string{}
	for _, e := range emotions {
		if _, seen := counts[e]; !seen {
			order = append(order, e)
		}
		counts[e]++
	}
	ranked := make([]types.EmotionCount, 0, len(order))
	for _, e := range order {
		ranked = append(ranked, types.EmotionCount{Emotion: e, Count: counts[e]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
