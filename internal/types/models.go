package types

import (
	"encoding/json"
	"fmt"
)

// Utterance is one line of an input transcript.
type Utterance struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// MoodAnnotation is the per-utterance output of the annotation pipeline.
// Score is on the five-point [-1, 1] scale derived from the star rating;
// both Score and Confidence are rounded to 2 decimals.
type MoodAnnotation struct {
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Emotion    string   `json:"emotion"`
	KeyPhrases []string `json:"key_phrases"`
}

// TopicScores maps topic name to its share of the keyword matches.
// Topics with no matches are omitted, never zero.
type TopicScores map[string]float64

// EmotionCount is one ranked (emotion, frequency) pair. It serializes as a
// two-element ["label", count] array, the shape the web client renders.
type EmotionCount struct {
	Emotion string
	Count   int
}

func (e EmotionCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Emotion, e.Count})
}

func (e *EmotionCount) UnmarshalJSON(data []byte) error {
	var pair []any
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("emotion count: expected [label, count], got %d elements", len(pair))
	}
	label, ok := pair[0].(string)
	if !ok {
		return fmt.Errorf("emotion count: label is %T, want string", pair[0])
	}
	count, ok := pair[1].(float64)
	if !ok {
		return fmt.Errorf("emotion count: count is %T, want number", pair[1])
	}
	e.Emotion = label
	e.Count = int(count)
	return nil
}

// SpeakerAggregate is the per-speaker rollup. Messages and Emotions grow in
// transcript order; AvgMood and TopEmotions are filled in at finalization.
type SpeakerAggregate struct {
	Messages    []MoodAnnotation `json:"messages"`
	AvgMood     float64          `json:"avg_mood"`
	Emotions    []string         `json:"emotions"`
	TopEmotions []EmotionCount   `json:"top_emotions"`
}

// TimelineEntry is one annotated utterance in original transcript order.
type TimelineEntry struct {
	When   string         `json:"when"`
	Who    string         `json:"who"`
	Mood   MoodAnnotation `json:"mood"`
	Topics TopicScores    `json:"topics"`
}

// OverallMood is the conversation-wide mean of score and confidence.
type OverallMood struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Meta carries request bookkeeping. UtteranceCount counts every input
// utterance, including blank ones that were skipped.
type Meta struct {
	ProcessTime    float64 `json:"process_time"`
	UtteranceCount int     `json:"utterance_count"`
}

// ConversationResult is the full response of one analysis request.
type ConversationResult struct {
	OverallMood     OverallMood                  `json:"overall_mood"`
	SpeakerAnalysis map[string]*SpeakerAggregate `json:"speaker_analysis"`
	Topics          TopicScores                  `json:"topics"`
	Timeline        []TimelineEntry              `json:"timeline"`
	Meta            Meta                         `json:"meta"`
}
