package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"call-sentiment-go/internal/logger"
	"call-sentiment-go/internal/types"
)

// SentimentClassifier rates text on the 1-5 star scale and reports the
// model's confidence. The label has the form "<N> star(s)".
type SentimentClassifier interface {
	Sentiment(ctx context.Context, text string) (label string, confidence float64, err error)
}

// EmotionClassifier returns the single highest-confidence emotion label.
type EmotionClassifier interface {
	Emotion(ctx context.Context, text string) (label string, err error)
}

// PhraseExtractor returns the noun phrases of text in a stable order.
type PhraseExtractor interface {
	NounPhrases(ctx context.Context, text string) ([]string, error)
}

// Annotator turns one utterance of normalized text into a MoodAnnotation.
// It holds no per-request state and is safe for concurrent use.
type Annotator struct {
	sentiment SentimentClassifier
	emotion   EmotionClassifier
	phrases   PhraseExtractor
	log       *logrus.Entry
}

func NewAnnotator(s SentimentClassifier, e EmotionClassifier, p PhraseExtractor) *Annotator {
	return &Annotator{
		sentiment: s,
		emotion:   e,
		phrases:   p,
		log:       logger.New().WithComponent("annotator"),
	}
}

// Neutral is the fallback annotation used for blank text and for any
// utterance whose model calls failed.
func Neutral() types.MoodAnnotation {
	return types.MoodAnnotation{
		Score:      0.0,
		Confidence: 0.0,
		Emotion:    "neutral",
		KeyPhrases: []string{},
	}
}

// Annotate runs the three model calls in order: sentiment, emotion, noun
// phrases. Any failure degrades this single utterance to Neutral; errors are
// logged and never propagated so one bad utterance cannot fail the request.
func (a *Annotator) Annotate(ctx context.Context, text string) types.MoodAnnotation {
	if strings.TrimSpace(text) == "" {
		return Neutral()
	}

	label, confidence, err := a.sentiment.Sentiment(ctx, text)
	if err != nil {
		a.log.WithError(err).Warn("sentiment classification failed, using neutral")
		return Neutral()
	}
	score, err := starScore(label)
	if err != nil {
		a.log.WithError(err).Warn("bad sentiment label, using neutral")
		return Neutral()
	}

	emotion, err := a.emotion.Emotion(ctx, text)
	if err != nil {
		a.log.WithError(err).Warn("emotion classification failed, using neutral")
		return Neutral()
	}

	phrases, err := a.phrases.NounPhrases(ctx, text)
	if err != nil {
		a.log.WithError(err).Warn("phrase extraction failed, using neutral")
		return Neutral()
	}

	return types.MoodAnnotation{
		Score:      round2(score),
		Confidence: round2(confidence),
		Emotion:    emotion,
		KeyPhrases: keyPhrases(phrases),
	}
}

// starScore maps a "<N> star(s)" label onto {-1, -0.5, 0, 0.5, 1}.
func starScore(label string) (float64, error) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty sentiment label")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("sentiment label %q: %w", label, err)
	}
	if n < 1 || n > 5 {
		return 0, fmt.Errorf("sentiment label %q: rating out of range", label)
	}
	return (float64(n) - 3) / 2, nil
}

// keyPhrases keeps multi-word phrases whose lowercase form does not lead
// with "the", "a" or "an" as a string prefix, first three in parser order.
func keyPhrases(phrases []string) []string {
	kept := []string{}
	for _, p := range phrases {
		if len(strings.Fields(p)) < 2 {
			continue
		}
		lower := strings.ToLower(p)
		if strings.HasPrefix(lower, "the") || strings.HasPrefix(lower, "a") || strings.HasPrefix(lower, "an") {
			continue
		}
		kept = append(kept, p)
		if len(kept) == 3 {
			break
		}
	}
	return kept
}
