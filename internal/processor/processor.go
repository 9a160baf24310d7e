// Package processor drives one transcript through the full analysis
// pipeline: normalization, per-utterance annotation and topic scoring, then
// conversation aggregation.
package processor

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"call-sentiment-go/internal/aggregator"
	"call-sentiment-go/internal/analyzer"
	"call-sentiment-go/internal/logger"
	"call-sentiment-go/internal/types"
)

// Processor analyzes transcripts. It holds only read-only collaborators and
// is safe for concurrent use across requests.
type Processor struct {
	annotator *analyzer.Annotator
	log       *logrus.Entry
}

func New(annotator *analyzer.Annotator) *Processor {
	return &Processor{
		annotator: annotator,
		log:       logger.New().WithComponent("processor"),
	}
}

// Analyze runs the pipeline over a transcript, strictly in order. Utterances
// with blank text are skipped entirely but still counted in
// meta.utterance_count. Text that becomes empty only after normalization
// (e.g. a bare "[00:01]" marker) is annotated as neutral and included.
func (p *Processor) Analyze(ctx context.Context, transcript []types.Utterance) types.ConversationResult {
	start := time.Now()

	agg := aggregator.New()
	for _, utt := range transcript {
		if strings.TrimSpace(utt.Text) == "" {
			continue
		}
		text := analyzer.Normalize(utt.Text)
		mood := p.annotator.Annotate(ctx, text)
		topics := analyzer.ScoreTopics(text)
		agg.Add(utt, mood, topics)
	}

	res := agg.Finalize()
	res.Meta = types.Meta{
		ProcessTime:    round2(time.Since(start).Seconds()),
		UtteranceCount: len(transcript),
	}
	p.log.WithFields(logrus.Fields{
		"utterances":   res.Meta.UtteranceCount,
		"annotated":    len(res.Timeline),
		"process_time": res.Meta.ProcessTime,
	}).Info("transcript analyzed")
	return res
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
