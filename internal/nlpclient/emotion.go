package nlpclient

import (
	"context"
	"errors"
)

type emotionRequest struct {
	Text string `json:"text"`
}

type emotionScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type emotionResponse struct {
	Emotions []emotionScore `json:"emotions"`
}

// Emotion returns the highest-confidence emotion label for text. On equal
// scores the first label in the service's order wins.
func (cl *Client) Emotion(ctx context.Context, text string) (string, error) {
	if cl.emotionURL == "" {
		return "", errors.New("EMOTION_URL not set")
	}
	var out emotionResponse
	if err := cl.postJSON(ctx, cl.emotionURL+"/detect", emotionRequest{Text: text}, &out); err != nil {
		return "", err
	}
	if len(out.Emotions) == 0 {
		return "", errors.New("emotion: empty result")
	}
	best := out.Emotions[0]
	for _, e := range out.Emotions[1:] {
		if e.Score > best.Score {
			best = e
		}
	}
	return best.Label, nil
}
