package nlpclient

import (
	"context"
	"errors"
)

type sentimentRequest struct {
	Text string `json:"text"`
}

type sentimentResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Sentiment rates text on the 1-5 star scale. The label comes back verbatim,
// e.g. "4 stars".
func (cl *Client) Sentiment(ctx context.Context, text string) (string, float64, error) {
	if cl.sentimentURL == "" {
		return "", 0, errors.New("SENTIMENT_URL not set")
	}
	var out sentimentResponse
	if err := cl.postJSON(ctx, cl.sentimentURL+"/classify", sentimentRequest{Text: text}, &out); err != nil {
		return "", 0, err
	}
	if out.Label == "" {
		return "", 0, errors.New("sentiment: empty label")
	}
	return out.Label, out.Confidence, nil
}
