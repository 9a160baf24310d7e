package nlpclient

import (
	"context"
	"errors"
)

type phraseRequest struct {
	Text string `json:"text"`
}

type phraseResponse struct {
	NounPhrases []string `json:"noun_phrases"`
}

// NounPhrases returns the parser's noun phrases in its yield order, which the
// service guarantees to be stable for identical input. An empty list is a
// valid result, not an error.
func (cl *Client) NounPhrases(ctx context.Context, text string) ([]string, error) {
	if cl.phraseURL == "" {
		return nil, errors.New("NLP_URL not set")
	}
	var out phraseResponse
	if err := cl.postJSON(ctx, cl.phraseURL+"/phrases", phraseRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return out.NounPhrases, nil
}
