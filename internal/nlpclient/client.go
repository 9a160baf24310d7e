// Package nlpclient talks to the external NLP model services: the star-rating
// sentiment classifier, the emotion classifier and the noun-phrase extractor.
// The models themselves run elsewhere; this package only fixes the wire
// contract and the retry/timeout discipline around it.
package nlpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"call-sentiment-go/internal/analyzer"
	"call-sentiment-go/internal/logger"
)

// Compile-time checks: Client provides all three model capabilities.
var (
	_ analyzer.SentimentClassifier = (*Client)(nil)
	_ analyzer.EmotionClassifier   = (*Client)(nil)
	_ analyzer.PhraseExtractor     = (*Client)(nil)
)

const (
	requestTimeout = 10 * time.Second
	maxRetryTime   = 8 * time.Second
)

// Client is a shared HTTP client for the model services. Safe for concurrent
// use from multiple requests; the services are stateless.
type Client struct {
	c            *http.Client
	sentimentURL string
	emotionURL   string
	phraseURL    string
	log          *logrus.Entry
}

func New(sentimentURL, emotionURL, phraseURL string) *Client {
	return &Client{
		c:            &http.Client{Timeout: requestTimeout},
		sentimentURL: sentimentURL,
		emotionURL:   emotionURL,
		phraseURL:    phraseURL,
		log:          logger.New().WithComponent("nlpclient"),
	}
}

// NewFromEnv builds a Client from SENTIMENT_URL, EMOTION_URL and NLP_URL.
func NewFromEnv() *Client {
	return New(os.Getenv("SENTIMENT_URL"), os.Getenv("EMOTION_URL"), os.Getenv("NLP_URL"))
}

// postJSON sends payload and decodes the response into target, retrying
// network failures and 5xx with exponential backoff. 4xx and undecodable
// bodies are permanent.
func (cl *Client) postJSON(ctx context.Context, url string, payload, target any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := cl.c.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%s: server error: %s", url, strings.TrimSpace(string(body)))
			cl.log.WithError(lastErr).Debug("model call failed, will retry")
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("%s: %s: %s", url, resp.Status, strings.TrimSpace(string(body)))
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("%s: decode: %w", url, err)
			return backoff.Permanent(lastErr)
		}
		lastErr = nil
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxRetryTime
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}
