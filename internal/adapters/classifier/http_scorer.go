package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/utils"
)

// HTTPScorer is an implementation of the ScoreProvider interface backed by
// the served TF-IDF/logistic-regression model. The model process exposes a
// single POST /score endpoint; swapping the model version is invisible to
// callers.
type HTTPScorer struct {
	client        *http.Client
	endpoint      string
	modelVersion  string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	SpamProbability float64 `json:"spam_probability"`
	Model           string  `json:"model,omitempty"`
}

// NewHTTPScorer creates a new classifier client for the given endpoint.
func NewHTTPScorer(
	endpoint string,
	timeout time.Duration,
	modelVersion string,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *HTTPScorer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPScorer{
		client:        &http.Client{Timeout: timeout},
		endpoint:      endpoint,
		modelVersion:  modelVersion,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ModelVersion identifies the classifier model this scorer talks to.
func (s *HTTPScorer) ModelVersion() string {
	return s.modelVersion
}

// Score returns the spam probability of text as reported by the classifier
// service.
func (s *HTTPScorer) Score(ctx context.Context, text string) (float64, error) {
	normalized := s.textProcessor.NormalizeForScoring(text)

	payload, err := json.Marshal(scoreRequest{Text: normalized})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, body)
	}

	var decoded scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	if decoded.SpamProbability < 0 || decoded.SpamProbability > 1 {
		return 0, fmt.Errorf("classifier returned probability out of range: %f", decoded.SpamProbability)
	}

	s.logger.Debug("Text scored",
		zap.Float64("spam_probability", decoded.SpamProbability),
		zap.String("model", decoded.Model))

	return decoded.SpamProbability, nil
}
