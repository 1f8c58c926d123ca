// risk/classifier.go
package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Features is the deterministic feature vector handed to the external
// classifier. The scorer owns its construction; the model only ever sees
// this closed set.
type Features struct {
	UserRole         string  `json:"user_role"`
	UserEmail        string  `json:"user_email"`
	DocumentTitle    string  `json:"document_title"`
	DocumentExpiry   *string `json:"document_expiry"`
	DocumentExpired  bool    `json:"document_expired"`
	DocumentCritical bool    `json:"document_is_critical"`
	Note             string  `json:"request_note"`
	PriorDenied      int     `json:"user_history_denied"`
	PriorTotal       int     `json:"user_history_total"`
}

// Classification is the contract the core expects from the external
// model: a 0-100 score, a natural-language explanation and the factors
// that contributed.
type Classification struct {
	Score       int      `json:"score"`
	Explanation string   `json:"explanation"`
	Factors     []string `json:"risk_factors"`
}

// Classifier scores a feature vector. Implementations may block on
// network I/O; callers bound the call with a context deadline.
type Classifier interface {
	Classify(ctx context.Context, features Features) (Classification, error)
}

// HTTPClassifier talks JSON to the configured model endpoint.
type HTTPClassifier struct {
	url        string
	httpClient *http.Client
}

func NewHTTPClassifier(url string) *HTTPClassifier {
	return &HTTPClassifier{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, features Features) (Classification, error) {
	payload, err := json.Marshal(features)
	if err != nil {
		return Classification{}, fmt.Errorf("failed to marshal features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Classification{}, fmt.Errorf("failed to build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Classification{}, fmt.Errorf("classifier call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Classification{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result Classification
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Classification{}, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	return result, nil
}
