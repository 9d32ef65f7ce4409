package plantation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/envergo/moulinette/hedges"
	"github.com/envergo/moulinette/metrics"
)

// QualityClient consults the external publicodes service for the quality
// condition. It is an optional collaborator: callers fall back to the
// local computation when it fails.
type QualityClient struct {
	endpoint string
	client   *http.Client
}

// NewQualityClient builds a client for the publicodes endpoint.
func NewQualityClient(endpoint string, timeout time.Duration) *QualityClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &QualityClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type qualityRequest struct {
	MinimumLengthsToPlant map[string]float64 `json:"minimum_lengths_to_plant"`
	LengthsToPlant        map[string]float64 `json:"lengths_to_plant"`
}

type qualityResponse struct {
	IsQualitySufficient bool `json:"is_quality_sufficient"`
}

// Check posts the per-kind linears and returns the service's verdict.
func (c *QualityClient) Check(ctx context.Context, minimum, planted map[hedges.Kind]float64) (bool, error) {
	metrics.QualityRequestsTotal.Inc()

	payload := qualityRequest{
		MinimumLengthsToPlant: kindLengths(minimum),
		LengthsToPlant:        kindLengths(planted),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("encode quality request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build quality request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call quality service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("quality service returned status %d", resp.StatusCode)
	}

	var out qualityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode quality response: %w", err)
	}
	return out.IsQualitySufficient, nil
}

func kindLengths(m map[hedges.Kind]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
