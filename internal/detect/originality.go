package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quillworks/redraft/internal/retry"
)

const originalityBaseURL = "https://api.originality.ai"

// Originality scores each block on a continuous 0..1 fake probability; the
// overall score is the mean across non-empty blocks.
type Originality struct {
	httpClient *http.Client
	baseURL    string
	retryOpts  retry.Options
}

type originalityRequest struct {
	Content string `json:"content"`
}

type originalityResponse struct {
	Blocks []struct {
		Text   string `json:"text"`
		Result struct {
			Fake float64 `json:"fake"`
		} `json:"result"`
	} `json:"blocks"`
}

func NewOriginality() *Originality {
	return &Originality{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    originalityBaseURL,
	}
}

// NewOriginalityWithBaseURL exists for tests against a local server.
func NewOriginalityWithBaseURL(baseURL string) *Originality {
	o := NewOriginality()
	o.baseURL = strings.TrimSuffix(baseURL, "/")
	return o
}

func (o *Originality) Evaluate(ctx context.Context, text string) Result {
	resp, err := retry.Do(ctx, func(ctx context.Context) (*originalityResponse, error) {
		return o.scan(ctx, text)
	}, o.retryOpts)
	if err != nil {
		return Result{Status: StatusFailed, Provider: "originality"}
	}

	var segments []SegmentScore
	var total float64
	for _, block := range resp.Blocks {
		blockText := strings.TrimSpace(block.Text)
		if blockText == "" {
			continue
		}
		score := block.Result.Fake * 100
		segments = append(segments, SegmentScore{Text: blockText, Score: score})
		total += score
	}

	var overall float64
	if len(segments) > 0 {
		overall = total / float64(len(segments))
	}

	return Result{
		Status:   StatusSuccess,
		Provider: "originality",
		Score:    overall,
		Segments: segments,
	}
}

func (o *Originality) scan(ctx context.Context, text string) (*originalityResponse, error) {
	body, err := json.Marshal(originalityRequest{Content: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/v2-tools/free-tools/ai-scan", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://corefreetools.originality.ai")
	req.Header.Set("Origin", "https://corefreetools.originality.ai")

	httpResp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &retry.TransientError{Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, &retry.RateLimitError{Err: fmt.Errorf("originality returned %d", httpResp.StatusCode)}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &retry.TransientError{Err: fmt.Errorf("originality returned %d", httpResp.StatusCode)}
	}

	var parsed originalityResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, &retry.MalformedError{Err: err}
	}
	return &parsed, nil
}
