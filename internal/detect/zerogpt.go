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

const zerogptBaseURL = "https://api.zerogpt.com"

// ZeroGPT marks whole sentences as either synthetic (100) or human (0);
// the overall score is the reported fake percentage.
type ZeroGPT struct {
	httpClient *http.Client
	baseURL    string
	retryOpts  retry.Options
}

type zerogptRequest struct {
	InputText string `json:"input_text"`
}

type zerogptResponse struct {
	Data *struct {
		FakePercentage float64  `json:"fakePercentage"`
		Flagged        []string `json:"h"`
		Sentences      []string `json:"sentences"`
	} `json:"data"`
}

func NewZeroGPT() *ZeroGPT {
	return &ZeroGPT{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    zerogptBaseURL,
	}
}

// NewZeroGPTWithBaseURL exists for tests against a local server.
func NewZeroGPTWithBaseURL(baseURL string) *ZeroGPT {
	z := NewZeroGPT()
	z.baseURL = strings.TrimSuffix(baseURL, "/")
	return z
}

func (z *ZeroGPT) Evaluate(ctx context.Context, text string) Result {
	resp, err := retry.Do(ctx, func(ctx context.Context) (*zerogptResponse, error) {
		return z.detect(ctx, text)
	}, z.retryOpts)
	if err != nil {
		return Result{Status: StatusFailed, Provider: "zerogpt"}
	}

	segments := make([]SegmentScore, 0, len(resp.Data.Flagged)+len(resp.Data.Sentences))
	for _, s := range resp.Data.Flagged {
		segments = append(segments, SegmentScore{Text: strings.TrimSpace(s), Score: 100})
	}
	for _, s := range resp.Data.Sentences {
		segments = append(segments, SegmentScore{Text: strings.TrimSpace(s), Score: 0})
	}

	return Result{
		Status:   StatusSuccess,
		Provider: "zerogpt",
		Score:    resp.Data.FakePercentage,
		Segments: segments,
	}
}

func (z *ZeroGPT) detect(ctx context.Context, text string) (*zerogptResponse, error) {
	body, err := json.Marshal(zerogptRequest{InputText: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.baseURL+"/api/detect/detectText", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://www.zerogpt.com/")
	req.Header.Set("Origin", "https://www.zerogpt.com")

	httpResp, err := z.httpClient.Do(req)
	if err != nil {
		return nil, &retry.TransientError{Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, &retry.RateLimitError{Err: fmt.Errorf("zerogpt returned %d", httpResp.StatusCode)}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &retry.TransientError{Err: fmt.Errorf("zerogpt returned %d", httpResp.StatusCode)}
	}

	var parsed zerogptResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, &retry.MalformedError{Err: err}
	}
	if parsed.Data == nil {
		return nil, &retry.MalformedError{Err: fmt.Errorf("zerogpt response missing data field")}
	}
	return &parsed, nil
}
