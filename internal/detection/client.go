package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/oakwatch/sentinel-core/internal/infrastructure/config"
)

// Submitter is the interface the capture pipeline needs from this package.
type Submitter interface {
	// Submit asks the detection service to analyze a stored frame.
	Submit(ctx context.Context, evidenceID int64, filePath string) error
}

// Client submits stored frames to the external detection service.
//
// The call is fire-and-forget: the service analyzes asynchronously and writes
// its result back to the evidence row out-of-band. Callers swallow errors
// (logging at low severity); nothing is retried and no response body is read
// beyond the status line.
type Client struct {
	baseURL string
	http    *http.Client
}

// analyzeRequest is the body of POST {base}/analyze.
type analyzeRequest struct {
	EvidenceID int64  `json:"evidence_id"`
	FilePath   string `json:"file_path"`
}

// New creates a detection client from config.
// The short timeout is deliberate: a slow detection service must never stall
// frame processing.
func New(cfg config.DetectionConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: cfg.TimeoutDuration(),
		},
	}
}

// Submit posts {evidence_id, file_path} to the detection service.
//
// A non-2xx status is an error so callers can log it, but by contract the
// evidence row is already committed and is never rolled back because of the
// outcome here.
func (c *Client) Submit(ctx context.Context, evidenceID int64, filePath string) error {
	body, err := json.Marshal(analyzeRequest{
		EvidenceID: evidenceID,
		FilePath:   filePath,
	})
	if err != nil {
		return fmt.Errorf("marshalling analyze request: %w", err)
	}

	url := c.baseURL + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting to detection service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("detection service returned status %d", resp.StatusCode)
	}
	return nil
}

// interface guard
var _ Submitter = (*Client)(nil)
