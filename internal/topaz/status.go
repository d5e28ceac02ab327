package topaz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mediaboost/internal/domain"
	"mediaboost/internal/metrics"
)

// JobStatus is the normalized remote job state. Status is always one of
// queued, processing, completed or failed.
type JobStatus struct {
	Status    string    `json:"status"`
	Progress  float64   `json:"progress,omitempty"`
	Download  *Download `json:"download,omitempty"`
	Error     string    `json:"error,omitempty"`
	UploadURL string    `json:"uploadUrl,omitempty"`
}

// Download is the remote-hosted, time-limited result handle.
type Download struct {
	URL string `json:"url"`
}

// Completed reports whether the job finished successfully.
func (s *JobStatus) Completed() bool {
	return s.Status == string(domain.StatusCompleted)
}

// Failed reports whether the remote declared the job failed.
func (s *JobStatus) Failed() bool {
	return s.Status == string(domain.StatusFailed)
}

type statusResponse struct {
	Status   string      `json:"status"`
	State    string      `json:"state"`
	Progress json.Number `json:"progress"`
	Download struct {
		URL string `json:"url"`
	} `json:"download"`
	DownloadURL string `json:"downloadUrl"`
	Error       string `json:"error"`
	Message     string `json:"message"`
	UploadURL   string `json:"uploadUrl"`
}

// Status polls the remote job state once and normalizes the result.
// Observed API generations are inconsistent about signaling success:
// some set an explicit status, others only populate the download
// handle, so both are checked.
func (c *Client) Status(ctx context.Context, id string) (*JobStatus, error) {
	var decoded statusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/video/"+id+"/status", nil, &decoded); err != nil {
		return nil, err
	}
	metrics.StatusPolls.Inc()

	st := &JobStatus{
		Error:     firstOf(decoded.Error, decoded.Message),
		UploadURL: decoded.UploadURL,
	}
	if p, err := decoded.Progress.Float64(); err == nil {
		st.Progress = p
	}
	downloadURL := firstOf(decoded.Download.URL, decoded.DownloadURL)
	if downloadURL != "" {
		st.Download = &Download{URL: downloadURL}
	}
	st.Status = normalizeState(firstOf(decoded.Status, decoded.State), downloadURL)
	return st, nil
}

func normalizeState(raw, downloadURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "complete", "completed", "success", "succeeded", "done":
		return string(domain.StatusCompleted)
	case "failed", "error", "cancelled", "canceled":
		return string(domain.StatusFailed)
	case "processing", "running", "in_progress", "in-progress":
		return string(domain.StatusProcessing)
	}
	if downloadURL != "" {
		return string(domain.StatusCompleted)
	}
	return string(domain.StatusQueued)
}

// Download fetches the enhanced result through the remote download
// handle. It returns domain.ErrNotReady while the job is still being
// processed and domain.ErrJobFailed once the remote declared failure.
func (c *Client) Download(ctx context.Context, id string) (io.ReadCloser, string, int64, error) {
	st, err := c.Status(ctx, id)
	if err != nil {
		return nil, "", 0, err
	}
	if st.Failed() {
		detail := st.Error
		if detail == "" {
			detail = "no detail provided"
		}
		return nil, "", 0, fmt.Errorf("topaz: %s: %w", detail, domain.ErrJobFailed)
	}
	if st.Download == nil || st.Download.URL == "" {
		return nil, "", 0, domain.ErrNotReady
	}

	// The download handle is presigned; no API key travels with it.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, st.Download.URL, nil)
	if err != nil {
		return nil, "", 0, fmt.Errorf("topaz: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", 0, fmt.Errorf("topaz: download: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, "", 0, c.apiError(resp)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return resp.Body, contentType, resp.ContentLength, nil
}
