package topaz

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"mediaboost/internal/domain"
	"mediaboost/internal/upload"
)

// multipartSubmitter implements the current four-step protocol
// generation: create, accept, multipart transfer, complete. Remote
// processing begins only once the complete call succeeds; bytes already
// transferred are inert until then.
type multipartSubmitter struct {
	c *Client
}

func (s multipartSubmitter) Submit(ctx context.Context, src Source, job JobRequest) (*Submission, error) {
	id, _, err := s.c.createJob(ctx, src, job)
	if err != nil {
		return nil, err
	}
	state := domain.UploadJob{
		ID:     id,
		Kind:   domain.KindVideo,
		Source: src.Meta,
		Output: job.Output,
		Status: domain.StatusCreated,
	}

	uploadID, urls, err := s.c.acceptUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	state.Advance(domain.StatusAccepted)
	s.c.logger.Debug().
		Str("job_id", id).
		Str("upload_id", uploadID).
		Int("parts", len(urls)).
		Msg("topaz: upload session accepted")

	size := src.Meta.SizeBytes
	file, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("topaz: open source: %w", err)
	}
	defer file.Close()
	if size <= 0 {
		st, err := file.Stat()
		if err != nil {
			return nil, fmt.Errorf("topaz: stat source: %w", err)
		}
		size = st.Size()
	}

	state.Plan, err = upload.Plan(size, len(urls))
	if err != nil {
		return nil, err
	}

	state.Advance(domain.StatusUploading)
	state.Results, err = s.c.uploader.UploadParts(ctx, file, state.Plan, urls)
	if err != nil {
		return nil, err
	}

	// An empty acknowledgement token cannot be distinguished from a
	// lost part, and the remote commit rejects incomplete token sets
	// with an opaque error. Fail fast here instead.
	for _, res := range state.Results {
		if res.ETag == "" {
			return nil, fmt.Errorf("topaz: part %d acknowledged without etag", res.Number)
		}
	}

	if err := s.c.completeUpload(ctx, id, state.Results); err != nil {
		return nil, err
	}
	state.Advance(domain.StatusUploaded)
	s.c.logger.Debug().Str("job_id", id).Str("status", string(state.Status)).Msg("topaz: upload finalized")

	return &Submission{JobID: id}, nil
}

// createJob submits the full job parameters and returns the remote job
// identifier plus the presigned upload URL some API generations include
// in the creation response.
func (c *Client) createJob(ctx context.Context, src Source, job JobRequest) (string, string, error) {
	payload := buildCreateRequest(src.Meta, job.Output)

	var decoded createResponse
	if err := c.doJSON(ctx, http.MethodPost, "/video/", payload, &decoded); err != nil {
		return "", "", err
	}
	id := firstOf(decoded.RequestID, decoded.ID)
	if id == "" {
		return "", "", fmt.Errorf("topaz: create response: %w", domain.ErrNoJobID)
	}
	return id, decoded.UploadURL, nil
}

// acceptUpload requests permission to upload and returns the upload
// session id with one presigned URL per part.
func (c *Client) acceptUpload(ctx context.Context, id string) (string, []string, error) {
	var decoded acceptResponse
	if err := c.doJSON(ctx, http.MethodPatch, "/video/"+id+"/accept", struct{}{}, &decoded); err != nil {
		return "", nil, err
	}
	if decoded.UploadID == "" || len(decoded.URLs) == 0 {
		return "", nil, fmt.Errorf("topaz: accept did not return multipart urls")
	}
	return decoded.UploadID, decoded.URLs, nil
}

// completeUpload hands the collected acknowledgement tokens back to the
// API, which triggers remote processing. A failure here leaves the
// remote job accepted but never completed; the protocol offers no
// compensating cancellation call.
func (c *Client) completeUpload(ctx context.Context, id string, results []domain.PartResult) error {
	payload := completeRequest{UploadResults: results}
	return c.doJSON(ctx, http.MethodPatch, "/video/"+id+"/complete-upload/", payload, nil)
}
