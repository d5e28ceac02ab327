package topaz

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
)

// directSubmitter implements the middle protocol generation: job
// creation optionally returns a presigned URL and the whole file is
// transferred in one request. Deployments of this generation disagree
// about which upload path works, so the transfer falls back from the
// presigned PUT to the job-scoped upload endpoint and finally to a PUT
// against a re-queried URL. Each tier runs at most once, in that order.
type directSubmitter struct {
	c *Client
}

func (s directSubmitter) Submit(ctx context.Context, src Source, job JobRequest) (*Submission, error) {
	id, uploadURL, err := s.c.createJob(ctx, src, job)
	if err != nil {
		return nil, err
	}

	if uploadURL != "" {
		if err := s.putWholeFile(ctx, uploadURL, src); err == nil {
			return &Submission{JobID: id}, nil
		} else {
			s.c.logger.Warn().Err(err).Str("job_id", id).Msg("topaz: presigned upload failed, trying job endpoint")
		}
	}

	notFound, err := s.postToJobEndpoint(ctx, id, src)
	if err == nil {
		return &Submission{JobID: id}, nil
	}
	if !notFound {
		return nil, err
	}
	s.c.logger.Warn().Err(err).Str("job_id", id).Msg("topaz: job endpoint missing, re-querying upload url")

	st, err := s.c.Status(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("topaz: re-query upload url: %w", err)
	}
	if st.UploadURL == "" {
		return nil, fmt.Errorf("topaz: no upload destination available for job %s", id)
	}
	if err := s.putWholeFile(ctx, st.UploadURL, src); err != nil {
		return nil, err
	}
	return &Submission{JobID: id}, nil
}

// putWholeFile PUTs the raw source bytes to a presigned URL. The URL is
// already authenticated; no API key is attached.
func (s directSubmitter) putWholeFile(ctx context.Context, dest string, src Source) error {
	file, err := os.Open(src.Path)
	if err != nil {
		return fmt.Errorf("topaz: open source: %w", err)
	}
	defer file.Close()
	st, err := file.Stat()
	if err != nil {
		return fmt.Errorf("topaz: stat source: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, dest, file)
	if err != nil {
		return fmt.Errorf("topaz: build upload request: %w", err)
	}
	req.ContentLength = st.Size()

	resp, err := s.c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("topaz: upload put: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("topaz: upload put returned status %d", resp.StatusCode)
	}
	return nil
}

// postToJobEndpoint uploads the file as a multipart form to the
// job-scoped endpoint. The second return distinguishes a "not found"
// condition, which signals that a refreshed presigned URL should be
// tried instead.
func (s directSubmitter) postToJobEndpoint(ctx context.Context, id string, src Source) (bool, error) {
	file, err := os.Open(src.Path)
	if err != nil {
		return false, fmt.Errorf("topaz: open source: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", src.Name)
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := s.c.newRequest(ctx, http.MethodPost, "/video/"+id+"/upload", pr)
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("topaz: upload post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return resp.StatusCode == http.StatusNotFound, s.c.apiError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return false, nil
}
