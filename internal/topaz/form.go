package topaz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"mediaboost/internal/domain"
)

// formSubmitter implements the oldest protocol generation: job
// parameters and the file payload travel together in one multipart
// form POST. Simple, but with no resumability or parallelism; kept for
// accounts that never migrated.
type formSubmitter struct {
	c *Client
}

func (s formSubmitter) Submit(ctx context.Context, src Source, job JobRequest) (*Submission, error) {
	file, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("topaz: open source: %w", err)
	}
	defer file.Close()

	params, err := json.Marshal(buildCreateRequest(src.Meta, job.Output))
	if err != nil {
		return nil, fmt.Errorf("topaz: encode job params: %w", err)
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		err := form.WriteField("params", string(params))
		if err == nil {
			var part io.Writer
			part, err = form.CreateFormFile("file", src.Name)
			if err == nil {
				_, err = io.Copy(part, file)
			}
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := s.c.newRequest(ctx, http.MethodPost, "/video/", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("topaz: submit form: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, s.c.apiError(resp)
	}

	var decoded createResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("topaz: decode submit response: %w", err)
	}
	id := firstOf(decoded.RequestID, decoded.ID)
	if id == "" {
		return nil, fmt.Errorf("topaz: submit response: %w", domain.ErrNoJobID)
	}
	return &Submission{JobID: id}, nil
}
