package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"mediaboost/internal/domain"
	"mediaboost/internal/infra"
	"mediaboost/internal/metrics"
)

// DefaultConcurrency bounds in-flight part transfers per job.
const DefaultConcurrency = 6

// Uploader transfers planned parts to their presigned destinations with
// bounded parallelism. Part transfers are all-or-nothing: a single
// irrecoverable failure aborts the whole job so the remote completion
// call is never attempted with missing parts.
type Uploader struct {
	client      *http.Client
	concurrency int
	logger      infra.Logger
}

func NewUploader(client *http.Client, concurrency int, logger infra.Logger) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Uploader{client: client, concurrency: concurrency, logger: logger}
}

// UploadParts PUTs each part's byte range to the URL with the same
// index. Workers read disjoint ranges of file through SectionReaders;
// the results are indexed by part number, not completion order. The
// caller keeps ownership of file and must not remove it before
// UploadParts returns.
func (u *Uploader) UploadParts(ctx context.Context, file *os.File, parts []domain.Part, urls []string) ([]domain.PartResult, error) {
	if len(parts) != len(urls) {
		return nil, fmt.Errorf("upload: %d parts planned but %d urls provided", len(parts), len(urls))
	}

	results := make([]domain.PartResult, len(parts))

	g, ctx := errgroup.WithContext(ctx)
	limit := u.concurrency
	if len(parts) < limit {
		limit = len(parts)
	}
	g.SetLimit(limit)

	for i := range parts {
		part, dest := parts[i], urls[i]
		slot := i
		g.Go(func() error {
			etag, err := u.putPart(ctx, file, part, dest)
			if err != nil {
				return err
			}
			results[slot] = domain.PartResult{Number: part.Number, ETag: etag}
			metrics.PartsUploaded.Inc()
			metrics.UploadedBytes.Add(float64(part.Length))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (u *Uploader) putPart(ctx context.Context, file *os.File, part domain.Part, dest string) (string, error) {
	body := io.NewSectionReader(file, part.Offset, part.Length)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, dest, body)
	if err != nil {
		return "", fmt.Errorf("upload: build request for part %d: %w", part.Number, err)
	}
	req.ContentLength = part.Length

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: part %d: %w", part.Number, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Object-storage backends disagree on the success status: some
	// answer 200, others 204 or a redirect.
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("upload: part %d: destination returned status %d", part.Number, resp.StatusCode)
	}

	etag := strings.Trim(resp.Header.Get("ETag"), `"`)
	if etag == "" {
		u.logger.Warn().Int("part", part.Number).Msg("upload: destination returned no etag")
	}
	return etag, nil
}
