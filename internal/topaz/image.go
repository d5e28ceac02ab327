package topaz

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
)

// ImageParams selects the synchronous image enhancement options.
type ImageParams struct {
	Model        string
	OutputFormat string
	Scale        float64
}

// EnhanceImage performs the synchronous single request/response image
// passthrough and returns the enhanced bytes with their content type.
// No job is created remotely; there is nothing to poll.
func (c *Client) EnhanceImage(ctx context.Context, src Source, params ImageParams) ([]byte, string, error) {
	file, err := os.Open(src.Path)
	if err != nil {
		return nil, "", fmt.Errorf("topaz: open source: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		err := form.WriteField("model", params.Model)
		if err == nil && params.OutputFormat != "" {
			err = form.WriteField("output_format", params.OutputFormat)
		}
		if err == nil && params.Scale > 0 {
			err = form.WriteField("upscale_factor", strconv.FormatFloat(params.Scale, 'f', -1, 64))
		}
		if err == nil {
			var part io.Writer
			part, err = form.CreateFormFile("image", src.Name)
			if err == nil {
				_, err = io.Copy(part, file)
			}
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/image/v1/enhance", pr)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("topaz: enhance image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", c.apiError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("topaz: read enhanced image: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/" + firstOf(params.OutputFormat, "jpeg")
	}
	return data, contentType, nil
}
