package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
)

// UploadImage posts an image as multipart field "file" and returns its
// public URL.
func (c *Client) UploadImage(ctx context.Context, filename string, data []byte, credential string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: upload image: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read upload response: %w", ErrUnavailable, err)
	}

	var out struct {
		URL    string          `json:"url"`
		Errors []ResponseError `json:"errors"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return "", fmt.Errorf("%w: upload returned status %d", ErrUnavailable, resp.StatusCode)
		}
		return "", fmt.Errorf("decode upload response (status %d): %w", resp.StatusCode, err)
	}
	if len(out.Errors) > 0 {
		return "", responseError(out.Errors[0])
	}
	if resp.StatusCode != http.StatusOK || out.URL == "" {
		return "", fmt.Errorf("%w: upload returned status %d", ErrUnavailable, resp.StatusCode)
	}
	return out.URL, nil
}
