// Package ocr is an HTTP client for the external OCR service that reads
// transfer screenshots. The service receives the raw image and returns the
// recognized text; interpreting that text is the parsers' job.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Client talks to the OCR service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// recognizeResponse is the service's JSON reply.
type recognizeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Recognize sends one screenshot and returns the recognized text.
func (c *Client) Recognize(ctx context.Context, image []byte, filename string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recognition failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result recognizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("recognition failed: %s", result.Error)
	}
	return result.Text, nil
}

// Image is one screenshot queued for recognition.
type Image struct {
	Name string
	Data []byte
}

// maxConcurrent bounds parallel requests so a large upload batch does not
// overwhelm the OCR service.
const maxConcurrent = 4

// RecognizeAll runs recognition over a batch of screenshots concurrently.
// Results keep the input order. The first failure cancels the rest.
func (c *Client) RecognizeAll(ctx context.Context, images []Image) ([]string, error) {
	texts := make([]string, len(images))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, img := range images {
		g.Go(func() error {
			text, err := c.Recognize(ctx, img.Data, img.Name)
			if err != nil {
				return fmt.Errorf("recognize %s: %w", img.Name, err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}
