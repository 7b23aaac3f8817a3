// Package alpha calls an external decoder service that reads metadata hidden
// in the alpha channel of NovelAI images.
package alpha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Client posts images to the decoder service
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// New returns a client for url, falling back to ALPHA_DECODER_URL
func New(url string) *Client {
	if url == "" {
		url = os.Getenv("ALPHA_DECODER_URL")
	}
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether a service URL is configured
func (c *Client) Enabled() bool {
	return c != nil && c.URL != ""
}

type decodeRequest struct {
	ImageData string `json:"image_data"`
	Filename  string `json:"filename"`
}

type decodeResponse struct {
	Success  bool           `json:"success"`
	Metadata map[string]any `json:"metadata"`
	Error    string         `json:"error"`
}

// Decode sends the image and returns the metadata object the service found.
// A 404 means the image carries no hidden metadata and returns nil, nil.
func (c *Client) Decode(ctx context.Context, image []byte, filename string) (map[string]any, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("alpha decoder URL is not configured")
	}

	requestBody, err := json.Marshal(decodeRequest{
		ImageData: base64.StdEncoding.EncodeToString(image),
		Filename:  filename,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.URL, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response decodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if !response.Success {
		return nil, fmt.Errorf("decoder reported failure: %s", response.Error)
	}

	return response.Metadata, nil
}
