package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"
)

// MaxImageSize is the largest image accepted from uploads and URLs
const MaxImageSize = 10 * 1024 * 1024

// Fetcher downloads images by URL
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads the image at imageURL and returns its bytes together with
// the file name taken from the URL path
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("invalid image URL: %s", imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	imageData, err := ReadLimited(resp.Body)
	if err != nil {
		return nil, "", err
	}

	filename := path.Base(u.Path)
	if filename == "/" || filename == "." {
		filename = ""
	}

	slog.Debug("Fetched image", "url", imageURL, "filename", filename, "size", len(imageData))
	return imageData, filename, nil
}

// ReadLimited reads an image body, failing when it exceeds MaxImageSize
func ReadLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("file too large (max 10MB)")
	}
	return data, nil
}
