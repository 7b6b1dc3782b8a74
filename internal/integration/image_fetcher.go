// Package integration handles external service interactions
package integration

import (
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultMaxImageBytes caps downloads; Telegram bot downloads are limited to 20 MB
const DefaultMaxImageBytes = 20 << 20

// ImageFetcher downloads submitted images from remote URLs
type ImageFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewImageFetcher creates a fetcher with a bounded timeout and size
func NewImageFetcher(timeout time.Duration, maxBytes int64) *ImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// FetchImage retrieves the raw bytes at url
func (f *ImageFetcher) FetchImage(url string) ([]byte, error) {
	res, err := f.client.Get(url)
	if err != nil {
		return nil, eris.Wrap(err, "failed to fetch image")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		zap.L().Warn("unexpected status fetching image", zap.Int("status", res.StatusCode))
		return nil, eris.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, f.maxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "failed to read image body")
	}
	if int64(len(data)) > f.maxBytes {
		return nil, eris.Errorf("image exceeds %d bytes", f.maxBytes)
	}

	zap.L().Debug("fetched image", zap.Int("bytes", len(data)))
	return data, nil
}
