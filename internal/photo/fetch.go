package photo

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suplook/internal/vision"
)

// DefaultImageTimeout bounds a single image download.
const DefaultImageTimeout = 15 * time.Second

const maxImageBytes = 10 << 20

// Fetcher downloads a photo so it can be sent to the classifier.
type Fetcher struct {
	http *http.Client
}

// NewFetcher creates a Fetcher with the given download timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	return &Fetcher{http: &http.Client{Timeout: timeout}}
}

// NewFetcherWithClient creates a Fetcher over an existing client.
func NewFetcherWithClient(hc *http.Client) *Fetcher {
	return &Fetcher{http: hc}
}

// Fetch downloads imageURL. The media type comes from Content-Type, then
// content sniffing, then image/jpeg.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) (vision.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return vision.Image{}, eris.Wrap(err, "photo: create image request")
	}
	for k, v := range BrowserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return vision.Image{}, eris.Wrap(err, "photo: fetch image")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return vision.Image{}, eris.Errorf("photo: image fetch unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return vision.Image{}, eris.Wrap(err, "photo: read image")
	}
	if len(data) == 0 {
		return vision.Image{}, eris.New("photo: empty image body")
	}

	return vision.Image{MediaType: mediaType(resp.Header.Get("Content-Type"), data), Data: data}, nil
}

func mediaType(header string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	if mt := http.DetectContentType(data); strings.HasPrefix(mt, "image/") {
		return mt
	}
	return "image/jpeg"
}
