package seed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/giygas/druginteractions-api/logging"
	"golang.org/x/text/encoding/charmap"
)

// maxFixtureSize bounds a downloaded fixture
const maxFixtureSize = 32 * 1024 * 1024

var fetchClient = &http.Client{Timeout: 5 * time.Minute}

// Fetch downloads and decodes a fixture published over HTTP. Exports from
// older tooling are Windows-1252 encoded and get converted to UTF-8.
func Fetch(ctx context.Context, rawURL string) (*Fixture, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid fixture url: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}

	response, err := fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: unexpected status %s", rawURL, response.Status)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxFixtureSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxFixtureSize {
		return nil, fmt.Errorf("fixture at %s exceeds %d bytes", rawURL, maxFixtureSize)
	}

	if !utf8.Valid(body) {
		decoded, err := io.ReadAll(charmap.Windows1252.NewDecoder().Reader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode fixture: %w", err)
		}
		logging.Debug("Fixture converted from Windows-1252", "url", rawURL)
		body = decoded
	}

	logging.Debug(fmt.Sprintf("%s downloaded without errors", rawURL), "bytes", len(body))
	return Parse(body)
}
