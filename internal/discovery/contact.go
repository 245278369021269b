package discovery

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	emailRe     = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	instagramRe = regexp.MustCompile(`instagram\.com/([a-zA-Z0-9_.]+)`)

	// Builder and placeholder domains that show up in site templates.
	ignoredEmailParts = []string{"example.com", "wixpress", "squarespace"}
	// Instagram paths that are not profiles.
	ignoredHandles = []string{"p", "reel", "stories", "explore"}
)

const maxEmailLen = 50

// ExtractEmail returns the first plausible contact address in page.
func ExtractEmail(page string) string {
	for _, e := range emailRe.FindAllString(page, -1) {
		if len(e) >= maxEmailLen {
			continue
		}
		if slices.ContainsFunc(ignoredEmailParts, func(part string) bool { return strings.Contains(e, part) }) {
			continue
		}
		return e
	}
	return ""
}

// ExtractInstagram returns the first profile handle linked from page.
func ExtractInstagram(page string) string {
	for _, m := range instagramRe.FindAllStringSubmatch(page, -1) {
		handle := strings.TrimRight(m[1], ".")
		if handle == "" || slices.Contains(ignoredHandles, handle) {
			continue
		}
		return handle
	}
	return ""
}

// fetchSite returns the website content, through the reader service when
// one is configured.
func (f *Finder) fetchSite(ctx context.Context, site string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, sitePageTimeout)
	defer cancel()

	if f.reader != nil {
		resp, err := f.reader.Read(ctx, site)
		if err != nil {
			return "", eris.Wrap(err, "discovery: read site")
		}
		return resp.Data.Content, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site, nil)
	if err != nil {
		return "", eris.Wrap(err, "discovery: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.hc.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "discovery: fetch site")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("discovery: unexpected status %d from %s", resp.StatusCode, site)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", eris.Wrap(err, "discovery: read body")
	}
	return string(body), nil
}
