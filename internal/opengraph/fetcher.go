// Package opengraph resolves previews by fetching the linked page itself and
// reading its Open Graph tags.
package opengraph

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html"

	"github.com/enzyme/peek/internal/linkpreview"
)

const (
	maxBodySize    = 1 << 20 // 1 MB
	fetchTimeout   = 5 * time.Second
	maxRedirects   = 3
	userAgentValue = "Peekbot/1.0 (+https://github.com/enzyme/peek)"
)

// ogData holds parsed Open Graph metadata.
type ogData struct {
	Title       string
	Description string
	ImageURL    string
	ImageWidth  int
	ImageHeight int
	SiteName    string
}

// Fetcher implements linkpreview.Fetcher against the target pages.
type Fetcher struct {
	client *http.Client
}

var _ linkpreview.Fetcher = (*Fetcher)(nil)

// NewFetcher creates a Fetcher with an SSRF-safe HTTP client.
func NewFetcher(timeout time.Duration) *Fetcher {
	return NewFetcherWithClient(newSafeClient(timeout))
}

// NewFetcherWithClient creates a Fetcher with a custom HTTP client.
// If client is nil, a default SSRF-safe client is used.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	if client == nil {
		client = newSafeClient(fetchTimeout)
	}
	return &Fetcher{client: client}
}

func newSafeClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = fetchTimeout
	}
	transport := &http.Transport{
		DialContext: safeDialContext,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

// Fetch GETs rawURL and turns its Open Graph tags into a preview.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) linkpreview.Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return linkpreview.Failed(rawURL, linkpreview.ErrorTypeLinkContentError, "Invalid URL: "+linkpreview.MessageLinkContent)
	}
	req.Header.Set("User-Agent", userAgentValue)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		failure := linkpreview.ClassifyTransportError(rawURL, err)
		return linkpreview.Failed(rawURL, failure.Type, failure.Message)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		failure := linkpreview.ClassifyStatus(rawURL, resp.StatusCode, string(body))
		return linkpreview.Failed(rawURL, failure.Type, failure.Message)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "text/html") {
		return linkpreview.Failed(rawURL, linkpreview.ErrorTypeLinkContentError, linkpreview.MessageLinkContent)
	}

	og, err := parseOG(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return linkpreview.Failed(rawURL, linkpreview.ErrorTypeInvalidResponse, linkpreview.MessageInvalidResponse)
	}
	if og.Title == "" && og.Description == "" {
		return linkpreview.Failed(rawURL, linkpreview.ErrorTypeLinkContentError, linkpreview.MessageLinkContent)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	rec := linkpreview.Record{
		ID:          rawURL,
		URL:         finalURL,
		OriginalURL: rawURL,
		Title:       og.Title,
		Description: og.Description,
		Domain:      hostOf(finalURL),
		SiteName:    og.SiteName,
	}
	if og.ImageURL != "" {
		rec.Image = &linkpreview.ImageSet{
			Original: &linkpreview.ImageVariant{
				URL:    resolveReference(finalURL, og.ImageURL),
				Width:  og.ImageWidth,
				Height: og.ImageHeight,
			},
		}
	}
	return linkpreview.Succeeded(rec)
}

// parseOG extracts og:* meta tags and falls back to <title> / <meta name="description">.
func parseOG(r io.Reader) (*ogData, error) {
	tokenizer := html.NewTokenizer(r)
	data := &ogData{}
	var fallbackTitle string
	var fallbackDesc string

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != io.EOF {
				// A truncated body still yields whatever was read.
				if data.Title == "" && fallbackTitle == "" && data.Description == "" && fallbackDesc == "" {
					return nil, err
				}
			}
			applyFallbacks(data, fallbackTitle, fallbackDesc)
			return data, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tag := string(tn)

			if tag == "body" {
				applyFallbacks(data, fallbackTitle, fallbackDesc)
				return data, nil
			}

			if tag == "title" && fallbackTitle == "" {
				if tokenizer.Next() == html.TextToken {
					fallbackTitle = strings.TrimSpace(string(tokenizer.Text()))
				}
				continue
			}

			if tag == "meta" && hasAttr {
				attrs := readAttrs(tokenizer)
				content := attrs["content"]

				switch attrs["property"] {
				case "og:title":
					data.Title = content
				case "og:description":
					data.Description = content
				case "og:image", "og:image:url":
					if data.ImageURL == "" {
						data.ImageURL = content
					}
				case "og:image:width":
					data.ImageWidth, _ = strconv.Atoi(content)
				case "og:image:height":
					data.ImageHeight, _ = strconv.Atoi(content)
				case "og:site_name":
					data.SiteName = content
				}

				if attrs["name"] == "description" && fallbackDesc == "" {
					fallbackDesc = content
				}
			}
		}
	}
}

func applyFallbacks(data *ogData, fallbackTitle, fallbackDesc string) {
	if data.Title == "" {
		data.Title = fallbackTitle
	}
	if data.Description == "" {
		data.Description = fallbackDesc
	}
}

// readAttrs collects all attributes from the current tag token.
func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		if k := string(key); k != "" {
			attrs[k] = string(val)
		}
		if !more {
			break
		}
	}
	return attrs
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// resolveReference makes a relative og:image absolute against the page URL.
func resolveReference(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// privateRanges are CIDR blocks for private / loopback IPs.
var privateRanges []*net.IPNet

func init() {
	for _, cidr := range []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, block, _ := net.ParseCIDR(cidr)
		privateRanges = append(privateRanges, block)
	}
}

func isPrivateIP(ip net.IP) bool {
	for _, block := range privateRanges {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// safeDialContext resolves DNS then rejects private IPs before connecting.
func safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}

	for _, ip := range ips {
		if isPrivateIP(ip.IP) {
			return nil, fmt.Errorf("connection to private IP %s is not allowed", ip.IP)
		}
	}

	dialer := &net.Dialer{Timeout: fetchTimeout}
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}
