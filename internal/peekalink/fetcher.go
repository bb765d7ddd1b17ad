package peekalink

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/enzyme/peek/internal/linkpreview"
)

const messageUnavailable = "Preview unavailable"

// payload is the subset of the provider response that previews use.
type payload struct {
	OK          bool                  `json:"ok"`
	Status      int                   `json:"status"`
	Error       string                `json:"error"`
	Message     string                `json:"message"`
	ID          json.RawMessage       `json:"id"`
	URL         string                `json:"url"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Domain      string                `json:"domain"`
	SiteName    string                `json:"siteName"`
	Image       *linkpreview.ImageSet `json:"image"`
}

// Fetcher implements linkpreview.Fetcher on top of a Transport.
type Fetcher struct {
	transport Transport
	logger    *slog.Logger
}

var _ linkpreview.Fetcher = (*Fetcher)(nil)

// NewFetcher creates a Fetcher. A nil logger uses slog.Default.
func NewFetcher(transport Transport, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{transport: transport, logger: logger}
}

// Fetch resolves url through the provider. It never fails outright: every
// problem is classified into a failed Outcome.
func (f *Fetcher) Fetch(ctx context.Context, url string) linkpreview.Outcome {
	o := f.fetch(ctx, url)
	if o.OK() {
		f.logger.Debug("preview fetched", "url", url, "id", o.Record.ID)
	} else {
		f.logger.Debug("preview fetch failed", "url", url, "error_type", o.Failure.Type, "error", o.Failure.Message)
	}
	return o
}

func (f *Fetcher) fetch(ctx context.Context, url string) linkpreview.Outcome {
	resp, err := f.transport.Post(ctx, url)
	if err != nil {
		return linkpreview.Outcome{Failure: linkpreview.ClassifyTransportError(url, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return linkpreview.Outcome{Failure: linkpreview.ClassifyStatus(url, resp.StatusCode, string(resp.Body))}
	}

	var p payload
	if err := json.Unmarshal(resp.Body, &p); err != nil {
		return linkpreview.Failed(url, linkpreview.ErrorTypeInvalidResponse, linkpreview.MessageInvalidResponse)
	}

	if p.Status >= 400 {
		return linkpreview.Failed(url, linkpreview.ErrorTypeLinkContentError, linkpreview.MessageLinkContent)
	}

	if !p.OK {
		msg := p.Error
		if msg == "" {
			msg = p.Message
		}
		if msg == "" {
			msg = messageUnavailable
		}
		return linkpreview.Failed(url, linkpreview.ErrorTypeUnknown, msg)
	}

	rec := linkpreview.Record{
		ID:          idString(p.ID),
		URL:         p.URL,
		OriginalURL: url,
		Title:       p.Title,
		Description: p.Description,
		Domain:      p.Domain,
		SiteName:    p.SiteName,
		Image:       p.Image,
	}
	if rec.ID == "" {
		rec.ID = url
	}
	if rec.URL == "" {
		rec.URL = url
	}
	return linkpreview.Succeeded(rec)
}

// idString renders a string or numeric id. Anything else yields "".
func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return strings.TrimSpace(n.String())
	}
	return ""
}
