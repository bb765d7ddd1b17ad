package opengraph

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/enzyme/peek/internal/linkpreview"
)

func newTestFetcher() *Fetcher {
	return NewFetcherWithClient(&http.Client{Timeout: fetchTimeout})
}

func TestFetch_FullMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
			<meta property="og:title" content="Test Title">
			<meta property="og:description" content="Test Description">
			<meta property="og:image" content="/img.png">
			<meta property="og:image:width" content="1200">
			<meta property="og:image:height" content="630">
			<meta property="og:site_name" content="TestSite">
		</head><body></body></html>`)
	}))
	defer srv.Close()

	o := newTestFetcher().Fetch(context.Background(), srv.URL)
	if !o.OK() {
		t.Fatalf("expected success, got %+v", o.Failure)
	}
	rec := o.Record
	if rec.Title != "Test Title" {
		t.Errorf("title = %q, want %q", rec.Title, "Test Title")
	}
	if rec.Description != "Test Description" {
		t.Errorf("description = %q, want %q", rec.Description, "Test Description")
	}
	if rec.SiteName != "TestSite" {
		t.Errorf("site_name = %q, want %q", rec.SiteName, "TestSite")
	}
	if rec.ID != srv.URL || rec.OriginalURL != srv.URL {
		t.Errorf("identity = (%q, %q), want %q", rec.ID, rec.OriginalURL, srv.URL)
	}
	if rec.Image == nil || rec.Image.Original == nil {
		t.Fatal("expected original image variant")
	}
	if rec.Image.Original.URL != srv.URL+"/img.png" {
		t.Errorf("image url = %q, want %q", rec.Image.Original.URL, srv.URL+"/img.png")
	}
	if rec.Image.Original.Width != 1200 || rec.Image.Original.Height != 630 {
		t.Errorf("image size = %dx%d, want 1200x630", rec.Image.Original.Width, rec.Image.Original.Height)
	}
	for _, width := range []int{320, linkpreview.TwoColumnWidth, linkpreview.GridWidth} {
		if got := linkpreview.BestImageURL(rec, width); got != srv.URL+"/img.png" {
			t.Errorf("BestImageURL(%d) = %q, want the og:image", width, got)
		}
	}
}

func TestFetch_FallbackTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
			<title>Fallback Title</title>
			<meta name="description" content="Fallback Description">
		</head><body></body></html>`)
	}))
	defer srv.Close()

	o := newTestFetcher().Fetch(context.Background(), srv.URL)
	if !o.OK() {
		t.Fatalf("expected success, got %+v", o.Failure)
	}
	if o.Record.Title != "Fallback Title" {
		t.Errorf("title = %q, want %q", o.Record.Title, "Fallback Title")
	}
	if o.Record.Description != "Fallback Description" {
		t.Errorf("description = %q, want %q", o.Record.Description, "Fallback Description")
	}
}

func TestFetch_NonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"key": "value"}`)
	}))
	defer srv.Close()

	o := newTestFetcher().Fetch(context.Background(), srv.URL)
	if o.OK() {
		t.Fatal("expected failure for non-HTML")
	}
	if o.Failure.Type != linkpreview.ErrorTypeLinkContentError {
		t.Errorf("type = %s, want %s", o.Failure.Type, linkpreview.ErrorTypeLinkContentError)
	}
}

func TestFetch_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   linkpreview.ErrorType
	}{
		{http.StatusNotFound, linkpreview.ErrorTypeUnknown},
		{http.StatusForbidden, linkpreview.ErrorTypeForbidden},
		{http.StatusTooManyRequests, linkpreview.ErrorTypeRateLimited},
		{http.StatusBadGateway, linkpreview.ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			o := newTestFetcher().Fetch(context.Background(), srv.URL)
			if o.OK() {
				t.Fatal("expected failure")
			}
			if o.Failure.Type != tt.want {
				t.Errorf("type = %s, want %s", o.Failure.Type, tt.want)
			}
		})
	}
}

func TestFetch_NoMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head></head><body>nothing</body></html>`)
	}))
	defer srv.Close()

	o := newTestFetcher().Fetch(context.Background(), srv.URL)
	if o.OK() {
		t.Fatal("expected failure for page without metadata")
	}
	if o.Failure.Type != linkpreview.ErrorTypeLinkContentError {
		t.Errorf("type = %s, want %s", o.Failure.Type, linkpreview.ErrorTypeLinkContentError)
	}
}

func TestFetch_BodySizeLimit(t *testing.T) {
	largeHead := strings.Repeat("x", maxBodySize+1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><head><title>Big Page</title><!-- %s --></head><body></body></html>`, largeHead)
	}))
	defer srv.Close()

	o := newTestFetcher().Fetch(context.Background(), srv.URL)
	if !o.OK() {
		t.Fatalf("expected preview even with large body, got %+v", o.Failure)
	}
	if o.Record.Title != "Big Page" {
		t.Errorf("title = %q, want %q", o.Record.Title, "Big Page")
	}
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	o := newTestFetcher().Fetch(context.Background(), addr)
	if o.OK() {
		t.Fatal("expected failure for closed server")
	}
	if o.Failure.Type != linkpreview.ErrorTypeNetworkError {
		t.Errorf("type = %s, want %s", o.Failure.Type, linkpreview.ErrorTypeNetworkError)
	}
}

func TestPrivateIPRejection(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP %s", tt.ip)
			}
			if got := isPrivateIP(ip); got != tt.want {
				t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

func TestSafeClientRejectsLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>secret</title></head></html>`)
	}))
	defer srv.Close()

	o := NewFetcher(0).Fetch(context.Background(), srv.URL)
	if o.OK() {
		t.Fatal("expected loopback target to be rejected")
	}
}

func TestParseOG_StopsAtBody(t *testing.T) {
	doc := `<html><head>
		<meta property="og:title" content="Head Title">
	</head><body>
		<meta property="og:title" content="Body Title">
	</body></html>`

	data, err := parseOG(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parseOG: %v", err)
	}
	if data.Title != "Head Title" {
		t.Errorf("title = %q, want %q", data.Title, "Head Title")
	}
}
