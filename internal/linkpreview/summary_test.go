package linkpreview_test

import (
	"encoding/json"
	"testing"

	"github.com/enzyme/peek/internal/linkpreview"
)

func TestSummary_Subtitle(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []linkpreview.Outcome
		want     string
	}{
		{"empty", nil, ""},
		{"all success", []linkpreview.Outcome{success("https://a.com")}, ""},
		{"all failed", []linkpreview.Outcome{failure("https://a.com", linkpreview.ErrorTypeTimeout)}, ""},
		{
			"mixed",
			[]linkpreview.Outcome{
				success("https://a.com"),
				success("https://b.com"),
				failure("https://c.com", linkpreview.ErrorTypeLinkContentError),
			},
			"2 successful, 1 failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := linkpreview.Summarize(tt.outcomes)
			if s.Total != len(tt.outcomes) {
				t.Errorf("total = %d, want %d", s.Total, len(tt.outcomes))
			}
			if got := s.Subtitle(); got != tt.want {
				t.Errorf("subtitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBestImageURL(t *testing.T) {
	full := &linkpreview.Record{Image: &linkpreview.ImageSet{
		Thumbnail: &linkpreview.ImageVariant{URL: "thumb"},
		Medium:    &linkpreview.ImageVariant{URL: "medium"},
		Large:     &linkpreview.ImageVariant{URL: "large"},
	}}
	thumbOnly := &linkpreview.Record{Image: &linkpreview.ImageSet{
		Thumbnail: &linkpreview.ImageVariant{URL: "thumb"},
	}}
	originalOnly := &linkpreview.Record{Image: &linkpreview.ImageSet{
		Original: &linkpreview.ImageVariant{URL: "og"},
	}}
	withOriginal := &linkpreview.Record{Image: &linkpreview.ImageSet{
		Thumbnail: &linkpreview.ImageVariant{URL: "thumb"},
		Original:  &linkpreview.ImageVariant{URL: "og"},
	}}

	tests := []struct {
		name  string
		rec   *linkpreview.Record
		width int
		want  string
	}{
		{"grid prefers large", full, 800, "large"},
		{"grid breakpoint", full, linkpreview.GridWidth, "large"},
		{"two columns prefer medium", full, 550, "medium"},
		{"narrow uses thumbnail", full, 300, "thumb"},
		{"grid falls back to thumbnail", thumbOnly, 800, "thumb"},
		{"two columns fall back to thumbnail", thumbOnly, linkpreview.TwoColumnWidth, "thumb"},
		{"original only, grid", originalOnly, 800, "og"},
		{"original only, two columns", originalOnly, 550, "og"},
		{"original only, narrow", originalOnly, 100, "og"},
		{"sized variant wins over original", withOriginal, 800, "thumb"},
		{"no image", &linkpreview.Record{}, 800, ""},
		{"nil record", nil, 800, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := linkpreview.BestImageURL(tt.rec, tt.width); got != tt.want {
				t.Errorf("BestImageURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutcome_JSONShape(t *testing.T) {
	o := linkpreview.Failed("https://a.com", linkpreview.ErrorTypeForbidden, "Forbidden: API key may be invalid or expired")
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["ok"] != false || m["errorType"] != "FORBIDDEN" || m["originalUrl"] != "https://a.com" {
		t.Errorf("unexpected failure JSON: %s", data)
	}

	rec := linkpreview.Record{ID: "42", URL: "https://a.com/final", OriginalURL: "https://a.com", Title: "A", Domain: "a.com"}
	data, err = json.Marshal(linkpreview.Succeeded(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back linkpreview.Outcome
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.OK() || *back.Record != rec {
		t.Errorf("round trip = %+v, want %+v", back.Record, rec)
	}
}
