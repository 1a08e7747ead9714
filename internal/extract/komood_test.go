package extract

import (
	"errors"
	"testing"
)

const komoodFixture = `{
  "products": [
    {
      "handle": "ausverkauft-bergpanorama-t-shirt",
      "title": "AUSVERKAUFT: Bergpanorama - T-Shirt",
      "body_html": "<p>Weiches Shirt mit   <b>Bergmotiv</b>.</p>",
      "variants": [{"price": "29.95"}],
      "images": [{"src": "https://cdn.komood.store/bergpanorama.jpg"}]
    },
    {
      "handle": "seeblick",
      "title": "Seeblick - T-shirt",
      "body_html": "",
      "variants": [{"price": 1990}],
      "images": []
    },
    {
      "handle": "",
      "title": "Ohne Handle"
    }
  ]
}`

func TestKomoodExtractCleansHandlesAndTitles(t *testing.T) {
	e := &KomoodExtractor{}
	got, err := e.Extract([]byte(komoodFixture))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}

	// 售罄前缀与商品类型后缀都不参与去重键
	if got[0].ID != "bergpanorama" {
		t.Fatalf("id[0] = %q", got[0].ID)
	}
	if got[0].Title != "Bergpanorama" {
		t.Fatalf("title[0] = %q", got[0].Title)
	}
	// 链接保留原始 handle
	if got[0].Link != "https://www.komood.store/products/ausverkauft-bergpanorama-t-shirt" {
		t.Fatalf("link[0] = %q", got[0].Link)
	}
	if got[0].Description != "€29,95 • Weiches Shirt mit Bergmotiv." {
		t.Fatalf("description[0] = %q", got[0].Description)
	}
	if got[0].Image != "https://cdn.komood.store/bergpanorama.jpg" {
		t.Fatalf("image[0] = %q", got[0].Image)
	}

	if got[1].ID != "seeblick" {
		t.Fatalf("id[1] = %q", got[1].ID)
	}
	if got[1].Description != "€19,90" {
		t.Fatalf("description[1] = %q", got[1].Description)
	}
}

func TestKomoodExtractRejectsMalformedJSON(t *testing.T) {
	e := &KomoodExtractor{}
	_, err := e.Extract([]byte(`<html>not json</html>`))
	if err == nil {
		t.Fatalf("expected error for malformed payload")
	}

	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("error is not *ExtractionError: %v", err)
	}
	if ee.Reason != ReasonMalformed {
		t.Fatalf("Reason = %q, want %q", ee.Reason, ReasonMalformed)
	}
}

func TestFormatKomoodPrice(t *testing.T) {
	if got := formatKomoodPrice(2995); got != "€29,95" {
		t.Fatalf("formatKomoodPrice(2995) = %q", got)
	}
	if got := formatKomoodPrice(1905); got != "€19,05" {
		t.Fatalf("formatKomoodPrice(1905) = %q", got)
	}
	if got := formatKomoodPrice(0); got != "" {
		t.Fatalf("formatKomoodPrice(0) = %q, want empty", got)
	}
}
