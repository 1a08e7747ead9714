package fetcher

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := New(5 * time.Second)
	body, err := f.Fetch(srv.URL + "/news.html")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(body) != "<html><body>hello</body></html>" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestFetchClassifiesHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(5 * time.Second)
	_, err := f.Fetch(srv.URL + "/missing.html")
	if err == nil {
		t.Fatalf("expected error for 404")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error is not *FetchError: %v", err)
	}
	if fe.Reason != ReasonHTTPStatus {
		t.Fatalf("Reason = %q, want %q", fe.Reason, ReasonHTTPStatus)
	}
	if fe.Status != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404", fe.Status)
	}
}

func TestFetchClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	f := New(50 * time.Millisecond)
	_, err := f.Fetch(srv.URL + "/slow.html")
	if err == nil {
		t.Fatalf("expected timeout error")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error is not *FetchError: %v", err)
	}
	if fe.Reason != ReasonTimeout {
		t.Fatalf("Reason = %q, want %q", fe.Reason, ReasonTimeout)
	}
}

func TestFetchRenderedUsesRenderService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"html":"<html>rendered</html>"}`))
	}))
	defer srv.Close()

	f := New(5 * time.Second)
	f.SetRenderService(srv.URL)
	body, err := f.FetchRendered("https://example.com/apps")
	if err != nil {
		t.Fatalf("FetchRendered error: %v", err)
	}
	if string(body) != "<html>rendered</html>" {
		t.Fatalf("unexpected rendered body: %q", body)
	}
}

func TestFetchRenderedSurfacesServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"navigate failed"}`))
	}))
	defer srv.Close()

	f := New(5 * time.Second)
	f.SetRenderService(srv.URL)
	_, err := f.FetchRendered("https://example.com/apps")
	if err == nil {
		t.Fatalf("expected error when render service reports failure")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error is not *FetchError: %v", err)
	}
	if fe.Reason != ReasonNetwork {
		t.Fatalf("Reason = %q, want %q", fe.Reason, ReasonNetwork)
	}
}
