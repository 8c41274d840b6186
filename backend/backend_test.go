package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewSelectsService(t *testing.T) {
	tests := []struct {
		service string
		want    string
	}{
		{"", ServiceGoogle},
		{ServiceGoogle, ServiceGoogle},
		{ServiceLibreTranslate, ServiceLibreTranslate},
		{ServiceMyMemory, ServiceMyMemory},
	}
	for _, tt := range tests {
		tr, err := New(Config{Service: tt.service})
		if err != nil {
			t.Fatalf("New(%q) error: %v", tt.service, err)
		}
		if tr.Name() != tt.want {
			t.Fatalf("New(%q).Name() = %q, want %q", tt.service, tr.Name(), tt.want)
		}
	}

	if _, err := New(Config{Service: "deepl"}); err == nil {
		t.Fatal("unknown service should error")
	}
}

func TestParseGoogleResponse(t *testing.T) {
	body := `[[["Bonjour le monde","Hello world",null,null,10],[" la suite","more",null,null,10]],null,"en"]`
	got, err := parseGoogleResponse([]byte(body))
	if err != nil {
		t.Fatalf("parseGoogleResponse error: %v", err)
	}
	if got != "Bonjour le monde la suite" {
		t.Fatalf("parseGoogleResponse = %q", got)
	}

	for _, bad := range []string{"", "null", "[]", "{", `[null]`} {
		if _, err := parseGoogleResponse([]byte(bad)); err == nil {
			t.Fatalf("parseGoogleResponse(%q) should error", bad)
		}
	}
}

func TestGoogleTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client") != "gtx" || q.Get("dt") != "t" {
			t.Errorf("unexpected query: %v", q)
		}
		if q.Get("sl") != "en" || q.Get("tl") != "fa" {
			t.Errorf("unexpected language pair: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[[["سلام","Hello",null,null,10]],null,"en"]`)
	}))
	defer srv.Close()

	g := newGoogle(Config{})
	g.endpoint = srv.URL

	got, err := g.Translate(context.Background(), "Hello", "en", "fa")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if got != "سلام" {
		t.Fatalf("Translate = %q", got)
	}
}

func TestGoogleTranslateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	g := newGoogle(Config{MaxRetries: -1})
	g.endpoint = srv.URL

	_, err := g.Translate(context.Background(), "Hello", "en", "fa")
	if err == nil {
		t.Fatal("expected error on HTTP 403")
	}
	var be *Error
	if !errors.As(err, &be) || be.Service != ServiceGoogle {
		t.Fatalf("error should be a backend *Error for google, got %T: %v", err, err)
	}
}

func TestLibreTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"translatedText":"Hallo Welt"}`)
	}))
	defer srv.Close()

	tr := newLibreTranslate(Config{LibreTranslateURL: srv.URL})
	got, err := tr.Translate(context.Background(), "Hello world", "en", "de")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if got != "Hallo Welt" {
		t.Fatalf("Translate = %q", got)
	}
}

func TestLibreTranslateServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":"unsupported language pair"}`)
	}))
	defer srv.Close()

	tr := newLibreTranslate(Config{LibreTranslateURL: srv.URL})
	_, err := tr.Translate(context.Background(), "Hello", "en", "xx")
	if err == nil {
		t.Fatal("expected error from service error field")
	}
}

func TestMyMemoryTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("langpair") != "en|ru" {
			t.Errorf("langpair = %q", q.Get("langpair"))
		}
		if q.Get("de") != "dev@example.com" {
			t.Errorf("de = %q", q.Get("de"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"responseStatus":200,"responseData":{"translatedText":"Привет"}}`)
	}))
	defer srv.Close()

	m := newMyMemory(Config{MyMemoryEmail: "dev@example.com"})
	m.endpoint = srv.URL

	got, err := m.Translate(context.Background(), "Hello", "en", "ru")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if got != "Привет" {
		t.Fatalf("Translate = %q", got)
	}
}

func TestMyMemoryAutoSourceAndStatusError(t *testing.T) {
	var gotPair string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPair = r.URL.Query().Get("langpair")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"responseStatus":403,"responseDetails":"quota exceeded"}`)
	}))
	defer srv.Close()

	m := newMyMemory(Config{})
	m.endpoint = srv.URL

	_, err := m.Translate(context.Background(), "Hello", "auto", "fa")
	if err == nil {
		t.Fatal("expected error on non-200 responseStatus")
	}
	if gotPair != "en|fa" {
		t.Fatalf("auto source should map to en, langpair = %q", gotPair)
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[[["Hola","Hello",null,null,10]]]`)
	}))
	defer srv.Close()

	g := newGoogle(Config{MaxRetries: 2})
	g.endpoint = srv.URL

	got, err := g.Translate(context.Background(), "Hello", "en", "es")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if got != "Hola" || calls != 2 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
}
