package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestNormalizeUserAgent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"linreg/0.1 (+https://github.com/ppiankov/linreg)", "linreg"},
		{"curl/8.0", "curl"},
		{"bot", "bot"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeUserAgent(tt.in); got != tt.want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRobotsChecker(t *testing.T) {
	robotsHits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits++
			fmt.Fprint(w, "User-agent: linreg\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("linreg/0.1", 5*time.Second)
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/data.csv")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !allowed {
		t.Error("Expected /data.csv to be allowed for linreg")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", delay)
	}

	err = checker.Check(ctx, server.URL+"/private/data.csv")
	if !errors.Is(err, ErrDisallowed) {
		t.Errorf("Expected ErrDisallowed, got %v", err)
	}

	if robotsHits != 1 {
		t.Errorf("Expected robots.txt fetched once, got %d", robotsHits)
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	checker := NewRobotsChecker("linreg/0.1", 5*time.Second)
	if err := checker.Check(context.Background(), server.URL+"/anything"); err != nil {
		t.Errorf("Expected missing robots.txt to allow, got %v", err)
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.internal:3128", "", "example.org")

	req := &http.Request{URL: mustParse(t, "https://data.example.com/a.csv")}
	got, err := proxy(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got == nil || got.Host != "proxy.internal:3128" {
		t.Errorf("Expected https to fall back to the http proxy, got %v", got)
	}

	req = &http.Request{URL: mustParse(t, "http://www.example.org/a.csv")}
	got, err = proxy(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected no_proxy host to bypass proxy, got %v", got)
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}
