package transport

import (
	"net/http"
	"net/url"
	"testing"
)

// TestNoAuth tests that NoAuth applies no authentication.
func TestNoAuth(t *testing.T) {
	auth := &NoAuth{}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "test-api-key")

	// Should not have any authentication headers
	if len(req.Header) != 0 {
		t.Errorf("Expected no headers, got %d", len(req.Header))
	}
}

// TestBearerAuth tests Bearer token authentication.
func TestBearerAuth(t *testing.T) {
	auth := &BearerAuth{}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "test-api-key")

	authHeader := req.Header.Get("Authorization")
	expected := "Bearer test-api-key"
	if authHeader != expected {
		t.Errorf("Expected Authorization header '%s', got '%s'", expected, authHeader)
	}
}

// TestHeaderAuth tests custom header authentication.
func TestHeaderAuth(t *testing.T) {
	auth := &HeaderAuth{Header: "x-api-key"}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "test-api-key")

	headerValue := req.Header.Get("x-api-key")
	if headerValue != "test-api-key" {
		t.Errorf("Expected x-api-key header 'test-api-key', got '%s'", headerValue)
	}

	// Should not have Authorization header
	if req.Header.Get("Authorization") != "" {
		t.Error("Should not have Authorization header")
	}
}

// TestQueryAuth tests query parameter authentication.
func TestQueryAuth(t *testing.T) {
	auth := &QueryAuth{Param: "key"}

	reqURL, _ := url.Parse("https://rules.example.com/apply?dry=1")
	req := &http.Request{
		URL:    reqURL,
		Header: make(http.Header),
	}

	auth.Apply(req, "test-api-key")

	if req.URL.Query().Get("key") != "test-api-key" {
		t.Errorf("Expected query param 'key=test-api-key', got '%s'", req.URL.RawQuery)
	}
	if req.URL.Query().Get("dry") != "1" {
		t.Errorf("Existing query parameters should be kept, got '%s'", req.URL.RawQuery)
	}

	// Nil URL is ignored
	(&QueryAuth{Param: "key"}).Apply(&http.Request{Header: make(http.Header)}, "test-api-key")
}

// TestAuthForHeader tests the authenticator chosen for a configured header.
func TestAuthForHeader(t *testing.T) {
	tests := []struct {
		header string
		want   Authenticator
	}{
		{"", &BearerAuth{}},
		{"authorization", &BearerAuth{}},
		{"x-api-key", &HeaderAuth{Header: "x-api-key"}},
		{"?token", &QueryAuth{Param: "token"}},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got := AuthForHeader(tt.header)
			switch want := tt.want.(type) {
			case *BearerAuth:
				if _, ok := got.(*BearerAuth); !ok {
					t.Errorf("AuthForHeader(%q) = %T, want *BearerAuth", tt.header, got)
				}
			case *HeaderAuth:
				h, ok := got.(*HeaderAuth)
				if !ok || h.Header != want.Header {
					t.Errorf("AuthForHeader(%q) = %#v, want %#v", tt.header, got, want)
				}
			case *QueryAuth:
				q, ok := got.(*QueryAuth)
				if !ok || q.Param != want.Param {
					t.Errorf("AuthForHeader(%q) = %#v, want %#v", tt.header, got, want)
				}
			}
		})
	}
}
