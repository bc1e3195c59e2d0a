package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vitrinehq/go-storefront/core"
	"github.com/vitrinehq/go-storefront/transport"
)

type staticTokenSource string

func (s staticTokenSource) Get(context.Context) (string, bool) {
	return string(s), s != ""
}

func newTestClient(t *testing.T, server *httptest.Server, options ...transport.ClientOption) *transport.Client {
	t.Helper()
	options = append([]transport.ClientOption{transport.WithHTTPClient(server.Client())}, options...)
	client, err := transport.New(server.URL+"/api/v1", options...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClientNew_RejectsRelativeBaseURL(t *testing.T) {
	if _, err := transport.New("/api/v1"); err == nil {
		t.Fatalf("expected relative base url to be rejected")
	}
}

func TestClientNew_EmptyBaseURLUsesDefault(t *testing.T) {
	client, err := transport.New("")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.BaseURL() != core.DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", client.BaseURL())
	}
}

func TestClientRequest_JoinsPathAndEncodesParams(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()
	client := newTestClient(t, server)

	res, err := client.Request(context.Background(), core.APIRequest{
		Path: "/products/",
		Params: map[string]any{
			"q":        "mug",
			"page":     2,
			"in_stock": true,
			"tags":     []string{"ceramic", "blue"},
			"filter":   map[string]any{"min_price": 10},
		},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !res.JSON {
		t.Fatalf("expected json response")
	}
	if captured.Method != http.MethodGet {
		t.Fatalf("expected GET default, got %s", captured.Method)
	}
	if captured.URL.Path != "/api/v1/products" {
		t.Fatalf("unexpected path %q", captured.URL.Path)
	}

	query := captured.URL.Query()
	if query.Get("q") != "mug" || query.Get("page") != "2" || query.Get("in_stock") != "true" {
		t.Fatalf("unexpected scalar params: %v", query)
	}
	if tags := query["tags"]; len(tags) != 2 || tags[0] != "ceramic" || tags[1] != "blue" {
		t.Fatalf("expected repeated tags key, got %v", tags)
	}
	var filter map[string]any
	if err := json.Unmarshal([]byte(query.Get("filter")), &filter); err != nil {
		t.Fatalf("expected json-encoded object param: %v", err)
	}
	if filter["min_price"] != float64(10) {
		t.Fatalf("unexpected filter: %v", filter)
	}
}

func TestClientRequest_EncodesJSONBody(t *testing.T) {
	var contentType string
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()
	client := newTestClient(t, server)

	_, err := client.Request(context.Background(), core.APIRequest{
		Method: http.MethodPost,
		Path:   "auth/login",
		Body:   map[string]any{"email": "ana@example.com"},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("expected json content type, got %q", contentType)
	}
	if body["email"] != "ana@example.com" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestClientRequest_AttachesBearerAndRequestID(t *testing.T) {
	var auth, requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		requestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()
	client := newTestClient(t, server, transport.WithTokenSource(staticTokenSource("tok_1")))

	if _, err := client.Request(context.Background(), core.APIRequest{Path: "users/me"}); err != nil {
		t.Fatalf("request: %v", err)
	}
	if auth != "Bearer tok_1" {
		t.Fatalf("expected bearer header, got %q", auth)
	}
	if strings.TrimSpace(requestID) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestClientRequest_ExplicitAuthorizationWins(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()
	client := newTestClient(t, server, transport.WithTokenSource(staticTokenSource("tok_current")))

	_, err := client.Request(context.Background(), core.APIRequest{
		Path:    "auth/logout",
		Headers: map[string]string{"Authorization": "Bearer tok_old"},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if auth != "Bearer tok_old" {
		t.Fatalf("expected explicit header to win, got %q", auth)
	}
}

func TestClientRequest_NoTokenOmitsAuthorization(t *testing.T) {
	var auth string
	var hasAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, hasAuth = r.Header.Get("Authorization"), r.Header.Get("Authorization") != ""
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()
	client := newTestClient(t, server)

	if _, err := client.Request(context.Background(), core.APIRequest{Path: "products"}); err != nil {
		t.Fatalf("request: %v", err)
	}
	if hasAuth {
		t.Fatalf("expected no authorization header, got %q", auth)
	}
}

func TestClientRequest_StatusErrorCarriesDecodedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "email already taken"}`))
	}))
	defer server.Close()
	client := newTestClient(t, server)

	res, err := client.Request(context.Background(), core.APIRequest{
		Method: http.MethodPost,
		Path:   "auth/register",
	})
	if err == nil {
		t.Fatalf("expected status error")
	}
	if !transport.IsStatusError(err) {
		t.Fatalf("expected status error classification: %v", err)
	}
	if transport.IsTransportFailure(err) {
		t.Fatalf("status errors are not transport failures")
	}
	if got := transport.StatusCode(err); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", got)
	}
	body, ok := transport.ErrorBody(err).(map[string]any)
	if !ok {
		t.Fatalf("expected decoded body, got %T", transport.ErrorBody(err))
	}
	if body["message"] != "email already taken" {
		t.Fatalf("unexpected body: %v", body)
	}
	// The normalized response is still usable alongside the error.
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected response to carry status, got %d", res.StatusCode)
	}
}

func TestClientRequest_NetworkFailureIsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := newTestClient(t, server)
	server.Close()

	_, err := client.Request(context.Background(), core.APIRequest{Path: "products"})
	if err == nil {
		t.Fatalf("expected network failure")
	}
	if !transport.IsTransportFailure(err) {
		t.Fatalf("expected transport failure classification: %v", err)
	}
	if transport.IsStatusError(err) {
		t.Fatalf("network failures carry no status")
	}
	if transport.StatusCode(err) != 0 {
		t.Fatalf("expected zero status code")
	}
}

func TestClientRequest_PerRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)
	client := newTestClient(t, server)

	_, err := client.Request(context.Background(), core.APIRequest{
		Path:    "slow",
		Timeout: 20 * time.Millisecond,
	})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !transport.IsTransportFailure(err) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestClientRequest_ResponseBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"padding": "` + strings.Repeat("x", 256) + `"}`))
	}))
	defer server.Close()
	client := newTestClient(t, server, transport.WithMaxResponseBodyBytes(64))

	if _, err := client.Request(context.Background(), core.APIRequest{Path: "big"}); err == nil {
		t.Fatalf("expected body limit error")
	}
}

func TestClientRequest_DefaultHeadersApplied(t *testing.T) {
	var header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("X-Store-Channel")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()
	client := newTestClient(t, server, transport.WithDefaultHeader("X-Store-Channel", "web"))

	if _, err := client.Request(context.Background(), core.APIRequest{Path: "products"}); err != nil {
		t.Fatalf("request: %v", err)
	}
	if header != "web" {
		t.Fatalf("expected default header, got %q", header)
	}
}

func TestClientRequest_NonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("pong"))
	}))
	defer server.Close()
	client := newTestClient(t, server)

	res, err := client.Request(context.Background(), core.APIRequest{Path: "ping"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.JSON {
		t.Fatalf("expected non-json flag")
	}
	if res.Text() != "pong" {
		t.Fatalf("unexpected body %q", res.Text())
	}
	var decoded map[string]any
	if decodeErr := res.Decode(&decoded); decodeErr == nil {
		t.Fatalf("expected decode of non-json body to fail")
	}
}
