package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/retell"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

func apiEvent(method, path, body string, headers map[string]string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		Body:    body,
		Headers: headers,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   method,
				Path:     path,
				SourceIP: "203.0.113.9",
			},
		},
	}
}

func testConfig(baseURL string) config {
	return config{upstreamBaseURL: baseURL, upstreamTimeout: time.Second, logger: logging.Discard()}
}

func TestHandleHealth(t *testing.T) {
	resp, err := handle(context.Background(), testConfig("http://example.com"), http.DefaultClient, apiEvent(http.MethodGet, "/health", "", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if resp.Body != `{"status":"healthy"}` {
		t.Fatalf("unexpected body %q", resp.Body)
	}
}

func TestHandleRejects(t *testing.T) {
	tests := []struct {
		name   string
		evt    events.APIGatewayV2HTTPRequest
		status int
	}{
		{"non post", apiEvent(http.MethodGet, webhookPath, "", nil), http.StatusMethodNotAllowed},
		{"unknown path", apiEvent(http.MethodPost, "/webhooks/unknown", "{}", nil), http.StatusNotFound},
		{"invalid base64", func() events.APIGatewayV2HTTPRequest {
			evt := apiEvent(http.MethodPost, webhookPath, "not-base64", nil)
			evt.IsBase64Encoded = true
			return evt
		}(), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handle(context.Background(), testConfig("http://example.com"), http.DefaultClient, tt.evt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestHandleEdgeVerification(t *testing.T) {
	upstreamHit := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHit = true
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := testConfig(upstream.URL)
	cfg.verifier = retell.NewVerifier("whsec", 0)

	resp, err := handle(context.Background(), cfg, upstream.Client(), apiEvent(http.MethodPost, webhookPath, "{}", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, resp.StatusCode)
	}
	if upstreamHit {
		t.Fatal("unsigned webhook should not reach upstream")
	}
}

func TestHandleForwardsSignedWebhook(t *testing.T) {
	type captured struct {
		path    string
		headers http.Header
		body    string
	}
	reqCh := make(chan captured, 1)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqCh <- captured{path: r.URL.Path, headers: r.Header.Clone(), body: string(body)}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","event":"call_ended"}`))
	}))
	defer upstream.Close()

	payload := `{"event":"call_ended","call":{"call_id":"c1"}}`
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig := retell.Sign("whsec", ts, []byte(payload))

	cfg := testConfig(upstream.URL)
	cfg.verifier = retell.NewVerifier("whsec", 0)
	evt := apiEvent(http.MethodPost, webhookPath, base64.StdEncoding.EncodeToString([]byte(payload)), map[string]string{
		"content-type":       "application/json",
		"x-retell-signature": sig,
		"x-retell-timestamp": ts,
	})
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), cfg, upstream.Client(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Headers["content-type"]; ct != "application/json" {
		t.Fatalf("expected content-type to be forwarded, got %q", ct)
	}

	select {
	case got := <-reqCh:
		if got.path != webhookPath {
			t.Fatalf("unexpected upstream path %s", got.path)
		}
		if got.body != payload {
			t.Fatalf("expected body to be forwarded byte for byte, got %q", got.body)
		}
		if got.headers.Get(retell.HeaderSignature) != sig || got.headers.Get(retell.HeaderTimestamp) != ts {
			t.Fatalf("expected signature headers to be forwarded, got %v", got.headers)
		}
		if got.headers.Get("X-Forwarded-For") != "203.0.113.9" {
			t.Fatalf("expected forwarded source ip, got %q", got.headers.Get("X-Forwarded-For"))
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for upstream request")
	}
}

func TestHandleUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	resp, err := handle(context.Background(), testConfig(url), http.DefaultClient, apiEvent(http.MethodPost, webhookPath, "{}", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, resp.StatusCode)
	}
}
