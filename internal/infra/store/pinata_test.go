package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/config"
	"github.com/veriport/veriport/internal/domain"
)

func newTestClient(pinEndpoint, gatewayBase string) *Client {
	return New(config.Store{
		PinEndpoint: pinEndpoint,
		PinJWT:      "test-jwt",
		GatewayBase: gatewayBase,
	})
}

func TestPinUploadsExactBytes(t *testing.T) {
	document := []byte(`{"title":"Web3 Hackathon Final","description":"First place"}`)

	var received json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-jwt" {
			t.Errorf("missing bearer token")
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			PinataContent json.RawMessage `json:"pinataContent"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad pin body: %v", err)
		}
		received = req.PinataContent
		json.NewEncoder(w).Encode(map[string]any{
			"IpfsHash":  "bafytest",
			"PinSize":   len(document),
			"Timestamp": "2026-03-01T00:00:00Z",
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "https://gateway.example/ipfs/")

	result, err := c.Pin(context.Background(), document, "veriport:test")
	if err != nil {
		t.Fatalf("pin failed: %v", err)
	}

	if !bytes.Equal(received, document) {
		t.Fatalf("pinned bytes were re-serialized:\nwant %s\ngot  %s", document, received)
	}
	if result.CID != "bafytest" || result.URI != "ipfs://bafytest" {
		t.Fatalf("unexpected pin result: %+v", result)
	}
	if result.GatewayURL != "https://gateway.example/ipfs/bafytest" {
		t.Fatalf("unexpected gateway url: %s", result.GatewayURL)
	}
}

func TestPinPropagatesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		io.WriteString(w, `{"error":"pin quota exceeded"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "https://gateway.example/ipfs/")

	_, err := c.Pin(context.Background(), []byte(`{"a":1}`), "x")
	if err == nil {
		t.Fatalf("expected provider error")
	}
	var rejected domain.StoreRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected StoreRejectedError, got %T", err)
	}
	if rejected.Status != http.StatusPaymentRequired || !strings.Contains(rejected.Detail, "pin quota exceeded") {
		t.Fatalf("provider detail not preserved: %+v", rejected)
	}
}

func TestPinTransportErrorIsStoreUnavailable(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", "https://gateway.example/ipfs/")

	_, err := c.Pin(context.Background(), []byte(`{"a":1}`), "x")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected StoreUnavailableError, got %v", err)
	}
}

func TestPinIdenticalBytesReusesResult(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{
			"IpfsHash":  "bafysame",
			"PinSize":   7,
			"Timestamp": "2026-03-01T00:00:00Z",
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "https://gateway.example/ipfs/")

	for i := 0; i < 3; i++ {
		if _, err := c.Pin(context.Background(), []byte(`{"a":1}`), "x"); err != nil {
			t.Fatalf("pin %d failed: %v", i, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single upstream pin call, got %d", calls)
	}
}

func TestResolve(t *testing.T) {
	c := newTestClient("http://unused", "https://gateway.example/ipfs/")

	url, err := c.Resolve("ipfs://bafytest/meta.json")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if url != "https://gateway.example/ipfs/bafytest/meta.json" {
		t.Fatalf("unexpected url: %s", url)
	}

	if _, err := c.Resolve("https://example.com/x"); !errors.Is(err, domain.ErrMalformedLocator) {
		t.Fatalf("expected MalformedLocatorError, got %v", err)
	}
}

func TestFetchRoundTripIsByteIdentical(t *testing.T) {
	document := []byte(`{"title":"X","nested":{"z":1,"a":2}}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipfs/bafytest" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("fetch must request no-cache semantics")
		}
		w.Write(document)
	}))
	defer srv.Close()

	c := newTestClient("http://unused", srv.URL+"/ipfs/")

	body, err := c.Fetch(context.Background(), "ipfs://bafytest")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !bytes.Equal(body, document) {
		t.Fatalf("fetched bytes differ from stored bytes")
	}
	if !veriport.EqualHash(veriport.Digest(body), veriport.Digest(document)) {
		t.Fatalf("digest of fetched bytes differs")
	}
}

func TestFetchFailureCarriesStatusAndSnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream ipfs node unreachable")
	}))
	defer srv.Close()

	c := newTestClient("http://unused", srv.URL+"/ipfs/")

	_, err := c.Fetch(context.Background(), "ipfs://bafytest")
	var fetchErr domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Status != http.StatusBadGateway || !strings.Contains(fetchErr.Snippet, "unreachable") {
		t.Fatalf("fetch error lost detail: %+v", fetchErr)
	}
}
