package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/config"
	"github.com/veriport/veriport/internal/domain"
)

const (
	defaultTimeout = 15 * time.Second
	snippetLimit   = 200
)

// Client talks to a Pinata-style pinning API and its public gateway. It is
// an explicitly constructed value, not ambient state; every caller receives
// its own configured instance.
type Client struct {
	client      *http.Client
	cache       *cache.Cache
	pinEndpoint string
	pinJWT      string
	gatewayBase string
	userAgent   string
}

func New(conf config.Store) *Client {
	httpClient := &http.Client{
		Timeout: defaultTimeout,
	}

	return &Client{
		client:      httpClient,
		cache:       cache.New(10*time.Minute, 15*time.Minute),
		pinEndpoint: conf.PinEndpoint,
		pinJWT:      conf.PinJWT,
		gatewayBase: conf.GatewayBase,
		userAgent:   "veriport",
	}
}

type pinRequest struct {
	PinataOptions  pinOptions      `json:"pinataOptions"`
	PinataMetadata pinMetadata     `json:"pinataMetadata"`
	PinataContent  json.RawMessage `json:"pinataContent"`
}

type pinOptions struct {
	CIDVersion int `json:"cidVersion"`
}

type pinMetadata struct {
	Name      string            `json:"name"`
	Keyvalues map[string]string `json:"keyvalues"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Pin uploads the document bytes unchanged. The bytes are embedded into
// the request body as a raw message, so what the store persists is exactly
// what the caller hashed. Identical bytes re-pinned within the cache TTL
// return the prior result: content addressing maps them to the same CID.
func (c *Client) Pin(ctx context.Context, document []byte, name string) (veriport.PinResult, error) {
	cacheKey := fmt.Sprintf("pin:%x", xxh3.Hash(document))
	if x, found := c.cache.Get(cacheKey); found {
		return x.(veriport.PinResult), nil
	}

	if !json.Valid(document) {
		return veriport.PinResult{}, fmt.Errorf("document is not valid json")
	}

	body, err := json.Marshal(pinRequest{
		PinataOptions: pinOptions{CIDVersion: 1},
		PinataMetadata: pinMetadata{
			Name:      name,
			Keyvalues: map[string]string{"app": "veriport"},
		},
		PinataContent: json.RawMessage(document),
	})
	if err != nil {
		return veriport.PinResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pinEndpoint, bytes.NewReader(body))
	if err != nil {
		return veriport.PinResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.pinJWT)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return veriport.PinResult{}, domain.StoreUnavailableError{Op: "pin", Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return veriport.PinResult{}, domain.StoreRejectedError{
			Status: resp.StatusCode,
			Detail: string(text),
		}
	}

	var parsed pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return veriport.PinResult{}, fmt.Errorf("failed to decode pin response: %v", err)
	}
	if parsed.IpfsHash == "" {
		return veriport.PinResult{}, domain.StoreRejectedError{
			Status: resp.StatusCode,
			Detail: "pin response carries no content id",
		}
	}

	timestamp, err := time.Parse(time.RFC3339, parsed.Timestamp)
	if err != nil {
		timestamp = time.Now().UTC()
	}

	uri := veriport.ComposeLocator(parsed.IpfsHash, "")
	result := veriport.PinResult{
		CID:        parsed.IpfsHash,
		URI:        uri,
		GatewayURL: c.gatewayBase + parsed.IpfsHash,
		Size:       parsed.PinSize,
		Timestamp:  timestamp,
	}

	c.cache.Set(cacheKey, result, cache.DefaultExpiration)

	return result, nil
}

// Resolve maps ipfs://<cid>[/<path>] to a gateway URL. Pure scheme
// transform, no network call.
func (c *Client) Resolve(locator string) (string, error) {
	cid, path, err := veriport.ParseLocator(locator)
	if err != nil {
		return "", domain.MalformedLocatorError{Locator: locator}
	}

	url := c.gatewayBase + cid
	if path != "" {
		url += "/" + path
	}
	return url, nil
}

// Fetch retrieves the raw bytes behind a locator. It always hits the
// network: byte-exact verification cannot tolerate a stale cache.
func (c *Client) Fetch(ctx context.Context, locator string) ([]byte, error) {
	url, err := c.Resolve(locator)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.StoreUnavailableError{Op: "fetch", Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLimit))
		return nil, domain.FetchError{
			Status:  resp.StatusCode,
			Snippet: strings.TrimSpace(string(text)),
		}
	}

	return io.ReadAll(resp.Body)
}
