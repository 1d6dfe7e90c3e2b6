package veriport

import (
	"fmt"
	"net/url"
	"strings"
)

// LocatorScheme is the URI scheme of the content-addressed store.
const LocatorScheme = "ipfs"

// IsLocator reports whether u looks like ipfs://<cid>[/<path>].
func IsLocator(u string) bool {
	return strings.HasPrefix(u, LocatorScheme+"://") && len(u) > len(LocatorScheme)+3
}

// ParseLocator splits ipfs://<cid>/<path> into cid and path.
func ParseLocator(locator string) (string, string, error) {
	uri, err := url.Parse(locator)
	if err != nil {
		return "", "", fmt.Errorf("invalid locator")
	}

	if uri.Scheme != LocatorScheme {
		return "", "", fmt.Errorf("unsupported locator scheme: %s", uri.Scheme)
	}

	cid := uri.Host
	if cid == "" {
		return "", "", fmt.Errorf("locator has no content id")
	}

	path := strings.TrimPrefix(uri.Path, "/")

	return cid, path, nil
}

// ComposeLocator builds ipfs://<cid>[/<path>].
func ComposeLocator(cid, path string) string {
	u := &url.URL{
		Scheme: LocatorScheme,
		Host:   cid,
		Path:   path,
	}
	return u.String()
}
