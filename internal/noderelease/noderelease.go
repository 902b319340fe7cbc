// Package noderelease resolves a Node.js version from the published
// release index. The index lists releases newest-first; channel
// selection takes the first matching entry.
package noderelease

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fenwick-labs/devstrap/internal/fetch"
)

// DefaultIndexURL is the canonical Node.js release index.
const DefaultIndexURL = "https://nodejs.org/dist/index.json"

// Channel selects between the two release lines operators choose from.
type Channel string

const (
	ChannelLTS     Channel = "LTS"
	ChannelCurrent Channel = "Current"
)

// Entry is one release in the index.
type Entry struct {
	Version string   `json:"version"`
	Date    string   `json:"date"`
	LTS     LTSValue `json:"lts"`
}

// LTSValue models the index's lts field, which is false for current
// releases and a codename string for LTS releases.
type LTSValue struct {
	IsLTS    bool
	Codename string
}

func (v *LTSValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case bool:
		v.IsLTS = t
	case string:
		v.IsLTS = true
		v.Codename = t
	default:
		return fmt.Errorf("unexpected lts value %s", data)
	}
	return nil
}

// Release is a resolved Node.js version.
type Release struct {
	Version string
	Major   int
}

// Client queries a release index.
type Client struct {
	http *http.Client

	// URL is the index endpoint, DefaultIndexURL unless a test points
	// it elsewhere.
	URL string
}

// NewClient returns a Client for the canonical index.
func NewClient(c *http.Client) *Client {
	return &Client{http: c, URL: DefaultIndexURL}
}

// Resolve fetches the index and returns the newest release on the
// requested channel. An index entry without a version string is a
// resolution failure; no fallback version is substituted.
func (c *Client) Resolve(ctx context.Context, channel Channel) (Release, error) {
	var entries []Entry
	if err := fetch.JSON(ctx, c.http, c.URL, &entries); err != nil {
		return Release{}, fmt.Errorf("querying node release index: %w", err)
	}

	for _, e := range entries {
		if e.LTS.IsLTS != (channel == ChannelLTS) {
			continue
		}
		if e.Version == "" {
			return Release{}, fmt.Errorf("release index returned an empty version string for the %s channel", channel)
		}
		major, err := Major(e.Version)
		if err != nil {
			return Release{}, err
		}
		return Release{Version: e.Version, Major: major}, nil
	}

	return Release{}, fmt.Errorf("no %s release found in the index", channel)
}

// Major extracts the major version number from a release version
// string such as "v22.11.0".
func Major(version string) (int, error) {
	v := strings.TrimPrefix(version, "v")
	majorStr, _, _ := strings.Cut(v, ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil || major <= 0 {
		return 0, fmt.Errorf("cannot extract a major version from %q", version)
	}
	return major, nil
}
