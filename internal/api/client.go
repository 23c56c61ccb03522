// internal/api/client.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// Client talks to a running dataviewer server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// DataInfo mirrors GET /data-info. Both corners are nil when the server answered {}.
type DataInfo struct {
	MinXY   *scene.Point `json:"minxy"`
	MaxXY   *scene.Point `json:"maxxy"`
	NFrames int          `json:"nframes"`
}

// Empty reports whether the server had nothing to summarize.
func (d DataInfo) Empty() bool {
	return d.MinXY == nil || d.MaxXY == nil || d.NFrames == 0
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// DataInfo fetches the dataset summary.
func (c *Client) DataInfo(ctx context.Context) (DataInfo, error) {
	var info DataInfo
	if err := c.getJSON(ctx, "/data-info", &info); err != nil {
		return DataInfo{}, fmt.Errorf("data-info: %w", err)
	}
	return info, nil
}

// Frame fetches the drawings of frame n.
func (c *Client) Frame(ctx context.Context, n int) (scene.Scene, error) {
	var body struct {
		Drawings scene.Scene `json:"drawings"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/frame/%d", n), &body); err != nil {
		return nil, fmt.Errorf("frame %d: %w", n, err)
	}
	return body.Drawings, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.httpClient.Do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Remote is a frame source backed by a server. The summary is fetched once.
type Remote struct {
	client *Client
	info   DataInfo
	ctx    context.Context
}

// Remote fetches the dataset summary and returns a frame source for the server.
func (c *Client) Remote(ctx context.Context) (*Remote, error) {
	info, err := c.DataInfo(ctx)
	if err != nil {
		return nil, err
	}
	return &Remote{client: c, info: info, ctx: ctx}, nil
}

// Len returns the number of frames the server reported. A server without a bounding box
// reports nothing, so its frames cannot be counted.
func (r *Remote) Len() int {
	return r.info.NFrames
}

// Bounds returns the dataset bounding box.
func (r *Remote) Bounds() (lo, hi scene.Point, ok bool) {
	if r.info.Empty() {
		return scene.Point{}, scene.Point{}, false
	}
	return *r.info.MinXY, *r.info.MaxXY, true
}

// ReadFrame fetches frame n.
func (r *Remote) ReadFrame(n int) (scene.Scene, error) {
	return r.client.Frame(r.ctx, n)
}
