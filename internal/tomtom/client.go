// Package tomtom is the HTTP client for the TomTom traffic APIs: flow vector
// tiles, the incident details service, and the flow segment data endpoint.
package tomtom

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/urbanpulse/traffic-collector/internal/model"
	"github.com/urbanpulse/traffic-collector/internal/observability"
)

// incidentFields selects the incident attributes the collector persists.
const incidentFields = "{incidents{type,geometry{type,coordinates},properties{id,iconCategory,magnitudeOfDelay,events{description,code,iconCategory},startTime,endTime,from,to,length,delay,roadNumbers,aci{probabilityOfOccurrence,numberOfReports,lastReportTime}}}}"

type Config struct {
	APIKey         string
	FlowTileURL    string
	IncidentsURL   string
	FlowSegmentURL string
	Language       string
}

type Client struct {
	logger *slog.Logger
	http   *http.Client
	cfg    Config
	now    func() time.Time // for tests
}

func New(logger *slog.Logger, httpClient *http.Client, cfg Config) *Client {
	return &Client{
		logger: logger,
		http:   httpClient,
		cfg:    cfg,
		now:    time.Now,
	}
}

// FlowTile fetches the encoded vector payload for one tile.
func (c *Client) FlowTile(ctx context.Context, tile model.TileIndex) ([]byte, error) {
	u := fmt.Sprintf("%s/%d/%d/%d.pbf?%s",
		c.cfg.FlowTileURL, tile.Zoom, tile.X, tile.Y,
		url.Values{"key": {c.cfg.APIKey}}.Encode())
	return c.get(ctx, "flow_tile", u)
}

// Incidents runs the single bounding-box incident query.
func (c *Client) Incidents(ctx context.Context, bbox model.BBox) ([]byte, error) {
	params := url.Values{
		"key":      {c.cfg.APIKey},
		"bbox":     {bbox.String()},
		"fields":   {incidentFields},
		"language": {c.cfg.Language},
		"t":        {"1111111111"},
	}
	return c.get(ctx, "incidents", c.cfg.IncidentsURL+"?"+params.Encode())
}

// FlowSegment queries point telemetry for a single geographic coordinate.
func (c *Client) FlowSegment(ctx context.Context, lat, lon float64) ([]byte, error) {
	point := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
	params := url.Values{
		"key":   {c.cfg.APIKey},
		"point": {point},
	}
	return c.get(ctx, "flow_segment", c.cfg.FlowSegmentURL+"?"+params.Encode())
}

func (c *Client) get(ctx context.Context, upstream, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", upstream, err)
	}
	defer resp.Body.Close()
	observability.ObserveUpstreamLatency(upstream, time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s request: status %d", upstream, resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%s gzip: %w", upstream, err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", upstream, err)
	}

	c.logger.Debug("provider call done",
		"upstream", upstream,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start).String())
	return body, nil
}
