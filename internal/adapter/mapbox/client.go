package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/metar-etl/internal/domain"
	"github.com/couchcryptid/metar-etl/internal/observability"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.StationLocator using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox client. ratePerSecond <= 0 disables client
// side rate limiting.
func NewClient(token string, timeout time.Duration, ratePerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

// LocateStation looks up the airport an ICAO station identifier belongs to.
// An unknown station yields a zero StationLocation and no error.
func (c *Client) LocateStation(ctx context.Context, icao string) (domain.StationLocation, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.StationLocation{}, fmt.Errorf("station lookup rate limit: %w", err)
		}
	}

	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(icao+" airport"))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"poi"},
	}

	start := time.Now()
	loc, err := c.doRequest(ctx, u+"?"+params.Encode())
	c.metrics.StationLookupDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.StationLookupRequests.WithLabelValues("error").Inc()
	case loc.FormattedAddress == "":
		c.metrics.StationLookupRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("station not found", "station", icao)
	default:
		c.metrics.StationLookupRequests.WithLabelValues("success").Inc()
	}
	return loc, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.StationLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.StationLocation{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.StationLocation{}, fmt.Errorf("station lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.StationLocation{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.StationLocation{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.StationLocation{}, nil
	}

	f := mapboxResp.Features[0]
	loc := domain.StationLocation{
		Name:             f.Text,
		FormattedAddress: f.PlaceName,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		loc.Lon = f.Center[0]
		loc.Lat = f.Center[1]
	}
	return loc, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
