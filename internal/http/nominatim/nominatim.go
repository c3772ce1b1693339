package nominatim

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bwise1/forest_places/internal/metrics"
	json "github.com/goccy/go-json"
	"github.com/google/go-querystring/query"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "forest-places/1.0"
	breakerName      = "nominatim"
)

// ErrNoResult is returned when the service has no address for a point.
var ErrNoResult = errors.New("no address for coordinate")

// Client handles reverse geocoding against a Nominatim server.
type Client struct {
	BaseURL    *url.URL
	UserAgent  string
	Language   string
	HTTPClient *http.Client

	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*ReverseResult]
}

type Options struct {
	BaseURL   string
	UserAgent string
	Language  string
	Timeout   time.Duration
	// RPS caps outgoing requests per second. Zero means 1, the public
	// server's usage policy.
	RPS float64
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.RPS <= 0 {
		opts.RPS = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return &Client{
		BaseURL:   baseURL,
		UserAgent: opts.UserAgent,
		Language:  opts.Language,
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), 1),
		cb: gobreaker.NewCircuitBreaker[*ReverseResult](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNoResult) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
				metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		}),
	}, nil
}

// ReverseQuery represents parameters for /reverse requests.
type ReverseQuery struct {
	Lat      float64 `url:"lat"`
	Lon      float64 `url:"lon"`
	Format   string  `url:"format"`
	Language string  `url:"accept-language,omitempty"`
	Zoom     *int    `url:"zoom,omitempty"` // 3 country .. 18 building
	Details  int     `url:"addressdetails,omitempty"`
}

// ReverseResult is the subset of the /reverse response the client reads.
type ReverseResult struct {
	PlaceID     int64             `json:"place_id"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Reverse looks up the address of a coordinate. It waits for the rate limiter
// and fails fast while the breaker is open.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*ReverseResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordGeocode("rejected")
		return nil, errors.Wrap(err, "wait for rate limiter")
	}

	result, err := c.cb.Execute(func() (*ReverseResult, error) {
		return c.reverse(ctx, lat, lon)
	})
	switch {
	case err == nil:
		metrics.RecordGeocode("ok")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordGeocode("rejected")
	default:
		metrics.RecordGeocode("error")
	}
	return result, err
}

func (c *Client) reverse(ctx context.Context, lat, lon float64) (*ReverseResult, error) {
	params := &ReverseQuery{Lat: lat, Lon: lon, Format: "json", Language: c.Language, Details: 1}
	reqURL, err := c.buildURL("/reverse", params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	var result ReverseResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	if result.Error != "" || result.DisplayName == "" {
		return nil, ErrNoResult
	}
	return &result, nil
}

// buildURL constructs the API URL with query parameters.
func (c *Client) buildURL(endpoint string, queryParams interface{}) (string, error) {
	rel, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "parse endpoint")
	}
	u := c.BaseURL.ResolveReference(rel)

	if queryParams != nil {
		v, err := query.Values(queryParams)
		if err != nil {
			return "", errors.Wrap(err, "encode query parameters")
		}
		u.RawQuery = v.Encode()
	}
	return u.String(), nil
}

func (c *Client) do(req *http.Request, v interface{}) error {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "execute HTTP request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("geocoder request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}
