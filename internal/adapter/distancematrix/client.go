package distancematrix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
	"github.com/couchcryptid/trip-enrichment-etl/internal/observability"
)

// DefaultBaseURL is the Google Distance Matrix JSON endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// Client implements domain.RouteLookup using a Distance Matrix style API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a routing lookup client. An empty baseURL selects
// DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Lookup asks for the travel distance and duration from origin to
// destination. A non-OK status is returned in the result, not as an error;
// HTTP failures come back as *domain.LookupError with status HTTP_<code>.
func (c *Client) Lookup(ctx context.Context, origin, destination domain.Coordinate) (domain.LookupResult, error) {
	params := url.Values{
		"origins":      {origin.String()},
		"destinations": {destination.String()},
		"key":          {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.LookupResult{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.LookupAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.LookupRequests.WithLabelValues("error").Inc()
		return domain.LookupResult{}, fmt.Errorf("distance matrix request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.metrics.LookupRequests.WithLabelValues("error").Inc()
		c.logger.Debug("distance matrix API error", "status_code", resp.StatusCode, "body", string(body))
		return domain.LookupResult{}, &domain.LookupError{Status: "HTTP_" + strconv.Itoa(resp.StatusCode)}
	}

	var dmResp response
	if err := json.NewDecoder(resp.Body).Decode(&dmResp); err != nil {
		c.metrics.LookupRequests.WithLabelValues("error").Inc()
		return domain.LookupResult{}, fmt.Errorf("%w: decode response: %w", domain.ErrMalformedResponse, err)
	}

	result, err := dmResp.first()
	if err != nil {
		c.metrics.LookupRequests.WithLabelValues("error").Inc()
		return domain.LookupResult{}, err
	}

	if result.Status == domain.StatusOK {
		c.metrics.LookupRequests.WithLabelValues("ok").Inc()
	} else {
		c.metrics.LookupRequests.WithLabelValues("status").Inc()
	}
	return result, nil
}

// Distance Matrix API response types.

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Rows         []row  `json:"rows"`
}

type row struct {
	Elements []element `json:"elements"`
}

type element struct {
	Status   string     `json:"status"`
	Distance *textValue `json:"distance,omitempty"`
	Duration *textValue `json:"duration,omitempty"`
}

type textValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// first extracts the single element of a one-origin, one-destination query.
// A request-level failure such as REQUEST_DENIED is reported as the element
// status since no rows accompany it.
func (r response) first() (domain.LookupResult, error) {
	if r.Status != "" && r.Status != domain.StatusOK {
		return domain.LookupResult{Status: r.Status}, nil
	}
	if len(r.Rows) == 0 || len(r.Rows[0].Elements) == 0 {
		return domain.LookupResult{}, fmt.Errorf("%w: no rows or elements", domain.ErrMalformedResponse)
	}

	el := r.Rows[0].Elements[0]
	if el.Status != domain.StatusOK {
		return domain.LookupResult{Status: el.Status}, nil
	}
	if el.Distance == nil || el.Duration == nil {
		return domain.LookupResult{}, fmt.Errorf("%w: OK element without distance or duration", domain.ErrMalformedResponse)
	}
	return domain.LookupResult{
		Status:       el.Status,
		DistanceText: el.Distance.Text,
		DurationText: el.Duration.Text,
	}, nil
}
