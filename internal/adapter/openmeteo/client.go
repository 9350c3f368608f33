// Package openmeteo fetches multi-day point forecasts from the Open-Meteo
// forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/hazard-engine/internal/domain"
	"github.com/couchcryptid/hazard-engine/internal/forecast"
	"github.com/couchcryptid/hazard-engine/internal/observability"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	hourlyParams = "precipitation,windgusts_10m,windspeed_10m,pressure_msl,relativehumidity_2m"
	dailyParams  = "temperature_2m_max,temperature_2m_min,precipitation_sum"

	breakerFailures = 5
	breakerOpenFor  = 30 * time.Second
)

// Client implements forecast.Source against the Open-Meteo API. While the
// circuit breaker is open or the local request budget is exhausted, calls
// fail fast with forecast.ErrUnavailable.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a client allowing ratePerSec upstream requests per
// second.
func NewClient(baseURL string, timeout time.Duration, ratePerSec float64, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), max(1, int(math.Ceil(ratePerSec)))),
		logger:     logger,
		metrics:    metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "open-meteo",
		MaxRequests: 1,
		Timeout:     breakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("forecast circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Forecast returns the daily and hourly series for a point.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (domain.ForecastInput, error) {
	if !c.limiter.Allow() {
		c.record("rejected")
		return domain.ForecastInput{}, fmt.Errorf("%w: rate limit exceeded", forecast.ErrUnavailable)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, c.requestURL(lat, lon))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.record("rejected")
			return domain.ForecastInput{}, fmt.Errorf("%w: %w", forecast.ErrUnavailable, err)
		}
		c.record("error")
		return domain.ForecastInput{}, err
	}

	c.record("success")
	in := result.(domain.ForecastInput)
	in.Lat, in.Lon = lat, lon
	return in, nil
}

func (c *Client) requestURL(lat, lon float64) string {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
		"hourly":    {hourlyParams},
		"daily":     {dailyParams},
		"timezone":  {"auto"},
	}
	return c.baseURL + "?" + params.Encode()
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.ForecastInput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.ForecastInput{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.ForecastAPIDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return domain.ForecastInput{}, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.ForecastInput{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return domain.ForecastInput{}, fmt.Errorf("decode response: %w", err)
	}
	return r.toInput()
}

func (c *Client) record(outcome string) {
	if c.metrics != nil {
		c.metrics.ForecastRequests.WithLabelValues(outcome).Inc()
	}
}

// Open-Meteo API response types. Series entries are null when the model has
// no value for that step.

type response struct {
	Hourly hourlySeries `json:"hourly"`
	Daily  dailySeries  `json:"daily"`
}

type hourlySeries struct {
	Time          []string   `json:"time"`
	Precipitation []*float64 `json:"precipitation"`
	WindGusts     []*float64 `json:"windgusts_10m"`
	WindSpeed     []*float64 `json:"windspeed_10m"`
	Pressure      []*float64 `json:"pressure_msl"`
	Humidity      []*float64 `json:"relativehumidity_2m"`
}

type dailySeries struct {
	Time      []string   `json:"time"`
	TempMax   []*float64 `json:"temperature_2m_max"`
	TempMin   []*float64 `json:"temperature_2m_min"`
	PrecipSum []*float64 `json:"precipitation_sum"`
}

func (r response) toInput() (domain.ForecastInput, error) {
	if len(r.Daily.Time) == 0 {
		return domain.ForecastInput{}, errors.New("open-meteo response has no daily series")
	}

	in := domain.ForecastInput{
		Daily:  make([]domain.DailyValues, len(r.Daily.Time)),
		Hourly: make([]domain.HourlyValues, len(r.Hourly.Time)),
	}
	for i, date := range r.Daily.Time {
		in.Daily[i] = domain.DailyValues{
			Date:      date,
			TempMax:   at(r.Daily.TempMax, i),
			TempMin:   at(r.Daily.TempMin, i),
			PrecipSum: at(r.Daily.PrecipSum, i),
		}
	}
	for i, ts := range r.Hourly.Time {
		in.Hourly[i] = domain.HourlyValues{
			Time:     ts,
			Precip:   at(r.Hourly.Precipitation, i),
			Wind:     at(r.Hourly.WindSpeed, i),
			Gust:     at(r.Hourly.WindGusts, i),
			Pressure: at(r.Hourly.Pressure, i),
			Humidity: at(r.Hourly.Humidity, i),
		}
	}
	return in, nil
}

// at returns series[i], or NaN when the entry is null or the series is short.
func at(series []*float64, i int) float64 {
	if i >= len(series) || series[i] == nil {
		return math.NaN()
	}
	return *series[i]
}
