package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"portfolio-analytics-api/internal/config"
	"portfolio-analytics-api/internal/models"
)

// BenchmarkClient fetches monthly benchmark returns from the market data service
type BenchmarkClient struct {
	baseURL     string
	apiKey      string
	symbol      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	retries     int
	retryDelay  time.Duration
}

// MonthlyReturn is one month of the benchmark, as a percentage
type MonthlyReturn struct {
	Month  string  `json:"month"`
	Return float64 `json:"return"`
}

func NewBenchmarkClient(cfg config.BenchmarkAPIConfig) *BenchmarkClient {
	perMinute := cfg.RateLimit
	if perMinute <= 0 {
		perMinute = 30
	}

	return &BenchmarkClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		symbol:  cfg.Symbol,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		retries:     cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
	}
}

// FetchMonthlyReturns returns the benchmark's monthly % returns keyed "2006-01".
// Entries with a malformed month or a non-finite value are dropped.
func (bc *BenchmarkClient) FetchMonthlyReturns(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	endpoint := fmt.Sprintf("%s/benchmarks/%s/monthly?from=%s&to=%s",
		bc.baseURL,
		url.PathEscape(strings.ToUpper(bc.symbol)),
		models.MonthKey(from),
		models.MonthKey(to))

	var response struct {
		Data []MonthlyReturn `json:"data"`
	}

	if err := bc.makeRequest(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch benchmark %s: %w", bc.symbol, err)
	}

	returns := make(map[string]float64, len(response.Data))
	for _, r := range response.Data {
		if _, err := time.Parse("2006-01", r.Month); err != nil {
			continue
		}
		if math.IsNaN(r.Return) || math.IsInf(r.Return, 0) {
			continue
		}
		returns[r.Month] = r.Return
	}

	return returns, nil
}

// makeRequest performs a GET with retries and exponential backoff
func (bc *BenchmarkClient) makeRequest(ctx context.Context, endpoint string, response interface{}) error {
	var lastErr error
	correlationID := uuid.New().String()

	for attempt := 0; attempt <= bc.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * bc.retryDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := bc.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		lastErr = bc.do(ctx, endpoint, correlationID, response)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", bc.retries+1, lastErr)
}

func (bc *BenchmarkClient) do(ctx context.Context, endpoint, correlationID string, response interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Portfolio-Analytics-API/1.0")
	req.Header.Set("X-Correlation-ID", correlationID)
	if bc.apiKey != "" {
		req.Header.Set("X-API-Key", bc.apiKey)
	}

	resp, err := bc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d: request failed", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
