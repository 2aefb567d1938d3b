package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/carebook/carebook-api/pkg/config"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

const rateCacheKey = "currency:inr_usd"

type rateCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CurrencyService converts fees from INR to USD using a live exchange rate
// provider. Rates are cached in Redis so a provider outage inside the cache
// window does not block checkouts.
type CurrencyService struct {
	cfg     config.CurrencyConfig
	cache   rateCache
	client  *http.Client
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCurrencyService constructs a CurrencyService.
func NewCurrencyService(cfg config.CurrencyConfig, cache rateCache, metrics *MetricsService, logger *zap.Logger) *CurrencyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CurrencyService{
		cfg:     cfg,
		cache:   cache,
		client:  &http.Client{Timeout: timeout},
		metrics: metrics,
		logger:  logger,
	}
}

// INRToUSDRate returns the current INR to USD conversion rate.
func (s *CurrencyService) INRToUSDRate(ctx context.Context) (float64, error) {
	var cached float64
	if s.cache != nil {
		err := s.cache.Get(ctx, rateCacheKey, &cached)
		if err == nil && cached > 0 {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) && err != nil {
			s.logger.Warn("currency rate cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	rate, err := s.fetchRate(ctx)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		ttl := s.cfg.CacheTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		if err := s.cache.Set(ctx, rateCacheKey, rate, ttl); err != nil {
			s.logger.Warn("currency rate cache write failed", zap.Error(err))
		}
	}
	return rate, nil
}

// ratesResponse mirrors the provider payload. Rates arrive as strings keyed
// by currency code, relative to a USD base.
type ratesResponse struct {
	Rates map[string]string `json:"rates"`
}

func (s *CurrencyService) fetchRate(ctx context.Context) (float64, error) {
	endpoint, err := url.Parse(s.cfg.ProviderURL)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrRateUnavailable.Code, appErrors.ErrRateUnavailable.Status, "invalid currency provider url")
	}
	query := endpoint.Query()
	query.Set("apikey", s.cfg.APIKey)
	query.Set("symbols", "INR,USD")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrRateUnavailable.Code, appErrors.ErrRateUnavailable.Status, "failed to build rate request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrRateUnavailable.Code, appErrors.ErrRateUnavailable.Status, "exchange rate provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, appErrors.Clone(appErrors.ErrRateUnavailable, fmt.Sprintf("exchange rate provider returned status %d", resp.StatusCode))
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrRateUnavailable.Code, appErrors.ErrRateUnavailable.Status, "failed to decode exchange rates")
	}

	usd, err := parseRate(payload.Rates["USD"])
	if err != nil {
		return 0, err
	}
	inr, err := parseRate(payload.Rates["INR"])
	if err != nil {
		return 0, err
	}

	rate := usd / inr
	s.logger.Debug("fetched exchange rate", zap.Float64("inr_usd", rate))
	return rate, nil
}

func parseRate(raw string) (float64, error) {
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrRateUnavailable, "exchange rate provider response missing required rates")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		return 0, appErrors.Clone(appErrors.ErrRateUnavailable, fmt.Sprintf("exchange rate provider returned invalid rate %q", raw))
	}
	return value, nil
}
