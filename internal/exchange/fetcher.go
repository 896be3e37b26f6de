// Package exchange provides a reference implementation of
// domain.CandleFetcher against a generic OAuth2-protected OHLCV REST
// endpoint.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"choch_detector/internal/config"
	"choch_detector/internal/domain"
	"choch_detector/pkg/apperrors"
	"choch_detector/pkg/cache"
	"choch_detector/pkg/log"
)

// RESTFetcher implements domain.CandleFetcher by polling a REST endpoint
// of the shape GET {base_url}/candles?symbol=...&interval=...&limit=...,
// authenticated via the OAuth2 client-credentials grant.
type RESTFetcher struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.API
	cacheTTL   time.Duration
	limiter    *rate.Limiter
}

// candleDTO is the wire shape of a single candle in the REST response.
type candleDTO struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

type candlesResponse struct {
	Candles []candleDTO `json:"candles"`
}

// NewRESTFetcher builds a RESTFetcher. cacheManager may be nil, in which
// case responses are never deduplicated across scans.
func NewRESTFetcher(cfg config.ExchangeConfig, cacheManager cache.API) *RESTFetcher {
	ccCfg := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	httpClient := ccCfg.Client(context.Background())
	httpClient.Timeout = cfg.Timeout

	return &RESTFetcher{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		cache:      cacheManager,
		cacheTTL:   cfg.Timeout,
		// 10 requests/sec, burst 20 — keeps a multi-symbol scan tick
		// from slamming the exchange all at once.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// FetchClosedCandles retrieves the `limit` most recent closed candles
// for symbol at timeframe, newest-last. A cache hit for the same
// (symbol, timeframe, limit) within cacheTTL (the exchange request
// timeout) avoids re-issuing that request to the upstream exchange.
func (f *RESTFetcher) FetchClosedCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	cacheKey := fmt.Sprintf("choch:candles:%s:%s:%d", symbol, timeframe, limit)

	if f.cache != nil {
		if cached, ok := f.cache.Get(ctx, cacheKey); ok {
			var candles []domain.Candle
			if err := json.Unmarshal([]byte(cached), &candles); err == nil {
				return candles, nil
			}
			log.PivotDebug(symbol, timeframe, "discarding unparsable cache entry for %s", cacheKey)
		}
	}

	candles, err := f.fetch(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if payload, err := json.Marshal(candles); err == nil {
			f.cache.SetWithDuration(ctx, cacheKey, string(payload), f.cacheTTL)
		}
	}
	return candles, nil
}

func (f *RESTFetcher) fetch(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewEngineError(apperrors.KindFetcherTransient, "rate limiter wait failed", err)
	}

	endpoint := f.baseURL + "/candles?" + url.Values{
		"symbol":   {symbol},
		"interval": {timeframe},
		"limit":    {strconv.Itoa(limit)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewEngineError(apperrors.KindFetcherFatal, "building candle request failed", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewEngineError(apperrors.KindFetcherTransient, "candle request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, apperrors.NewEngineError(apperrors.KindFetcherTransient,
			fmt.Sprintf("exchange returned transient status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewEngineError(apperrors.KindFetcherFatal,
			fmt.Sprintf("exchange returned status %d", resp.StatusCode), nil)
	}

	var body candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decoding candle response failed")
	}

	candles := make([]domain.Candle, 0, len(body.Candles))
	for _, dto := range body.Candles {
		candles = append(candles, domain.Candle{
			Symbol:    symbol,
			Timeframe: timeframe,
			OpenTime:  time.Unix(dto.OpenTime, 0).UTC(),
			Open:      dto.Open,
			High:      dto.High,
			Low:       dto.Low,
			Close:     dto.Close,
			Volume:    dto.Volume,
		})
	}
	return candles, nil
}
