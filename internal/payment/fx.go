package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fxCacheKey     = "fx:usd_zar"
	fxCacheTTL     = 5 * time.Minute
	fxFallbackRate = 20.0
	fxMinRate      = 5.0
	fxMaxRate      = 50.0
)

// FXClient resolves the USD/ZAR rate for deposit conversion. Rates are
// cached in Redis so a provider outage costs at most one slow call per
// TTL window; out-of-band rates are treated as provider garbage.
type FXClient struct {
	rdb         *redis.Client
	httpClient  *http.Client
	providerURL string
}

func NewFXClient(rdb *redis.Client, providerURL string) *FXClient {
	return &FXClient{
		rdb:         rdb,
		httpClient:  &http.Client{Timeout: 8 * time.Second},
		providerURL: providerURL,
	}
}

// USDZARRate returns the current rate, from cache when fresh. Every
// failure path settles on the fallback rate, which is also cached so the
// providers are not hammered while down.
func (f *FXClient) USDZARRate(ctx context.Context) float64 {
	if f.rdb != nil {
		if cached, err := f.rdb.Get(ctx, fxCacheKey).Float64(); err == nil {
			return cached
		}
	}

	providers := []string{
		f.providerURL,
		"https://open.er-api.com/v6/latest/USD",
		"https://api.exchangerate.host/latest?base=USD&symbols=ZAR",
	}
	for _, provider := range providers {
		if provider == "" {
			continue
		}
		rate, err := f.fetchRate(ctx, provider)
		if err != nil {
			log.Printf("[FX] Provider %s failed: %v", provider, err)
			continue
		}
		if rate < fxMinRate || rate > fxMaxRate {
			log.Printf("[FX] Provider %s returned out-of-band rate %.4f", provider, rate)
			continue
		}
		f.cache(ctx, rate)
		return rate
	}

	log.Printf("[FX] All providers failed, using fallback rate %.2f", fxFallbackRate)
	f.cache(ctx, fxFallbackRate)
	return fxFallbackRate
}

// USDToZAR converts a USD amount at the current rate, rounded to cents.
func (f *FXClient) USDToZAR(ctx context.Context, amountUSD float64) float64 {
	rate := f.USDZARRate(ctx)
	return math.Round(amountUSD*rate*100) / 100
}

func (f *FXClient) fetchRate(ctx context.Context, providerURL string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", providerURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	var body struct {
		Rates  map[string]float64 `json:"rates"`
		Result map[string]float64 `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	if rate, ok := body.Rates["ZAR"]; ok && rate > 0 {
		return rate, nil
	}
	if rate, ok := body.Result["ZAR"]; ok && rate > 0 {
		return rate, nil
	}
	return 0, fmt.Errorf("no ZAR rate in response")
}

func (f *FXClient) cache(ctx context.Context, rate float64) {
	if f.rdb == nil {
		return
	}
	if err := f.rdb.Set(ctx, fxCacheKey, rate, fxCacheTTL).Err(); err != nil {
		log.Printf("[FX] Failed to cache rate: %v", err)
	}
}
