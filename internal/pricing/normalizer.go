package pricing

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// QuoteSource fetches raw upstream currency quotes.
type QuoteSource interface {
	GetRate(ctx context.Context, pair string) (float64, error)
}

// Policy configures normalization: FloorRate is the minimum display rate
// ever served, FallbackRate the rate served when the source fails and no
// cached quote exists. Both are in smallest display currency units.
type Policy struct {
	FloorRate    int64
	FallbackRate int64
	CacheTTL     time.Duration
}

// Normalizer converts upstream quotes into a display-consistent integer
// rate. Quotes are cached in redis with a TTL; when the upstream source
// fails, the last known quote is served even if stale, and the configured
// fallback covers a cold cache. The normalizer never returns zero.
type Normalizer struct {
	source QuoteSource
	cache  *redis.Client
	policy Policy
}

// NewNormalizer creates a Normalizer. cache may be nil, which disables
// caching and stale fallback (the configured fallback still applies).
func NewNormalizer(source QuoteSource, cache *redis.Client, policy Policy) *Normalizer {
	return &Normalizer{source: source, cache: cache, policy: policy}
}

func freshKey(pair string) string { return "rate:" + pair }
func lastKey(pair string) string  { return "rate:last:" + pair }

// DisplayRate returns the normalized display rate for a currency pair
// (e.g. "USDT-IRR"): upstream quote floored to an integer, clamped to the
// policy floor.
func (n *Normalizer) DisplayRate(ctx context.Context, pair string) (int64, error) {
	if rate, ok := n.cached(ctx, freshKey(pair)); ok {
		return rate, nil
	}

	raw, err := n.source.GetRate(ctx, pair)
	if err != nil {
		return n.fallback(ctx, pair, err)
	}

	rate := n.normalize(pair, raw)
	n.store(ctx, pair, rate)
	return rate, nil
}

// normalize floors the raw quote to an integer and clamps it to the policy
// floor, logging when clamping hides a suspicious upstream value.
func (n *Normalizer) normalize(pair string, raw float64) int64 {
	rate := int64(math.Floor(raw))
	if rate < n.policy.FloorRate {
		log.Warn().
			Str("pair", pair).
			Float64("raw_rate", raw).
			Int64("floor", n.policy.FloorRate).
			Msg("upstream quote below floor, clamping")
		rate = n.policy.FloorRate
	}
	return rate
}

// fallback serves the last cached quote when the source fails, or the
// configured fallback rate when nothing was ever cached.
func (n *Normalizer) fallback(ctx context.Context, pair string, cause error) (int64, error) {
	if rate, ok := n.cached(ctx, lastKey(pair)); ok {
		log.Warn().Err(cause).Str("pair", pair).Int64("rate", rate).
			Msg("quote source failed, serving last known rate")
		return rate, nil
	}
	if n.policy.FallbackRate > 0 {
		log.Warn().Err(cause).Str("pair", pair).Int64("rate", n.policy.FallbackRate).
			Msg("quote source failed with cold cache, serving fallback rate")
		return n.policy.FallbackRate, nil
	}
	return 0, fmt.Errorf("get rate for %s: %w", pair, cause)
}

func (n *Normalizer) cached(ctx context.Context, key string) (int64, bool) {
	if n.cache == nil {
		return 0, false
	}
	val, err := n.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("rate cache read failed")
		}
		return 0, false
	}
	rate, err := strconv.ParseInt(val, 10, 64)
	if err != nil || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// store writes the fresh quote with a TTL and the stale-fallback copy
// without one. Cache failures are logged, never surfaced.
func (n *Normalizer) store(ctx context.Context, pair string, rate int64) {
	if n.cache == nil {
		return
	}
	val := strconv.FormatInt(rate, 10)
	if err := n.cache.Set(ctx, freshKey(pair), val, n.policy.CacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("pair", pair).Msg("rate cache write failed")
	}
	if err := n.cache.Set(ctx, lastKey(pair), val, 0).Err(); err != nil {
		log.Warn().Err(err).Str("pair", pair).Msg("rate cache write failed")
	}
}
