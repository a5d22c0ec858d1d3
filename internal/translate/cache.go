package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/babelchat/server/internal/types"
)

// DefaultCacheTTL bounds staleness for cached translations. Translations
// of identical text are stable, so the TTL mostly limits key growth.
const DefaultCacheTTL = 24 * time.Hour

// CachingProvider wraps a Provider with a redis cache keyed by the
// (source, target, text) triple. Cache failures degrade to a direct
// provider call; a broken cache never fails a translation.
type CachingProvider struct {
	next   Provider
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewCachingProvider(next Provider, client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *CachingProvider {
	return &CachingProvider{
		next:   next,
		client: client,
		prefix: "translate:",
		ttl:    ttl,
		log:    logger,
	}
}

func (c *CachingProvider) key(text string, from, to types.Language) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s%s:%s:%s", c.prefix, from, to, hex.EncodeToString(sum[:16]))
}

func (c *CachingProvider) TranslateOne(ctx context.Context, text string, from, to types.Language) (string, error) {
	key := c.key(text, from, to)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Msg("translation cache get failed")
	}

	translated, err := c.next.TranslateOne(ctx, text, from, to)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, translated, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("translation cache set failed")
	}

	return translated, nil
}
