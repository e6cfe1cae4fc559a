package infra

import (
	"context"
	"encoding/json"
	"time"

	"vlstore/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PrecoCache keeps public price lookups in Redis as JSON. Redis errors
// degrade to cache misses.
type PrecoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPrecoCache(rdb *redis.Client, ttl time.Duration) *PrecoCache {
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &PrecoCache{rdb: rdb, ttl: ttl}
}

func (c *PrecoCache) Get(ctx context.Context, chave string) (*dto.ConsultaPrecoResponse, bool) {
	raw, err := c.rdb.Get(ctx, chave).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("chave", chave).Msg("cache: get falhou")
		}
		return nil, false
	}
	var v dto.ConsultaPrecoResponse
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warn().Err(err).Str("chave", chave).Msg("cache: valor corrompido")
		return nil, false
	}
	return &v, true
}

func (c *PrecoCache) Set(ctx context.Context, chave string, v *dto.ConsultaPrecoResponse) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, chave, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("chave", chave).Msg("cache: set falhou")
	}
}

func (c *PrecoCache) Invalidate(ctx context.Context, chaves ...string) {
	if len(chaves) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, chaves...).Err(); err != nil {
		log.Warn().Err(err).Strs("chaves", chaves).Msg("cache: invalidate falhou")
	}
}
