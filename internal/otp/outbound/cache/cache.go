// Package cache keeps the sliding attempt window in Redis sorted sets.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/hash"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
)

const keyPrefix = "otp:attempts:"

type Cache struct {
	client redis.UniversalClient
	hash   hash.Hash
	ttl    time.Duration
	ins    instrument.Instrumentation
}

// NewCache stores attempt sets for ttl after the latest write; ttl should be
// at least the attempt window. Keys are hashed so identities never appear
// in Redis in clear text.
func NewCache(client redis.UniversalClient, h hash.Hash, ttl time.Duration, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, hash: h, ttl: ttl, ins: ins}
}

func (c *Cache) key(identity string) (string, error) {
	sum, err := c.hash.Hash(identity)
	if err != nil {
		return "", err
	}
	return keyPrefix + string(sum), nil
}

// AddAttemptAndCount records attempt and returns how many attempts for the
// identity fall at or after since, all in one MULTI/EXEC.
func (c *Cache) AddAttemptAndCount(ctx context.Context, attempt entity.Attempt, since time.Time) (count int, err error) {
	ctx, span := c.ins.Tracer("otp.outbound.cache").Start(ctx, "AddAttemptAndCount")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	key, err := c.key(attempt.Identity)
	if err != nil {
		return 0, err
	}

	var card *redis.IntCmd
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(attempt.AttemptedAt.UnixMicro()),
			Member: attempt.ID,
		})
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(since.UnixMicro(), 10))
		card = pipe.ZCard(ctx, key)
		pipe.PExpire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return int(card.Val()), nil
}
