package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
)

const (
	leadGenerationKey = "leads:generation"
	leadPagePrefix    = "leads:page:"
)

// leadPageCache keys every page under the current generation. Invalidation
// bumps the generation, which orphans all older pages until their TTL expires.
type leadPageCache struct {
	client *redislib.Client
	ttl    time.Duration
}

// NewLeadPageCache creates a Redis-backed lead page cache.
func NewLeadPageCache(client *redislib.Client, ttl time.Duration) repository.LeadPageCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &leadPageCache{client: client, ttl: ttl}
}

func (c *leadPageCache) Get(ctx context.Context, key string) (*listing.Page[domain.Lead], int64, error) {
	generation, err := c.generation(ctx)
	if err != nil {
		return nil, 0, err
	}
	pageKey := c.pageKey(generation, key)
	raw, err := c.client.Get(ctx, pageKey).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, generation, nil
		}
		return nil, 0, domain.Unavailable("read lead page", err)
	}

	var page listing.Page[domain.Lead]
	if err := json.Unmarshal(raw, &page); err != nil {
		// A page written by an older build is treated as a miss.
		_ = c.client.Del(ctx, pageKey).Err()
		return nil, generation, nil
	}
	return &page, generation, nil
}

func (c *leadPageCache) Put(ctx context.Context, key string, generation int64, page listing.Page[domain.Lead]) error {
	payload, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return domain.Unavailable("write lead page", c.client.Set(ctx, c.pageKey(generation, key), payload, c.ttl).Err())
}

func (c *leadPageCache) Invalidate(ctx context.Context) error {
	return domain.Unavailable("invalidate lead pages", c.client.Incr(ctx, leadGenerationKey).Err())
}

func (c *leadPageCache) generation(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, leadGenerationKey).Int64()
	if err != nil && !errors.Is(err, redislib.Nil) {
		return 0, domain.Unavailable("read lead generation", err)
	}
	return generation, nil
}

func (c *leadPageCache) pageKey(generation int64, key string) string {
	return fmt.Sprintf("%s%d:%s", leadPagePrefix, generation, key)
}
