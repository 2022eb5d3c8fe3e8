package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	dom "qrstudio/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyList = "creations:list:"
	keyGen  = "creations:gen:"
)

// CreationCache caches each owner's raw creation rows in Redis. Rows are
// cached undecoded; decoding and host-dependent links happen per request.
//
// Lists are stored under the owner's current generation. Writes bump the
// generation instead of deleting, so a load that read the database before
// a write can only fill a key nobody reads any more.
type CreationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCreationCache returns a new CreationCache.
func NewCreationCache(rdb *redis.Client, ttl time.Duration) *CreationCache {
	return &CreationCache{rdb: rdb, ttl: ttl}
}

func genKey(userID int64) string {
	return keyGen + strconv.FormatInt(userID, 10)
}

func listKey(userID, gen int64) string {
	return keyList + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(gen, 10)
}

// Generation returns the owner's current list generation (0 if never written).
func (c *CreationCache) Generation(ctx context.Context, userID int64) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetList returns the cached rows of generation gen, or nil on a miss.
func (c *CreationCache) GetList(ctx context.Context, userID, gen int64) ([]dom.CreationRecord, error) {
	b, err := c.rdb.Get(ctx, listKey(userID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := []dom.CreationRecord{}
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetList stores the rows. An empty list is cached as [] so it is not a miss.
func (c *CreationCache) SetList(ctx context.Context, userID, gen int64, list []dom.CreationRecord) error {
	if list == nil {
		list = []dom.CreationRecord{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, listKey(userID, gen), b, c.ttl).Err()
}

// Invalidate moves the owner to a new generation (called on every write).
func (c *CreationCache) Invalidate(ctx context.Context, userID int64) error {
	return c.rdb.Incr(ctx, genKey(userID)).Err()
}
