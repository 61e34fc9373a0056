package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"sessionmgr/internal/constants"
	"sessionmgr/internal/logger"
	"sessionmgr/pkg/circuitbreaker"
	"sessionmgr/pkg/metrics"
	"sessionmgr/pkg/models"
	"sessionmgr/pkg/version"
)

// Cache keeps resolved property sets in Redis, keyed by session context and
// rule set fingerprint so a reload naturally invalidates stale entries. All
// failures degrade to a miss; resolution never depends on Redis being up.
type Cache struct {
	client  *redis.Client
	breaker *circuitbreaker.Wrapper
	ttl     time.Duration
	logger  logger.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{
		client:  client,
		breaker: circuitbreaker.NewWrapper(circuitbreaker.DefaultConfig("resolve-cache")),
		ttl:     ttl,
		logger:  log,
	}
}

func (c *Cache) Get(ctx context.Context, fingerprint string, sessionCtx models.SessionContext, coordinatorVersion version.Version) (*ResolveResponse, bool) {
	key := cacheKey(fingerprint, sessionCtx, coordinatorVersion)

	result, err := c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return c.client.Get(ctx, key).Result()
	})
	c.breaker.RecordRequest(err == nil || err == redis.Nil)

	if err == redis.Nil {
		metrics.IncResolveCacheRequest("miss")
		return nil, false
	}
	if err != nil {
		metrics.IncResolveCacheRequest("error")
		c.logger.WarnwCtx(ctx, "Resolve cache lookup failed",
			"error", err,
		)
		return nil, false
	}

	var resp ResolveResponse
	if err := json.Unmarshal([]byte(result.(string)), &resp); err != nil {
		metrics.IncResolveCacheRequest("error")
		c.logger.WarnwCtx(ctx, "Resolve cache entry is corrupt",
			"key", key,
			"error", err,
		)
		return nil, false
	}

	metrics.IncResolveCacheRequest("hit")
	return &resp, true
}

func (c *Cache) Set(ctx context.Context, fingerprint string, sessionCtx models.SessionContext, coordinatorVersion version.Version, resp *ResolveResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		return
	}

	key := cacheKey(fingerprint, sessionCtx, coordinatorVersion)
	_, err = c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, c.client.Set(ctx, key, body, c.ttl).Err()
	})
	c.breaker.RecordRequest(err == nil)

	if err != nil {
		c.logger.DebugwCtx(ctx, "Resolve cache store failed",
			"error", err,
		)
	}
}

// cacheKey hashes the session context and coordinator version together with
// the rule set fingerprint. Client tags are sorted first; tag order never
// changes the resolution.
func cacheKey(fingerprint string, sessionCtx models.SessionContext, coordinatorVersion version.Version) string {
	tags := make([]string, len(sessionCtx.ClientTags))
	copy(tags, sessionCtx.ClientTags)
	sort.Strings(tags)

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%s\x00%s\x00",
		fingerprint,
		coordinatorVersion.String(),
		sessionCtx.User,
		sessionCtx.SourceOrEmpty(),
		sessionCtx.QueryTypeOrEmpty(),
		sessionCtx.ClientInfoOrEmpty(),
		sessionCtx.ResourceGroupOrEmpty(),
	)
	for _, tag := range tags {
		fmt.Fprintf(h, "%s\x00", tag)
	}

	return constants.CacheKeyPrefixResolve + hex.EncodeToString(h.Sum(nil))
}

func rulesetFingerprint(stored []StoredRule) string {
	h := sha256.New()
	for _, sr := range stored {
		fmt.Fprintf(h, "%s\x00%d\x00", sr.ID, sr.Priority)
		h.Write(sr.Spec)
		h.Write([]byte{0})
		fmt.Fprintf(h, "%d\x00", sr.UpdatedAt.UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil))
}
