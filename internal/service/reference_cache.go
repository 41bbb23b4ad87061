package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

// ReferenceCache guarda datos de referencia serializados (preguntas, matches,
// pathways) por tenant e idioma.
type ReferenceCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// InvalidatePattern borra las claves que matchean un glob y devuelve cuantas.
	InvalidatePattern(ctx context.Context, pattern string) (int, error)
}

const referenceKeyPrefix = "masark:ref:"

func questionsCacheKey(tenantID, lang string) string {
	return fmt.Sprintf("%s%s:questions:%s", referenceKeyPrefix, tenantID, lang)
}

func tieBreakersCacheKey(tenantID, lang string) string {
	return fmt.Sprintf("%s%s:tiebreakers:%s", referenceKeyPrefix, tenantID, lang)
}

func matchesCacheKey(tenantID, lang, typeCode string) string {
	return fmt.Sprintf("%s%s:matches:%s:%s", referenceKeyPrefix, tenantID, lang, typeCode)
}

func pathwaysCacheKey(tenantID string, policy domain.DeploymentPolicy) string {
	return fmt.Sprintf("%s%s:pathways:%s", referenceKeyPrefix, tenantID, policy)
}

func tenantMatchesPattern(tenantID string) string {
	return fmt.Sprintf("%s%s:matches:*", referenceKeyPrefix, globEscaper.Replace(tenantID))
}

func tenantPattern(tenantID string) string {
	return fmt.Sprintf("%s%s:*", referenceKeyPrefix, globEscaper.Replace(tenantID))
}

// globEscaper deja literal el tenant dentro del patron; path.Match y MATCH de
// Redis aceptan el mismo escape con backslash.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

type memoryCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

type memoryReferenceCache struct {
	mu    sync.Mutex
	items map[string]memoryCacheEntry
	now   func() time.Time
}

func NewMemoryReferenceCache() ReferenceCache {
	return &memoryReferenceCache{
		items: make(map[string]memoryCacheEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (c *memoryReferenceCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (c *memoryReferenceCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryCacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.items[key] = e
	return nil
}

func (c *memoryReferenceCache) InvalidatePattern(_ context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, fmt.Errorf("invalid cache pattern %q: %w", pattern, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key := range c.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.items, key)
			n++
		}
	}
	return n, nil
}

// Borra por SCAN dentro del script para no bloquear con KEYS.
const redisInvalidateScript = `
local cursor = "0"
local deleted = 0
repeat
  local res = redis.call("SCAN", cursor, "MATCH", ARGV[1], "COUNT", 200)
  cursor = res[1]
  for _, k in ipairs(res[2]) do
    deleted = deleted + redis.call("DEL", k)
  end
until cursor == "0"
return deleted
`

type redisCacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisReferenceCache struct {
	client  redisCacheClient
	timeout time.Duration
}

func NewRedisReferenceCache(client *redis.Client) ReferenceCache {
	if client == nil {
		return nil
	}
	return &redisReferenceCache{
		client:  client,
		timeout: 500 * time.Millisecond,
	}
}

func (c *redisReferenceCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *redisReferenceCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *redisReferenceCache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	n, err := c.client.Eval(ctx, redisInvalidateScript, nil, pattern).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}
