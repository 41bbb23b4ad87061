package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

func TestMemoryReferenceCacheTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryReferenceCache().(*memoryReferenceCache)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("expected hit, got %q ok=%t err=%v", got, ok, err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestMemoryReferenceCacheInvalidatePattern(t *testing.T) {
	c := NewMemoryReferenceCache()
	ctx := context.Background()
	keys := []string{
		matchesCacheKey("t1", "en", "ENTP"),
		matchesCacheKey("t1", "ar", "INFJ"),
		questionsCacheKey("t1", "en"),
		matchesCacheKey("t2", "en", "ENTP"),
	}
	for _, k := range keys {
		if err := c.Set(ctx, k, []byte("x"), 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	n, err := c.InvalidatePattern(ctx, tenantMatchesPattern("t1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 keys removed, got %d", n)
	}
	if _, ok, _ := c.Get(ctx, questionsCacheKey("t1", "en")); !ok {
		t.Fatalf("questions entry should survive match invalidation")
	}
	if _, ok, _ := c.Get(ctx, matchesCacheKey("t2", "en", "ENTP")); !ok {
		t.Fatalf("other tenant entry should survive")
	}

	if _, err := c.InvalidatePattern(ctx, "["); err == nil {
		t.Fatalf("expected error for malformed pattern")
	}
}

func TestInvalidatePatternTreatsTenantLiterally(t *testing.T) {
	ctx := context.Background()
	tenants := []string{"t1", "t?", "*", `t\1`, "t[1]"}
	for _, victim := range tenants {
		t.Run(victim, func(t *testing.T) {
			c := NewMemoryReferenceCache()
			for _, tenant := range tenants {
				if err := c.Set(ctx, matchesCacheKey(tenant, "en", "ENTP"), []byte("x"), 0); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if err := c.Set(ctx, questionsCacheKey(tenant, "en"), []byte("x"), 0); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			n, err := c.InvalidatePattern(ctx, tenantMatchesPattern(victim))
			if err != nil || n != 1 {
				t.Fatalf("expected only %q matches removed, got n=%d err=%v", victim, n, err)
			}
			n, err = c.InvalidatePattern(ctx, tenantPattern(victim))
			if err != nil || n != 1 {
				t.Fatalf("expected only %q questions removed, got n=%d err=%v", victim, n, err)
			}
			for _, other := range tenants {
				if other == victim {
					continue
				}
				if _, ok, _ := c.Get(ctx, matchesCacheKey(other, "en", "ENTP")); !ok {
					t.Fatalf("tenant %q lost its entry", other)
				}
			}
		})
	}
}

func TestCacheKeysAreTenantScoped(t *testing.T) {
	if questionsCacheKey("a", "en") == questionsCacheKey("b", "en") {
		t.Fatalf("question keys must differ per tenant")
	}
	if pathwaysCacheKey("a", domain.PolicyStandard) == pathwaysCacheKey("a", domain.PolicyAdvanced) {
		t.Fatalf("pathway keys must differ per policy")
	}
}

type mockRedisCache struct {
	values     map[string]string
	getErr     error
	setErr     error
	evalResult int64
	evalErr    error
	lastTTL    time.Duration
	lastArgs   []interface{}
}

func (m *mockRedisCache) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	v, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = string(value.([]byte))
	m.lastTTL = expiration
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisCache) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.evalErr != nil {
		cmd.SetErr(m.evalErr)
		return cmd
	}
	cmd.SetVal(m.evalResult)
	return cmd
}

func TestRedisReferenceCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss is not an error", func(t *testing.T) {
		c := &redisReferenceCache{client: &mockRedisCache{}, timeout: time.Second}
		_, ok, err := c.Get(ctx, "missing")
		if err != nil || ok {
			t.Fatalf("expected clean miss, got ok=%t err=%v", ok, err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		mock := &mockRedisCache{}
		c := &redisReferenceCache{client: mock, timeout: time.Second}
		if err := c.Set(ctx, "k", []byte("payload"), 5*time.Minute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mock.lastTTL != 5*time.Minute {
			t.Fatalf("expected ttl to be forwarded, got %s", mock.lastTTL)
		}
		got, ok, err := c.Get(ctx, "k")
		if err != nil || !ok || string(got) != "payload" {
			t.Fatalf("expected payload, got %q ok=%t err=%v", got, ok, err)
		}
	})

	t.Run("get error surfaces", func(t *testing.T) {
		c := &redisReferenceCache{client: &mockRedisCache{getErr: errors.New("conn refused")}, timeout: time.Second}
		if _, _, err := c.Get(ctx, "k"); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalidate passes pattern to script", func(t *testing.T) {
		mock := &mockRedisCache{evalResult: 3}
		c := &redisReferenceCache{client: mock, timeout: time.Second}
		n, err := c.InvalidatePattern(ctx, tenantMatchesPattern("t1"))
		if err != nil || n != 3 {
			t.Fatalf("expected 3 deleted, got %d err=%v", n, err)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != "masark:ref:t1:matches:*" {
			t.Fatalf("unexpected script args %+v", mock.lastArgs)
		}
	})
}

type countingQuestionRepo struct {
	calls     int
	questions []domain.Question
	err       error
}

func (r *countingQuestionRepo) ListActive(_ context.Context, _, _ string) ([]domain.Question, error) {
	r.calls++
	return r.questions, r.err
}

func (r *countingQuestionRepo) ListTieBreakers(_ context.Context, _, _ string, _ []domain.Dimension) ([]domain.TieBreakerQuestion, error) {
	return nil, nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}
func (failingCache) InvalidatePattern(context.Context, string) (int, error) {
	return 0, errors.New("cache down")
}

func TestReferenceDataCachesQuestions(t *testing.T) {
	repo := &countingQuestionRepo{questions: questionBank(1)}
	ref := NewReferenceData(nil, NewMemoryReferenceCache(), repo, nil, ReferenceTTLs{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		qs, err := ref.ActiveQuestions(ctx, testTenant, "en")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(qs) != 4 || qs[0].ID != "EI-1" {
			t.Fatalf("unexpected questions %+v", qs)
		}
	}
	if repo.calls != 1 {
		t.Fatalf("expected one repository call, got %d", repo.calls)
	}

	if _, err := ref.ActiveQuestions(ctx, testTenant, "ar"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("language must be part of the key, got %d calls", repo.calls)
	}
}

func TestReferenceDataFailsOpenOnCacheErrors(t *testing.T) {
	repo := &countingQuestionRepo{questions: questionBank(1)}
	ref := NewReferenceData(nil, failingCache{}, repo, nil, ReferenceTTLs{})

	qs, err := ref.ActiveQuestions(context.Background(), testTenant, "en")
	if err != nil {
		t.Fatalf("cache failure must not fail the read: %v", err)
	}
	if len(qs) != 4 {
		t.Fatalf("expected questions from repository, got %d", len(qs))
	}
	if err := ref.InvalidateMatches(context.Background(), testTenant); err == nil {
		t.Fatalf("invalidation failure must be reported")
	}
}
