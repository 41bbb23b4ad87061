package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
	"github.com/Alsairy/Masark-Engine-sub003/internal/repository"
)

// ReferenceTTLs controla cuanto vive cada tipo de dato en cache.
type ReferenceTTLs struct {
	Questions time.Duration
	Matches   time.Duration
}

func DefaultReferenceTTLs() ReferenceTTLs {
	return ReferenceTTLs{Questions: time.Hour, Matches: 30 * time.Minute}
}

// ReferenceData lee preguntas, matches y pathways con cache-aside. Los errores
// de cache se loguean y se sigue contra el repositorio.
type ReferenceData struct {
	logger    *zap.Logger
	cache     ReferenceCache
	questions repository.QuestionRepository
	careers   repository.CareerRepository
	ttl       ReferenceTTLs
}

func NewReferenceData(logger *zap.Logger, cache ReferenceCache, questions repository.QuestionRepository, careers repository.CareerRepository, ttl ReferenceTTLs) *ReferenceData {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryReferenceCache()
	}
	if ttl.Questions <= 0 {
		ttl.Questions = DefaultReferenceTTLs().Questions
	}
	if ttl.Matches <= 0 {
		ttl.Matches = DefaultReferenceTTLs().Matches
	}
	return &ReferenceData{
		logger:    logger,
		cache:     cache,
		questions: questions,
		careers:   careers,
		ttl:       ttl,
	}
}

func (r *ReferenceData) ActiveQuestions(ctx context.Context, tenantID, lang string) ([]domain.Question, error) {
	return cached(ctx, r, questionsCacheKey(tenantID, lang), r.ttl.Questions, func() ([]domain.Question, error) {
		return r.questions.ListActive(ctx, tenantID, lang)
	})
}

// TieBreakers trae todas las preguntas de desempate del idioma; el resolver
// elige las de cada dimension empatada.
func (r *ReferenceData) TieBreakers(ctx context.Context, tenantID, lang string) ([]domain.TieBreakerQuestion, error) {
	return cached(ctx, r, tieBreakersCacheKey(tenantID, lang), r.ttl.Questions, func() ([]domain.TieBreakerQuestion, error) {
		return r.questions.ListTieBreakers(ctx, tenantID, lang, nil)
	})
}

func (r *ReferenceData) Matches(ctx context.Context, tenantID, lang, typeCode string) ([]domain.PersonalityCareerMatch, error) {
	return cached(ctx, r, matchesCacheKey(tenantID, lang, typeCode), r.ttl.Matches, func() ([]domain.PersonalityCareerMatch, error) {
		return r.careers.ListMatches(ctx, tenantID, typeCode, lang)
	})
}

func (r *ReferenceData) PathwayLinks(ctx context.Context, tenantID string, policy domain.DeploymentPolicy) ([]domain.PathwayCareer, error) {
	return cached(ctx, r, pathwaysCacheKey(tenantID, policy), r.ttl.Matches, func() ([]domain.PathwayCareer, error) {
		return r.careers.ListPathwayLinks(ctx, tenantID, policy.VisibleSources())
	})
}

// InvalidateMatches borra los matches cacheados del tenant en todos los idiomas.
func (r *ReferenceData) InvalidateMatches(ctx context.Context, tenantID string) error {
	n, err := r.cache.InvalidatePattern(ctx, tenantMatchesPattern(tenantID))
	if err != nil {
		return err
	}
	r.logger.Debug("match cache invalidated", zap.String("tenant_id", tenantID), zap.Int("keys", n))
	return nil
}

// InvalidateTenant borra toda la referencia cacheada del tenant.
func (r *ReferenceData) InvalidateTenant(ctx context.Context, tenantID string) error {
	n, err := r.cache.InvalidatePattern(ctx, tenantPattern(tenantID))
	if err != nil {
		return err
	}
	r.logger.Debug("reference cache invalidated", zap.String("tenant_id", tenantID), zap.Int("keys", n))
	return nil
}

func cached[T any](ctx context.Context, r *ReferenceData, key string, ttl time.Duration, load func() ([]T, error)) ([]T, error) {
	if raw, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("reference cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var out []T
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		r.logger.Warn("reference cache entry undecodable", zap.String("key", key))
	}

	out, err := load()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		r.logger.Warn("reference cache encode failed", zap.String("key", key), zap.Error(err))
		return out, nil
	}
	if err := r.cache.Set(ctx, key, raw, ttl); err != nil {
		r.logger.Warn("reference cache set failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}
