package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
	"github.com/Alsairy/Masark-Engine-sub003/internal/repository"
)

const maxSearchResults = 50

// MatchSettings are the tenant-independent defaults for ranking.
type MatchSettings struct {
	Boosts    BoostTable
	Threshold float64
	Limit     int
}

func DefaultMatchSettings() MatchSettings {
	return MatchSettings{Boosts: DefaultBoostTable(), Threshold: DefaultMatchThreshold, Limit: DefaultMatchLimit}
}

// CareerService ranks careers for resolved types and serves career reference data.
type CareerService struct {
	logger   *zap.Logger
	careers  repository.CareerRepository
	types    repository.PersonalityTypeRepository
	ref      *ReferenceData
	settings MatchSettings
	now      func() time.Time
}

func NewCareerService(
	logger *zap.Logger,
	careers repository.CareerRepository,
	types repository.PersonalityTypeRepository,
	ref *ReferenceData,
	settings MatchSettings,
) (*CareerService, error) {
	if careers == nil || ref == nil {
		return nil, errors.New("career service not configured")
	}
	if err := settings.Boosts.Validate(); err != nil {
		return nil, err
	}
	if settings.Threshold < 0 || settings.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold must be within [0,1]", domain.ErrInvalidInput)
	}
	if settings.Limit <= 0 {
		settings.Limit = DefaultMatchLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CareerService{
		logger:   logger,
		careers:  careers,
		types:    types,
		ref:      ref,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// MatchInput selects the type and policy to rank for. Threshold and Limit
// override the service defaults when set.
type MatchInput struct {
	TenantID  string
	TypeCode  string
	Language  string
	Policy    domain.DeploymentPolicy
	Threshold *float64
	Limit     int
}

func (s *CareerService) Match(ctx context.Context, input MatchInput) ([]CareerMatch, error) {
	if strings.TrimSpace(input.TenantID) == "" {
		return nil, fmt.Errorf("%w: tenant id required", domain.ErrAccessDenied)
	}
	code, err := domain.ParseTypeCode(input.TypeCode)
	if err != nil {
		return nil, err
	}
	lang, err := domain.ParseLanguage(input.Language)
	if err != nil {
		return nil, err
	}
	policy, err := domain.ParseDeploymentPolicy(string(input.Policy))
	if err != nil {
		return nil, err
	}

	rows, err := s.ref.Matches(ctx, input.TenantID, lang, code)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	links, err := s.ref.PathwayLinks(ctx, input.TenantID, policy)
	if err != nil {
		return nil, fmt.Errorf("load pathway links: %w", err)
	}

	threshold := s.settings.Threshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}
	limit := s.settings.Limit
	if input.Limit > 0 {
		limit = input.Limit
	}
	return RankCareers(MatchRequest{
		TypeCode:  code,
		Policy:    policy,
		Threshold: &threshold,
		Limit:     limit,
		Rows:      rows,
		Links:     links,
		Boosts:    s.settings.Boosts,
	})
}

// MatchForSession ranks careers for a completed session under its own policy
// and language.
func (s *CareerService) MatchForSession(ctx context.Context, sess domain.Session, limit int) ([]CareerMatch, error) {
	if !sess.Completed() {
		return nil, &domain.AssessmentError{Kind: domain.ErrIncompleteAssessment, SessionID: sess.ID, Stage: sess.Stage, Detail: "no type code yet"}
	}
	return s.Match(ctx, MatchInput{
		TenantID: sess.TenantID,
		TypeCode: *sess.TypeCode,
		Language: sess.Language,
		Policy:   sess.Policy,
		Limit:    limit,
	})
}

// CareerDetails is a career plus the pathways visible under a policy.
type CareerDetails struct {
	Career   domain.Career    `json:"career"`
	Pathways []domain.Pathway `json:"pathways"`
}

func (s *CareerService) CareerDetails(ctx context.Context, tenantID, careerID, language string, policy domain.DeploymentPolicy) (CareerDetails, error) {
	lang, err := domain.ParseLanguage(language)
	if err != nil {
		return CareerDetails{}, err
	}
	policy, err = domain.ParseDeploymentPolicy(string(policy))
	if err != nil {
		return CareerDetails{}, err
	}
	c, err := s.careers.GetCareer(ctx, tenantID, careerID, lang)
	if err != nil {
		return CareerDetails{}, err
	}
	pathways, err := s.careers.ListCareerPathways(ctx, tenantID, careerID, lang, policy.VisibleSources())
	if err != nil {
		return CareerDetails{}, fmt.Errorf("list career pathways: %w", err)
	}
	return CareerDetails{Career: c, Pathways: pathways}, nil
}

func (s *CareerService) Clusters(ctx context.Context, tenantID, language string) ([]domain.CareerCluster, error) {
	lang, err := domain.ParseLanguage(language)
	if err != nil {
		return nil, err
	}
	return s.careers.ListClusters(ctx, tenantID, lang)
}

func (s *CareerService) CareersByCluster(ctx context.Context, tenantID, clusterID, language string) ([]domain.Career, error) {
	lang, err := domain.ParseLanguage(language)
	if err != nil {
		return nil, err
	}
	return s.careers.ListByCluster(ctx, tenantID, clusterID, lang)
}

func (s *CareerService) SearchCareers(ctx context.Context, tenantID, term, language string, limit int) ([]domain.Career, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < 2 {
		return nil, fmt.Errorf("%w: search term must have at least 2 characters", domain.ErrInvalidInput)
	}
	lang, err := domain.ParseLanguage(language)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}
	return s.careers.Search(ctx, tenantID, term, lang, limit)
}

// UpdateMatchScore upserts a base score and drops the tenant's cached matches.
func (s *CareerService) UpdateMatchScore(ctx context.Context, tenantID, typeCode, careerID string, score float64) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant id required", domain.ErrAccessDenied)
	}
	code, err := domain.ParseTypeCode(typeCode)
	if err != nil {
		return err
	}
	if score < 0 || score > 1 {
		return fmt.Errorf("%w: match score must be within [0,1], got %v", domain.ErrInvalidInput, score)
	}
	if err := s.careers.UpsertMatchScore(ctx, tenantID, code, careerID, score, s.now()); err != nil {
		return fmt.Errorf("upsert match score: %w", err)
	}
	if err := s.ref.InvalidateMatches(ctx, tenantID); err != nil {
		return fmt.Errorf("invalidate match cache: %w", err)
	}
	s.logger.Info("match score updated",
		zap.String("tenant_id", tenantID),
		zap.String("type_code", code),
		zap.String("career_id", careerID),
		zap.Float64("score", score),
	)
	return nil
}

// BulkUpdateResult counts the outcome of a bulk score update.
type BulkUpdateResult struct {
	Updated  int                 `json:"updated"`
	Failed   int                 `json:"failed"`
	Failures []BulkUpdateFailure `json:"failures,omitempty"`
}

type BulkUpdateFailure struct {
	CareerID string `json:"career_id"`
	Reason   string `json:"reason"`
}

// BulkUpdateMatchScores upserts many base scores for one type. Rows are
// validated and written one by one in career id order; a bad row is counted
// and skipped. The match cache is dropped once when anything was written.
func (s *CareerService) BulkUpdateMatchScores(ctx context.Context, tenantID, typeCode string, scores map[string]float64) (BulkUpdateResult, error) {
	if strings.TrimSpace(tenantID) == "" {
		return BulkUpdateResult{}, fmt.Errorf("%w: tenant id required", domain.ErrAccessDenied)
	}
	code, err := domain.ParseTypeCode(typeCode)
	if err != nil {
		return BulkUpdateResult{}, err
	}
	if len(scores) == 0 {
		return BulkUpdateResult{}, fmt.Errorf("%w: no scores given", domain.ErrInvalidInput)
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var res BulkUpdateResult
	fail := func(id, reason string) {
		res.Failed++
		res.Failures = append(res.Failures, BulkUpdateFailure{CareerID: id, Reason: reason})
	}
	now := s.now()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		score := scores[id]
		switch {
		case strings.TrimSpace(id) == "":
			fail(id, "career id required")
			continue
		case math.IsNaN(score) || score < 0 || score > 1:
			fail(id, fmt.Sprintf("score %v outside [0,1]", score))
			continue
		}
		if err := s.careers.UpsertMatchScore(ctx, tenantID, code, id, score, now); err != nil {
			s.logger.Warn("bulk match score row failed", zap.String("career_id", id), zap.Error(err))
			fail(id, err.Error())
			continue
		}
		res.Updated++
	}

	if res.Updated > 0 {
		if err := s.ref.InvalidateMatches(ctx, tenantID); err != nil {
			return res, fmt.Errorf("invalidate match cache: %w", err)
		}
	}
	s.logger.Info("bulk match scores updated",
		zap.String("tenant_id", tenantID),
		zap.String("type_code", code),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (s *CareerService) PersonalityType(ctx context.Context, tenantID, typeCode, language string) (domain.PersonalityType, error) {
	if s.types == nil {
		return domain.PersonalityType{}, errors.New("personality types not configured")
	}
	code, err := domain.ParseTypeCode(typeCode)
	if err != nil {
		return domain.PersonalityType{}, err
	}
	lang, err := domain.ParseLanguage(language)
	if err != nil {
		return domain.PersonalityType{}, err
	}
	return s.types.GetByCode(ctx, tenantID, code, lang)
}
