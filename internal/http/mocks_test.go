package http

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

const (
	testTenant  = "tenant-a"
	otherTenant = "tenant-b"
)

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func (m *memSessionRepo) Create(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionRepo) GetByID(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

func (m *memSessionRepo) Update(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.sessions[s.ID]; !ok || stored.Version != s.Version {
		return &domain.AssessmentError{Kind: domain.ErrConcurrentModification, SessionID: s.ID}
	}
	s.Version++
	m.sessions[s.ID] = *s
	return nil
}

type memAnswerRepo struct {
	mu      sync.Mutex
	answers map[string]map[string]domain.Answer
}

func (m *memAnswerRepo) Upsert(_ context.Context, a domain.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.answers[a.SessionID] == nil {
		m.answers[a.SessionID] = make(map[string]domain.Answer)
	}
	m.answers[a.SessionID][a.QuestionID] = a
	return nil
}

func (m *memAnswerRepo) ListBySession(_ context.Context, tenantID, sessionID string) ([]domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Answer
	for _, a := range m.answers[sessionID] {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memQuestionRepo struct {
	questions []domain.Question
}

func (m *memQuestionRepo) ListActive(_ context.Context, tenantID, _ string) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range m.questions {
		if q.TenantID == tenantID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memQuestionRepo) ListTieBreakers(context.Context, string, string, []domain.Dimension) ([]domain.TieBreakerQuestion, error) {
	return nil, nil
}

type memCareerRepo struct {
	mu       sync.Mutex
	clusters []domain.CareerCluster
	careers  []domain.Career
	matches  []domain.PersonalityCareerMatch
}

func (m *memCareerRepo) ListMatches(_ context.Context, tenantID, typeCode, _ string) ([]domain.PersonalityCareerMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PersonalityCareerMatch
	for _, r := range m.matches {
		if r.TenantID == tenantID && r.TypeCode == typeCode {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memCareerRepo) ListPathwayLinks(context.Context, string, []domain.PathwaySource) ([]domain.PathwayCareer, error) {
	return nil, nil
}

func (m *memCareerRepo) GetCareer(_ context.Context, tenantID, careerID, _ string) (domain.Career, error) {
	for _, c := range m.careers {
		if c.TenantID == tenantID && c.ID == careerID {
			return c, nil
		}
	}
	return domain.Career{}, fmt.Errorf("career %s: %w", careerID, domain.ErrNotFound)
}

func (m *memCareerRepo) ListCareerPathways(context.Context, string, string, string, []domain.PathwaySource) ([]domain.Pathway, error) {
	return nil, nil
}

func (m *memCareerRepo) ListClusters(_ context.Context, tenantID, _ string) ([]domain.CareerCluster, error) {
	var out []domain.CareerCluster
	for _, c := range m.clusters {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCareerRepo) ListByCluster(_ context.Context, tenantID, clusterID, _ string) ([]domain.Career, error) {
	var out []domain.Career
	for _, c := range m.careers {
		if c.TenantID == tenantID && c.ClusterID == clusterID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCareerRepo) Search(_ context.Context, tenantID, term, _ string, limit int) ([]domain.Career, error) {
	var out []domain.Career
	for _, c := range m.careers {
		if c.TenantID == tenantID && strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCareerRepo) UpsertMatchScore(_ context.Context, tenantID, typeCode, careerID string, score float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.matches {
		if r.TenantID == tenantID && r.TypeCode == typeCode && r.Career.ID == careerID {
			m.matches[i].BaseScore = score
			m.matches[i].UpdatedAt = at
			return nil
		}
	}
	for _, c := range m.careers {
		if c.TenantID == tenantID && c.ID == careerID {
			m.matches = append(m.matches, domain.PersonalityCareerMatch{TenantID: tenantID, TypeCode: typeCode, Career: c, BaseScore: score, UpdatedAt: at})
			return nil
		}
	}
	return fmt.Errorf("career %s: %w", careerID, domain.ErrNotFound)
}

type memTypeRepo struct{}

func (memTypeRepo) GetByCode(_ context.Context, _, code, language string) (domain.PersonalityType, error) {
	if code != "ENTP" {
		return domain.PersonalityType{}, fmt.Errorf("type %s: %w", code, domain.ErrNotFound)
	}
	return domain.PersonalityType{Code: code, Language: language, Name: "Debater"}, nil
}
