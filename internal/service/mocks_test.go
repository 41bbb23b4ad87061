package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	updates  int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]domain.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("duplicate session %s", s.ID)
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

func (m *mockSessionRepo) Update(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[s.ID]
	if !ok || stored.Version != s.Version {
		return &domain.AssessmentError{Kind: domain.ErrConcurrentModification, SessionID: s.ID, Stage: s.Stage}
	}
	s.Version++
	m.sessions[s.ID] = *s
	m.updates++
	return nil
}

// bump simulates a write from another process.
func (m *mockSessionRepo) bump(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[id]
	s.Version++
	m.sessions[id] = s
}

type mockAnswerRepo struct {
	mu        sync.Mutex
	bySession map[string]map[string]domain.Answer
	listCalls int
}

func newMockAnswerRepo() *mockAnswerRepo {
	return &mockAnswerRepo{bySession: make(map[string]map[string]domain.Answer)}
}

func (m *mockAnswerRepo) Upsert(_ context.Context, a domain.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	answers := m.bySession[a.SessionID]
	if answers == nil {
		answers = make(map[string]domain.Answer)
		m.bySession[a.SessionID] = answers
	}
	if prev, ok := answers[a.QuestionID]; ok {
		a.ID = prev.ID
	}
	answers[a.QuestionID] = a
	return nil
}

func (m *mockAnswerRepo) ListBySession(_ context.Context, tenantID, sessionID string) ([]domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var out []domain.Answer
	for _, a := range m.bySession[sessionID] {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (m *mockAnswerRepo) count(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bySession[sessionID])
}

type staticQuestionRepo struct {
	questions   []domain.Question
	tieBreakers []domain.TieBreakerQuestion
}

func (r *staticQuestionRepo) ListActive(_ context.Context, tenantID, _ string) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range r.questions {
		if q.TenantID == tenantID && q.Active {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *staticQuestionRepo) ListTieBreakers(_ context.Context, tenantID, _ string, dims []domain.Dimension) ([]domain.TieBreakerQuestion, error) {
	var out []domain.TieBreakerQuestion
	for _, tb := range r.tieBreakers {
		if tb.TenantID != tenantID {
			continue
		}
		if len(dims) > 0 {
			keep := false
			for _, d := range dims {
				if d == tb.Dimension {
					keep = true
				}
			}
			if !keep {
				continue
			}
		}
		out = append(out, tb)
	}
	return out, nil
}

type mockCareerRepo struct {
	mu          sync.Mutex
	clusters    []domain.CareerCluster
	careers     []domain.Career
	matches     []domain.PersonalityCareerMatch
	links       []domain.PathwayCareer
	pathways    []domain.Pathway
	matchCalls  int
	upsertCalls int
	upsertErr   map[string]error
}

func (m *mockCareerRepo) ListMatches(_ context.Context, tenantID, typeCode, _ string) ([]domain.PersonalityCareerMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchCalls++
	var out []domain.PersonalityCareerMatch
	for _, r := range m.matches {
		if r.TenantID == tenantID && r.TypeCode == typeCode {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockCareerRepo) ListPathwayLinks(_ context.Context, tenantID string, sources []domain.PathwaySource) ([]domain.PathwayCareer, error) {
	var out []domain.PathwayCareer
	for _, l := range m.links {
		if l.TenantID != tenantID {
			continue
		}
		for _, s := range sources {
			if l.Source == s {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

func (m *mockCareerRepo) GetCareer(_ context.Context, tenantID, careerID, _ string) (domain.Career, error) {
	for _, c := range m.careers {
		if c.TenantID == tenantID && c.ID == careerID {
			return c, nil
		}
	}
	return domain.Career{}, fmt.Errorf("career %s: %w", careerID, domain.ErrNotFound)
}

func (m *mockCareerRepo) ListCareerPathways(_ context.Context, tenantID, careerID, _ string, sources []domain.PathwaySource) ([]domain.Pathway, error) {
	var out []domain.Pathway
	for _, l := range m.links {
		if l.TenantID != tenantID || l.CareerID != careerID {
			continue
		}
		for _, p := range m.pathways {
			if p.ID != l.PathwayID {
				continue
			}
			for _, s := range sources {
				if p.Source == s {
					out = append(out, p)
				}
			}
		}
	}
	return out, nil
}

func (m *mockCareerRepo) ListClusters(_ context.Context, tenantID, _ string) ([]domain.CareerCluster, error) {
	var out []domain.CareerCluster
	for _, c := range m.clusters {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCareerRepo) ListByCluster(_ context.Context, tenantID, clusterID, _ string) ([]domain.Career, error) {
	var out []domain.Career
	for _, c := range m.careers {
		if c.TenantID == tenantID && c.ClusterID == clusterID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCareerRepo) Search(_ context.Context, tenantID, term, _ string, limit int) ([]domain.Career, error) {
	var out []domain.Career
	for _, c := range m.careers {
		if c.TenantID == tenantID && strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
			out = append(out, c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockCareerRepo) UpsertMatchScore(_ context.Context, tenantID, typeCode, careerID string, score float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if err := m.upsertErr[careerID]; err != nil {
		return err
	}
	for i, r := range m.matches {
		if r.TenantID == tenantID && r.TypeCode == typeCode && r.Career.ID == careerID {
			m.matches[i].BaseScore = score
			m.matches[i].UpdatedAt = at
			return nil
		}
	}
	m.matches = append(m.matches, domain.PersonalityCareerMatch{
		TenantID: tenantID, TypeCode: typeCode, Career: domain.Career{ID: careerID, TenantID: tenantID}, BaseScore: score, UpdatedAt: at,
	})
	return nil
}
