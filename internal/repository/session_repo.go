package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

// SessionRepository guarda sesiones de evaluacion con control optimista de version.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, id string) (domain.Session, error)
	// Update escribe la sesion si su Version coincide con la almacenada y la
	// incrementa; si otro escritor gano devuelve ErrConcurrentModification.
	Update(ctx context.Context, session *domain.Session) error
}

type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Create(ctx context.Context, s domain.Session) error {
	const query = `
		INSERT INTO assessment_sessions (id, tenant_id, language, policy, stage, version, pending_ties, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.TenantID,
		s.Language,
		string(s.Policy),
		string(s.Stage),
		s.Version,
		dimensionStrings(s.PendingTies),
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

func (r *PgSessionRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	const query = `
		SELECT id, tenant_id, language, policy, stage, version, type_code, result, pending_ties,
		       cluster_ratings, assessment_rating, created_at, updated_at, completed_at
		FROM assessment_sessions
		WHERE id = $1
	`
	var (
		s              domain.Session
		policy, stage  string
		resultJSON     []byte
		ratingsJSON    []byte
		pendingTies    []string
		assessmentRate *int32
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.TenantID,
		&s.Language,
		&policy,
		&stage,
		&s.Version,
		&s.TypeCode,
		&resultJSON,
		&pendingTies,
		&ratingsJSON,
		&assessmentRate,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Session{}, err
	}
	s.Policy = domain.DeploymentPolicy(policy)
	s.Stage = domain.Stage(stage)
	for _, d := range pendingTies {
		s.PendingTies = append(s.PendingTies, domain.Dimension(d))
	}
	if len(resultJSON) > 0 {
		var res domain.AssessmentResult
		if err := json.Unmarshal(resultJSON, &res); err != nil {
			return domain.Session{}, fmt.Errorf("decode session result: %w", err)
		}
		s.Result = &res
	}
	if len(ratingsJSON) > 0 {
		if err := json.Unmarshal(ratingsJSON, &s.ClusterRatings); err != nil {
			return domain.Session{}, fmt.Errorf("decode cluster ratings: %w", err)
		}
	}
	if assessmentRate != nil {
		v := int(*assessmentRate)
		s.AssessmentRating = &v
	}
	return s, nil
}

func (r *PgSessionRepository) Update(ctx context.Context, s *domain.Session) error {
	var resultJSON, ratingsJSON []byte
	var err error
	if s.Result != nil {
		if resultJSON, err = json.Marshal(s.Result); err != nil {
			return fmt.Errorf("encode session result: %w", err)
		}
	}
	if s.ClusterRatings != nil {
		if ratingsJSON, err = json.Marshal(s.ClusterRatings); err != nil {
			return fmt.Errorf("encode cluster ratings: %w", err)
		}
	}

	// type_code y result solo se escriben una vez: COALESCE conserva el valor previo.
	const query = `
		UPDATE assessment_sessions
		SET stage = $3,
		    version = version + 1,
		    type_code = COALESCE(type_code, $4),
		    result = COALESCE(result, $5),
		    pending_ties = $6,
		    cluster_ratings = $7,
		    assessment_rating = $8,
		    updated_at = $9,
		    completed_at = COALESCE(completed_at, $10)
		WHERE id = $1 AND version = $2
	`
	tag, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Version,
		string(s.Stage),
		s.TypeCode,
		resultJSON,
		dimensionStrings(s.PendingTies),
		ratingsJSON,
		s.AssessmentRating,
		s.UpdatedAt,
		s.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.AssessmentError{
			Kind:      domain.ErrConcurrentModification,
			SessionID: s.ID,
			Stage:     s.Stage,
			Detail:    fmt.Sprintf("version %d is stale", s.Version),
		}
	}
	s.Version++
	return nil
}

func dimensionStrings(ds []domain.Dimension) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, string(d))
	}
	return out
}
