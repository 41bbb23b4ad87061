package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

type PersonalityTypeRepository interface {
	GetByCode(ctx context.Context, tenantID, code, language string) (domain.PersonalityType, error)
}

type PgPersonalityTypeRepository struct {
	pool *pgxpool.Pool
}

func NewPgPersonalityTypeRepository(pool *pgxpool.Pool) *PgPersonalityTypeRepository {
	return &PgPersonalityTypeRepository{pool: pool}
}

// GetByCode cae a ingles cuando no hay traduccion para el idioma pedido.
func (r *PgPersonalityTypeRepository) GetByCode(ctx context.Context, tenantID, code, language string) (domain.PersonalityType, error) {
	const query = `
		SELECT code, language, name, description, strengths, challenges
		FROM personality_types
		WHERE tenant_id = $1 AND code = $2 AND language IN ($3, 'en')
		ORDER BY CASE WHEN language = $3 THEN 0 ELSE 1 END
		LIMIT 1
	`
	var pt domain.PersonalityType
	err := r.pool.QueryRow(ctx, query, tenantID, code, language).Scan(
		&pt.Code,
		&pt.Language,
		&pt.Name,
		&pt.Description,
		&pt.Strengths,
		&pt.Challenges,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PersonalityType{}, fmt.Errorf("personality type %s: %w", code, domain.ErrNotFound)
	}
	return pt, err
}
