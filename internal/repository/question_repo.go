package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

// QuestionRepository lee el banco de preguntas activo de un tenant.
type QuestionRepository interface {
	ListActive(ctx context.Context, tenantID, language string) ([]domain.Question, error)
	// ListTieBreakers devuelve las preguntas de desempate; sin dimensiones trae todas.
	ListTieBreakers(ctx context.Context, tenantID, language string, dimensions []domain.Dimension) ([]domain.TieBreakerQuestion, error)
}

type PgQuestionRepository struct {
	pool *pgxpool.Pool
}

func NewPgQuestionRepository(pool *pgxpool.Pool) *PgQuestionRepository {
	return &PgQuestionRepository{pool: pool}
}

const questionColumns = `id, tenant_id, language, ordinal, dimension, text, option_a, option_b,
		       option_a_maps_to_first, active, created_at`

func (r *PgQuestionRepository) ListActive(ctx context.Context, tenantID, language string) ([]domain.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE tenant_id = $1 AND language = $2 AND active = TRUE AND is_tie_breaker = FALSE
		ORDER BY ordinal ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, tenantID, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuestions(rows)
}

func (r *PgQuestionRepository) ListTieBreakers(ctx context.Context, tenantID, language string, dimensions []domain.Dimension) ([]domain.TieBreakerQuestion, error) {
	dims := make([]string, 0, len(dimensions))
	for _, d := range dimensions {
		dims = append(dims, string(d))
	}
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE tenant_id = $1 AND language = $2 AND active = TRUE AND is_tie_breaker = TRUE
		  AND (cardinality($3::text[]) = 0 OR dimension = ANY($3::text[]))
		ORDER BY dimension ASC, ordinal ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, tenantID, language, dims)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	qs, err := collectQuestions(rows)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TieBreakerQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, domain.TieBreakerQuestion{Question: q})
	}
	return out, nil
}

func collectQuestions(rows pgx.Rows) ([]domain.Question, error) {
	var out []domain.Question
	for rows.Next() {
		var (
			q   domain.Question
			dim string
		)
		if err := rows.Scan(
			&q.ID,
			&q.TenantID,
			&q.Language,
			&q.Ordinal,
			&dim,
			&q.Text,
			&q.OptionA,
			&q.OptionB,
			&q.OptionAMapsToFirst,
			&q.Active,
			&q.CreatedAt,
		); err != nil {
			return nil, err
		}
		q.Dimension = domain.Dimension(dim)
		out = append(out, q)
	}
	return out, rows.Err()
}
