package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

// AnswerRepository persiste respuestas; hay a lo sumo una por (sesion, pregunta).
type AnswerRepository interface {
	Upsert(ctx context.Context, answer domain.Answer) error
	ListBySession(ctx context.Context, tenantID, sessionID string) ([]domain.Answer, error)
}

type PgAnswerRepository struct {
	pool *pgxpool.Pool
}

func NewPgAnswerRepository(pool *pgxpool.Pool) *PgAnswerRepository {
	return &PgAnswerRepository{pool: pool}
}

// Upsert reemplaza la respuesta previa conservando su id.
func (r *PgAnswerRepository) Upsert(ctx context.Context, a domain.Answer) error {
	const query = `
		INSERT INTO answers (id, tenant_id, session_id, question_id, selected_option, strength, is_tie_breaker, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, question_id) DO UPDATE
		SET selected_option = EXCLUDED.selected_option,
		    strength = EXCLUDED.strength,
		    is_tie_breaker = EXCLUDED.is_tie_breaker,
		    answered_at = EXCLUDED.answered_at
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.TenantID,
		a.SessionID,
		a.QuestionID,
		string(a.SelectedOption),
		string(a.Strength),
		a.TieBreaker,
		a.AnsweredAt,
	)
	return err
}

func (r *PgAnswerRepository) ListBySession(ctx context.Context, tenantID, sessionID string) ([]domain.Answer, error) {
	const query = `
		SELECT id, tenant_id, session_id, question_id, selected_option, strength, is_tie_breaker, answered_at
		FROM answers
		WHERE tenant_id = $1 AND session_id = $2
		ORDER BY answered_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Answer
	for rows.Next() {
		var (
			a        domain.Answer
			option   string
			strength string
		)
		if err := rows.Scan(
			&a.ID,
			&a.TenantID,
			&a.SessionID,
			&a.QuestionID,
			&option,
			&strength,
			&a.TieBreaker,
			&a.AnsweredAt,
		); err != nil {
			return nil, err
		}
		a.SelectedOption = domain.Option(option)
		a.Strength = domain.PreferenceStrength(strength)
		out = append(out, a)
	}
	return out, rows.Err()
}
