package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

// CareerRepository lee carreras, clusters, matches precomputados y pathways.
type CareerRepository interface {
	ListMatches(ctx context.Context, tenantID, typeCode, language string) ([]domain.PersonalityCareerMatch, error)
	ListPathwayLinks(ctx context.Context, tenantID string, sources []domain.PathwaySource) ([]domain.PathwayCareer, error)
	GetCareer(ctx context.Context, tenantID, careerID, language string) (domain.Career, error)
	ListCareerPathways(ctx context.Context, tenantID, careerID, language string, sources []domain.PathwaySource) ([]domain.Pathway, error)
	ListClusters(ctx context.Context, tenantID, language string) ([]domain.CareerCluster, error)
	ListByCluster(ctx context.Context, tenantID, clusterID, language string) ([]domain.Career, error)
	Search(ctx context.Context, tenantID, term, language string, limit int) ([]domain.Career, error)
	UpsertMatchScore(ctx context.Context, tenantID, typeCode, careerID string, score float64, at time.Time) error
}

type PgCareerRepository struct {
	pool *pgxpool.Pool
}

func NewPgCareerRepository(pool *pgxpool.Pool) *PgCareerRepository {
	return &PgCareerRepository{pool: pool}
}

// Columnas localizadas: el parametro de idioma decide entre *_ar y *_en, con
// fallback a ingles.
const careerColumns = `
		c.id, c.tenant_id, c.cluster_id,
		CASE WHEN $%[1]d = 'ar' AND c.name_ar <> '' THEN c.name_ar ELSE c.name_en END,
		CASE WHEN $%[1]d = 'ar' AND c.description_ar <> '' THEN c.description_ar ELSE c.description_en END,
		c.ssoc_code, c.active,
		cl.id, cl.tenant_id,
		CASE WHEN $%[1]d = 'ar' AND cl.name_ar <> '' THEN cl.name_ar ELSE cl.name_en END,
		CASE WHEN $%[1]d = 'ar' AND cl.description_ar <> '' THEN cl.description_ar ELSE cl.description_en END`

const clusterJoin = `
		JOIN career_clusters cl ON cl.id = c.cluster_id AND cl.tenant_id = c.tenant_id`

func careerSelectWithLang(param int) string {
	return "SELECT " + fmt.Sprintf(careerColumns, param) + "\n\t\tFROM careers c" + clusterJoin
}

func (r *PgCareerRepository) ListMatches(ctx context.Context, tenantID, typeCode, language string) ([]domain.PersonalityCareerMatch, error) {
	query := "SELECT " + fmt.Sprintf(careerColumns, 3) + `, m.type_code, m.base_score, m.updated_at
		FROM personality_career_matches m
		JOIN careers c ON c.id = m.career_id AND c.tenant_id = m.tenant_id` + clusterJoin + `
		WHERE m.tenant_id = $1 AND m.type_code = $2 AND c.active = TRUE
		ORDER BY c.id ASC
	`
	rows, err := r.pool.Query(ctx, query, tenantID, typeCode, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PersonalityCareerMatch
	for rows.Next() {
		m := domain.PersonalityCareerMatch{TenantID: tenantID}
		dest := append(careerScanDest(&m.Career), &m.TypeCode, &m.BaseScore, &m.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PgCareerRepository) ListPathwayLinks(ctx context.Context, tenantID string, sources []domain.PathwaySource) ([]domain.PathwayCareer, error) {
	const query = `
		SELECT pc.tenant_id, pc.pathway_id, pc.career_id, p.source, pc.weight
		FROM pathway_careers pc
		JOIN pathways p ON p.id = pc.pathway_id AND p.tenant_id = pc.tenant_id
		WHERE pc.tenant_id = $1 AND p.source = ANY($2::text[])
		ORDER BY pc.career_id ASC, pc.pathway_id ASC
	`
	rows, err := r.pool.Query(ctx, query, tenantID, sourceStrings(sources))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PathwayCareer
	for rows.Next() {
		var (
			l      domain.PathwayCareer
			source string
		)
		if err := rows.Scan(&l.TenantID, &l.PathwayID, &l.CareerID, &source, &l.Weight); err != nil {
			return nil, err
		}
		l.Source = domain.PathwaySource(source)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PgCareerRepository) GetCareer(ctx context.Context, tenantID, careerID, language string) (domain.Career, error) {
	query := careerSelectWithLang(3) + `
		WHERE c.tenant_id = $1 AND c.id = $2
	`
	var c domain.Career
	err := r.pool.QueryRow(ctx, query, tenantID, careerID, language).Scan(careerScanDest(&c)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Career{}, fmt.Errorf("career %s: %w", careerID, domain.ErrNotFound)
	}
	return c, err
}

func (r *PgCareerRepository) ListCareerPathways(ctx context.Context, tenantID, careerID, language string, sources []domain.PathwaySource) ([]domain.Pathway, error) {
	const query = `
		SELECT p.id, p.tenant_id,
		       CASE WHEN $3 = 'ar' AND p.name_ar <> '' THEN p.name_ar ELSE p.name_en END,
		       p.source
		FROM pathways p
		JOIN pathway_careers pc ON pc.pathway_id = p.id AND pc.tenant_id = p.tenant_id
		WHERE p.tenant_id = $1 AND pc.career_id = $2 AND p.source = ANY($4::text[])
		ORDER BY p.id ASC
	`
	rows, err := r.pool.Query(ctx, query, tenantID, careerID, language, sourceStrings(sources))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Pathway
	for rows.Next() {
		var (
			p      domain.Pathway
			source string
		)
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &source); err != nil {
			return nil, err
		}
		p.Source = domain.PathwaySource(source)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PgCareerRepository) ListClusters(ctx context.Context, tenantID, language string) ([]domain.CareerCluster, error) {
	const query = `
		SELECT id, tenant_id,
		       CASE WHEN $2 = 'ar' AND name_ar <> '' THEN name_ar ELSE name_en END,
		       CASE WHEN $2 = 'ar' AND description_ar <> '' THEN description_ar ELSE description_en END
		FROM career_clusters
		WHERE tenant_id = $1
		ORDER BY id ASC
	`
	rows, err := r.pool.Query(ctx, query, tenantID, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CareerCluster
	for rows.Next() {
		var cl domain.CareerCluster
		if err := rows.Scan(&cl.ID, &cl.TenantID, &cl.Name, &cl.Description); err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, rows.Err()
}

func (r *PgCareerRepository) ListByCluster(ctx context.Context, tenantID, clusterID, language string) ([]domain.Career, error) {
	query := careerSelectWithLang(3) + `
		WHERE c.tenant_id = $1 AND c.cluster_id = $2 AND c.active = TRUE
		ORDER BY c.id ASC
	`
	return r.queryCareers(ctx, query, tenantID, clusterID, language)
}

func (r *PgCareerRepository) Search(ctx context.Context, tenantID, term, language string, limit int) ([]domain.Career, error) {
	query := careerSelectWithLang(3) + `
		WHERE c.tenant_id = $1 AND c.active = TRUE
		  AND (c.name_en ILIKE $2 OR c.name_ar ILIKE $2 OR c.description_en ILIKE $2 OR c.description_ar ILIKE $2)
		ORDER BY c.id ASC
		LIMIT $4
	`
	return r.queryCareers(ctx, query, tenantID, "%"+escapeLike(term)+"%", language, limit)
}

func (r *PgCareerRepository) UpsertMatchScore(ctx context.Context, tenantID, typeCode, careerID string, score float64, at time.Time) error {
	const query = `
		INSERT INTO personality_career_matches (tenant_id, type_code, career_id, base_score, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, type_code, career_id) DO UPDATE
		SET base_score = EXCLUDED.base_score,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query, tenantID, typeCode, careerID, score, at)
	return err
}

func (r *PgCareerRepository) queryCareers(ctx context.Context, query string, args ...any) ([]domain.Career, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Career
	for rows.Next() {
		var c domain.Career
		if err := rows.Scan(careerScanDest(&c)...); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func careerScanDest(c *domain.Career) []any {
	return []any{
		&c.ID,
		&c.TenantID,
		&c.ClusterID,
		&c.Name,
		&c.Description,
		&c.SSOCCode,
		&c.Active,
		&c.Cluster.ID,
		&c.Cluster.TenantID,
		&c.Cluster.Name,
		&c.Cluster.Description,
	}
}

func sourceStrings(sources []domain.PathwaySource) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, string(s))
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.TrimSpace(s))
}
