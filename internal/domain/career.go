package domain

import "time"

type CareerCluster struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Career belongs to exactly one cluster. Text fields are already localized.
type Career struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenant_id"`
	ClusterID   string        `json:"cluster_id"`
	Cluster     CareerCluster `json:"cluster"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	SSOCCode    string        `json:"ssoc_code,omitempty"`
	Active      bool          `json:"active"`
}

// PersonalityCareerMatch is the precomputed fit of a career for a type code.
type PersonalityCareerMatch struct {
	TenantID  string    `json:"tenant_id"`
	TypeCode  string    `json:"type_code"`
	Career    Career    `json:"career"`
	BaseScore float64   `json:"base_score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PathwaySource tags the education track a pathway comes from.
type PathwaySource string

const (
	PathwaySourceGeneral PathwaySource = "GENERAL"
	PathwaySourceGifted  PathwaySource = "GIFTED"
)

type Pathway struct {
	ID       string        `json:"id"`
	TenantID string        `json:"tenant_id"`
	Name     string        `json:"name"`
	Source   PathwaySource `json:"source"`
}

// PathwayCareer links a career to a pathway with a recommendation weight.
type PathwayCareer struct {
	TenantID  string        `json:"tenant_id"`
	PathwayID string        `json:"pathway_id"`
	CareerID  string        `json:"career_id"`
	Source    PathwaySource `json:"source"`
	Weight    float64       `json:"weight"`
}
