package domain

import (
	"fmt"
	"strings"
	"time"
)

// Stage is the position of a session in the assessment flow.
type Stage string

const (
	StageAnswerQuestions     Stage = "AnswerQuestions"
	StageRateCareerClusters  Stage = "RateCareerClusters"
	StageCalculateAssessment Stage = "CalculateAssessment"
	StageTieResolvement      Stage = "TieResolvement"
	StageRateAssessment      Stage = "RateAssessment"
	StageReport              Stage = "Report"
)

func (s Stage) Valid() bool {
	switch s {
	case StageAnswerQuestions, StageRateCareerClusters, StageCalculateAssessment,
		StageTieResolvement, StageRateAssessment, StageReport:
		return true
	}
	return false
}

func (s Stage) Terminal() bool { return s == StageReport }

// DeploymentPolicy selects which pathway boosts apply to career ranking.
type DeploymentPolicy string

const (
	// PolicyStandard sees general-education pathways only.
	PolicyStandard DeploymentPolicy = "STANDARD"
	// PolicyAdvanced sees general and gifted-education pathways.
	PolicyAdvanced DeploymentPolicy = "ADVANCED"
)

// ParseDeploymentPolicy defaults an empty value to STANDARD.
func ParseDeploymentPolicy(raw string) (DeploymentPolicy, error) {
	switch p := DeploymentPolicy(strings.ToUpper(strings.TrimSpace(raw))); p {
	case "":
		return PolicyStandard, nil
	case PolicyStandard, PolicyAdvanced:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown deployment policy %q", ErrInvalidInput, raw)
}

// VisibleSources lists the pathway sources a policy may boost from.
func (p DeploymentPolicy) VisibleSources() []PathwaySource {
	if p == PolicyAdvanced {
		return []PathwaySource{PathwaySourceGeneral, PathwaySourceGifted}
	}
	return []PathwaySource{PathwaySourceGeneral}
}

const (
	LanguageEnglish = "en"
	LanguageArabic  = "ar"
)

// ParseLanguage defaults an empty value to English.
func ParseLanguage(raw string) (string, error) {
	switch l := strings.ToLower(strings.TrimSpace(raw)); l {
	case "":
		return LanguageEnglish, nil
	case LanguageEnglish, LanguageArabic:
		return l, nil
	}
	return "", fmt.Errorf("%w: unsupported language %q", ErrInvalidInput, raw)
}

// DimensionScore is the per-dimension snapshot stored on completion.
type DimensionScore struct {
	Dimension          Dimension `json:"dimension"`
	FirstPole          int       `json:"first_pole"`
	SecondPole         int       `json:"second_pole"`
	Net                int       `json:"net"`
	Letter             string    `json:"letter"`
	Confidence         float64   `json:"confidence"`
	DominantShare      float64   `json:"dominant_share"`
	Clarity            Clarity   `json:"clarity"`
	Questions          int       `json:"questions"`
	TieBreakersApplied int       `json:"tie_breakers_applied"`
}

// AssessmentResult is the immutable outcome of a completed session.
type AssessmentResult struct {
	TypeCode   string           `json:"type_code"`
	Dimensions []DimensionScore `json:"dimensions"`
	Borderline []Dimension      `json:"borderline,omitempty"`
}

func (r AssessmentResult) Score(d Dimension) (DimensionScore, bool) {
	for _, s := range r.Dimensions {
		if s.Dimension == d {
			return s, true
		}
	}
	return DimensionScore{}, false
}

// ScoreMap devuelve el puntaje neto por dimension.
func (r AssessmentResult) ScoreMap() map[Dimension]int {
	out := make(map[Dimension]int, len(r.Dimensions))
	for _, s := range r.Dimensions {
		out[s.Dimension] = s.Net
	}
	return out
}

// ConfidenceMap devuelve el porcentaje de confianza por dimension.
func (r AssessmentResult) ConfidenceMap() map[Dimension]float64 {
	out := make(map[Dimension]float64, len(r.Dimensions))
	for _, s := range r.Dimensions {
		out[s.Dimension] = s.Confidence
	}
	return out
}

// Session is the respondent's assessment, carrying all state-machine state.
type Session struct {
	ID               string            `json:"id"`
	TenantID         string            `json:"tenant_id"`
	Language         string            `json:"language"`
	Policy           DeploymentPolicy  `json:"policy"`
	Stage            Stage             `json:"stage"`
	Version          int               `json:"version"`
	TypeCode         *string           `json:"type_code,omitempty"`
	Result           *AssessmentResult `json:"result,omitempty"`
	PendingTies      []Dimension       `json:"pending_ties,omitempty"`
	ClusterRatings   map[string]int    `json:"cluster_ratings,omitempty"`
	AssessmentRating *int              `json:"assessment_rating,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

func (s Session) Completed() bool {
	return s.TypeCode != nil && s.Result != nil
}

// Complete stores the type code and score snapshot. It may only happen once.
func (s *Session) Complete(result AssessmentResult, at time.Time) error {
	if s.Completed() {
		return &AssessmentError{Kind: ErrInvalidTransition, SessionID: s.ID, Stage: s.Stage, Detail: "result already recorded"}
	}
	code := result.TypeCode
	snapshot := result
	snapshot.Dimensions = append([]DimensionScore(nil), result.Dimensions...)
	snapshot.Borderline = append([]Dimension(nil), result.Borderline...)
	s.TypeCode = &code
	s.Result = &snapshot
	s.PendingTies = nil
	s.CompletedAt = &at
	return nil
}
