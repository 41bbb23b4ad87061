package http

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
	"github.com/Alsairy/Masark-Engine-sub003/internal/service"
)

// SessionResponse es la vista publica de una sesion; no expone el tenant.
type SessionResponse struct {
	ID               string                  `json:"id"`
	Language         string                  `json:"language"`
	Policy           domain.DeploymentPolicy `json:"policy"`
	Stage            domain.Stage            `json:"stage"`
	Version          int                     `json:"version"`
	TypeCode         *string                 `json:"type_code,omitempty"`
	PendingTies      []domain.Dimension      `json:"pending_ties,omitempty"`
	ClusterRatings   map[string]int          `json:"cluster_ratings,omitempty"`
	AssessmentRating *int                    `json:"assessment_rating,omitempty"`
	AllowedEvents    []service.Event         `json:"allowed_events"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
}

// QuestionResponse oculta a que polo suma cada opcion.
type QuestionResponse struct {
	ID        string           `json:"id"`
	Ordinal   int              `json:"ordinal"`
	Dimension domain.Dimension `json:"dimension"`
	Text      string           `json:"text"`
	OptionA   string           `json:"option_a"`
	OptionB   string           `json:"option_b"`
	Answered  bool             `json:"answered"`
}

type QuestionSetResponse struct {
	Stage     domain.Stage       `json:"stage"`
	Questions []QuestionResponse `json:"questions"`
}

type CareerMatchResponse struct {
	CareerID      string                 `json:"career_id"`
	Name          string                 `json:"name"`
	ClusterID     string                 `json:"cluster_id"`
	ClusterName   string                 `json:"cluster_name"`
	SSOCCode      string                 `json:"ssoc_code,omitempty"`
	BaseScore     float64                `json:"base_score"`
	AdjustedScore float64                `json:"adjusted_score"`
	Boosts        []service.AppliedBoost `json:"boosts,omitempty"`
	Explanation   []string               `json:"explanation"`
}

// ResultResponse agrega al resultado los mapas por dimension.
type ResultResponse struct {
	domain.AssessmentResult
	Scores     map[domain.Dimension]int     `json:"scores"`
	Confidence map[domain.Dimension]float64 `json:"confidence"`
}

func toResultResponse(r domain.AssessmentResult) ResultResponse {
	return ResultResponse{AssessmentResult: r, Scores: r.ScoreMap(), Confidence: r.ConfidenceMap()}
}

func toSessionResponse(sess domain.Session) (SessionResponse, error) {
	var resp SessionResponse
	if err := copier.Copy(&resp, &sess); err != nil {
		return SessionResponse{}, err
	}
	resp.AllowedEvents = service.AllowedEvents(sess.Stage)
	return resp, nil
}

func toQuestionSetResponse(set service.QuestionSet) (QuestionSetResponse, error) {
	questions := make([]QuestionResponse, 0, len(set.Questions))
	if err := copier.Copy(&questions, &set.Questions); err != nil {
		return QuestionSetResponse{}, err
	}
	for i := range questions {
		questions[i].Answered = set.Answered[questions[i].ID]
	}
	return QuestionSetResponse{Stage: set.Stage, Questions: questions}, nil
}

func toCareerMatchResponses(matches []service.CareerMatch) []CareerMatchResponse {
	out := make([]CareerMatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, CareerMatchResponse{
			CareerID:      m.Career.ID,
			Name:          m.Career.Name,
			ClusterID:     m.Career.ClusterID,
			ClusterName:   m.Career.Cluster.Name,
			SSOCCode:      m.Career.SSOCCode,
			BaseScore:     m.BaseScore,
			AdjustedScore: m.AdjustedScore,
			Boosts:        m.Boosts,
			Explanation:   m.Explanation,
		})
	}
	return out
}
