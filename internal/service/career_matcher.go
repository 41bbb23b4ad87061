package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

const (
	DefaultMatchThreshold = 0.6
	DefaultMatchLimit     = 10
)

// BoostTable is the amount each pathway source adds to a career's base score.
type BoostTable struct {
	General float64 `json:"general" yaml:"general"`
	Gifted  float64 `json:"gifted" yaml:"gifted"`
}

func DefaultBoostTable() BoostTable {
	return BoostTable{General: 0.1, Gifted: 0.15}
}

func (b BoostTable) Validate() error {
	if b.General < 0 || b.Gifted < 0 {
		return fmt.Errorf("%w: pathway boosts must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

func (b BoostTable) amount(src domain.PathwaySource) float64 {
	switch src {
	case domain.PathwaySourceGeneral:
		return b.General
	case domain.PathwaySourceGifted:
		return b.Gifted
	}
	return 0
}

// MatchRequest is the matcher's input.
type MatchRequest struct {
	TypeCode  string
	Policy    domain.DeploymentPolicy
	Threshold *float64
	Limit     int
	Rows      []domain.PersonalityCareerMatch
	Links     []domain.PathwayCareer
	Boosts    BoostTable
}

// AppliedBoost explains one boost added to a career's score.
type AppliedBoost struct {
	Source    domain.PathwaySource `json:"source"`
	PathwayID string               `json:"pathway_id"`
	Weight    float64              `json:"weight"`
	Amount    float64              `json:"amount"`
}

// CareerMatch is one ranked result.
type CareerMatch struct {
	Career        domain.Career  `json:"career"`
	BaseScore     float64        `json:"base_score"`
	AdjustedScore float64        `json:"adjusted_score"`
	Boosts        []AppliedBoost `json:"boosts"`
	Explanation   []string       `json:"explanation"`
}

// RankCareers scores, filters, orders and truncates career matches.
//
// Each visible pathway source adds at most one boost per career: the source's
// amount times the heaviest link weight from that source. The threshold is
// compared with the adjusted score. Results are ordered by adjusted score
// descending, then career id ascending.
func RankCareers(req MatchRequest) ([]CareerMatch, error) {
	if _, err := domain.ParseTypeCode(req.TypeCode); err != nil {
		return nil, err
	}
	if err := req.Boosts.Validate(); err != nil {
		return nil, err
	}
	threshold := DefaultMatchThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold must be within [0,1], got %v", domain.ErrInvalidInput, threshold)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultMatchLimit
	}

	visible := make(map[domain.PathwaySource]bool)
	for _, src := range req.Policy.VisibleSources() {
		visible[src] = true
	}

	// career -> source -> heaviest visible link
	best := make(map[string]map[domain.PathwaySource]domain.PathwayCareer)
	for _, l := range req.Links {
		if !visible[l.Source] {
			continue
		}
		bySource := best[l.CareerID]
		if bySource == nil {
			bySource = make(map[domain.PathwaySource]domain.PathwayCareer)
			best[l.CareerID] = bySource
		}
		cur, ok := bySource[l.Source]
		if !ok || l.Weight > cur.Weight || (l.Weight == cur.Weight && l.PathwayID < cur.PathwayID) {
			bySource[l.Source] = l
		}
	}

	seen := make(map[string]struct{}, len(req.Rows))
	out := make([]CareerMatch, 0, len(req.Rows))
	for _, row := range req.Rows {
		if row.TypeCode != req.TypeCode {
			continue
		}
		if _, dup := seen[row.Career.ID]; dup {
			return nil, fmt.Errorf("%w: career %s matched more than once for %s", domain.ErrInvalidInput, row.Career.ID, req.TypeCode)
		}
		seen[row.Career.ID] = struct{}{}

		m := CareerMatch{
			Career:      row.Career,
			BaseScore:   row.BaseScore,
			Explanation: []string{fmt.Sprintf("base:%.2f", row.BaseScore)},
		}
		adjusted := row.BaseScore
		for _, src := range req.Policy.VisibleSources() {
			link, ok := best[row.Career.ID][src]
			if !ok {
				continue
			}
			amount := req.Boosts.amount(src) * link.Weight
			if amount == 0 {
				continue
			}
			adjusted += amount
			m.Boosts = append(m.Boosts, AppliedBoost{Source: src, PathwayID: link.PathwayID, Weight: link.Weight, Amount: roundScore(amount)})
			m.Explanation = append(m.Explanation, fmt.Sprintf("boost:%s:+%.2f", src, amount))
		}
		m.AdjustedScore = roundScore(adjusted)
		if m.AdjustedScore < threshold {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AdjustedScore != out[j].AdjustedScore {
			return out[i].AdjustedScore > out[j].AdjustedScore
		}
		return out[i].Career.ID < out[j].Career.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// roundScore drops float noise so equal sums compare equal (0.5+0.1 == 0.6).
func roundScore(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
