package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

// ClarityThresholds are exclusive upper bounds on the dominant pole's share.
type ClarityThresholds struct {
	Slight   float64 `json:"slight" yaml:"slight"`
	Moderate float64 `json:"moderate" yaml:"moderate"`
	Clear    float64 `json:"clear" yaml:"clear"`
}

func DefaultClarityThresholds() ClarityThresholds {
	return ClarityThresholds{Slight: 0.60, Moderate: 0.75, Clear: 0.90}
}

// Validate requires 0 < slight < moderate < clear <= 1.
func (c ClarityThresholds) Validate() error {
	if c.Slight <= 0 || c.Moderate <= c.Slight || c.Clear <= c.Moderate || c.Clear > 1 {
		return fmt.Errorf("%w: clarity thresholds must increase within (0,1], got %v/%v/%v",
			domain.ErrInvalidInput, c.Slight, c.Moderate, c.Clear)
	}
	return nil
}

func (c ClarityThresholds) Classify(share float64) domain.Clarity {
	switch {
	case share < c.Slight:
		return domain.ClaritySlight
	case share < c.Moderate:
		return domain.ClarityModerate
	case share < c.Clear:
		return domain.ClarityClear
	default:
		return domain.ClarityVeryClear
	}
}

// ResolverConfig carries every tunable the resolver reads. Nothing is global.
type ResolverConfig struct {
	Weights         WeightTable
	Clarity         ClarityThresholds
	BorderlineShare float64
}

func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Weights:         DefaultWeightTable(),
		Clarity:         DefaultClarityThresholds(),
		BorderlineShare: 0.55,
	}
}

// Validate checks every table. A dominant share is never below 0.5, so the
// borderline cut-off must lie in [0.5,1].
func (c ResolverConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Clarity.Validate(); err != nil {
		return err
	}
	if c.BorderlineShare < 0.5 || c.BorderlineShare > 1 {
		return fmt.Errorf("%w: borderline share must be within [0.5,1], got %v", domain.ErrInvalidInput, c.BorderlineShare)
	}
	return nil
}

// ResolverInput is everything the resolver needs; it performs no I/O.
type ResolverInput struct {
	Questions         []domain.Question
	Answers           []domain.Answer
	TieBreakers       []domain.TieBreakerQuestion
	TieBreakerAnswers []domain.Answer
}

// Resolution is the resolver's output. When PendingTies is non-empty the type
// code is empty and the listed dimensions still need tie-breaker answers.
type Resolution struct {
	Result      domain.AssessmentResult
	Tallies     map[domain.Dimension]DimensionTally
	PendingTies []domain.Dimension
}

func (r Resolution) Resolved() bool { return len(r.PendingTies) == 0 && r.Result.TypeCode != "" }

// ResolveType turns answers into a type code.
//
// A dimension whose net score is zero is tied. Until every tie-breaker of that
// dimension is answered it is reported in PendingTies. Then all tie-breaker
// weights are added to the original totals; a net still at zero fails with
// ErrUnresolvedTie. A dimension without any weight fails with ErrInsufficientData.
func ResolveType(in ResolverInput, cfg ResolverConfig) (Resolution, error) {
	tallies, err := AggregateAnswers(in.Answers, in.Questions, cfg.Weights)
	if err != nil {
		return Resolution{}, err
	}

	tieBreakers := make(map[domain.Dimension][]domain.Question)
	known := make(map[string]domain.Question, len(in.TieBreakers))
	for _, tb := range in.TieBreakers {
		tieBreakers[tb.Dimension] = append(tieBreakers[tb.Dimension], tb.Question)
		known[tb.ID] = tb.Question
	}
	tbAnswers := make(map[string]domain.Answer, len(in.TieBreakerAnswers))
	for _, a := range in.TieBreakerAnswers {
		if _, ok := known[a.QuestionID]; !ok {
			return Resolution{}, &domain.AssessmentError{
				Kind:      domain.ErrInvalidQuestionReference,
				SessionID: a.SessionID,
				Detail:    fmt.Sprintf("question %s is not a tie-breaker question", a.QuestionID),
			}
		}
		tbAnswers[a.QuestionID] = a
	}

	counts := CountQuestionsPerDimension(in.Questions)
	res := Resolution{Tallies: make(map[domain.Dimension]DimensionTally, len(domain.Dimensions))}
	var letters strings.Builder

	for _, d := range domain.Dimensions {
		t := tallies[d]
		if t.Total() == 0 {
			return Resolution{}, &domain.AssessmentError{Kind: domain.ErrInsufficientData, Dimension: d, Detail: "no weighted answers"}
		}

		applied := 0
		if t.Net() == 0 {
			candidates := sortedQuestions(tieBreakers[d])
			if len(candidates) == 0 {
				return Resolution{}, &domain.AssessmentError{Kind: domain.ErrUnresolvedTie, Dimension: d, Detail: "no tie-breaker questions available"}
			}
			var weighed []weightedAnswer
			for _, q := range candidates {
				a, ok := tbAnswers[q.ID]
				if !ok {
					break
				}
				wa, err := weighAnswer(a, q, cfg.Weights)
				if err != nil {
					return Resolution{}, err
				}
				weighed = append(weighed, wa)
			}
			if len(weighed) < len(candidates) {
				res.PendingTies = append(res.PendingTies, d)
				res.Tallies[d] = t
				continue
			}
			for _, wa := range weighed {
				t.add(wa.toFirst, wa.weight)
				applied++
			}
			if t.Net() == 0 {
				return Resolution{}, &domain.AssessmentError{
					Kind:      domain.ErrUnresolvedTie,
					Dimension: d,
					Detail:    fmt.Sprintf("still tied at %d-%d after %d tie-breakers", t.FirstPole, t.SecondPole, applied),
				}
			}
		}

		res.Tallies[d] = t
		score := buildDimensionScore(t, cfg, counts[d], applied)
		res.Result.Dimensions = append(res.Result.Dimensions, score)
		if score.DominantShare < cfg.BorderlineShare {
			res.Result.Borderline = append(res.Result.Borderline, d)
		}
		letters.WriteString(score.Letter)
	}

	if len(res.PendingTies) == 0 {
		res.Result.TypeCode = letters.String()
	}
	return res, nil
}

func buildDimensionScore(t DimensionTally, cfg ResolverConfig, questions, tieBreakers int) domain.DimensionScore {
	net := t.Net()
	total := float64(t.Total())
	letter := t.Dimension.FirstPole()
	dominant := t.FirstPole
	if net < 0 {
		letter = t.Dimension.SecondPole()
		dominant = t.SecondPole
	}
	confidence := math.Abs(float64(net)) / total * 100
	confidence = math.Max(0, math.Min(100, confidence))
	share := float64(dominant) / total

	return domain.DimensionScore{
		Dimension:          t.Dimension,
		FirstPole:          t.FirstPole,
		SecondPole:         t.SecondPole,
		Net:                net,
		Letter:             letter,
		Confidence:         roundTo(confidence, 2),
		DominantShare:      roundTo(share, 4),
		Clarity:            cfg.Clarity.Classify(share),
		Questions:          questions,
		TieBreakersApplied: tieBreakers,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// sortedQuestions orders by ordinal, then id, without touching the input.
func sortedQuestions(qs []domain.Question) []domain.Question {
	out := append([]domain.Question(nil), qs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		return out[i].ID < out[j].ID
	})
	return out
}
