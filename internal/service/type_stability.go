package service

import (
	"fmt"
	"math"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

// Cut-offs below which a retest is recommended.
const (
	retestQualityBelow    = 0.55
	retestConfidenceBelow = 0.6
)

var explorationAreas = map[domain.Dimension]string{
	domain.DimensionEI: "Social energy and interaction preferences",
	domain.DimensionSN: "Information processing and focus preferences",
	domain.DimensionTF: "Decision-making and value systems",
	domain.DimensionJP: "Lifestyle and structure preferences",
}

// DimensionReliability is the sampling view of one dimension's preference.
type DimensionReliability struct {
	Dimension     domain.Dimension `json:"dimension"`
	Share         float64          `json:"share"`
	Responses     int              `json:"responses"`
	Confidence    float64          `json:"confidence"`
	StandardError float64          `json:"standard_error"`
	ZScore        float64          `json:"z_score"`
}

type StabilityReport struct {
	Dimensions          []DimensionReliability `json:"dimensions"`
	TypeConfidence      float64                `json:"type_confidence"`
	InternalConsistency float64                `json:"internal_consistency"`
	ResponseConsistency float64                `json:"response_consistency"`
	ExtremeResponseBias float64                `json:"extreme_response_bias"`
	AcquiescenceBias    float64                `json:"acquiescence_bias"`
	ConfidenceInterval  [2]float64             `json:"confidence_interval"`
	Stability           float64                `json:"stability"`
	QualityScore        float64                `json:"quality_score"`
	RetestRecommended   bool                   `json:"retest_recommended"`
	ExplorationAreas    []string               `json:"exploration_areas"`
}

// AssessStability estimates how likely a resolved type is to hold on a retest.
// Per-dimension confidence is the distance of the dominant share from 0.5
// measured in 95% margins of error; answer-sheet consistency and response
// bias then adjust the overall estimate.
func AssessStability(result domain.AssessmentResult, answers []domain.Answer, questions []domain.Question) (StabilityReport, error) {
	if result.TypeCode == "" || len(result.Dimensions) == 0 {
		return StabilityReport{}, fmt.Errorf("%w: stability needs a resolved type", domain.ErrInsufficientData)
	}
	rs, err := orderedResponses(answers, questions)
	if err != nil {
		return StabilityReport{}, err
	}

	rep := StabilityReport{ExplorationAreas: []string{}}
	confidences := make([]float64, 0, len(result.Dimensions))
	var strength float64
	for _, s := range result.Dimensions {
		n := s.Questions + s.TieBreakersApplied
		d := DimensionReliability{
			Dimension:     s.Dimension,
			Share:         s.DominantShare,
			Responses:     n,
			Confidence:    roundTo(preferenceConfidence(s.DominantShare, n), 4),
			StandardError: roundTo(standardError(s.DominantShare, n), 4),
			ZScore:        roundTo((s.DominantShare-0.5)/0.5, 4),
		}
		rep.Dimensions = append(rep.Dimensions, d)
		confidences = append(confidences, d.Confidence)
		strength += math.Abs(s.DominantShare-0.5) * 2
	}
	strength /= float64(len(result.Dimensions))

	rep.InternalConsistency = roundTo(internalConsistency(rs), 4)
	rep.ResponseConsistency = roundTo(runConsistency(rs), 4)
	rep.ExtremeResponseBias = roundTo(extremeResponseBias(rs), 4)
	rep.AcquiescenceBias = roundTo(acquiescenceBias(rs), 4)
	rep.TypeConfidence = roundTo(geometricMean(confidences), 4)

	meanConf, varConf := meanVariance(confidences)
	sd := math.Sqrt(varConf)
	if len(confidences) < 2 {
		sd = 0.1
	}
	rep.ConfidenceInterval = [2]float64{
		roundTo(math.Max(0, meanConf-1.96*sd), 4),
		roundTo(math.Min(1, meanConf+1.96*sd), 4),
	}

	quality := (rep.InternalConsistency + rep.ResponseConsistency) / 2
	bias := (rep.ExtremeResponseBias + rep.AcquiescenceBias) / 2
	stability := strength*0.4 + meanConf*0.3 + quality*0.2 - bias*0.1
	rep.Stability = roundTo(math.Max(0, math.Min(1, stability)), 4)

	rep.QualityScore = roundTo((rep.InternalConsistency+rep.ResponseConsistency+
		(1-rep.ExtremeResponseBias)+(1-rep.AcquiescenceBias)+meanConf)/5, 4)
	rep.RetestRecommended = rep.QualityScore < retestQualityBelow || rep.TypeConfidence < retestConfidenceBelow

	borderline := make(map[domain.Dimension]bool, len(result.Borderline))
	for _, d := range result.Borderline {
		borderline[d] = true
		rep.ExplorationAreas = append(rep.ExplorationAreas, explorationAreas[d])
	}
	for _, d := range rep.Dimensions {
		if d.Confidence < 0.5 && !borderline[d.Dimension] {
			rep.ExplorationAreas = append(rep.ExplorationAreas, fmt.Sprintf("Further clarification needed for the %s dimension", d.Dimension))
		}
	}
	return rep, nil
}

// preferenceConfidence uses the normal approximation above five responses and
// the plain distance from neutral below it.
func preferenceConfidence(share float64, n int) float64 {
	if n == 0 {
		return 0
	}
	dist := math.Abs(share - 0.5)
	if n <= 5 {
		return math.Max(0, math.Min(1, dist*2))
	}
	margin := 1.96 * math.Sqrt(share*(1-share)/float64(n))
	if margin == 0 {
		return 1
	}
	return math.Max(0, math.Min(1, dist/margin))
}

func standardError(share float64, n int) float64 {
	if n == 0 {
		return 1
	}
	return math.Sqrt(share * (1 - share) / float64(n))
}

// internalConsistency is one minus the normalized variance of pole choices,
// averaged over dimensions with at least two answers.
func internalConsistency(rs []response) float64 {
	poles := make(map[domain.Dimension][]float64, len(domain.Dimensions))
	for _, r := range rs {
		v := 0.0
		if r.toFirst {
			v = 1
		}
		poles[r.dimension] = append(poles[r.dimension], v)
	}
	var sum float64
	n := 0
	for _, d := range domain.Dimensions {
		if len(poles[d]) < 2 {
			continue
		}
		_, variance := meanVariance(poles[d])
		sum += math.Max(0, 1-variance/0.25)
		n++
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n)
}

// runConsistency peaks when the number of option runs matches what random
// alternation would give.
func runConsistency(rs []response) float64 {
	if len(rs) == 0 {
		return 0
	}
	runs := 1
	for i := 1; i < len(rs); i++ {
		if rs[i].option != rs[i-1].option {
			runs++
		}
	}
	ratio := float64(runs) / (float64(len(rs)) / 2)
	return math.Max(0, math.Min(1, 1-math.Abs(ratio-1)))
}

func extremeResponseBias(rs []response) float64 {
	if len(rs) == 0 {
		return 0
	}
	a := 0
	for _, r := range rs {
		if r.option == domain.OptionA {
			a++
		}
	}
	return math.Abs(float64(a)/float64(len(rs))-0.5) * 2
}

// acquiescenceBias measures lean toward the first pole regardless of option.
func acquiescenceBias(rs []response) float64 {
	if len(rs) == 0 {
		return 0
	}
	first := 0
	for _, r := range rs {
		if r.toFirst {
			first++
		}
	}
	return math.Abs(float64(first)/float64(len(rs))-0.5) * 2
}

func geometricMean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var logSum float64
	for _, x := range xs {
		if x <= 0 {
			return 0
		}
		logSum += math.Log(x)
	}
	return math.Exp(logSum / float64(len(xs)))
}
