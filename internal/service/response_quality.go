package service

import (
	"fmt"
	"math"
	"time"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

type QualityLevel string

const (
	QualityExcellent  QualityLevel = "excellent"
	QualityGood       QualityLevel = "good"
	QualityAcceptable QualityLevel = "acceptable"
	QualityPoor       QualityLevel = "poor"
)

// ValidationThresholds tune the straight-lining and speed checks.
type ValidationThresholds struct {
	MaxConsecutiveSame    int     `json:"max_consecutive_same" yaml:"max_consecutive_same"`
	MinSecondsPerQuestion float64 `json:"min_seconds_per_question" yaml:"min_seconds_per_question"`
	ExtremeBias           float64 `json:"extreme_bias" yaml:"extreme_bias"`
	MinDimensionShare     float64 `json:"min_dimension_share" yaml:"min_dimension_share"`
}

func DefaultValidationThresholds() ValidationThresholds {
	return ValidationThresholds{
		MaxConsecutiveSame:    8,
		MinSecondsPerQuestion: 3,
		ExtremeBias:           0.8,
		MinDimensionShare:     0.2,
	}
}

// Validity cut-offs for each quality level.
const (
	validityExcellent  = 0.85
	validityGood       = 0.70
	validityAcceptable = 0.55
)

// ResponsePattern describes the raw shape of an answer sheet, in question order.
type ResponsePattern struct {
	Total              int                          `json:"total"`
	OptionA            int                          `json:"option_a"`
	OptionB            int                          `json:"option_b"`
	MaxRun             int                          `json:"max_run"`
	Runs               int                          `json:"runs"`
	RepeatsA           int                          `json:"repeats_a"`
	RepeatsB           int                          `json:"repeats_b"`
	SwitchesAB         int                          `json:"switches_ab"`
	SwitchesBA         int                          `json:"switches_ba"`
	DimensionBalance   map[domain.Dimension]float64 `json:"dimension_balance"`
	Mean               float64                      `json:"mean"`
	Variance           float64                      `json:"variance"`
	Entropy            float64                      `json:"entropy"`
	Timed              bool                         `json:"timed"`
	TotalSeconds       float64                      `json:"total_seconds,omitempty"`
	SecondsPerQuestion float64                      `json:"seconds_per_question,omitempty"`
}

// ShareA is the fraction of answers that picked option A.
func (p ResponsePattern) ShareA() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.OptionA) / float64(p.Total)
}

type QualityFlags struct {
	RapidCompletion       bool `json:"rapid_completion"`
	UniformResponses      bool `json:"uniform_responses"`
	ExtremeBias           bool `json:"extreme_bias"`
	InconsistentResponses bool `json:"inconsistent_responses"`
	IncompleteEngagement  bool `json:"incomplete_engagement"`
}

type ValidationReport struct {
	Validity        float64         `json:"validity"`
	Level           QualityLevel    `json:"level"`
	Passed          bool            `json:"passed"`
	Pattern         ResponsePattern `json:"pattern"`
	Flags           QualityFlags    `json:"flags"`
	Recommendations []string        `json:"recommendations"`
}

// ValidationInput carries the regular answers of one sheet. Tie-breaker
// answers are ignored. Timing checks run only when both bounds are set.
type ValidationInput struct {
	Questions  []domain.Question
	Answers    []domain.Answer
	StartedAt  time.Time
	FinishedAt time.Time
}

// response is an answer joined to its question, used by the quality checks.
type response struct {
	ordinal   int
	id        string
	option    domain.Option
	dimension domain.Dimension
	toFirst   bool
}

// orderedResponses joins regular answers to their questions and sorts them by
// question ordinal, then id.
func orderedResponses(answers []domain.Answer, questions []domain.Question) ([]response, error) {
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	qs := make([]domain.Question, 0, len(answers))
	picked := make(map[string]domain.Option, len(answers))
	for _, a := range answers {
		if a.TieBreaker {
			continue
		}
		q, ok := byID[a.QuestionID]
		if !ok {
			return nil, &domain.AssessmentError{
				Kind:      domain.ErrInvalidQuestionReference,
				SessionID: a.SessionID,
				Detail:    fmt.Sprintf("question %s is not part of the question set", a.QuestionID),
			}
		}
		if a.SelectedOption != domain.OptionA && a.SelectedOption != domain.OptionB {
			return nil, fmt.Errorf("%w: question %s has selected option %q", domain.ErrInvalidInput, a.QuestionID, a.SelectedOption)
		}
		if _, dup := picked[q.ID]; !dup {
			qs = append(qs, q)
		}
		picked[q.ID] = a.SelectedOption
	}
	out := make([]response, 0, len(qs))
	for _, q := range sortedQuestions(qs) {
		opt := picked[q.ID]
		out = append(out, response{
			ordinal:   q.Ordinal,
			id:        q.ID,
			option:    opt,
			dimension: q.Dimension,
			toFirst:   q.MapsToFirst(opt),
		})
	}
	return out, nil
}

// ValidateResponses scores how trustworthy an answer sheet looks. It flags
// straight-lining, one-sided answering, inconsistent dimensions and rushed
// completion, and folds the flags into a validity score in [0,1].
func ValidateResponses(in ValidationInput, th ValidationThresholds) (ValidationReport, error) {
	rs, err := orderedResponses(in.Answers, in.Questions)
	if err != nil {
		return ValidationReport{}, err
	}
	p := analyzePattern(rs)
	if !in.StartedAt.IsZero() && in.FinishedAt.After(in.StartedAt) && p.Total > 0 {
		p.Timed = true
		p.TotalSeconds = roundTo(in.FinishedAt.Sub(in.StartedAt).Seconds(), 2)
		p.SecondsPerQuestion = roundTo(p.TotalSeconds/float64(p.Total), 2)
	}

	shareA := p.ShareA()
	flags := QualityFlags{
		RapidCompletion:       p.Timed && p.SecondsPerQuestion < th.MinSecondsPerQuestion,
		UniformResponses:      p.MaxRun > th.MaxConsecutiveSame,
		ExtremeBias:           p.Total > 0 && (shareA > th.ExtremeBias || shareA < 1-th.ExtremeBias),
		InconsistentResponses: inconsistentDimensions(rs) > 2,
		IncompleteEngagement:  disengagementSignals(p) >= 2,
	}

	validity := validityScore(p, flags, th)
	report := ValidationReport{
		Validity: roundTo(validity, 4),
		Level:    qualityLevel(validity),
		Passed:   validity >= validityAcceptable,
		Pattern:  p,
		Flags:    flags,
	}
	report.Recommendations = recommendations(report)
	return report, nil
}

func analyzePattern(rs []response) ResponsePattern {
	p := ResponsePattern{Total: len(rs), DimensionBalance: make(map[domain.Dimension]float64, len(domain.Dimensions))}
	for _, d := range domain.Dimensions {
		p.DimensionBalance[d] = 0
	}
	if len(rs) == 0 {
		return p
	}

	seq := make([]float64, len(rs))
	counts := make(map[domain.Dimension]int, len(domain.Dimensions))
	run := 0
	for i, r := range rs {
		counts[r.dimension]++
		if r.option == domain.OptionA {
			p.OptionA++
			seq[i] = 1
		} else {
			p.OptionB++
		}
		if i == 0 || r.option != rs[i-1].option {
			p.Runs++
			run = 1
		} else {
			run++
		}
		p.MaxRun = max(p.MaxRun, run)
		if i == 0 {
			continue
		}
		switch prev := rs[i-1].option; {
		case prev == domain.OptionA && r.option == domain.OptionA:
			p.RepeatsA++
		case prev == domain.OptionB && r.option == domain.OptionB:
			p.RepeatsB++
		case prev == domain.OptionA:
			p.SwitchesAB++
		default:
			p.SwitchesBA++
		}
	}
	for d, n := range counts {
		p.DimensionBalance[d] = roundTo(float64(n)/float64(len(rs)), 4)
	}

	mean, variance := meanVariance(seq)
	p.Mean = roundTo(mean, 4)
	p.Variance = roundTo(variance, 4)
	p.Entropy = roundTo(binaryEntropy(p.OptionA, p.Total), 4)
	return p
}

// inconsistentDimensions counts dimensions whose pole choices vary close to
// the binary maximum.
func inconsistentDimensions(rs []response) int {
	poles := make(map[domain.Dimension][]float64, len(domain.Dimensions))
	for _, r := range rs {
		v := 0.0
		if r.toFirst {
			v = 1
		}
		poles[r.dimension] = append(poles[r.dimension], v)
	}
	n := 0
	for _, d := range domain.Dimensions {
		if len(poles[d]) <= 2 {
			continue
		}
		if _, variance := meanVariance(poles[d]); variance > 0.2 {
			n++
		}
	}
	return n
}

func disengagementSignals(p ResponsePattern) int {
	if p.Total == 0 {
		return 0
	}
	n := 0
	if p.MaxRun > 6 {
		n++
	}
	if a := p.ShareA(); a > 0.9 || a < 0.1 {
		n++
	}
	if p.Timed && p.SecondsPerQuestion < 5 {
		n++
	}
	if expected := float64(p.Total) / 2; float64(p.Runs) < expected*0.3 {
		n++
	}
	return n
}

func validityScore(p ResponsePattern, f QualityFlags, th ValidationThresholds) float64 {
	v := 1.0
	for _, penalty := range []struct {
		on bool
		by float64
	}{
		{f.RapidCompletion, 0.2},
		{f.UniformResponses, 0.3},
		{f.ExtremeBias, 0.25},
		{f.InconsistentResponses, 0.15},
		{f.IncompleteEngagement, 0.35},
	} {
		if penalty.on {
			v -= penalty.by
		}
	}

	switch {
	case p.MaxRun > 10:
		v -= 0.2
	case p.MaxRun > 8:
		v -= 0.1
	}
	if p.Total > 0 {
		if a := p.ShareA(); a > 0.85 || a < 0.15 {
			v -= 0.15
		}
	}
	minShare := math.Inf(1)
	for _, d := range domain.Dimensions {
		minShare = math.Min(minShare, p.DimensionBalance[d])
	}
	if minShare < th.MinDimensionShare {
		v -= 0.1
	}
	return math.Max(0, math.Min(1, v))
}

func qualityLevel(validity float64) QualityLevel {
	switch {
	case validity >= validityExcellent:
		return QualityExcellent
	case validity >= validityGood:
		return QualityGood
	case validity >= validityAcceptable:
		return QualityAcceptable
	default:
		return QualityPoor
	}
}

func recommendations(r ValidationReport) []string {
	out := []string{}
	if r.Flags.RapidCompletion {
		out = append(out, "Retake the assessment allowing more time for each question.")
	}
	if r.Flags.UniformResponses {
		out = append(out, "Long runs of identical answers suggest disengagement; consider retesting in a different setting.")
	}
	if r.Flags.ExtremeBias {
		out = append(out, "Answers lean heavily to one option; the result may not reflect real preferences.")
	}
	if r.Flags.InconsistentResponses {
		out = append(out, "Several dimensions received contradictory answers; review the result with a counsellor.")
	}
	if r.Flags.IncompleteEngagement {
		out = append(out, "The answer pattern shows signs of incomplete engagement.")
	}
	if !r.Passed {
		out = append(out, "Quality is below the acceptable level; retesting is strongly recommended.")
	}
	if r.Level == QualityExcellent {
		out = append(out, "Answer quality is excellent; the result is highly reliable.")
	}
	if r.Pattern.MaxRun > 12 {
		out = append(out, "Extremely uniform answers; check that every question was read.")
	}
	return out
}

// meanVariance returns the mean and the sample variance (n-1).
func meanVariance(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, ss / float64(len(xs)-1)
}

func binaryEntropy(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	var h float64
	for _, n := range []int{hits, total - hits} {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}
