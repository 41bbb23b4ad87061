package service

import (
	"fmt"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

// WeightTable maps a preference strength to the points an answer adds to its
// pole. The same weight applies whichever pole is chosen.
type WeightTable struct {
	Weak     int `json:"weak" yaml:"weak"`
	Moderate int `json:"moderate" yaml:"moderate"`
	Strong   int `json:"strong" yaml:"strong"`
}

func DefaultWeightTable() WeightTable {
	return WeightTable{Weak: 1, Moderate: 2, Strong: 3}
}

// Validate requires positive, strictly increasing weights.
func (w WeightTable) Validate() error {
	if w.Weak <= 0 {
		return fmt.Errorf("%w: weak weight must be positive, got %d", domain.ErrInvalidInput, w.Weak)
	}
	if w.Moderate <= w.Weak || w.Strong <= w.Moderate {
		return fmt.Errorf("%w: weights must increase weak < moderate < strong, got %d/%d/%d",
			domain.ErrInvalidInput, w.Weak, w.Moderate, w.Strong)
	}
	return nil
}

func (w WeightTable) Weight(s domain.PreferenceStrength) (int, error) {
	switch s {
	case domain.StrengthWeak:
		return w.Weak, nil
	case domain.StrengthModerate:
		return w.Moderate, nil
	case domain.StrengthStrong:
		return w.Strong, nil
	}
	return 0, fmt.Errorf("%w: unknown preference strength %q", domain.ErrInvalidInput, s)
}

// DimensionTally accumulates weighted answers for one dimension.
type DimensionTally struct {
	Dimension  domain.Dimension
	FirstPole  int
	SecondPole int
	Answers    int
}

func (t DimensionTally) Net() int   { return t.FirstPole - t.SecondPole }
func (t DimensionTally) Total() int { return t.FirstPole + t.SecondPole }

func (t *DimensionTally) add(toFirst bool, weight int) {
	if toFirst {
		t.FirstPole += weight
	} else {
		t.SecondPole += weight
	}
	t.Answers++
}

// weightedAnswer is an answer joined to its question and weight.
type weightedAnswer struct {
	questionID string
	ordinal    int
	dimension  domain.Dimension
	toFirst    bool
	weight     int
}

func weighAnswer(a domain.Answer, q domain.Question, weights WeightTable) (weightedAnswer, error) {
	if a.SelectedOption != domain.OptionA && a.SelectedOption != domain.OptionB {
		return weightedAnswer{}, fmt.Errorf("%w: question %s has selected option %q", domain.ErrInvalidInput, a.QuestionID, a.SelectedOption)
	}
	if !q.Dimension.Valid() {
		return weightedAnswer{}, fmt.Errorf("%w: question %s has unknown dimension %q", domain.ErrInvalidInput, q.ID, q.Dimension)
	}
	w, err := weights.Weight(a.Strength)
	if err != nil {
		return weightedAnswer{}, err
	}
	return weightedAnswer{
		questionID: q.ID,
		ordinal:    q.Ordinal,
		dimension:  q.Dimension,
		toFirst:    q.MapsToFirst(a.SelectedOption),
		weight:     w,
	}, nil
}

// AggregateAnswers folds answers into one tally per dimension. Every answer
// must reference a question in the given set. All four dimensions are present
// in the result even when they received no answers.
func AggregateAnswers(answers []domain.Answer, questions []domain.Question, weights WeightTable) (map[domain.Dimension]DimensionTally, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	tallies := make(map[domain.Dimension]DimensionTally, len(domain.Dimensions))
	for _, d := range domain.Dimensions {
		tallies[d] = DimensionTally{Dimension: d}
	}

	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return nil, &domain.AssessmentError{
				Kind:      domain.ErrInvalidQuestionReference,
				SessionID: a.SessionID,
				Detail:    fmt.Sprintf("question %s is not in the active set", a.QuestionID),
			}
		}
		if _, dup := seen[a.QuestionID]; dup {
			return nil, fmt.Errorf("%w: question %s answered more than once", domain.ErrInvalidInput, a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}

		wa, err := weighAnswer(a, q, weights)
		if err != nil {
			return nil, err
		}
		t := tallies[wa.dimension]
		t.add(wa.toFirst, wa.weight)
		tallies[wa.dimension] = t
	}
	return tallies, nil
}

// CountQuestionsPerDimension counts active questions per dimension.
func CountQuestionsPerDimension(questions []domain.Question) map[domain.Dimension]int {
	counts := make(map[domain.Dimension]int, len(domain.Dimensions))
	for _, d := range domain.Dimensions {
		counts[d] = 0
	}
	for _, q := range questions {
		if q.Dimension.Valid() {
			counts[q.Dimension]++
		}
	}
	return counts
}

// MissingAnswers returns the ids of active questions with no answer, in
// question order.
func MissingAnswers(questions []domain.Question, answers []domain.Answer) []string {
	answered := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = struct{}{}
	}
	var missing []string
	for _, q := range sortedQuestions(questions) {
		if _, ok := answered[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	return missing
}
