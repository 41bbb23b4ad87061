package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

// sheet answers questionBank(n) with the given option sequence, cycling it.
func sheet(n int, seq string) ([]domain.Question, []domain.Answer) {
	qs := questionBank(n)
	ans := make([]domain.Answer, 0, len(qs))
	for i, q := range qs {
		j := i % len(seq)
		ans = append(ans, testAnswer(q.ID, domain.Option(seq[j:j+1]), domain.StrengthModerate))
	}
	return qs, ans
}

// balancedSeq keeps each dimension consistent while the options alternate
// between dimensions.
const balancedSeq = "AAAABBBB"

func TestValidateResponsesBalancedSheet(t *testing.T) {
	qs, ans := sheet(4, balancedSeq)
	rep, err := ValidateResponses(ValidationInput{Questions: qs, Answers: ans}, DefaultValidationThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := rep.Pattern
	if p.Total != 16 || p.OptionA != 8 || p.OptionB != 8 || p.MaxRun != 4 || p.Runs != 4 {
		t.Fatalf("unexpected pattern %+v", p)
	}
	if p.RepeatsA != 6 || p.RepeatsB != 6 || p.SwitchesAB != 2 || p.SwitchesBA != 1 {
		t.Fatalf("unexpected transitions %+v", p)
	}
	if p.Entropy != 1 || p.Mean != 0.5 {
		t.Fatalf("expected entropy 1 and mean 0.5, got %v %v", p.Entropy, p.Mean)
	}
	if p.DimensionBalance[domain.DimensionEI] != 0.25 {
		t.Fatalf("expected even dimension balance, got %v", p.DimensionBalance)
	}
	if p.Timed {
		t.Fatalf("timing must be skipped without bounds")
	}
	if rep.Flags != (QualityFlags{}) {
		t.Fatalf("expected no flags, got %+v", rep.Flags)
	}
	if rep.Validity != 1 || rep.Level != QualityExcellent || !rep.Passed {
		t.Fatalf("expected excellent sheet, got %+v", rep)
	}
}

func TestValidateResponsesStraightLining(t *testing.T) {
	qs, ans := sheet(4, "A")
	rep, err := ValidateResponses(ValidationInput{Questions: qs, Answers: ans}, DefaultValidationThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Pattern.MaxRun != 16 || rep.Pattern.Runs != 1 || rep.Pattern.Entropy != 0 {
		t.Fatalf("unexpected pattern %+v", rep.Pattern)
	}
	if !rep.Flags.UniformResponses || !rep.Flags.ExtremeBias || !rep.Flags.IncompleteEngagement {
		t.Fatalf("expected straight-lining flags, got %+v", rep.Flags)
	}
	if rep.Validity != 0 || rep.Level != QualityPoor || rep.Passed {
		t.Fatalf("expected failing sheet, got validity=%v level=%s", rep.Validity, rep.Level)
	}
	if len(rep.Recommendations) == 0 {
		t.Fatalf("expected recommendations for a failing sheet")
	}
}

func TestValidateResponsesTiming(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	qs, ans := sheet(4, balancedSeq)

	tests := []struct {
		name     string
		finished time.Time
		rapid    bool
	}{
		{"rushed", start.Add(16 * time.Second), true},
		{"considered", start.Add(16 * 20 * time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := ValidateResponses(ValidationInput{Questions: qs, Answers: ans, StartedAt: start, FinishedAt: tt.finished}, DefaultValidationThresholds())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !rep.Pattern.Timed || rep.Flags.RapidCompletion != tt.rapid {
				t.Fatalf("expected rapid=%t, got %+v", tt.rapid, rep)
			}
			if tt.rapid && math.Abs(rep.Validity-0.8) > 1e-9 {
				t.Fatalf("expected rushed penalty of 0.2, got %v", rep.Validity)
			}
		})
	}
}

func TestValidateResponsesInconsistentDimensions(t *testing.T) {
	// Three answers per dimension going first, second, first pole.
	qs, ans := sheet(3, "ABA")
	rep, err := ValidateResponses(ValidationInput{Questions: qs, Answers: ans}, DefaultValidationThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.Flags.InconsistentResponses {
		t.Fatalf("expected inconsistent flag, got %+v", rep.Flags)
	}
}

func TestValidateResponsesIgnoresTieBreakersAndRejectsUnknown(t *testing.T) {
	qs, ans := sheet(1, "AB")
	tb := testAnswer("tb-1", domain.OptionA, domain.StrengthWeak)
	tb.TieBreaker = true
	rep, err := ValidateResponses(ValidationInput{Questions: qs, Answers: append(ans, tb)}, DefaultValidationThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Pattern.Total != 4 {
		t.Fatalf("tie-breaker answers must not count, got %d", rep.Pattern.Total)
	}

	_, err = ValidateResponses(ValidationInput{Questions: qs, Answers: append(ans, testAnswer("nope", domain.OptionA, domain.StrengthWeak))}, DefaultValidationThresholds())
	if !errors.Is(err, domain.ErrInvalidQuestionReference) {
		t.Fatalf("expected ErrInvalidQuestionReference, got %v", err)
	}
}

func TestQualityLevelBoundaries(t *testing.T) {
	tests := []struct {
		validity float64
		want     QualityLevel
	}{
		{1, QualityExcellent},
		{0.85, QualityExcellent},
		{0.84, QualityGood},
		{0.70, QualityGood},
		{0.55, QualityAcceptable},
		{0.54, QualityPoor},
		{0, QualityPoor},
	}
	for _, tt := range tests {
		if got := qualityLevel(tt.validity); got != tt.want {
			t.Errorf("qualityLevel(%v) = %s, want %s", tt.validity, got, tt.want)
		}
	}
}
