package service

import (
	"fmt"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

// Event is an input to the session state machine.
type Event string

const (
	EventSubmitAnswer     Event = "SubmitAnswer"
	EventFinishAnswers    Event = "FinishAnswers"
	EventRateClusters     Event = "RateClusters"
	EventScoresResolved   Event = "ScoresResolved"
	EventTieDetected      Event = "TieDetected"
	EventSubmitTieBreaker Event = "SubmitTieBreaker"
	EventResolveTies      Event = "ResolveTies"
	EventRateAssessment   Event = "RateAssessment"
)

// Effect names a side effect the caller must perform when a transition fires.
type Effect string

const (
	EffectRecordAnswer           Effect = "RecordAnswer"
	EffectRecordClusterRatings   Effect = "RecordClusterRatings"
	EffectCalculate              Effect = "Calculate"
	EffectExposeTieBreakers      Effect = "ExposeTieBreakers"
	EffectComplete               Effect = "Complete"
	EffectRecordAssessmentRating Effect = "RecordAssessmentRating"
)

// TransitionFacts is what guards may inspect. Callers fill in only what the
// event needs.
type TransitionFacts struct {
	// QuestionKnown: the answered question belongs to the set served at this stage.
	QuestionKnown bool
	// MissingAnswers lists active questions without an answer.
	MissingAnswers []string
	// PendingTies lists dimensions the resolver could not settle.
	PendingTies []domain.Dimension
	// UnansweredTieBreakers lists exposed tie-breaker questions without an answer.
	UnansweredTieBreakers []string
	ClusterRatings        map[string]int
	Rating                int
}

// Guard rejects a transition. It returns one of the domain sentinels.
type Guard func(f TransitionFacts) error

// Transition is one row of the table: (From, Event) -> To.
type Transition struct {
	From    domain.Stage
	Event   Event
	To      domain.Stage
	Guard   Guard
	Effects []Effect
}

const (
	minRating = 1
	maxRating = 5
)

var sessionTransitions = []Transition{
	{
		From: domain.StageAnswerQuestions, Event: EventSubmitAnswer, To: domain.StageAnswerQuestions,
		Guard: guardQuestionKnown, Effects: []Effect{EffectRecordAnswer},
	},
	{
		From: domain.StageAnswerQuestions, Event: EventFinishAnswers, To: domain.StageRateCareerClusters,
		Guard: guardAllAnswered,
	},
	{
		From: domain.StageRateCareerClusters, Event: EventRateClusters, To: domain.StageCalculateAssessment,
		Guard: guardClusterRatings, Effects: []Effect{EffectRecordClusterRatings, EffectCalculate},
	},
	{
		From: domain.StageCalculateAssessment, Event: EventScoresResolved, To: domain.StageRateAssessment,
		Guard: guardNoPendingTies, Effects: []Effect{EffectComplete},
	},
	{
		From: domain.StageCalculateAssessment, Event: EventTieDetected, To: domain.StageTieResolvement,
		Guard: guardHasPendingTies, Effects: []Effect{EffectExposeTieBreakers},
	},
	{
		From: domain.StageTieResolvement, Event: EventSubmitTieBreaker, To: domain.StageTieResolvement,
		Guard: guardQuestionKnown, Effects: []Effect{EffectRecordAnswer},
	},
	{
		From: domain.StageTieResolvement, Event: EventResolveTies, To: domain.StageRateAssessment,
		Guard: guardTieBreakersAnswered, Effects: []Effect{EffectCalculate, EffectComplete},
	},
	{
		From: domain.StageRateAssessment, Event: EventRateAssessment, To: domain.StageReport,
		Guard: guardRating, Effects: []Effect{EffectRecordAssessmentRating},
	},
}

// Fire looks up (stage, event) in the table and evaluates its guard.
func Fire(stage domain.Stage, event Event, facts TransitionFacts) (Transition, error) {
	if stage.Terminal() {
		return Transition{}, &domain.AssessmentError{Kind: domain.ErrSessionClosed, Stage: stage, Detail: fmt.Sprintf("event %s rejected", event)}
	}
	for _, t := range sessionTransitions {
		if t.From != stage || t.Event != event {
			continue
		}
		if t.Guard != nil {
			if err := t.Guard(facts); err != nil {
				return Transition{}, domain.WithSession(err, "", stage)
			}
		}
		return t, nil
	}
	return Transition{}, &domain.AssessmentError{Kind: domain.ErrInvalidTransition, Stage: stage, Detail: fmt.Sprintf("event %s not allowed", event)}
}

// AllowedEvents lists the events the table accepts in a stage.
func AllowedEvents(stage domain.Stage) []Event {
	var out []Event
	for _, t := range sessionTransitions {
		if t.From == stage {
			out = append(out, t.Event)
		}
	}
	return out
}

func (t Transition) Has(e Effect) bool {
	for _, eff := range t.Effects {
		if eff == e {
			return true
		}
	}
	return false
}

func guardQuestionKnown(f TransitionFacts) error {
	if !f.QuestionKnown {
		return fmt.Errorf("%w: question is not served at this stage", domain.ErrInvalidQuestionReference)
	}
	return nil
}

func guardAllAnswered(f TransitionFacts) error {
	if len(f.MissingAnswers) > 0 {
		return fmt.Errorf("%w: %d questions unanswered", domain.ErrIncompleteAssessment, len(f.MissingAnswers))
	}
	return nil
}

func guardClusterRatings(f TransitionFacts) error {
	for clusterID, r := range f.ClusterRatings {
		if r < minRating || r > maxRating {
			return fmt.Errorf("%w: rating for cluster %s must be %d-%d", domain.ErrInvalidInput, clusterID, minRating, maxRating)
		}
	}
	return nil
}

func guardNoPendingTies(f TransitionFacts) error {
	if len(f.PendingTies) > 0 {
		return fmt.Errorf("%w: %d dimensions tied", domain.ErrInvalidTransition, len(f.PendingTies))
	}
	return nil
}

func guardHasPendingTies(f TransitionFacts) error {
	if len(f.PendingTies) == 0 {
		return fmt.Errorf("%w: no tied dimension", domain.ErrInvalidTransition)
	}
	return nil
}

func guardTieBreakersAnswered(f TransitionFacts) error {
	if len(f.UnansweredTieBreakers) > 0 {
		return fmt.Errorf("%w: %d tie-breaker questions unanswered", domain.ErrIncompleteAssessment, len(f.UnansweredTieBreakers))
	}
	return nil
}

func guardRating(f TransitionFacts) error {
	if f.Rating < minRating || f.Rating > maxRating {
		return fmt.Errorf("%w: rating must be %d-%d", domain.ErrInvalidInput, minRating, maxRating)
	}
	return nil
}
