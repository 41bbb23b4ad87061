package service

import (
	"fmt"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

const testTenant = "tenant-a"

func testQuestion(id string, ordinal int, d domain.Dimension) domain.Question {
	return domain.Question{
		ID:                 id,
		TenantID:           testTenant,
		Language:           domain.LanguageEnglish,
		Ordinal:            ordinal,
		Dimension:          d,
		Text:               "question " + id,
		OptionA:            "first",
		OptionB:            "second",
		OptionAMapsToFirst: true,
		Active:             true,
	}
}

func testTieBreaker(id string, ordinal int, d domain.Dimension) domain.TieBreakerQuestion {
	return domain.TieBreakerQuestion{Question: testQuestion(id, ordinal, d)}
}

func testAnswer(questionID string, opt domain.Option, s domain.PreferenceStrength) domain.Answer {
	return domain.Answer{
		ID:             "ans-" + questionID,
		TenantID:       testTenant,
		SessionID:      "sess-1",
		QuestionID:     questionID,
		SelectedOption: opt,
		Strength:       s,
	}
}

// questionBank builds n questions per dimension, ids "<dim>-<i>".
func questionBank(n int) []domain.Question {
	var qs []domain.Question
	ord := 1
	for _, d := range domain.Dimensions {
		for i := 1; i <= n; i++ {
			qs = append(qs, testQuestion(fmt.Sprintf("%s-%d", d, i), ord, d))
			ord++
		}
	}
	return qs
}

// answersFavoring answers every question of each dimension toward the pole
// given in letters (e.g. "ENTP") with the given strength.
func answersFavoring(qs []domain.Question, letters string, s domain.PreferenceStrength) []domain.Answer {
	var out []domain.Answer
	for _, q := range qs {
		idx := 0
		for i, d := range domain.Dimensions {
			if d == q.Dimension {
				idx = i
			}
		}
		opt := domain.OptionB
		if string(letters[idx]) == q.Dimension.FirstPole() {
			opt = domain.OptionA
		}
		out = append(out, testAnswer(q.ID, opt, s))
	}
	return out
}
