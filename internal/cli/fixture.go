package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
	"github.com/Alsairy/Masark-Engine-sub003/internal/service"
)

type questionFixture struct {
	ID                 string `yaml:"id"`
	Dimension          string `yaml:"dimension"`
	Ordinal            int    `yaml:"ordinal"`
	Text               string `yaml:"text"`
	OptionAMapsToFirst *bool  `yaml:"option_a_maps_to_first"`
}

type answerFixture struct {
	QuestionID string `yaml:"question_id"`
	Option     string `yaml:"option"`
	Strength   string `yaml:"strength"`
}

// scoreFixture is an offline answer sheet.
type scoreFixture struct {
	Questions         []questionFixture `yaml:"questions"`
	Answers           []answerFixture   `yaml:"answers"`
	TieBreakers       []questionFixture `yaml:"tie_breakers"`
	TieBreakerAnswers []answerFixture   `yaml:"tie_breaker_answers"`
}

type careerFixture struct {
	ID      string  `yaml:"id"`
	Name    string  `yaml:"name"`
	Cluster string  `yaml:"cluster"`
	Score   float64 `yaml:"score"`
}

type linkFixture struct {
	CareerID  string  `yaml:"career_id"`
	PathwayID string  `yaml:"pathway_id"`
	Source    string  `yaml:"source"`
	Weight    float64 `yaml:"weight"`
}

// matchFixture is the precomputed match table of one type code.
type matchFixture struct {
	TypeCode string          `yaml:"type_code"`
	Careers  []careerFixture `yaml:"careers"`
	Links    []linkFixture   `yaml:"links"`
}

func readFixture(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading fixture: %w", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding fixture %s: %w", path, err)
	}
	return nil
}

func (f questionFixture) question() (domain.Question, error) {
	d, err := domain.ParseDimension(f.Dimension)
	if err != nil {
		return domain.Question{}, fmt.Errorf("question %s: %w", f.ID, err)
	}
	mapsToFirst := true
	if f.OptionAMapsToFirst != nil {
		mapsToFirst = *f.OptionAMapsToFirst
	}
	return domain.Question{
		ID:                 f.ID,
		Ordinal:            f.Ordinal,
		Dimension:          d,
		Text:               f.Text,
		OptionAMapsToFirst: mapsToFirst,
		Active:             true,
	}, nil
}

func (f answerFixture) answer(tieBreaker bool) (domain.Answer, error) {
	opt, err := domain.ParseOption(f.Option)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("answer %s: %w", f.QuestionID, err)
	}
	strength, err := domain.ParsePreferenceStrength(f.Strength)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("answer %s: %w", f.QuestionID, err)
	}
	return domain.Answer{
		QuestionID:     f.QuestionID,
		SelectedOption: opt,
		Strength:       strength,
		TieBreaker:     tieBreaker,
	}, nil
}

func (f scoreFixture) resolverInput() (service.ResolverInput, error) {
	var in service.ResolverInput
	for _, qf := range f.Questions {
		q, err := qf.question()
		if err != nil {
			return service.ResolverInput{}, err
		}
		in.Questions = append(in.Questions, q)
	}
	for _, qf := range f.TieBreakers {
		q, err := qf.question()
		if err != nil {
			return service.ResolverInput{}, err
		}
		in.TieBreakers = append(in.TieBreakers, domain.TieBreakerQuestion{Question: q})
	}
	for _, af := range f.Answers {
		a, err := af.answer(false)
		if err != nil {
			return service.ResolverInput{}, err
		}
		in.Answers = append(in.Answers, a)
	}
	for _, af := range f.TieBreakerAnswers {
		a, err := af.answer(true)
		if err != nil {
			return service.ResolverInput{}, err
		}
		in.TieBreakerAnswers = append(in.TieBreakerAnswers, a)
	}
	return in, nil
}

func (f matchFixture) rows() []domain.PersonalityCareerMatch {
	rows := make([]domain.PersonalityCareerMatch, 0, len(f.Careers))
	for _, c := range f.Careers {
		rows = append(rows, domain.PersonalityCareerMatch{
			TypeCode: f.TypeCode,
			Career: domain.Career{
				ID:        c.ID,
				Name:      c.Name,
				ClusterID: c.Cluster,
				Cluster:   domain.CareerCluster{ID: c.Cluster, Name: c.Cluster},
				Active:    true,
			},
			BaseScore: c.Score,
		})
	}
	return rows
}

func (f matchFixture) links() []domain.PathwayCareer {
	links := make([]domain.PathwayCareer, 0, len(f.Links))
	for _, l := range f.Links {
		links = append(links, domain.PathwayCareer{
			PathwayID: l.PathwayID,
			CareerID:  l.CareerID,
			Source:    domain.PathwaySource(l.Source),
			Weight:    l.Weight,
		})
	}
	return links
}
