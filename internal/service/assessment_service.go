package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
	"github.com/Alsairy/Masark-Engine-sub003/internal/repository"
)

// AssessmentService drives a session through the state machine. Every
// mutation runs under the session's lock and is persisted with a version check.
type AssessmentService struct {
	logger   *zap.Logger
	sessions repository.SessionRepository
	answers  repository.AnswerRepository
	careers  repository.CareerRepository
	ref      *ReferenceData
	resolver ResolverConfig
	quality  ValidationThresholds
	locks    *sessionLocks
	now      func() time.Time
	newID    func() string
}

func NewAssessmentService(
	logger *zap.Logger,
	sessions repository.SessionRepository,
	answers repository.AnswerRepository,
	careers repository.CareerRepository,
	ref *ReferenceData,
	resolver ResolverConfig,
) (*AssessmentService, error) {
	if sessions == nil || answers == nil || ref == nil {
		return nil, errors.New("assessment service not configured")
	}
	if err := resolver.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{
		logger:   logger,
		sessions: sessions,
		answers:  answers,
		careers:  careers,
		ref:      ref,
		resolver: resolver,
		quality:  DefaultValidationThresholds(),
		locks:    newSessionLocks(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}, nil
}

type StartSessionInput struct {
	TenantID string
	Language string
	Policy   string
}

// Progress reports answer coverage for the questions served at the current stage.
type Progress struct {
	Stage      domain.Stage `json:"stage"`
	Answered   int          `json:"answered"`
	Total      int          `json:"total"`
	Percentage float64      `json:"percentage"`
	Complete   bool         `json:"complete"`
}

type SubmitAnswerInput struct {
	TenantID       string
	SessionID      string
	QuestionID     string
	SelectedOption string
	Strength       string
}

// QuestionSet is what a client should render for a session right now.
type QuestionSet struct {
	Stage     domain.Stage      `json:"stage"`
	Questions []domain.Question `json:"questions"`
	Answered  map[string]bool   `json:"answered"`
}

func (s *AssessmentService) StartSession(ctx context.Context, input StartSessionInput) (domain.Session, error) {
	tenantID := strings.TrimSpace(input.TenantID)
	if tenantID == "" {
		return domain.Session{}, fmt.Errorf("%w: tenant id required", domain.ErrAccessDenied)
	}
	lang, err := domain.ParseLanguage(input.Language)
	if err != nil {
		return domain.Session{}, err
	}
	policy, err := domain.ParseDeploymentPolicy(input.Policy)
	if err != nil {
		return domain.Session{}, err
	}
	now := s.now()
	sess := domain.Session{
		ID:        s.newID(),
		TenantID:  tenantID,
		Language:  lang,
		Policy:    policy,
		Stage:     domain.StageAnswerQuestions,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("tenant_id", tenantID),
		zap.String("language", lang),
		zap.String("policy", string(policy)),
	)
	return sess, nil
}

func (s *AssessmentService) GetSession(ctx context.Context, tenantID, sessionID string) (domain.Session, error) {
	return s.load(ctx, tenantID, sessionID)
}

// CurrentQuestions returns the active questions while answering, the exposed
// tie-breakers while resolving ties, and nothing in other stages.
func (s *AssessmentService) CurrentQuestions(ctx context.Context, tenantID, sessionID string) (QuestionSet, error) {
	sess, err := s.load(ctx, tenantID, sessionID)
	if err != nil {
		return QuestionSet{}, err
	}
	served, answers, err := s.servedQuestions(ctx, sess)
	if err != nil {
		return QuestionSet{}, err
	}
	set := QuestionSet{Stage: sess.Stage, Questions: served, Answered: make(map[string]bool, len(served))}
	answered := answeredSet(answers)
	for _, q := range served {
		set.Answered[q.ID] = answered[q.ID]
	}
	return set, nil
}

// SubmitAnswer records (or overwrites) an answer to an active question.
func (s *AssessmentService) SubmitAnswer(ctx context.Context, input SubmitAnswerInput) (Progress, error) {
	return s.submit(ctx, input, EventSubmitAnswer)
}

// SubmitTieBreaker records an answer to one of the exposed tie-breaker questions.
func (s *AssessmentService) SubmitTieBreaker(ctx context.Context, input SubmitAnswerInput) (Progress, error) {
	return s.submit(ctx, input, EventSubmitTieBreaker)
}

func (s *AssessmentService) submit(ctx context.Context, input SubmitAnswerInput, event Event) (Progress, error) {
	option, err := domain.ParseOption(input.SelectedOption)
	if err != nil {
		return Progress{}, err
	}
	strength, err := domain.ParsePreferenceStrength(input.Strength)
	if err != nil {
		return Progress{}, err
	}

	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	sess, err := s.load(ctx, input.TenantID, input.SessionID)
	if err != nil {
		return Progress{}, err
	}
	if sess.Stage.Terminal() {
		_, err := Fire(sess.Stage, event, TransitionFacts{})
		return Progress{}, domain.WithSession(err, sess.ID, sess.Stage)
	}
	served, answers, err := s.servedQuestions(ctx, sess)
	if err != nil {
		return Progress{}, err
	}
	known := false
	for _, q := range served {
		if q.ID == input.QuestionID {
			known = true
			break
		}
	}
	t, err := Fire(sess.Stage, event, TransitionFacts{QuestionKnown: known})
	if err != nil {
		return Progress{}, domain.WithSession(err, sess.ID, sess.Stage)
	}

	// Bumping the version first makes a concurrent stage change fail one side.
	sess.Stage = t.To
	sess.UpdatedAt = s.now()
	if err := s.sessions.Update(ctx, &sess); err != nil {
		return Progress{}, domain.WithSession(err, sess.ID, sess.Stage)
	}

	answer := domain.Answer{
		ID:             s.newID(),
		TenantID:       sess.TenantID,
		SessionID:      sess.ID,
		QuestionID:     input.QuestionID,
		SelectedOption: option,
		Strength:       strength,
		TieBreaker:     event == EventSubmitTieBreaker,
		AnsweredAt:     sess.UpdatedAt,
	}
	if err := s.answers.Upsert(ctx, answer); err != nil {
		return Progress{}, fmt.Errorf("upsert answer: %w", err)
	}

	answered := answeredSet(answers)
	answered[input.QuestionID] = true
	return buildProgress(sess.Stage, served, answered), nil
}

// FinishAnswers leaves AnswerQuestions once every active question is answered.
func (s *AssessmentService) FinishAnswers(ctx context.Context, tenantID, sessionID string) (domain.Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, tenantID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	var facts TransitionFacts
	if sess.Stage == domain.StageAnswerQuestions {
		in, err := s.loadResolverInput(ctx, sess)
		if err != nil {
			return domain.Session{}, err
		}
		facts.MissingAnswers = MissingAnswers(in.Questions, in.Answers)
	}
	t, err := Fire(sess.Stage, EventFinishAnswers, facts)
	if err != nil {
		return domain.Session{}, domain.WithSession(err, sess.ID, sess.Stage)
	}
	sess.Stage = t.To
	sess.UpdatedAt = s.now()
	if err := s.sessions.Update(ctx, &sess); err != nil {
		return domain.Session{}, domain.WithSession(err, sess.ID, sess.Stage)
	}
	return sess, nil
}

// RateClusters records career-cluster ratings and runs the calculation. A
// calculation failure leaves the session in CalculateAssessment so Complete
// can retry it.
func (s *AssessmentService) RateClusters(ctx context.Context, tenantID, sessionID string, ratings map[string]int) (domain.Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, tenantID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	t, err := Fire(sess.Stage, EventRateClusters, TransitionFacts{ClusterRatings: ratings})
	if err != nil {
		return domain.Session{}, domain.WithSession(err, sess.ID, sess.Stage)
	}
	if err := s.checkClusters(ctx, sess, ratings); err != nil {
		return domain.Session{}, err
	}

	sess.ClusterRatings = make(map[string]int, len(ratings))
	for k, v := range ratings {
		sess.ClusterRatings[k] = v
	}
	sess.Stage = t.To
	sess.UpdatedAt = s.now()
	if err := s.sessions.Update(ctx, &sess); err != nil {
		return domain.Session{}, domain.WithSession(err, sess.ID, sess.Stage)
	}
	if !t.Has(EffectCalculate) {
		return sess, nil
	}
	if err := ctx.Err(); err != nil {
		return sess, err
	}
	if err := s.calculate(ctx, &sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// Complete returns the stored result of a completed session without
// recomputing it, or runs the pending calculation.
func (s *AssessmentService) Complete(ctx context.Context, tenantID, sessionID string) (domain.Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, tenantID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Completed() {
		return sess, nil
	}
	switch sess.Stage {
	case domain.StageCalculateAssessment:
		err = s.calculate(ctx, &sess)
	case domain.StageTieResolvement:
		err = s.resolveTies(ctx, &sess)
	case domain.StageAnswerQuestions, domain.StageRateCareerClusters:
		err = &domain.AssessmentError{Kind: domain.ErrIncompleteAssessment, SessionID: sess.ID, Stage: sess.Stage, Detail: "assessment not calculated yet"}
	default:
		err = &domain.AssessmentError{Kind: domain.ErrInvalidTransition, SessionID: sess.ID, Stage: sess.Stage, Detail: "no result recorded"}
	}
	if err != nil {
		return sess, err
	}
	return sess, nil
}

// ResolveTies completes a session once every exposed tie-breaker is answered.
func (s *AssessmentService) ResolveTies(ctx context.Context, tenantID, sessionID string) (domain.Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, tenantID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.resolveTies(ctx, &sess); err != nil {
		return sess, err
	}
	return sess, nil
}

func (s *AssessmentService) RateAssessment(ctx context.Context, tenantID, sessionID string, rating int) (domain.Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, tenantID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	t, err := Fire(sess.Stage, EventRateAssessment, TransitionFacts{Rating: rating})
	if err != nil {
		return domain.Session{}, domain.WithSession(err, sess.ID, sess.Stage)
	}
	r := rating
	sess.AssessmentRating = &r
	sess.Stage = t.To
	sess.UpdatedAt = s.now()
	if err := s.sessions.Update(ctx, &sess); err != nil {
		return domain.Session{}, domain.WithSession(err, sess.ID, sess.Stage)
	}
	return sess, nil
}

// Result returns the immutable snapshot of a completed session.
func (s *AssessmentService) Result(ctx context.Context, tenantID, sessionID string) (domain.AssessmentResult, error) {
	sess, err := s.load(ctx, tenantID, sessionID)
	if err != nil {
		return domain.AssessmentResult{}, err
	}
	if !sess.Completed() {
		return domain.AssessmentResult{}, &domain.AssessmentError{Kind: domain.ErrIncompleteAssessment, SessionID: sess.ID, Stage: sess.Stage, Detail: "no result yet"}
	}
	return *sess.Result, nil
}

// QualityReport bundles the answer-sheet validation with the stability of the
// resolved type. Stability stays nil until the session has a result.
type QualityReport struct {
	Validation ValidationReport `json:"validation"`
	Stability  *StabilityReport `json:"stability,omitempty"`
}

// Quality checks the session's regular answers for straight-lining, bias and
// rushed completion, and estimates type stability once a result exists.
func (s *AssessmentService) Quality(ctx context.Context, tenantID, sessionID string) (QualityReport, error) {
	sess, err := s.load(ctx, tenantID, sessionID)
	if err != nil {
		return QualityReport{}, err
	}
	in, err := s.loadResolverInput(ctx, sess)
	if err != nil {
		return QualityReport{}, err
	}
	if len(in.Answers) == 0 {
		return QualityReport{}, &domain.AssessmentError{Kind: domain.ErrIncompleteAssessment, SessionID: sess.ID, Stage: sess.Stage, Detail: "no answers yet"}
	}
	var finished time.Time
	for _, a := range in.Answers {
		if a.AnsweredAt.After(finished) {
			finished = a.AnsweredAt
		}
	}

	v, err := ValidateResponses(ValidationInput{
		Questions:  in.Questions,
		Answers:    in.Answers,
		StartedAt:  sess.CreatedAt,
		FinishedAt: finished,
	}, s.quality)
	if err != nil {
		return QualityReport{}, domain.WithSession(err, sess.ID, sess.Stage)
	}
	rep := QualityReport{Validation: v}
	if sess.Completed() {
		st, err := AssessStability(*sess.Result, in.Answers, in.Questions)
		if err != nil {
			return QualityReport{}, domain.WithSession(err, sess.ID, sess.Stage)
		}
		rep.Stability = &st
	}
	s.logger.Debug("quality assessed",
		zap.String("session_id", sess.ID),
		zap.String("level", string(v.Level)),
		zap.Float64("validity", v.Validity),
	)
	return rep, nil
}

func (s *AssessmentService) calculate(ctx context.Context, sess *domain.Session) error {
	in, err := s.loadResolverInput(ctx, *sess)
	if err != nil {
		return err
	}
	if missing := MissingAnswers(in.Questions, in.Answers); len(missing) > 0 {
		return &domain.AssessmentError{Kind: domain.ErrIncompleteAssessment, SessionID: sess.ID, Stage: sess.Stage, Detail: fmt.Sprintf("%d questions unanswered", len(missing))}
	}
	res, err := ResolveType(in, s.resolver)
	if err != nil {
		s.logger.Warn("type resolution failed", zap.String("session_id", sess.ID), zap.Error(err))
		return domain.WithSession(err, sess.ID, sess.Stage)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	event := EventScoresResolved
	if len(res.PendingTies) > 0 {
		event = EventTieDetected
	}
	t, err := Fire(sess.Stage, event, TransitionFacts{PendingTies: res.PendingTies})
	if err != nil {
		return domain.WithSession(err, sess.ID, sess.Stage)
	}
	return s.applyResolution(ctx, sess, t, res)
}

func (s *AssessmentService) resolveTies(ctx context.Context, sess *domain.Session) error {
	var facts TransitionFacts
	var in ResolverInput
	if sess.Stage == domain.StageTieResolvement {
		var err error
		in, err = s.loadResolverInput(ctx, *sess)
		if err != nil {
			return err
		}
		exposed := exposedTieBreakers(in.TieBreakers, sess.PendingTies)
		answered := answeredSet(in.TieBreakerAnswers)
		for _, q := range exposed {
			if !answered[q.ID] {
				facts.UnansweredTieBreakers = append(facts.UnansweredTieBreakers, q.ID)
			}
		}
	}
	t, err := Fire(sess.Stage, EventResolveTies, facts)
	if err != nil {
		return domain.WithSession(err, sess.ID, sess.Stage)
	}
	res, err := ResolveType(in, s.resolver)
	if err != nil {
		s.logger.Warn("tie resolution failed", zap.String("session_id", sess.ID), zap.Error(err))
		return domain.WithSession(err, sess.ID, sess.Stage)
	}
	if !res.Resolved() {
		return &domain.AssessmentError{Kind: domain.ErrIncompleteAssessment, SessionID: sess.ID, Stage: sess.Stage, Detail: "tie-breakers still pending"}
	}
	return s.applyResolution(ctx, sess, t, res)
}

func (s *AssessmentService) applyResolution(ctx context.Context, sess *domain.Session, t Transition, res Resolution) error {
	now := s.now()
	if t.Has(EffectComplete) {
		if err := sess.Complete(res.Result, now); err != nil {
			return err
		}
	}
	if t.Has(EffectExposeTieBreakers) {
		sess.PendingTies = append([]domain.Dimension(nil), res.PendingTies...)
	}
	sess.Stage = t.To
	sess.UpdatedAt = now
	if err := s.sessions.Update(ctx, sess); err != nil {
		return domain.WithSession(err, sess.ID, sess.Stage)
	}
	if sess.Completed() {
		s.logger.Info("session completed",
			zap.String("session_id", sess.ID),
			zap.String("type_code", *sess.TypeCode),
			zap.Any("borderline", sess.Result.Borderline),
		)
	} else {
		s.logger.Info("tie detected",
			zap.String("session_id", sess.ID),
			zap.Any("dimensions", sess.PendingTies),
		)
	}
	return nil
}

// loadResolverInput fetches questions, tie-breakers and answers concurrently.
func (s *AssessmentService) loadResolverInput(ctx context.Context, sess domain.Session) (ResolverInput, error) {
	var (
		questions   []domain.Question
		tieBreakers []domain.TieBreakerQuestion
		answers     []domain.Answer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		questions, err = s.ref.ActiveQuestions(gctx, sess.TenantID, sess.Language)
		return err
	})
	g.Go(func() error {
		var err error
		tieBreakers, err = s.ref.TieBreakers(gctx, sess.TenantID, sess.Language)
		return err
	})
	g.Go(func() error {
		var err error
		answers, err = s.answers.ListBySession(gctx, sess.TenantID, sess.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ResolverInput{}, fmt.Errorf("load assessment data: %w", err)
	}

	in := ResolverInput{Questions: questions, TieBreakers: tieBreakers}
	for _, a := range answers {
		if a.TieBreaker {
			in.TieBreakerAnswers = append(in.TieBreakerAnswers, a)
		} else {
			in.Answers = append(in.Answers, a)
		}
	}
	return in, nil
}

func (s *AssessmentService) servedQuestions(ctx context.Context, sess domain.Session) ([]domain.Question, []domain.Answer, error) {
	switch sess.Stage {
	case domain.StageAnswerQuestions:
		in, err := s.loadResolverInput(ctx, sess)
		if err != nil {
			return nil, nil, err
		}
		return sortedQuestions(in.Questions), in.Answers, nil
	case domain.StageTieResolvement:
		in, err := s.loadResolverInput(ctx, sess)
		if err != nil {
			return nil, nil, err
		}
		return exposedTieBreakers(in.TieBreakers, sess.PendingTies), in.TieBreakerAnswers, nil
	}
	return nil, nil, nil
}

func (s *AssessmentService) checkClusters(ctx context.Context, sess domain.Session, ratings map[string]int) error {
	if s.careers == nil || len(ratings) == 0 {
		return nil
	}
	clusters, err := s.careers.ListClusters(ctx, sess.TenantID, sess.Language)
	if err != nil {
		return fmt.Errorf("list clusters: %w", err)
	}
	known := make(map[string]bool, len(clusters))
	for _, c := range clusters {
		known[c.ID] = true
	}
	for id := range ratings {
		if !known[id] {
			return &domain.AssessmentError{Kind: domain.ErrInvalidInput, SessionID: sess.ID, Stage: sess.Stage, Detail: fmt.Sprintf("unknown career cluster %s", id)}
		}
	}
	return nil
}

func (s *AssessmentService) load(ctx context.Context, tenantID, sessionID string) (domain.Session, error) {
	if strings.TrimSpace(tenantID) == "" {
		return domain.Session{}, fmt.Errorf("%w: tenant id required", domain.ErrAccessDenied)
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, &domain.AssessmentError{Kind: domain.ErrNotFound, SessionID: sessionID, Detail: "session does not exist"}
		}
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.TenantID != tenantID {
		s.logger.Warn("cross-tenant session access", zap.String("session_id", sessionID), zap.String("tenant_id", tenantID))
		return domain.Session{}, &domain.AssessmentError{Kind: domain.ErrAccessDenied, SessionID: sessionID, Detail: "session belongs to another tenant"}
	}
	return sess, nil
}

// exposedTieBreakers keeps the tie-breakers of the tied dimensions, ordered by
// dimension then ordinal.
func exposedTieBreakers(all []domain.TieBreakerQuestion, tied []domain.Dimension) []domain.Question {
	want := make(map[domain.Dimension]bool, len(tied))
	for _, d := range tied {
		want[d] = true
	}
	var out []domain.Question
	for _, d := range domain.Dimensions {
		if !want[d] {
			continue
		}
		var qs []domain.Question
		for _, tb := range all {
			if tb.Dimension == d {
				qs = append(qs, tb.Question)
			}
		}
		out = append(out, sortedQuestions(qs)...)
	}
	return out
}

func answeredSet(answers []domain.Answer) map[string]bool {
	out := make(map[string]bool, len(answers))
	for _, a := range answers {
		out[a.QuestionID] = true
	}
	return out
}

func buildProgress(stage domain.Stage, served []domain.Question, answered map[string]bool) Progress {
	p := Progress{Stage: stage, Total: len(served)}
	for _, q := range served {
		if answered[q.ID] {
			p.Answered++
		}
	}
	if p.Total > 0 {
		p.Percentage = math.Round(float64(p.Answered)/float64(p.Total)*10000) / 100
	}
	p.Complete = p.Total > 0 && p.Answered == p.Total
	return p
}
