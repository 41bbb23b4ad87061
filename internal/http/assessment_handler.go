package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
	applog "github.com/Alsairy/Masark-Engine-sub003/internal/logger"
	"github.com/Alsairy/Masark-Engine-sub003/internal/service"
)

// AssessmentHandler expone el flujo de la sesion de evaluacion.
type AssessmentHandler struct {
	logger      *zap.Logger
	assessments *service.AssessmentService
	careers     *service.CareerService
}

// NewAssessmentHandler crea una instancia de AssessmentHandler.
func NewAssessmentHandler(
	logger *zap.Logger,
	assessments *service.AssessmentService,
	careers *service.CareerService,
) *AssessmentHandler {
	return &AssessmentHandler{
		logger:      logger,
		assessments: assessments,
		careers:     careers,
	}
}

// StartSession maneja POST /sessions.
func (h *AssessmentHandler) StartSession(c *gin.Context) {
	tenantID, _ := GetTenantID(c)
	var req struct {
		Language string `json:"language"`
		Policy   string `json:"policy"`
	}
	// El body es opcional: sin body se usan idioma y politica por defecto.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid start session request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sess, err := h.assessments.StartSession(c.Request.Context(), service.StartSessionInput{
		TenantID: tenantID,
		Language: req.Language,
		Policy:   req.Policy,
	})
	if err != nil {
		writeError(c, applog.ForSession(h.logger, tenantID, ""), "start session failed", err)
		return
	}
	h.respondSession(c, http.StatusCreated, sess)
}

// GetSession maneja GET /sessions/:id.
func (h *AssessmentHandler) GetSession(c *gin.Context) {
	tenantID, sessionID, log := h.scope(c)
	sess, err := h.assessments.GetSession(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		writeError(c, log, "get session failed", err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// CurrentQuestions maneja GET /sessions/:id/questions.
func (h *AssessmentHandler) CurrentQuestions(c *gin.Context) {
	tenantID, sessionID, log := h.scope(c)
	set, err := h.assessments.CurrentQuestions(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		writeError(c, log, "list questions failed", err)
		return
	}
	resp, err := toQuestionSetResponse(set)
	if err != nil {
		writeError(c, log, "map questions failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type answerRequest struct {
	QuestionID     string `json:"question_id" binding:"required"`
	SelectedOption string `json:"selected_option" binding:"required"`
	Strength       string `json:"strength"`
}

// SubmitAnswer maneja POST /sessions/:id/answers.
func (h *AssessmentHandler) SubmitAnswer(c *gin.Context) {
	h.submit(c, h.assessments.SubmitAnswer, "submit answer failed")
}

// SubmitTieBreaker maneja POST /sessions/:id/tie-breakers.
func (h *AssessmentHandler) SubmitTieBreaker(c *gin.Context) {
	h.submit(c, h.assessments.SubmitTieBreaker, "submit tie-breaker failed")
}

func (h *AssessmentHandler) submit(
	c *gin.Context,
	fn func(ctx context.Context, input service.SubmitAnswerInput) (service.Progress, error),
	failMsg string,
) {
	tenantID, sessionID, log := h.scope(c)
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid answer request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	progress, err := fn(c.Request.Context(), service.SubmitAnswerInput{
		TenantID:       tenantID,
		SessionID:      sessionID,
		QuestionID:     req.QuestionID,
		SelectedOption: req.SelectedOption,
		Strength:       req.Strength,
	})
	if err != nil {
		writeError(c, log, failMsg, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// FinishAnswers maneja POST /sessions/:id/finish.
func (h *AssessmentHandler) FinishAnswers(c *gin.Context) {
	tenantID, sessionID, log := h.scope(c)
	sess, err := h.assessments.FinishAnswers(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		writeError(c, log, "finish answers failed", err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// RateClusters maneja POST /sessions/:id/cluster-ratings.
func (h *AssessmentHandler) RateClusters(c *gin.Context) {
	tenantID, sessionID, log := h.scope(c)
	var req struct {
		Ratings map[string]int `json:"ratings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid cluster ratings request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sess, err := h.assessments.RateClusters(c.Request.Context(), tenantID, sessionID, req.Ratings)
	if err != nil {
		writeError(c, log, "rate clusters failed", err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// ResolveTies maneja POST /sessions/:id/resolve-ties.
func (h *AssessmentHandler) ResolveTies(c *gin.Context) {
	tenantID, sessionID, log := h.scope(c)
	sess, err := h.assessments.ResolveTies(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		writeError(c, log, "resolve ties failed", err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// Complete maneja POST /sessions/:id/complete. Repetirlo devuelve la misma sesion.
func (h *AssessmentHandler) Complete(c *gin.Context) {
	tenantID, sessionID, log := h.scope(c)
	sess, err := h.assessments.Complete(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		writeError(c, log, "complete session failed", err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// RateAssessment maneja POST /sessions/:id/rating.
func (h *AssessmentHandler) RateAssessment(c *gin.Context) {
	tenantID, sessionID, log := h.scope(c)
	var req struct {
		Rating int `json:"rating" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid rating request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sess, err := h.assessments.RateAssessment(c.Request.Context(), tenantID, sessionID, req.Rating)
	if err != nil {
		writeError(c, log, "rate assessment failed", err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// Result maneja GET /sessions/:id/result.
func (h *AssessmentHandler) Result(c *gin.Context) {
	tenantID, sessionID, log := h.scope(c)
	result, err := h.assessments.Result(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		writeError(c, log, "get result failed", err)
		return
	}
	c.JSON(http.StatusOK, toResultResponse(result))
}

// Quality maneja GET /sessions/:id/quality.
func (h *AssessmentHandler) Quality(c *gin.Context) {
	tenantID, sessionID, log := h.scope(c)
	report, err := h.assessments.Quality(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		writeError(c, log, "quality report failed", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Careers maneja GET /sessions/:id/careers?limit=N.
func (h *AssessmentHandler) Careers(c *gin.Context) {
	tenantID, sessionID, log := h.scope(c)
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	sess, err := h.assessments.GetSession(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		writeError(c, log, "get session failed", err)
		return
	}
	matches, err := h.careers.MatchForSession(c.Request.Context(), sess, limit)
	if err != nil {
		writeError(c, log, "match careers failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"type_code": sess.TypeCode,
		"policy":    sess.Policy,
		"careers":   toCareerMatchResponses(matches),
	})
}

func (h *AssessmentHandler) scope(c *gin.Context) (string, string, *zap.Logger) {
	tenantID, _ := GetTenantID(c)
	sessionID := c.Param("id")
	return tenantID, sessionID, applog.ForSession(h.logger, tenantID, sessionID)
}

func (h *AssessmentHandler) respondSession(c *gin.Context, status int, sess domain.Session) {
	resp, err := toSessionResponse(sess)
	if err != nil {
		writeError(c, applog.ForSession(h.logger, sess.TenantID, sess.ID), "map session failed", err)
		return
	}
	c.JSON(status, resp)
}

// queryInt devuelve 0 si el parametro no viene.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}
