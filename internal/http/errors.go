package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
)

type errorMapping struct {
	kind   error
	status int
	code   string
}

// El orden importa: se usa el primer kind que matchee con errors.Is.
var errorMappings = []errorMapping{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrAccessDenied, http.StatusForbidden, "access_denied"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrInvalidQuestionReference, http.StatusBadRequest, "invalid_question_reference"},
	{domain.ErrIncompleteAssessment, http.StatusConflict, "incomplete_assessment"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrSessionClosed, http.StatusConflict, "session_closed"},
	{domain.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
	{domain.ErrUnresolvedTie, http.StatusUnprocessableEntity, "unresolved_tie"},
	{domain.ErrInsufficientData, http.StatusUnprocessableEntity, "insufficient_data"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError traduce errores de dominio a status HTTP. Los 5xx no exponen detalle.
func writeError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err))
		c.JSON(status, gin.H{"error": code})
		return
	}

	logger.Warn(msg, zap.String("error_code", code), zap.Error(err))
	body := gin.H{"error": code, "detail": err.Error()}
	var ae *domain.AssessmentError
	if errors.As(err, &ae) {
		if ae.Stage != "" {
			body["stage"] = ae.Stage
		}
		if ae.Dimension != "" {
			body["dimension"] = ae.Dimension
		}
	}
	c.JSON(status, body)
}
