package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Alsairy/Masark-Engine-sub003/internal/domain"
	applog "github.com/Alsairy/Masark-Engine-sub003/internal/logger"
	"github.com/Alsairy/Masark-Engine-sub003/internal/service"
)

// CareerHandler expone ranking de carreras y datos de referencia.
type CareerHandler struct {
	logger  *zap.Logger
	careers *service.CareerService
}

// NewCareerHandler crea una instancia de CareerHandler.
func NewCareerHandler(logger *zap.Logger, careers *service.CareerService) *CareerHandler {
	return &CareerHandler{
		logger:  logger,
		careers: careers,
	}
}

// Matches maneja GET /matches/:type?policy=&lang=&threshold=&limit=.
func (h *CareerHandler) Matches(c *gin.Context) {
	tenantID, log := h.scope(c)
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	var threshold *float64
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
			return
		}
		threshold = &v
	}

	matches, err := h.careers.Match(c.Request.Context(), service.MatchInput{
		TenantID:  tenantID,
		TypeCode:  c.Param("type"),
		Language:  c.Query("lang"),
		Policy:    domain.DeploymentPolicy(c.Query("policy")),
		Threshold: threshold,
		Limit:     limit,
	})
	if err != nil {
		writeError(c, log, "match careers failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"careers": toCareerMatchResponses(matches)})
}

// UpdateMatchScore maneja PUT /matches/:type/:career_id.
func (h *CareerHandler) UpdateMatchScore(c *gin.Context) {
	tenantID, log := h.scope(c)
	var req struct {
		Score *float64 `json:"score" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid match score request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.careers.UpdateMatchScore(c.Request.Context(), tenantID, c.Param("type"), c.Param("career_id"), *req.Score); err != nil {
		writeError(c, log, "update match score failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BulkUpdateMatchScores maneja PUT /matches/:type con {"scores": {career_id: score}}.
// Las filas invalidas se cuentan en la respuesta y no cortan el lote.
func (h *CareerHandler) BulkUpdateMatchScores(c *gin.Context) {
	tenantID, log := h.scope(c)
	var req struct {
		Scores map[string]float64 `json:"scores" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid bulk match score request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.careers.BulkUpdateMatchScores(c.Request.Context(), tenantID, c.Param("type"), req.Scores)
	if err != nil {
		writeError(c, log, "bulk update match scores failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Search maneja GET /careers?q=&lang=&limit=.
func (h *CareerHandler) Search(c *gin.Context) {
	tenantID, log := h.scope(c)
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	careers, err := h.careers.SearchCareers(c.Request.Context(), tenantID, c.Query("q"), c.Query("lang"), limit)
	if err != nil {
		writeError(c, log, "search careers failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"careers": careers})
}

// GetCareer maneja GET /careers/:id?lang=&policy=.
func (h *CareerHandler) GetCareer(c *gin.Context) {
	tenantID, log := h.scope(c)
	details, err := h.careers.CareerDetails(c.Request.Context(), tenantID, c.Param("id"), c.Query("lang"), domain.DeploymentPolicy(c.Query("policy")))
	if err != nil {
		writeError(c, log, "get career failed", err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Clusters maneja GET /clusters.
func (h *CareerHandler) Clusters(c *gin.Context) {
	tenantID, log := h.scope(c)
	clusters, err := h.careers.Clusters(c.Request.Context(), tenantID, c.Query("lang"))
	if err != nil {
		writeError(c, log, "list clusters failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clusters": clusters})
}

// ClusterCareers maneja GET /clusters/:id/careers.
func (h *CareerHandler) ClusterCareers(c *gin.Context) {
	tenantID, log := h.scope(c)
	careers, err := h.careers.CareersByCluster(c.Request.Context(), tenantID, c.Param("id"), c.Query("lang"))
	if err != nil {
		writeError(c, log, "list cluster careers failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"careers": careers})
}

// PersonalityType maneja GET /types/:code.
func (h *CareerHandler) PersonalityType(c *gin.Context) {
	tenantID, log := h.scope(c)
	pt, err := h.careers.PersonalityType(c.Request.Context(), tenantID, c.Param("code"), c.Query("lang"))
	if err != nil {
		writeError(c, log, "get personality type failed", err)
		return
	}
	c.JSON(http.StatusOK, pt)
}

func (h *CareerHandler) scope(c *gin.Context) (string, *zap.Logger) {
	tenantID, _ := GetTenantID(c)
	return tenantID, applog.ForSession(h.logger, tenantID, "")
}
