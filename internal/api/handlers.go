package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dvo-fracture-risk-server/internal/domain"
	"github.com/dvo-fracture-risk-server/internal/feedback"
)

// errorResponse builds the standard error body for a request context.
func errorResponse(c *gin.Context, code, message string) *domain.EngineError {
	return domain.NewEngineError(code, message, "", c.GetString("request_id"))
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"timestamp":        time.Now().UTC(),
		"dataset_version":  s.catalog.Version(),
		"guideline":        s.catalog.Guideline(),
		"feedback_enabled": s.feedbackStore != nil,
	})
}

// handleEvaluate runs a full risk evaluation for one set of patient inputs.
func (s *Server) handleEvaluate(c *gin.Context) {
	var req domain.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(c, domain.ErrCodeInvalidInput, err.Error()))
		return
	}

	result, err := s.evaluator.Evaluate(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSex):
			c.JSON(http.StatusBadRequest, errorResponse(c, domain.ErrCodeInvalidInput, err.Error()))
		case errors.Is(err, domain.ErrEmptyBinSet), errors.Is(err, domain.ErrTableNotFound):
			s.logger.WithError(err).Error("Reference dataset integrity failure")
			c.JSON(http.StatusInternalServerError, errorResponse(c, domain.ErrCodeDataset, "Reference dataset is inconsistent"))
		default:
			s.logger.WithError(err).Error("Evaluation failed")
			c.JSON(http.StatusInternalServerError, errorResponse(c, domain.ErrCodeEvaluation, "Evaluation failed"))
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// toggleRequest is the body of a selection toggle call.
type toggleRequest struct {
	Selected []string `json:"selected"`
	FactorID string   `json:"factor_id" binding:"required"`
}

// handleToggleSelection applies one risk-factor toggle under the
// mutual-exclusion rules and returns the resulting selection.
func (s *Server) handleToggleSelection(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(c, domain.ErrCodeInvalidInput, err.Error()))
		return
	}

	selection, err := s.evaluator.ToggleFactor(req.Selected, req.FactorID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRiskFactor) {
			c.JSON(http.StatusNotFound, errorResponse(c, domain.ErrCodeInvalidInput, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse(c, domain.ErrCodeInternalServer, "Toggle failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"selected": selection})
}

// handleListRiskFactors returns the full risk factor catalog with the
// mutual-exclusion grouping needed to render a selection UI.
func (s *Server) handleListRiskFactors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"risk_factors":    s.catalog.RiskFactors(),
		"dataset_version": s.catalog.Version(),
	})
}

// handleListSubstances returns the substance registry.
func (s *Server) handleListSubstances(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	substances := s.catalog.Substances()
	if activeOnly {
		filtered := substances[:0]
		for _, sub := range substances {
			if sub.Active {
				filtered = append(filtered, sub)
			}
		}
		substances = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"substances":      substances,
		"dataset_version": s.catalog.Version(),
	})
}

// handleGetSubstance returns one substance with its evidence and
// administration annotations.
func (s *Server) handleGetSubstance(c *gin.Context) {
	id := c.Param("id")

	substance, ok := s.catalog.Substance(id)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse(c, domain.ErrCodeInvalidInput, "unknown substance: "+id))
		return
	}

	resp := gin.H{"substance": substance}
	if ev, ok := s.catalog.Evidence(id); ok {
		resp["evidence"] = ev
	}
	if admin, ok := s.catalog.Administration(id); ok {
		resp["administration"] = admin
	}

	c.JSON(http.StatusOK, resp)
}

// requireFeedbackStore aborts with 503 when no feedback store is configured.
func (s *Server) requireFeedbackStore(c *gin.Context) bool {
	if s.feedbackStore == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse(c, domain.ErrCodeFeedback, "Feedback storage is disabled"))
		return false
	}
	return true
}

// handleSaveFeedback stores or updates clinician feedback for a case.
func (s *Server) handleSaveFeedback(c *gin.Context) {
	if !s.requireFeedbackStore(c) {
		return
	}

	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(c, domain.ErrCodeInvalidInput, err.Error()))
		return
	}
	if fb.CaseKey == "" {
		c.JSON(http.StatusBadRequest, errorResponse(c, domain.ErrCodeInvalidInput, "case_key is required"))
		return
	}

	if err := s.feedbackStore.Save(c.Request.Context(), &fb); err != nil {
		s.logger.WithError(err).Error("Failed to save feedback")
		c.JSON(http.StatusInternalServerError, errorResponse(c, domain.ErrCodeFeedback, "Failed to save feedback"))
		return
	}

	c.JSON(http.StatusOK, fb)
}

// handleListFeedback returns stored feedback with limit/offset pagination.
func (s *Server) handleListFeedback(c *gin.Context) {
	if !s.requireFeedbackStore(c) {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, err := s.feedbackStore.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list feedback")
		c.JSON(http.StatusInternalServerError, errorResponse(c, domain.ErrCodeFeedback, "Failed to list feedback"))
		return
	}

	total, err := s.feedbackStore.Count(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to count feedback")
		c.JSON(http.StatusInternalServerError, errorResponse(c, domain.ErrCodeFeedback, "Failed to count feedback"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleFeedbackSummary returns aggregate agreement statistics.
func (s *Server) handleFeedbackSummary(c *gin.Context) {
	if !s.requireFeedbackStore(c) {
		return
	}

	summary, err := s.feedbackStore.Summarize(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to summarize feedback")
		c.JSON(http.StatusInternalServerError, errorResponse(c, domain.ErrCodeFeedback, "Failed to summarize feedback"))
		return
	}

	c.JSON(http.StatusOK, summary)
}

// handleDeleteFeedback removes one feedback entry by numeric ID.
func (s *Server) handleDeleteFeedback(c *gin.Context) {
	if !s.requireFeedbackStore(c) {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(c, domain.ErrCodeInvalidInput, "invalid feedback id"))
		return
	}

	if err := s.feedbackStore.Delete(c.Request.Context(), id); err != nil {
		s.logger.WithError(err).Error("Failed to delete feedback")
		c.JSON(http.StatusInternalServerError, errorResponse(c, domain.ErrCodeFeedback, "Failed to delete feedback"))
		return
	}

	c.Status(http.StatusNoContent)
}
