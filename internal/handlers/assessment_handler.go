package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/services"
	"github.com/SAP-F-2025/attempt-engine/internal/utils"
)

type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
}

func NewAssessmentHandler(
	assessmentService services.AssessmentService,
	logger utils.Logger,
) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
	}
}

// PublishAssessment makes the assessment startable
// @Summary Publish assessment
// @Tags assessments
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} SuccessResponse{data=models.Assessment}
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "Active pool smaller than the sample size"
// @Router /assessments/{id}/publish [post]
func (h *AssessmentHandler) PublishAssessment(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Publishing assessment", "assessment_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	assessment, err := h.assessmentService.Publish(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Assessment published successfully",
		Data:    assessment,
	})
}

// UnpublishAssessment returns the assessment to draft
// @Summary Unpublish assessment
// @Tags assessments
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} SuccessResponse{data=models.Assessment}
// @Router /assessments/{id}/unpublish [post]
func (h *AssessmentHandler) UnpublishAssessment(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Unpublishing assessment", "assessment_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	assessment, err := h.assessmentService.Unpublish(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Assessment unpublished successfully",
		Data:    assessment,
	})
}

// DeleteAssessment removes the assessment with its pool, attempts and answers
// @Summary Delete assessment
// @Tags assessments
// @Param id path uint true "Assessment ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [delete]
func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting assessment", "assessment_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.assessmentService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddToPool adds questions to the assessment pool. Existing entries are left alone.
// @Summary Add questions to pool
// @Tags pool
// @Accept json
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param pool body models.PoolUpdateRequest true "Question IDs"
// @Success 200 {object} map[string]int
// @Router /assessments/{id}/pool [post]
func (h *AssessmentHandler) AddToPool(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.PoolUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Adding questions to pool", "assessment_id", id, "count", len(req.QuestionIDs))

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	added, err := h.assessmentService.AddToPool(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"added": added})
}

// RemoveFromPool removes questions from the assessment pool
// @Summary Remove questions from pool
// @Tags pool
// @Accept json
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param pool body models.PoolUpdateRequest true "Question IDs"
// @Success 200 {object} map[string]int
// @Router /assessments/{id}/pool [delete]
func (h *AssessmentHandler) RemoveFromPool(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.PoolUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Removing questions from pool", "assessment_id", id, "count", len(req.QuestionIDs))

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	removed, err := h.assessmentService.RemoveFromPool(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// ListPool lists every question in the pool, active or not
// @Summary List pool
// @Tags pool
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} map[string][]uint
// @Router /assessments/{id}/pool [get]
func (h *AssessmentHandler) ListPool(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	ids, err := h.assessmentService.ListPool(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"question_ids": ids})
}
