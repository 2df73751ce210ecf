package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attempt-engine/internal/services"
	"github.com/SAP-F-2025/attempt-engine/internal/utils"
)

type ResultHandler struct {
	BaseHandler
	resultService services.ResultService
}

func NewResultHandler(resultService services.ResultService, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler:   NewBaseHandler(logger),
		resultService: resultService,
	}
}

// GetResult returns the result view of a finalized attempt
// @Summary Get attempt result
// @Tags results
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.ResultView
// @Failure 409 {object} ErrorResponse "Attempt not finalized yet"
// @Router /attempts/{id}/result [get]
func (h *ResultHandler) GetResult(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.resultService.GetResult(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListResults returns the ranked finalized attempts of an assessment
// @Summary List assessment results
// @Tags results
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} SuccessResponse{data=[]models.ResultRow}
// @Router /assessments/{id}/results [get]
func (h *ResultHandler) ListResults(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Listing assessment results", "assessment_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.resultService.ListResults(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Results retrieved successfully",
		Data:    rows,
	})
}

// ExportResults downloads the ranked results as a spreadsheet
// @Summary Export assessment results
// @Tags results
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Assessment ID"
// @Success 200 {file} file
// @Router /assessments/{id}/results/export [get]
func (h *ResultHandler) ExportResults(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting assessment results", "assessment_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	file, err := h.resultService.ExportResults(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
