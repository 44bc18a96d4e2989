package handler

import (
	"net/http"

	"anoa.com/mathter/internal/modules/learning/dto"
	learning "anoa.com/mathter/internal/modules/learning/service"
	commonDto "anoa.com/mathter/pkg/dto"
	"anoa.com/mathter/pkg/response"
	"anoa.com/mathter/pkg/validator"
	"github.com/gin-gonic/gin"
)

type LearningHandler struct {
	service learning.LearningService
}

func NewLearningHandler(service learning.LearningService) *LearningHandler {
	return &LearningHandler{service: service}
}

func (h *LearningHandler) SubmitAttempt(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	taskID, err := response.ParseID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.SubmitAttempt(c.Request.Context(), current, taskID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *LearningHandler) ListMyAttempts(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query commonDto.PaginationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.ListMyAttempts(c.Request.Context(), current.ID, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *LearningHandler) ListMyProgress(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ListMyProgress(c.Request.Context(), current.ID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}
