package handler

import (
	"net/http"

	"anoa.com/mathter/internal/modules/group/dto"
	group "anoa.com/mathter/internal/modules/group/service"
	"anoa.com/mathter/pkg/response"
	"anoa.com/mathter/pkg/validator"
	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	service group.GroupService
}

func NewGroupHandler(service group.GroupService) *GroupHandler {
	return &GroupHandler{service: service}
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.CreateGroup(c.Request.Context(), current, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *GroupHandler) ListMyGroups(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ListMyGroups(c.Request.Context(), current)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *GroupHandler) GetGroup(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParseID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.GetGroup(c.Request.Context(), current, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParseID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.AddMember(c.Request.Context(), current, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParseID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	studentID, err := response.ParseID(c, "studentId")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), current, id, studentID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

func (h *GroupHandler) CreateHomework(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParseID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.CreateHomework(c.Request.Context(), current, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *GroupHandler) ListHomework(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParseID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ListHomework(c.Request.Context(), current, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *GroupHandler) SubmitHomework(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParseID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.SubmitHomework(c.Request.Context(), current, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *GroupHandler) ListResults(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParseID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ListResults(c.Request.Context(), current, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}
