package handler

import (
	"net/http"

	"anoa.com/mathter/internal/modules/account/dto"
	account "anoa.com/mathter/internal/modules/account/service"
	commonDto "anoa.com/mathter/pkg/dto"
	"anoa.com/mathter/pkg/response"
	"anoa.com/mathter/pkg/validator"
	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountService account.AccountService
	authService    account.AuthService
}

func NewAccountHandler(accountService account.AccountService, authService account.AuthService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		authService:    authService,
	}
}

func (h *AccountHandler) Register(c *gin.Context) {
	var input dto.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.accountService.Register(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *AccountHandler) Login(c *gin.Context) {
	var input dto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.Login(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AccountHandler) GetMe(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.accountService.GetByID(c.Request.Context(), current.ID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AccountHandler) UpdateMe(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.accountService.UpdateMe(c.Request.Context(), current.ID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AccountHandler) UpdateAvatar(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read avatar"})
		return
	}
	defer file.Close()

	res, err := h.accountService.UpdateAvatar(c.Request.Context(), current.ID, commonDto.AvatarFile{
		Reader:   file,
		FileName: fileHeader.Filename,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AccountHandler) DeleteMe(c *gin.Context) {
	current, err := response.GetAccount(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.accountService.Anonymize(c.Request.Context(), current, current.ID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var input dto.CreateAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.accountService.Create(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	var filter dto.AccountFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.accountService.List(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
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

	res, err := h.accountService.Anonymize(c.Request.Context(), current, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
