package handler

import (
	"github.com/gin-gonic/gin"

	appErr "github.com/evonota/evonota/internal/pkg/errors"
	"github.com/evonota/evonota/internal/pkg/response"
	"github.com/evonota/evonota/internal/service"
)

type AuthHandler struct {
	auth          *service.AuthService
	allowRegister bool
}

func NewAuthHandler(auth *service.AuthService, allowRegister bool) *AuthHandler {
	return &AuthHandler{auth: auth, allowRegister: allowRegister}
}

func (h *AuthHandler) Register(c *gin.Context) {
	if !h.allowRegister {
		handleError(c, appErr.Wrapf(appErr.ErrInvalid, "registration disabled"))
		return
	}
	var body service.RegisterRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, appErr.Wrapf(appErr.ErrInvalid, "decode body"))
		return
	}
	doctor, token, err := h.auth.Register(c.Request.Context(), body)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"doctor": doctor,
		"token":  token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, appErr.Wrapf(appErr.ErrInvalid, "decode body"))
		return
	}
	doctor, token, err := h.auth.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"doctor": doctor,
		"token":  token,
	})
}
