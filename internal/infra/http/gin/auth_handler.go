package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentwheels/internal/app/dto"
	authsvc "rentwheels/internal/app/services/auth"
	"rentwheels/internal/domain/access"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

type AuthHandler struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	AsOwner  bool   `json:"asOwner"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(c *gin.Context) {
	if h.Service == nil {
		fail(c, http.StatusServiceUnavailable, "auth service unavailable")
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Service.Register(c.Request.Context(), authsvc.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
		AsOwner:  req.AsOwner,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, "registered", dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) Login(c *gin.Context) {
	if h.Service == nil {
		fail(c, http.StatusServiceUnavailable, "auth service unavailable")
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "logged in", dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) Logout(c *gin.Context) {
	if h.Service == nil {
		fail(c, http.StatusServiceUnavailable, "auth service unavailable")
		return
	}
	p, ok := currentPrincipal(c)
	if !ok {
		writeError(c, h.Logger, access.ErrUnauthenticated)
		return
	}
	if err := h.Service.Logout(c.Request.Context(), p.Token); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "logged out", nil)
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		writeError(c, h.Logger, access.ErrUnauthenticated)
		return
	}
	respond(c, http.StatusOK, "ok", dto.MapUserProfile(p.User))
}

var _ AuthHTTP = (*AuthHandler)(nil)
