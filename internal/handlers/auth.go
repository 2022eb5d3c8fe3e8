package handlers

import (
	"net/http"

	"qrstudio/internal/auth"
	dom "qrstudio/internal/domain"
	"qrstudio/internal/dto"
	"qrstudio/internal/logging"
	"qrstudio/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles login, register, logout and me.
type AuthHandler struct {
	sessions     auth.SessionStore
	userSvc      *service.UserService
	secureCookie bool
	log          logging.Logger
}

// NewAuthHandler returns a new AuthHandler.
func NewAuthHandler(sessions auth.SessionStore, userSvc *service.UserService, secureCookie bool, log logging.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, userSvc: userSvc, secureCookie: secureCookie, log: log}
}

func (h *AuthHandler) startSession(c *gin.Context, identity dom.Identity) bool {
	sessionID, err := h.sessions.Create(c.Request.Context(), identity)
	if err != nil {
		h.log.Error(c.Request.Context(), "create session failed", "user_id", identity.ID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to create session"})
		return false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, sessionID, int(h.sessions.TTL().Seconds()), "/", "", h.secureCookie, true)
	return true
}

// Login godoc
// @Summary      Login with username or email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "Credentials"
// @Success      200   {object}  dto.UserResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	user, err := h.userSvc.ValidateCredentials(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !h.startSession(c, user.Identity()) {
		return
	}
	c.JSON(http.StatusOK, dto.UserResponse{Success: true, User: user.Identity()})
}

// Register godoc
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterRequest  true  "New account"
// @Success      200   {object}  dto.UserResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	user, err := h.userSvc.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info(c.Request.Context(), "user registered", "user_id", user.ID)
	if !h.startSession(c, user.Identity()) {
		return
	}
	c.JSON(http.StatusOK, dto.UserResponse{Success: true, User: user.Identity()})
}

// Logout godoc
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.OKResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, err := c.Cookie(auth.CookieName)
	if err == nil && sessionID != "" {
		if err := h.sessions.Delete(c.Request.Context(), sessionID); err != nil {
			h.log.Warn(c.Request.Context(), "delete session failed", "error", err)
		}
	}
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, dto.OKResponse{Success: true})
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     CookieAuth
// @Success      200  {object}  dto.UserResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, _ := auth.IdentityFromContext(c)
	c.JSON(http.StatusOK, dto.UserResponse{Success: true, User: identity})
}
