package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/internal/application"
	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/internal/interface/middleware"
	"github.com/oksasatya/auth-api/pkg/apperr"
	"github.com/oksasatya/auth-api/pkg/helpers"
	"github.com/oksasatya/auth-api/pkg/response"
	"github.com/oksasatya/auth-api/pkg/validation"
)

const (
	ResetPasswordPath = "/api/auth/resetPassword"
	RefreshTokenPath  = "/api/auth/refresh-token"
)

type AuthHandler struct {
	Svc     *application.AuthService
	Cookies *helpers.Manager
	Logger  *logrus.Logger
	// ResetURL is the base of emailed reset links. Empty derives it from the request host.
	ResetURL string
}

func NewAuthHandler(svc *application.AuthService, cookies *helpers.Manager, logger *logrus.Logger, resetURL string) *AuthHandler {
	return &AuthHandler{Svc: svc, Cookies: cookies, Logger: logger, ResetURL: resetURL}
}

// AuthPayload is the data of every response that issues tokens
type AuthPayload struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

type signupRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,pwd"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

// bind decodes the JSON body; failures become a ValidationError
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(apperr.Validation("Invalid input data.", validation.ToDetails(err)))
		return false
	}
	return true
}

// sendTokens sets the cookies and writes {token, user}
func (h *AuthHandler) sendTokens(c *gin.Context, status int, u *entity.User, pair application.TokenPair, message string) {
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.OK(c, status, AuthPayload{Token: pair.AccessToken, User: u}, message)
}

// Signup POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bind(c, &req) {
		return
	}
	u, pair, err := h.Svc.Signup(c.Request.Context(), application.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendTokens(c, http.StatusCreated, u, pair, "signup successful")
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	u, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendTokens(c, http.StatusOK, u, pair, "login successful")
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.OK[any](c, http.StatusOK, nil, "logged out")
}

func (h *AuthHandler) resetBaseURL(c *gin.Context) string {
	if h.ResetURL != "" {
		return h.ResetURL
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + ResetPasswordPath
}

// ForgotPassword POST /api/auth/forgotPassword
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bind(c, &req) {
		return
	}
	ctx := application.WithRequester(c.Request.Context(), application.Requester{
		IP:        c.GetString(middleware.RealIPKey),
		UserAgent: c.Request.UserAgent(),
	})
	if err := h.Svc.ForgotPassword(ctx, req.Email, h.resetBaseURL(c)); err != nil {
		_ = c.Error(err)
		return
	}
	response.OK[any](c, http.StatusOK, nil, "Token sent to email!")
}

// ResetPassword PATCH /api/auth/resetPassword/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bind(c, &req) {
		return
	}
	u, pair, err := h.Svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendTokens(c, http.StatusOK, u, pair, "password reset")
}

// UpdatePassword PATCH /api/auth/updatePassword (protected)
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if !bind(c, &req) {
		return
	}
	u, pair, err := h.Svc.UpdatePassword(c.Request.Context(), c.GetString(middleware.CtxUserID), req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendTokens(c, http.StatusOK, u, pair, "password updated")
}

// RefreshToken POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(helpers.RefreshCookie)
	if token == helpers.LoggedOutValue {
		token = ""
	}
	u, pair, err := h.Svc.Refresh(c.Request.Context(), token)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendTokens(c, http.StatusOK, u, pair, "token refreshed")
}
