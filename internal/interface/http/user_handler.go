package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/internal/application"
	"github.com/oksasatya/auth-api/internal/interface/middleware"
	"github.com/oksasatya/auth-api/pkg/apperr"
	"github.com/oksasatya/auth-api/pkg/response"
)

const maxPhotoBytes = 5 << 20

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// GetMe GET /api/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	u, err := h.Svc.GetMe(c.Request.Context(), c.GetString(middleware.CtxUserID))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, u, "profile")
}

// UploadPhoto PATCH /api/users/me/photo (multipart field "photo")
func (h *UserHandler) UploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBytes)
	fh, err := c.FormFile("photo")
	if err != nil {
		_ = c.Error(apperr.Validation("Please upload a photo.", map[string]string{"photo": "is required"}))
		return
	}
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(apperr.Internal(err))
		return
	}
	defer func() { _ = f.Close() }()

	u, err := h.Svc.UploadPhoto(c.Request.Context(), c.GetString(middleware.CtxUserID), f, fh.Header.Get("Content-Type"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, u, "photo updated")
}

// Search GET /api/users/search?q=&size= (admin)
func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	users, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		_ = c.Error(err)
		return
	}
	resp := response.Success(c, http.StatusOK, users, "search results", gin.H{"count": len(users)})
	c.JSON(resp.Status, resp)
}
