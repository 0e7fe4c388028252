package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/pkg/apperr"
	"github.com/oksasatya/auth-api/pkg/response"
)

const MsgSomethingWrong = "Something went very wrong!"

// ErrorHandler renders the last error attached with c.Error. Operational
// errors keep their status and message; anything else is logged and reported
// as a generic 500. Development responses also carry the cause.
func ErrorHandler(logger *logrus.Logger, env string) gin.HandlerFunc {
	dev := env == "development"
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		e := apperr.From(last.Err)

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     e.Status,
			"kind":       e.Kind,
		})

		body := response.ErrorBody{Kind: string(e.Kind), Details: e.Details}
		msg := e.Message
		if e.Operational() {
			entry.WithError(e.Err).Debug(e.Message)
		} else {
			entry.WithError(last.Err).Error("unhandled error")
			msg = MsgSomethingWrong
		}
		if dev && e.Err != nil {
			body.Debug = e.Err.Error()
		}
		response.Abort(c, e.Status, msg, body)
	}
}

// NotFound answers unknown routes
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(apperr.New(apperr.KindNotFound, fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path)))
		c.Abort()
	}
}

// Recovery turns panics into InternalError so they flow through ErrorHandler
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		_ = c.Error(apperr.Internal(fmt.Errorf("panic: %v", rec)))
		c.Abort()
	})
}
