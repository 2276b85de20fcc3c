package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/sportsfest/registration/pkg/errors"
)

// Response is the envelope every endpoint returns.
// Code is a business code (0 on success), not the HTTP status.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a 200 envelope with Code=0.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error writes the AppError carried by err. Business errors keep HTTP 200
// like the rest of the API; internal errors map to 500 so that payment
// processors retry webhook deliveries.
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)

	if appErr.Err != nil {
		if logger, ok := c.Get("logger"); ok {
			if l, ok := logger.(*zap.Logger); ok {
				l.Error("request failed",
					zap.Int("code", appErr.Code),
					zap.String("message", appErr.Message),
					zap.Error(appErr.Err),
				)
			}
		}
	}

	c.JSON(httpStatus(appErr.Code), Response{
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

// ErrorWithCode writes a custom code and message.
func ErrorWithCode(c *gin.Context, code int, message string) {
	c.JSON(httpStatus(code), Response{
		Code:    code,
		Message: message,
	})
}

func httpStatus(code int) int {
	switch {
	case code >= 50000:
		return http.StatusInternalServerError
	case code == apperrors.ErrCodeUnauthorized,
		code == apperrors.ErrCodeInvalidToken,
		code == apperrors.ErrCodeTokenExpired,
		code == apperrors.ErrCodeInvalidSignature:
		return http.StatusUnauthorized
	default:
		return http.StatusOK
	}
}
