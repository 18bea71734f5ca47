package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/admin"
)

const internalErrorMessage = "Internal server error"

// envelope — общий формат JSON-ответа API.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondFailure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// respondError переводит доменную ошибку в HTTP-статус.
func (s *Server) respondError(c *gin.Context, err error) {
	status, message := classify(err)
	entry := s.logger.WithError(err).WithFields(log.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	respondFailure(c, status, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrPaymentSignatureInvalid),
		errors.Is(err, admin.ErrUnsupportedFormat):
		return http.StatusBadRequest, err.Error()
	case domain.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrPaymentNotConfigured):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, domain.ErrPaymentGateway):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

// validationMessage собирает тексты всех нарушений через запятую.
func validationMessage(err error) string {
	var messages []string
	var walk func(error)
	walk = func(e error) {
		if multi, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range multi.Unwrap() {
				walk(inner)
			}
			return
		}
		if e != domain.ErrInvalidInput {
			messages = append(messages, e.Error())
		}
	}
	walk(err)

	if len(messages) == 0 {
		return err.Error()
	}
	return strings.Join(messages, ", ")
}
