package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"nexusai/internal/apperr"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindDuplicateKey:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindProvider:
		return http.StatusBadGateway
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error", "kind"}. Internal errors are logged
// and their detail is not sent to the client.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := apperr.MessageOf(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("route", c.FullPath()).Error("request failed")
		msg = "Internal server error"
	}
	kind := string(apperr.KindOf(err))
	if kind == "" {
		kind = string(apperr.KindStorage)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "kind": kind})
}

// bindingError turns a gin binding failure into a validation error naming
// the offending fields.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s is %s", lowerFirst(fe.Field()), fe.Tag()))
		}
		return apperr.Validation(strings.Join(parts, "; "))
	}
	return apperr.Validationf("Invalid request body: %v", err)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
