package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
	Errors     []string    `json:"errors,omitempty"`
}

func respondOK(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, APIResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

func respondError(c *gin.Context, status int, route, message string, details ...string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	if len(details) == 0 {
		details = []string{message}
	}
	c.AbortWithStatusJSON(status, APIResponse{
		StatusCode: status,
		Data:       nil,
		Message:    message,
		Success:    false,
		Errors:     details,
	})
}

func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		respondError(c, http.StatusBadRequest, route, "validation failed", details...)
		return
	}

	respondError(c, http.StatusBadRequest, route, "invalid body", err.Error())
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		respondError(c, http.StatusInternalServerError, route, "internal server error")
	}
}
