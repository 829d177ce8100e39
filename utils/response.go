package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExposeErrorDetail adds the internal cause of 5xx errors to response bodies.
// It is switched on outside production only.
var ExposeErrorDetail = false

// StandardResponse represents the standard API response structure
type StandardResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a standardized success response
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// Created sends a standardized created response (201)
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// SuccessWithPagination sends a paginated success response
func SuccessWithPagination(c *gin.Context, message string, data interface{}, p *Pagination) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": message,
		"data":    data,
		"pagination": gin.H{
			"total":      p.Total,
			"page":       p.Page,
			"perPage":    p.Limit,
			"totalPages": p.LastPage,
		},
	})
}

// Error sends an error response shaped {error}
func Error(c *gin.Context, statusCode int, message string, details interface{}) {
	body := gin.H{"error": message}
	if details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(statusCode, body)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c *gin.Context, message string, details interface{}) {
	Error(c, http.StatusBadRequest, message, details)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}

// InternalServerError sends a 500 Internal Server Error response
func InternalServerError(c *gin.Context, message string, err error) {
	var details interface{}
	if ExposeErrorDetail && err != nil {
		details = err.Error()
	}
	Error(c, http.StatusInternalServerError, message, details)
}

// Message sends a response shaped {message}, used by order and coupon endpoints
func Message(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{"message": message})
}

// RespondError maps err to an {error} response and logs server-side failures
func RespondError(c *gin.Context, err error) {
	status, message, detail := describeError(c, err)
	body := gin.H{"error": message}
	if detail != "" {
		body["detail"] = detail
	}
	c.AbortWithStatusJSON(status, body)
}

// RespondMessageError maps err to a {message} response and logs server-side failures
func RespondMessageError(c *gin.Context, err error) {
	status, message, detail := describeError(c, err)
	body := gin.H{"message": message}
	if detail != "" {
		body["detail"] = detail
	}
	c.AbortWithStatusJSON(status, body)
}

func describeError(c *gin.Context, err error) (int, string, string) {
	appErr := GetAppError(err)
	if appErr == nil {
		appErr = InternalError("Internal server error", err)
	}

	if appErr.Code < http.StatusInternalServerError {
		return appErr.Code, appErr.Message, ""
	}

	LogError("%s %s failed (request %s): %v", c.Request.Method, c.FullPath(), c.GetString("RequestID"), err)
	detail := ""
	if ExposeErrorDetail && appErr.Err != nil {
		detail = appErr.Err.Error()
	}
	return appErr.Code, appErr.Message, detail
}
