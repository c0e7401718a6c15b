package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the envelope every catalog endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// ErrorInfo carries the machine-readable code of a failed request.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID  string      `json:"requestId"`
	Timestamp  string      `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes one page of a product, template or listing query.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Success writes data inside the envelope.
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta:    newMeta(c, nil),
	})
}

// SuccessWithPagination writes one page of a list. A non-positive page or
// limit is reported as the first page of 20.
func SuccessWithPagination(c *gin.Context, code int, message string, data interface{}, page, limit, totalItems int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta: newMeta(c, &Pagination{
			Page:       page,
			Limit:      limit,
			TotalItems: totalItems,
			TotalPages: (totalItems + limit - 1) / limit,
		}),
	})
}

// Error writes an error response with an explicit status and code.
func Error(c *gin.Context, code int, errCode, message string) {
	c.JSON(code, Response{
		Success: false,
		Code:    code,
		Message: message,
		Error:   &ErrorInfo{Code: errCode, Message: message},
		Meta:    newMeta(c, nil),
	})
}

// HTTPStatus maps an error kind to its status code. Partial writes and
// errors of no known kind are server errors.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrScaleLimitExceeded):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// ErrorFrom writes err using its kind and code. Errors that are not an
// *AppError, or whose kind is unknown, expose only fallback and INTERNAL_ERROR.
// It returns the status and code written.
func ErrorFrom(c *gin.Context, err error, fallback string) (int, string) {
	status := HTTPStatus(err)
	code, message := "INTERNAL_ERROR", fallback

	var appErr *AppError
	if errors.As(err, &appErr) && (status != http.StatusInternalServerError || errors.Is(err, ErrPartialWrite)) {
		message = appErr.Message
		code = ErrorCode(err, code)
	}
	Error(c, status, code, message)
	return status, code
}

func newMeta(c *gin.Context, p *Pagination) Meta {
	return Meta{
		RequestID:  getRequestID(c),
		Timestamp:  time.Now().Format(time.RFC3339),
		Pagination: p,
	}
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}
