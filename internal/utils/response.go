package utils

import "github.com/gin-gonic/gin"

// Pagination mirrors the listing metadata sent next to a page of items.
type Pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

// SuccessResponse is the envelope of every 2xx JSON body.
type SuccessResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ErrorResponse is the envelope of every 4xx/5xx JSON body.
type ErrorResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	IsFormError bool   `json:"isFormError,omitempty"`
}

func Success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, SuccessResponse{Success: true, Message: message, Data: data})
}

func SuccessPage(c *gin.Context, message string, data any, p Pagination) {
	c.JSON(200, SuccessResponse{Success: true, Message: message, Data: data, Pagination: &p})
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Success: false, Error: message})
}

// FormError is a 400 caused by user input the client should show next to the form.
func FormError(c *gin.Context, message string) {
	c.JSON(400, ErrorResponse{Success: false, Error: message, IsFormError: true})
}
