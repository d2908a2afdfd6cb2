package controllers

import (
	"net/http"

	"school_asset_server/internal/services"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Code    string            `json:"code,omitempty"`
}

// SuccessResponse is the body of every successful request. Secondary lists
// the follow-up writes of a mutation and whether each one landed.
type SuccessResponse struct {
	Success   bool                  `json:"success"`
	Message   string                `json:"message"`
	Data      interface{}           `json:"data,omitempty"`
	Count     int                   `json:"count,omitempty"`
	Secondary []services.StepResult `json:"secondary,omitempty"`
}

// baseController carries the response helpers every controller shares
type baseController struct{}

func (bc *baseController) createErrorResponse(c *gin.Context, statusCode int, errorCode string, message string, details map[string]string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
		Code:    errorCode,
	})
}

func (bc *baseController) createSuccessResponse(c *gin.Context, statusCode int, message string, data interface{}, count int) {
	response := SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
	if count > 0 {
		response.Count = count
	}
	c.JSON(statusCode, response)
}

// badRequest reports a body or parameter that could not be parsed
func (bc *baseController) badRequest(c *gin.Context, message string, err error) {
	details := map[string]string{}
	if err != nil {
		details["validation_error"] = err.Error()
	}
	bc.createErrorResponse(c, http.StatusBadRequest, string(services.CodeInvalidInput), message, details)
}

// respondRead writes a read result. An unconfigured workspace is not an
// error for reads: it gets a 200 with the empty payload so the client can
// show its setup screen.
func (bc *baseController) respondRead(c *gin.Context, resp services.Response) {
	if resp.Code == services.CodeNotConfigured {
		c.JSON(http.StatusOK, resp)
		return
	}
	bc.respond(c, http.StatusOK, resp)
}

// respond writes a mutation or lookup result with status on success
func (bc *baseController) respond(c *gin.Context, status int, resp services.Response) {
	if resp.Success {
		bc.createSuccessResponse(c, status, resp.Message, resp.Data, resp.Count)
		return
	}
	bc.fail(c, resp)
}

// respondSync writes a SyncResult. Failed follow-up steps never change the
// status; they are listed in the body.
func (bc *baseController) respondSync(c *gin.Context, status int, result services.SyncResult) {
	if !result.Primary.Success {
		bc.fail(c, result.Primary)
		return
	}
	response := SuccessResponse{
		Success:   true,
		Message:   result.Primary.Message,
		Data:      result.Primary.Data,
		Count:     result.Primary.Count,
		Secondary: result.Secondary,
	}
	c.JSON(status, response)
}

func (bc *baseController) fail(c *gin.Context, resp services.Response) {
	details := map[string]string{}
	if resp.Error != "" && resp.Code != services.CodeBackendError {
		details["reason"] = resp.Error
	}
	bc.createErrorResponse(c, StatusFor(resp.Code), string(resp.Code), resp.Message, details)
}

// StatusFor maps a service result code to an HTTP status
func StatusFor(code services.Code) int {
	switch code {
	case services.CodeNotConfigured:
		return http.StatusConflict
	case services.CodePermissionDenied:
		return http.StatusForbidden
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeInvalidInput:
		return http.StatusBadRequest
	case services.CodeBackendError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
