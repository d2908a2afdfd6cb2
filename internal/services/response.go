package services

import (
	"errors"
	"fmt"

	"school_asset_server/internal/repository"
	"school_asset_server/internal/tenant"
	"school_asset_server/pkg/colors"
)

// ErrInvalidInput marks requests rejected before touching the backend.
var ErrInvalidInput = errors.New("invalid input")

// Code classifies a failed Response.
type Code string

const (
	CodeNotConfigured    Code = "NOT_CONFIGURED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeBackendError     Code = "BACKEND_ERROR"
)

// Response is the typed result of every public service operation.
type Response struct {
	Success bool        `json:"success"`
	Code    Code        `json:"code,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Count   int         `json:"count,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StepResult reports one best-effort follow-up write.
type StepResult struct {
	Step     string `json:"step"`
	Success  bool   `json:"success"`
	Affected int    `json:"affected,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SyncResult pairs the primary mutation with its follow-up steps. A failed
// step never changes Primary.
type SyncResult struct {
	Primary   Response     `json:"primary"`
	Secondary []StepResult `json:"secondary,omitempty"`
}

// Failed returns the steps that did not succeed.
func (r *SyncResult) Failed() []StepResult {
	var out []StepResult
	for _, s := range r.Secondary {
		if !s.Success {
			out = append(out, s)
		}
	}
	return out
}

// Step looks up a step by name.
func (r *SyncResult) Step(name string) (StepResult, bool) {
	for _, s := range r.Secondary {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}

func (r *SyncResult) record(step string, affected int, err error) {
	res := StepResult{Step: step, Success: err == nil, Affected: affected}
	if err != nil {
		res.Error = err.Error()
		colors.PrintWarning("Secondary sync %q failed: %v", step, err)
	}
	r.Secondary = append(r.Secondary, res)
}

// Step names reported in SyncResult.Secondary.
const (
	StepInstallLocation = "install_location"
	StepInstances       = "instances"
	StepZoneBlob        = "zone_blob"
	StepLocations       = "locations"
)

// CodeFor classifies err.
func CodeFor(err error) Code {
	switch {
	case errors.Is(err, repository.ErrNotConfigured):
		return CodeNotConfigured
	case errors.Is(err, repository.ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, repository.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, tenant.ErrInvalidConfig):
		return CodeInvalidInput
	}
	return CodeBackendError
}

func success(message string, data interface{}, count int) Response {
	return Response{Success: true, Message: message, Data: data, Count: count}
}

func failure(err error) Response {
	code := CodeFor(err)
	resp := Response{Success: false, Code: code, Error: err.Error()}
	switch code {
	case CodeNotConfigured:
		resp.Message = "No database is configured for this workspace"
	case CodePermissionDenied:
		resp.Message = "The backend refused access. Share the spreadsheet or project with the server's service account and check its credentials"
	case CodeNotFound:
		resp.Message = "Record not found"
	case CodeInvalidInput:
		resp.Message = err.Error()
	default:
		colors.PrintError("Backend error: %v", err)
		resp.Message = "The backend request failed, please retry later"
	}
	return resp
}

// notConfigured is the read result for a workspace with no backend: an empty
// payload the caller can render as an empty state.
func notConfigured(empty interface{}) Response {
	return Response{
		Success: false,
		Code:    CodeNotConfigured,
		Message: "No database is configured for this workspace",
		Data:    empty,
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
