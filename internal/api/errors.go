package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/asset"
	"github.com/mohamed54683/pm-sub003/internal/auth"
	"github.com/mohamed54683/pm-sub003/internal/budget"
	"github.com/mohamed54683/pm-sub003/internal/change"
	"github.com/mohamed54683/pm-sub003/internal/org"
	"github.com/mohamed54683/pm-sub003/internal/project"
	"github.com/mohamed54683/pm-sub003/internal/risk"
	"github.com/mohamed54683/pm-sub003/internal/task"
	"github.com/mohamed54683/pm-sub003/internal/timesheet"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeRateLimited writes a 429 with a Retry-After header in whole seconds.
func writeRateLimited(w http.ResponseWriter, retry time.Duration) {
	secs := int(retry.Seconds() + 0.999) //nolint:mnd // round up
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "too many requests, retry later")
}

// Sentinels grouped by the status they map to. Validation errors carry
// their detail in the wrapped message, so it is returned to the client.
var (
	notFoundErrors = []error{
		org.ErrDepartmentNotFound, project.ErrProjectNotFound, project.ErrMemberNotFound,
		task.ErrTaskNotFound, task.ErrSprintNotFound, risk.ErrRiskNotFound,
		change.ErrChangeNotFound, asset.ErrAssetNotFound, budget.ErrItemNotFound,
		timesheet.ErrEntryNotFound, auth.ErrUserNotFound, auth.ErrTokenNotFound,
	}
	validationErrors = []error{
		org.ErrInvalidDepartment, project.ErrInvalidProject, task.ErrInvalidTask,
		task.ErrInvalidSprint, risk.ErrInvalidRisk, change.ErrInvalidChange,
		asset.ErrInvalidAsset, budget.ErrInvalidItem, timesheet.ErrInvalidEntry,
		timesheet.ErrDailyLimit, auth.ErrWeakPassword, auth.ErrInvalidRole,
	}
	conflictErrors = []error{
		org.ErrDepartmentCodeExists, org.ErrDepartmentInUse, project.ErrProjectCodeExists,
		project.ErrInvalidTransition, task.ErrSprintActiveExists, task.ErrSprintState,
		change.ErrInvalidTransition, change.ErrNotEditable, asset.ErrAssetTagExists,
		asset.ErrNotAvailable, asset.ErrNotAssigned, budget.ErrChangeItem,
		timesheet.ErrNotEditable, timesheet.ErrInvalidState, auth.ErrUsernameExists,
	}
	forbiddenErrors = []error{
		change.ErrSelfApproval, timesheet.ErrNotOwner, timesheet.ErrSelfApproval,
		auth.ErrForbidden, auth.ErrSelfModification,
	}
)

func matchAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeDomainError maps repository and validation errors to responses.
// Anything unrecognised is logged and reported as a 500 without detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case matchAny(err, notFoundErrors):
		writeNotFound(w, err.Error())
	case matchAny(err, validationErrors):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case matchAny(err, conflictErrors):
		writeConflict(w, err.Error())
	case matchAny(err, forbiddenErrors):
		writeForbidden(w, err.Error())
	default:
		s.logger.Error(op+" failed",
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, op+" failed")
	}
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields
// and trailing data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
