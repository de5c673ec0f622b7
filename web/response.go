package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/nasermirzaei89/threadline/authentication"
	"github.com/nasermirzaei89/threadline/authorization"
	"github.com/nasermirzaei89/threadline/contents"
	"github.com/nasermirzaei89/threadline/discuss"
	"github.com/nasermirzaei89/threadline/profiles"
)

const maxBodyBytes = 1 << 20

const (
	CodeInvalidJSON          = "INVALID_JSON"
	CodeValidation           = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeConflict             = "CONFLICT"
	CodeCSRF                 = "CSRF_FAILED"
	CodeAlreadyAuthenticated = "ALREADY_AUTHENTICATED"
	CodeInternal             = "INTERNAL"
)

const internalErrorMessage = "Something went wrong!"

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, apiErr APIError) {
	apiErr.RequestID = middleware.GetReqID(r.Context())

	writeJSON(w, r, status, ErrorResponse{Error: apiErr})
}

func writeInternalError(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusInternalServerError, APIError{Code: CodeInternal, Message: internalErrorMessage})
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "authentication required"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	err := decoder.Decode(v)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, APIError{Code: CodeInvalidJSON, Message: "invalid JSON body"})

		return false
	}

	return true
}

// writeServiceError maps a service error to its HTTP answer. Unknown errors
// are logged and answered without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var (
		replyValidationErr *discuss.ValidationError
		invalidVoteErr     *discuss.InvalidVoteError
		postValidationErr  *contents.ValidationError
		invalidFlagErr     *contents.InvalidFlagError
		userValidationErr  *authentication.ValidationError
		replyNotFoundErr   *discuss.ReplyNotFoundError
		postNotFoundErr    *contents.PostNotFoundError
		accessDeniedErr    *authorization.AccessDeniedError
		alreadyExistsErr   *authentication.UserAlreadyExistsError
		profileNotFoundErr *profiles.ProfileNotFoundError
	)

	switch {
	case errors.As(err, &replyValidationErr):
		writeError(w, r, http.StatusBadRequest, APIError{
			Code:    CodeValidation,
			Message: replyValidationErr.Message,
			Field:   replyValidationErr.Field,
		})
	case errors.As(err, &invalidVoteErr):
		writeError(w, r, http.StatusBadRequest, APIError{
			Code:    CodeValidation,
			Message: invalidVoteErr.Error(),
			Field:   "userVote",
		})
	case errors.As(err, &postValidationErr):
		writeError(w, r, http.StatusBadRequest, APIError{
			Code:    CodeValidation,
			Message: postValidationErr.Message,
			Field:   postValidationErr.Field,
		})
	case errors.As(err, &invalidFlagErr):
		writeError(w, r, http.StatusBadRequest, APIError{
			Code:    CodeValidation,
			Message: invalidFlagErr.Error(),
			Field:   "flags",
		})
	case errors.As(err, &userValidationErr):
		writeError(w, r, http.StatusBadRequest, APIError{
			Code:    CodeValidation,
			Message: userValidationErr.Message,
			Field:   userValidationErr.Field,
		})
	case errors.As(err, &replyNotFoundErr), errors.As(err, &postNotFoundErr), errors.As(err, &profileNotFoundErr):
		writeError(w, r, http.StatusNotFound, APIError{Code: CodeNotFound, Message: "resource not found"})
	case errors.Is(err, authentication.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, APIError{
			Code:    CodeUnauthorized,
			Message: "invalid username or password",
		})
	case errors.Is(err, authentication.ErrIncorrectPassword):
		writeError(w, r, http.StatusUnauthorized, APIError{
			Code:    CodeUnauthorized,
			Message: "incorrect password",
			Field:   "oldPassword",
		})
	case errors.As(err, &accessDeniedErr):
		if authorization.IsAnonymousDenial(accessDeniedErr) {
			writeUnauthorized(w, r)

			return
		}

		writeError(w, r, http.StatusForbidden, APIError{Code: CodeForbidden, Message: "access denied"})
	case errors.As(err, &alreadyExistsErr):
		writeError(w, r, http.StatusConflict, APIError{Code: CodeConflict, Message: "username already exists"})
	default:
		slog.ErrorContext(r.Context(), msg, "error", err, "requestId", middleware.GetReqID(r.Context()))
		writeInternalError(w, r)
	}
}
