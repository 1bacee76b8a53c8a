package response

import (
	"encoding/json"
	"net/http"

	"postline-server/internal/domain"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorBody is the shape of every failed response. Message holds a stable code.
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindAuthRequired:         http.StatusBadRequest,
	domain.KindInvalidCredential:    http.StatusForbidden,
	domain.KindExpiredCredential:    http.StatusForbidden,
	domain.KindPrincipalNotFound:    http.StatusBadRequest,
	domain.KindNotOwner:             http.StatusBadRequest,
	domain.KindResourceNotFound:     http.StatusNotFound,
	domain.KindValidationFailed:     http.StatusBadRequest,
	domain.KindConflict:             http.StatusBadRequest,
	domain.KindWrongPassword:        http.StatusBadRequest,
	domain.KindUpstreamMediaFailure: http.StatusInternalServerError,
	domain.KindInternalFailure:      http.StatusInternalServerError,
}

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: statusCode < 400,
		Data:    data,
	})
}

func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

func Error(w http.ResponseWriter, statusCode int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorBody{
		Message: code,
		Error:   detail,
	})
}

func BadRequest(w http.ResponseWriter, code string) {
	Error(w, http.StatusBadRequest, code, "")
}

func TooManyRequests(w http.ResponseWriter) {
	Error(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "")
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError writes err using its kind and code. Internal failures never
// expose the wrapped error text.
func FromError(w http.ResponseWriter, err error) {
	de := domain.AsError(err)
	detail := ""
	if de.Kind == domain.KindValidationFailed && de.Err != nil {
		detail = de.Err.Error()
	}
	Error(w, StatusFor(de.Kind), de.Code, detail)
}
