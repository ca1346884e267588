// Package render writes JSON responses and API errors.
package render

import (
	"net/http"

	"github.com/bytedance/sonic"
)

// HTTPError is an error that maps to a status code and a client-facing detail.
type HTTPError struct {
	Status int
	Detail string
	Err    error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Errorf creates an HTTPError.
func Errorf(status int, detail string) *HTTPError {
	return &HTTPError{Status: status, Detail: detail}
}

// Wrap creates an HTTPError that keeps the cause for logging.
func Wrap(status int, detail string, err error) *HTTPError {
	return &HTTPError{Status: status, Detail: detail, Err: err}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return sonic.ConfigStd.NewEncoder(w).Encode(v)
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, v any) error {
	return JSON(w, http.StatusOK, v)
}

// Error writes an error body.
func Error(w http.ResponseWriter, status int, detail string) error {
	return JSON(w, status, ErrorBody{Detail: detail})
}
