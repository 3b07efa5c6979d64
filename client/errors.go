package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for every failed gateway call. StatusCode is zero
// when no response was received at all.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("request failed: %v", e.Err)
	default:
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// Transport reports whether the call never produced a response.
func (e *APIError) Transport() bool { return e.StatusCode == 0 }

// errorBody covers the error shapes the API produces: {"error"}, {"msg"}
// from the token layer and {"message"}.
type errorBody struct {
	Error   string `json:"error"`
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

func decodeError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Error != "":
			apiErr.Message = eb.Error
		case eb.Msg != "":
			apiErr.Message = eb.Msg
		case eb.Message != "":
			apiErr.Message = eb.Message
		}
	}
	return apiErr
}

// Message returns the server-provided message carried by err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsConflict(err error) bool     { return StatusCode(err) == http.StatusConflict }
func IsUnauthorized(err error) bool { return StatusCode(err) == http.StatusUnauthorized }
