package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the API. Detail holds the message
// from a {"detail": ...} body when one was present.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string

	// Detail is the string detail, or the first "msg" of a detail list.
	Detail string

	// DetailList is true when the body carried a list of validation errors.
	DetailList bool
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	return fmt.Sprintf("api error (%d) on %s %s: %s", e.StatusCode, e.Method, e.Path, msg)
}

// AuthError indicates that authentication has failed or the token expired.
// It is returned for every 401 response.
type AuthError struct {
	*APIError
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.APIError.Error()
}

// Unwrap exposes the underlying APIError to errors.As.
func (e *AuthError) Unwrap() error {
	return e.APIError
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// validationItem is one entry of a FastAPI-style validation error list.
type validationItem struct {
	Msg string `json:"msg"`
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Body:       string(body),
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Detail) == 0 {
		return e
	}

	var s string
	if json.Unmarshal(envelope.Detail, &s) == nil {
		e.Detail = s
		return e
	}

	var items []validationItem
	if json.Unmarshal(envelope.Detail, &items) == nil {
		e.DetailList = true
		if len(items) > 0 {
			e.Detail = items[0].Msg
		}
	}
	return e
}

// DetailMessage turns an error into a short message for the user.
// A string detail is returned as-is. A detail list yields its first message,
// or listFallback if that is empty. Anything else yields fallback.
func DetailMessage(err error, listFallback, fallback string) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}
	if apiErr.DetailList {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return listFallback
	}
	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
