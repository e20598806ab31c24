package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	RequestID  string `json:"-"`
	Body       []byte `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%d %s: %s (%s)", e.HTTPStatus, e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%d %s: %s", e.HTTPStatus, e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

type envelope struct {
	Error *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Field   string          `json:"field"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// FromResponse builds an APIError from a response status and body. The server
// envelope {"error":{...}} is preferred; {"detail"} and {"message"} bodies are
// accepted as fallbacks.
func FromResponse(status int, body []byte, requestID string) *APIError {
	apiErr := &APIError{
		Code:       defaultCode(status),
		Message:    strings.ToLower(http.StatusText(status)),
		HTTPStatus: status,
		RequestID:  requestID,
		Body:       body,
	}
	if apiErr.Message == "" {
		apiErr.Message = "unexpected response"
	}

	var parsed envelope
	if len(body) == 0 || json.Unmarshal(body, &parsed) != nil {
		return apiErr
	}

	switch {
	case parsed.Error != nil:
		if parsed.Error.Code != "" {
			apiErr.Code = parsed.Error.Code
		}
		if parsed.Error.Message != "" {
			apiErr.Message = parsed.Error.Message
		}
		apiErr.Field = parsed.Error.Field
		apiErr.Details = detailsString(parsed.Error.Details)
	case parsed.Detail != "":
		apiErr.Message = parsed.Detail
		if parsed.Code != "" {
			apiErr.Code = parsed.Code
		}
	case parsed.Message != "":
		apiErr.Message = parsed.Message
	}

	return apiErr
}

// detailsString flattens validation details, which arrive either as a string or
// as a field -> messages object.
func detailsString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asFields map[string][]string
	if err := json.Unmarshal(raw, &asFields); err == nil {
		parts := make([]string, 0, len(asFields))
		for field, messages := range asFields {
			parts = append(parts, field+": "+strings.Join(messages, " "))
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	}

	return string(raw)
}

func defaultCode(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case status == http.StatusForbidden:
		return "FORBIDDEN"
	case status == http.StatusNotFound:
		return "NOT_FOUND"
	case status == http.StatusTooManyRequests:
		return "RATE_LIMIT"
	case status >= 500:
		return "SERVER_ERROR"
	case status >= 400:
		return "BAD_REQUEST"
	default:
		return "UNEXPECTED_STATUS"
	}
}

func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus >= 400 && apiErr.HTTPStatus < 500
}

func IsServerError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus >= 500
}

func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusUnauthorized
}
