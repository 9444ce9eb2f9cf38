package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSessionExpired is returned once a refresh failed and the stored
// tokens were cleared. The caller has to log in again.
var ErrSessionExpired = errors.New("session expired, please log in again")

type FieldError struct {
	Field   string
	Message string
	Type    string
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type detailItem struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

// parseError reads {"detail": "..."} or the validation list form
// {"detail": [{"loc": [...], "msg": "..."}]}.
func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}

	var msg string
	if err := json.Unmarshal(envelope.Detail, &msg); err == nil {
		apiErr.Message = msg
		return apiErr
	}

	var items []detailItem
	if err := json.Unmarshal(envelope.Detail, &items); err != nil {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		field := ""
		if n := len(item.Loc); n > 0 {
			field = fmt.Sprint(item.Loc[n-1])
		}
		apiErr.Fields = append(apiErr.Fields, FieldError{Field: field, Message: item.Msg, Type: item.Type})
		if field != "" {
			parts = append(parts, field+": "+item.Msg)
		} else {
			parts = append(parts, item.Msg)
		}
	}
	apiErr.Message = strings.Join(parts, "; ")
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
