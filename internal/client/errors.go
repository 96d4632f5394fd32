package client

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// NetworkError is returned when no response was received from the backend.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is returned for non-2xx responses that carry no structured message.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

// ValidationError is returned for 4xx responses with a server supplied message.
type ValidationError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError is returned when the addressed product does not exist.
type NotFoundError struct {
	Op   string
	UUID string
}

func (e *NotFoundError) Error() string {
	if e.UUID == "" {
		return fmt.Sprintf("%s: not found", e.Op)
	}
	return fmt.Sprintf("%s: product %s not found", e.Op, e.UUID)
}

type errorBody struct {
	Message string `json:"message"`
}

// classify maps a non-2xx response to the error taxonomy.
func classify(op, uuid string, status int, body []byte) error {
	if status == http.StatusNotFound {
		return &NotFoundError{Op: op, UUID: uuid}
	}
	if status >= 400 && status < 500 {
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
			return &ValidationError{Op: op, StatusCode: status, Message: eb.Message}
		}
	}
	return &HTTPError{Op: op, StatusCode: status, Body: string(body)}
}
