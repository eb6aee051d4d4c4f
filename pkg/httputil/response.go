package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorTag is the machine readable error carried in the envelope
type ErrorTag string

const (
	TagNotFound        ErrorTag = "not_found"
	TagConflict        ErrorTag = "conflict"
	TagForbidden       ErrorTag = "forbidden"
	TagNoSession       ErrorTag = "no_session"
	TagBadFormat       ErrorTag = "bad_format"
	TagTooManyRequests ErrorTag = "too_many_requests"
	TagInternal        ErrorTag = "internal"
)

// Status returns the HTTP status code for the tag
func (t ErrorTag) Status() int {
	switch t {
	case TagNotFound:
		return http.StatusNotFound
	case TagConflict:
		return http.StatusConflict
	case TagForbidden:
		return http.StatusForbidden
	case TagNoSession:
		return http.StatusUnauthorized
	case TagBadFormat:
		return http.StatusBadRequest
	case TagTooManyRequests:
		return http.StatusTooManyRequests
	case "":
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Envelope is the uniform body of every API response
type Envelope struct {
	Code    int         `json:"code"`
	Error   ErrorTag    `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteEnvelope writes env using env.Code as the HTTP status
func WriteEnvelope(w http.ResponseWriter, env Envelope) error {
	if env.Code == 0 {
		env.Code = env.Error.Status()
	}
	return WriteJSON(w, env.Code, env)
}

// WriteData writes a successful envelope
func WriteData(w http.ResponseWriter, status int, data interface{}) error {
	return WriteEnvelope(w, Envelope{Code: status, Data: data})
}

// WriteError writes a failed envelope. data may carry partial results.
func WriteError(w http.ResponseWriter, tag ErrorTag, message string, data interface{}) error {
	return WriteEnvelope(w, Envelope{Code: tag.Status(), Error: tag, Message: message, Data: data})
}
