package models

// ErrorKind classifies a failed request.
type ErrorKind string

const (
	KindBadRequest   ErrorKind = "bad_request"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindUnavailable  ErrorKind = "unavailable"
	KindInternal     ErrorKind = "internal"
)

// Response is the envelope every route answers with.
type Response struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   ErrorKind `json:"error,omitempty"`
	Data    any       `json:"data,omitempty"`
}

func NewSuccessResponse(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}

func NewErrorResponse(kind ErrorKind, message string) Response {
	return Response{Success: false, Message: message, Error: kind}
}
