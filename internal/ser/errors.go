package ser

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes protocol errors.
type ErrorCode string

const (
	// ErrCodeDuplicateService indicates a configuration error: two services
	// share a name, or a service has no usable name.
	ErrCodeDuplicateService ErrorCode = "DUPLICATE_SERVICE"

	// ErrCodeBadRequest indicates a malformed SR command.
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"

	// ErrCodeServiceNotFound indicates a well-formed SR command naming an
	// unregistered service.
	ErrCodeServiceNotFound ErrorCode = "SERVICE_NOT_FOUND"
)

// ProtocolError is the only error type the Dispatcher lets escape.
type ProtocolError struct {
	Code    ErrorCode
	Message string

	// Service is the service name involved, if any.
	Service string

	// Request is the raw SR command, for BAD_REQUEST.
	Request string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newDuplicateServiceError(name string) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeDuplicateService,
		Message: fmt.Sprintf("service with name %q is already registered", name),
		Service: name,
	}
}

func newInvalidServiceError(reason string) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeDuplicateService,
		Message: reason,
	}
}

func newBadRequestError(request, reason string) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeBadRequest,
		Message: fmt.Sprintf("SR command %q ill formed: %s", request, reason),
		Request: request,
	}
}

func newServiceNotFoundError(name string) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeServiceNotFound,
		Message: fmt.Sprintf("service with name %q not found", name),
		Service: name,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsConfigurationError reports whether err came from Dispatcher construction.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeDuplicateService)
}

// IsFormatError reports whether err is a malformed SR command.
func IsFormatError(err error) bool {
	return hasCode(err, ErrCodeBadRequest)
}

// IsServiceNotFound reports whether err names an unregistered service.
func IsServiceNotFound(err error) bool {
	return hasCode(err, ErrCodeServiceNotFound)
}
