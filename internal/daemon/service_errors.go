package daemon

import "fmt"

// ServiceErrorKind classifies a service failure for the HTTP layer.
// writeServiceError translates kinds to status codes; the services
// themselves never touch HTTP.
type ServiceErrorKind string

const (
	// ServiceErrorInvalid covers rejected input: bad repo URLs, empty
	// follow-up messages, unapproved execution attempts.
	ServiceErrorInvalid ServiceErrorKind = "invalid"
	// ServiceErrorNotFound covers unknown repos, issues, and sessions,
	// including sessions the agent has since forgotten.
	ServiceErrorNotFound ServiceErrorKind = "not_found"
	// ServiceErrorUnavailable covers upstream failures from GitHub or
	// the agent API.
	ServiceErrorUnavailable ServiceErrorKind = "unavailable"
	// ServiceErrorConflict covers the one-live-session-per-issue rule.
	ServiceErrorConflict ServiceErrorKind = "conflict"
)

// ServiceError is the error type every service method returns on
// failure. Message is user-facing and must never carry credentials;
// Err holds the wrapped cause for logs.
type ServiceError struct {
	Kind    ServiceErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *ServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func invalidError(message string, err error) *ServiceError {
	return &ServiceError{Kind: ServiceErrorInvalid, Message: message, Err: err}
}

func notFoundError(message string, err error) *ServiceError {
	return &ServiceError{Kind: ServiceErrorNotFound, Message: message, Err: err}
}

func unavailableError(message string, err error) *ServiceError {
	return &ServiceError{Kind: ServiceErrorUnavailable, Message: message, Err: err}
}

func conflictError(message string, err error) *ServiceError {
	return &ServiceError{Kind: ServiceErrorConflict, Message: message, Err: err}
}
