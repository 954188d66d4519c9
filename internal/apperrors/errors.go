// Package apperrors provides a small set of structured error helpers used
// across the orchestration core so that wrapped errors read consistently
// regardless of which component produced them.
package apperrors

import "fmt"

// OperationError describes a failed operation with optional component and
// resource context, plus the underlying cause.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	msg := "failed to " + e.Operation
	if e.Component != "" {
		msg += ", component: " + e.Component
	}
	if e.Resource != "" {
		msg += ", resource: " + e.Resource
	}
	if e.Cause != nil {
		msg += ", cause: " + e.Cause.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds a plain "failed to <action>[: cause]" error.
func FailedTo(action string, cause error) error {
	if cause == nil {
		return fmt.Errorf("failed to %s", action)
	}
	return fmt.Errorf("failed to %s: %w", action, cause)
}

// FailedToWithDetails builds an *OperationError with component/resource
// context attached, for callers that want structured fields as well as a
// readable message.
func FailedToWithDetails(operation, component, resource string, cause error) error {
	return &OperationError{
		Operation: operation,
		Component: component,
		Resource:  resource,
		Cause:     cause,
	}
}

// Wrapf wraps err with an additional formatted message. Returns nil if err
// is nil, so call sites can Wrapf unconditionally.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// AdapterError wraps a failure raised while invoking an adapter.
func AdapterError(adapterID string, cause error) error {
	return FailedToWithDetails("invoke adapter", "adapter", adapterID, cause)
}

// CheckpointError wraps a failure raised while reading or writing a
// checkpoint.
func CheckpointError(operation, workflowID string, cause error) error {
	return FailedToWithDetails(operation, "checkpoint", workflowID, cause)
}

// ValidationError reports a rejected value for a named field.
func ValidationError(field, reason string) error {
	return fmt.Errorf("validation failed for field %s: %s", field, reason)
}

// ConfigurationError reports a rejected configuration key.
func ConfigurationError(key, reason string) error {
	return fmt.Errorf("configuration error for %s: %s", key, reason)
}
