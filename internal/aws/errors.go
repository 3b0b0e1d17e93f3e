package aws

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	pkgerrors "github.com/pkg/errors"
)

// APIError records which provider call failed. It wraps the SDK error
// unchanged so callers can still match on it.
type APIError struct {
	Service   string // "ECS", "S3"
	Operation string // SDK operation name
	Resource  string // cluster name or bucket/prefix
	Err       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", e.Service, e.Operation, e.Resource, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// wrap tags err with the failing call and attaches a stack trace.
func wrap(service, operation, resource string, err error) error {
	return pkgerrors.WithStack(&APIError{
		Service:   service,
		Operation: operation,
		Resource:  resource,
		Err:       err,
	})
}

// Explain renders a one-line description of a provider failure, e.g.
//
//	ECS ListContainerInstances (prod) failed: ClusterNotFoundException: Cluster not found.
//
// Errors that did not come from this package are returned as-is.
func Explain(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	prefix := fmt.Sprintf("%s %s (%s) failed", apiErr.Service, apiErr.Operation, apiErr.Resource)

	var se smithy.APIError
	if errors.As(apiErr.Err, &se) {
		msg := se.ErrorMessage()
		if msg == "" {
			return fmt.Sprintf("%s: %s", prefix, se.ErrorCode())
		}
		return fmt.Sprintf("%s: %s: %s", prefix, se.ErrorCode(), msg)
	}

	return fmt.Sprintf("%s: %v", prefix, apiErr.Err)
}

// ErrorCode returns the provider error code carried by err, or "" when err
// is not a provider API error.
func ErrorCode(err error) string {
	var se smithy.APIError
	if errors.As(err, &se) {
		return se.ErrorCode()
	}
	return ""
}
