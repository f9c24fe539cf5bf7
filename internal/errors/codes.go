package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents internal error codes for simulation operations
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Input errors
	ErrCodeInvalidArgument ErrorCode = 1000
	ErrCodeInvalidMutation ErrorCode = 1001
	ErrCodeInvalidConfig   ErrorCode = 1002

	// Topology errors: the simulation is misconfigured and must stop
	ErrCodeInsufficientNodes ErrorCode = 2000
	ErrCodeKeyOutOfRange     ErrorCode = 2001
	ErrCodeDuplicateTablet   ErrorCode = 2002
	ErrCodeCoverageGap       ErrorCode = 2003

	// Internal errors
	ErrCodeInternal ErrorCode = 3000
)

// SimError represents a structured error with code and context
type SimError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *SimError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *SimError) Unwrap() error {
	return e.Cause
}

// NewSimError creates a new SimError
func NewSimError(code ErrorCode, message string, cause error) *SimError {
	return &SimError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *SimError) WithDetail(key string, value interface{}) *SimError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common errors

func InvalidArgument(message string, cause error) *SimError {
	return NewSimError(ErrCodeInvalidArgument, message, cause)
}

func InvalidConfig(field, reason string) *SimError {
	return NewSimError(ErrCodeInvalidConfig, fmt.Sprintf("invalid configuration: %s %s", field, reason), nil).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func InvalidMutation(partitionKey, clusteringKey int64, reason string) *SimError {
	return NewSimError(ErrCodeInvalidMutation,
		fmt.Sprintf("invalid mutation (%d, %d): %s", partitionKey, clusteringKey, reason), nil).
		WithDetail("partition_key", partitionKey).
		WithDetail("clustering_key", clusteringKey).
		WithDetail("reason", reason)
}

func InsufficientNodes(nodes, replicationFactor int) *SimError {
	return NewSimError(ErrCodeInsufficientNodes,
		fmt.Sprintf("not enough nodes to add tablets: %d nodes, replication factor %d", nodes, replicationFactor), nil).
		WithDetail("nodes", nodes).
		WithDetail("replication_factor", replicationFactor)
}

func KeyOutOfRange(key int64, maxUpperBound int64) *SimError {
	return NewSimError(ErrCodeKeyOutOfRange,
		fmt.Sprintf("cannot find tablet for key %d (largest upper bound %d)", key, maxUpperBound), nil).
		WithDetail("key", key).
		WithDetail("max_upper_bound", maxUpperBound)
}

func DuplicateTablet(upperBound int64) *SimError {
	return NewSimError(ErrCodeDuplicateTablet,
		fmt.Sprintf("tablet with upper bound %d already exists", upperBound), nil).
		WithDetail("upper_bound", upperBound)
}

func CoverageGap(maxKey, maxUpperBound int64) *SimError {
	return NewSimError(ErrCodeCoverageGap,
		fmt.Sprintf("tablets cover keys up to %d, key space ends at %d", maxUpperBound, maxKey), nil).
		WithDetail("max_key", maxKey).
		WithDetail("max_upper_bound", maxUpperBound)
}

func InternalError(message string, cause error) *SimError {
	return NewSimError(ErrCodeInternal, message, cause)
}

// IsSimError checks if an error is, or wraps, a SimError
func IsSimError(err error) bool {
	var se *SimError
	return stderrors.As(err, &se)
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var se *SimError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsFatal reports whether err means the simulation is misconfigured
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeInsufficientNodes, ErrCodeKeyOutOfRange, ErrCodeDuplicateTablet,
		ErrCodeCoverageGap, ErrCodeInvalidConfig:
		return true
	default:
		return false
	}
}
