// Package baoerr provides the error taxonomy shared by every component
// of this module. Every fallible constructor across bao3 returns an
// error built here rather than a bare errors.New/fmt.Errorf, following
// the same convention the teacher's pkg/digest and pkg/grpc packages
// use for domain errors even outside of a running gRPC server: errors
// carry a google.golang.org/grpc/codes.Code so that a caller serving
// this library over gRPC can propagate it directly, while also
// supporting the stdlib errors.Is/errors.As idioms.
package baoerr

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is the concrete error type returned by bao3 operations. Each
// instance is tagged with one of the four kinds from spec §7.
type Error struct {
	Code codes.Code
	msg  string
	// cause is the underlying error, if any, that triggered this one.
	cause error
}

func (e *Error) Error() string {
	return e.msg
}

// Unwrap allows errors.Is / errors.As to see through to the cause, if
// one was recorded.
func (e *Error) Unwrap() error {
	return e.cause
}

// GRPCStatus lets status.FromError(err) recover the gRPC status
// directly, the way the rest of the corpus expects of domain errors.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code, e.msg)
}

func newError(code codes.Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...)}
}

// Malformed reports malformed input: an encoding or slice shorter than
// its header, a wrong-length hash, a hash-sequence whose declared count
// disagrees with its actual byte length, or a content-length mismatch
// in outboard mode.
func Malformed(format string, args ...interface{}) error {
	return newError(codes.InvalidArgument, format, args...)
}

// VerificationFailed reports that a computed chunk or parent chaining
// value did not match its expected value.
func VerificationFailed(format string, args ...interface{}) error {
	return newError(codes.DataLoss, format, args...)
}

// Precondition reports an out-of-bounds index or a missing required
// argument (e.g. a sibling-path proof omitted when more than one group
// exists).
func Precondition(format string, args ...interface{}) error {
	return newError(codes.OutOfRange, format, args...)
}

// InvalidArgument reports a precondition violation that isn't naturally
// an index, such as a malformed constructor argument.
func InvalidArgument(format string, args ...interface{}) error {
	return newError(codes.InvalidArgument, format, args...)
}

// StateViolation reports use of a component after it has entered a
// terminal state: a streaming decoder used after a verification
// failure, or PartialBao.Finalize called while incomplete.
func StateViolation(format string, args ...interface{}) error {
	return newError(codes.FailedPrecondition, format, args...)
}

// IsVerificationFailed reports whether err (or a wrapped cause) is a
// verification-failure error.
func IsVerificationFailed(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == codes.DataLoss
	}
	return false
}
