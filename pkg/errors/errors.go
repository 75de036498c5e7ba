// Unified error handling for motiongen
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Motion errors
	ErrInvalidParameter ErrorCode = "INVALID_PARAMETER"
	ErrDegenerateMotion ErrorCode = "DEGENERATE_MOTION"

	// Harness errors
	ErrConfig    ErrorCode = "CONFIG"
	ErrScenario  ErrorCode = "SCENARIO"
	ErrSampleIO  ErrorCode = "SAMPLE_IO"
	ErrTransport ErrorCode = "TRANSPORT"
	ErrRuntime   ErrorCode = "RUNTIME"
)

// Error is the unified error type for motiongen
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Param names the offending parameter (if applicable)
	Param string

	// Value is the rejected value (if applicable)
	Value string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Param != "" {
		msg = fmt.Sprintf("[%s:%s] %s", e.Code, e.Param, msg)
	} else {
		msg = fmt.Sprintf("[%s] %s", e.Code, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// SetParam sets the offending parameter name
func (e *Error) SetParam(param string) *Error {
	e.Param = param
	return e
}

// SetValue records the rejected value
func (e *Error) SetValue(value string) *Error {
	e.Value = value
	return e
}

// SetContext adds additional context
func (e *Error) SetContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Motion errors

// InvalidParameter creates an error for a rejected limit or argument
func InvalidParameter(param string, value float64, reason string) *Error {
	v := strconv.FormatFloat(value, 'g', -1, 64)
	return New(ErrInvalidParameter, fmt.Sprintf("%s=%s %s", param, v, reason)).
		SetParam(param).
		SetValue(v)
}

// DegenerateMotion creates the informational error for a zero-distance move
func DegenerateMotion(target float64) *Error {
	return New(ErrDegenerateMotion, fmt.Sprintf("target %g already reached", target))
}

// Harness errors

// ConfigError creates an error for a bad, missing or unreadable config entry.
// An empty option means the problem is with the section as a whole.
func ConfigError(section, option, reason string) *Error {
	msg := reason
	if section != "" {
		msg = fmt.Sprintf("section [%s]: %s", section, reason)
	}
	e := New(ErrConfig, msg).SetContext("section", section)
	if option != "" {
		e.SetParam(option)
	}
	return e
}

// IsConfig checks if error is a configuration error
func IsConfig(err error) bool {
	return Is(err, ErrConfig)
}

// ScenarioError creates an error for an invalid scenario file
func ScenarioError(file string, reason string) *Error {
	return New(ErrScenario, fmt.Sprintf("scenario %s: %s", file, reason)).
		SetContext("file", file)
}

// SampleIOError creates an error for sample output failure
func SampleIOError(path string, err error) *Error {
	return Wrap(err, ErrSampleIO, fmt.Sprintf("write samples to %s", path)).
		SetContext("path", path)
}

// TransportError creates an error for a server, stream or serial failure
func TransportError(operation string, err error) *Error {
	return Wrap(err, ErrTransport, operation)
}

// RuntimeError creates a general runtime error
func RuntimeError(message string) *Error {
	return New(ErrRuntime, message)
}

// Is checks if err, or any error it wraps, matches the given error code
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsInvalidParameter checks if error is a rejected parameter
func IsInvalidParameter(err error) bool {
	return Is(err, ErrInvalidParameter)
}
