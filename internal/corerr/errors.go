// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package corerr centralizes the error kinds shared across agentcore's
// subsystems so every error stringifies to one line plus an optional
// structured detail record.
package corerr

import (
	"errors"
	"fmt"
	"time"
)

// Kind names a stable error category independent of the free-form message.
type Kind string

const (
	KindChainShapeMismatch    Kind = "chain_shape_mismatch"
	KindLoopMaxExceeded       Kind = "loop_max_exceeded"
	KindParallelAllFailed     Kind = "parallel_all_failed"
	KindRaceAllFailed         Kind = "race_all_failed"
	KindRaceTimeout           Kind = "race_timeout"
	KindCancelled             Kind = "cancelled"
	KindContextMissing        Kind = "context_missing"
	KindPermissionDenied      Kind = "permission_denied"
	KindSandboxUnavailable    Kind = "sandbox_unavailable"
	KindSandboxLaunchFailed   Kind = "sandbox_launch_failed"
	KindCommandTimedOut       Kind = "command_timed_out"
	KindOutputTooLarge        Kind = "output_too_large"
	KindToolExecutionFailed   Kind = "tool_execution_failed"
	KindCircularDelegation    Kind = "circular_delegation"
	KindDelegationDepth       Kind = "delegation_depth_exceeded"
	KindSessionNotFound       Kind = "session_not_found"
	KindStorePersistenceError Kind = "store_persistence_failed"
	KindInvalidInput          Kind = "invalid_input"
)

// Error is the common shape for every agentcore error: an operation name,
// a stable kind, a human-readable detail, optional structured fields, and
// a wrapped cause.
type Error struct {
	Op        string
	Kind      Kind
	Message   string
	Fields    map[string]any
	Err       error
	Timestamp time.Time
}

func New(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message, Timestamp: time.Now()}
}

func Wrap(op string, kind Kind, message string, err error) *Error {
	return &Error{Op: op, Kind: kind, Message: message, Err: err, Timestamp: time.Now()}
}

func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any, 1)
	}
	e.Fields[key] = value
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, corerr.KindX) style matching against a sentinel
// built with KindOnly.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) && o.Err == nil && o.Op == "" && o.Message == "" {
		return e.Kind == o.Kind
	}
	return false
}

// KindOnly builds a sentinel error usable with errors.Is to test only the
// Kind field, ignoring Op/Message/Err.
func KindOnly(kind Kind) error {
	return &Error{Kind: kind}
}

// HasKind reports whether err (or something it wraps) is a *Error of kind.
func HasKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
