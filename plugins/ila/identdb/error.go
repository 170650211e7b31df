// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identdb

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies errors returned by the identifier DB backends.
type Kind int

const (
	// ConnectFailed is returned by Driver.Init.
	ConnectFailed Kind = iota + 1
	// InvalidConfig is returned by Conn.Configure for malformed options.
	InvalidConfig
	// StartFailed is returned by Conn.Start.
	StartFailed
	// WriteFailed is returned by Conn.Write (incl. timeouts).
	WriteFailed
	// DeleteFailed is returned by Conn.Delete (incl. timeouts).
	DeleteFailed
	// ReadFailed is returned by Conn.Read.
	ReadFailed
	// NotStarted is returned when a connection is used before Start
	// or after Close.
	NotStarted
)

var kindNames = map[Kind]string{
	ConnectFailed: "connect failed",
	InvalidConfig: "invalid config",
	StartFailed:   "start failed",
	WriteFailed:   "write failed",
	DeleteFailed:  "delete failed",
	ReadFailed:    "read failed",
	NotStarted:    "not started",
}

// String returns human readable description of the error kind.
func (k Kind) String() string {
	if name, known := kindNames[k]; known {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

/********************************* DB Error ***********************************/

// Error is returned by all operations of Driver and Conn.
type Error struct {
	Kind    Kind
	Backend string
	Err     error
}

// NewError is the constructor for Error.
func NewError(kind Kind, backend string, err error) error {
	return &Error{Kind: kind, Backend: backend, Err: err}
}

// Error returns "<backend>: <kind>: <underlying error>".
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Backend, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
}

// Cause returns the underlying error.
func (e *Error) Cause() error {
	return e.Err
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns kind of the first Error found in the chain of err,
// zero if there is none.
func KindOf(err error) Kind {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Kind
	}
	return 0
}

// IsKind returns true if err carries Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsConfigurationError returns true for errors that can only happen while
// the connection is being set up.
func IsConfigurationError(err error) bool {
	switch KindOf(err) {
	case ConnectFailed, InvalidConfig, StartFailed:
		return true
	}
	return false
}
