// go-uhf
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uhf.
//
// go-uhf is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uhf is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uhf; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package uhf

import (
	"context"
	"errors"
	"fmt"
)

// Transport errors
var (
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportClosed  = errors.New("transport closed")
	ErrDeviceNotFound   = errors.New("reader not found")
)

// Protocol errors. Every *ReaderError matches exactly one of these with errors.Is.
var (
	ErrEncoding         = errors.New("invalid command payload")
	ErrFrame            = errors.New("frame corrupted")
	ErrTimeout          = errors.New("no response within deadline")
	ErrDeviceError      = errors.New("reader reported failure")
	ErrMalformedPayload = errors.New("malformed response payload")
	ErrReaderClosed     = errors.New("reader closed")
	ErrCanceled         = errors.New("operation canceled")
)

// Parameter and decode errors
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrDataTooLarge     = errors.New("data too large")
	ErrCountMismatch    = errors.New("inventory tag count mismatch")
	ErrUnexpectedReader = errors.New("unexpected reader model")
)

// ErrorType classifies transport errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors are not retried
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout errors are timeouts and may be retried
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError is returned by transports and carries retry metadata
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error; retryability follows the type
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable transport timeout error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewTransportClosedError creates a permanent error for use after Close
func NewTransportClosedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportClosed, ErrorTypePermanent)
}

// ErrorKind is the protocol-level classification carried by ReaderError
type ErrorKind int

const (
	// KindEncoding means the caller supplied an invalid or oversized payload
	KindEncoding ErrorKind = iota + 1
	// KindFrame means line corruption prevented completion
	KindFrame
	// KindTimeout means no valid response arrived before the deadline
	KindTimeout
	// KindDevice means the reader answered with a failure status
	KindDevice
	// KindMalformedPayload means a response failed structural decoding
	KindMalformedPayload
	// KindTransport means the byte transport failed
	KindTransport
	// KindClosed means the reader was used after Close
	KindClosed
	// KindCanceled means the caller's context was canceled
	KindCanceled
)

var kindNames = map[ErrorKind]string{
	KindEncoding:         "EncodingError",
	KindFrame:            "FrameError",
	KindTimeout:          "TimeoutError",
	KindDevice:           "DeviceError",
	KindMalformedPayload: "MalformedPayload",
	KindTransport:        "TransportError",
	KindClosed:           "ClosedError",
	KindCanceled:         "CanceledError",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindEncoding:
		return ErrEncoding
	case KindFrame:
		return ErrFrame
	case KindTimeout:
		return ErrTimeout
	case KindDevice:
		return ErrDeviceError
	case KindMalformedPayload:
		return ErrMalformedPayload
	case KindClosed:
		return ErrReaderClosed
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// ReaderError is the single error type surfaced by Reader operations
type ReaderError struct {
	Err       error
	Op        string
	Kind      ErrorKind
	Status    Status
	HasStatus bool
}

func (e *ReaderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.HasStatus {
		msg += fmt.Sprintf(" (status 0x%02X %s)", byte(e.Status), e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause
func (e *ReaderError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newReaderError(kind ErrorKind, op string, err error) *ReaderError {
	return &ReaderError{Kind: kind, Op: op, Err: err}
}

func newDeviceError(op string, status Status) *ReaderError {
	return &ReaderError{Kind: KindDevice, Op: op, Status: status, HasStatus: true}
}

// KindOf returns the ErrorKind of err, or zero if err is not a ReaderError
func KindOf(err error) ErrorKind {
	var re *ReaderError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// StatusOf returns the reader status carried by a device error
func StatusOf(err error) (Status, bool) {
	var re *ReaderError
	if errors.As(err, &re) && re.HasStatus {
		return re.Status, true
	}
	return 0, false
}

// IsRetryable reports whether an operation failing with err may be retried.
// Timeouts, line corruption and transient transport failures qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var re *ReaderError
	if errors.As(err, &re) {
		switch re.Kind {
		case KindTimeout, KindFrame:
			return true
		case KindTransport:
			var te *TransportError
			return errors.As(re.Err, &te) && te.Retryable
		default:
			return false
		}
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite):
		return true
	default:
		return false
	}
}

// GetErrorType classifies err for transport-level handling
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead), errors.Is(err, ErrTransportWrite):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
