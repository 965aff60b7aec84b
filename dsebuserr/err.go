// Package dsebuserr provides the bus's error taxonomy: ConfigError,
// TransportError, ProtocolError, ModelError, TimeError, and Cancelled, each
// with an exit-code mapping for the CLI entrypoints. Grounded on the
// teacher's cmn/cos/err.go joinable-error convention (Errs/JoinErr).
/*
 * Copyright (c) 2024, dsebus authors.
 */
package dsebuserr

import (
	"fmt"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// EINVAL/ECANCELED mirror the §6 CLI exit codes; other errno-ish values are
// left to the caller via ExitCode().
const (
	ExitOK       = 0
	ExitCanceled = 125 // ECANCELED-ish; exact errno is platform-specific
	ExitInval    = 22  // EINVAL
)

type (
	// ConfigError: missing channel, signal, or symbol; unknown transport; bad URI.
	ConfigError struct{ msg string }
	// TransportError: send/recv failure; remote closed.
	TransportError struct {
		msg   string
		cause error
	}
	// ProtocolError: envelope with unknown tag; mismatched delta arrays;
	// message for an unknown channel.
	ProtocolError struct{ msg string }
	// ModelError: non-zero return from model_step; missing mandatory symbol.
	ModelError struct {
		msg   string
		cause error
	}
	// TimeError: gateway behind -- never fatal, a normal sync outcome.
	TimeError struct {
		msg string
		tag string
	}
	// Cancelled: interrupt observed.
	Cancelled struct{ msg string }
)

func NewConfigError(format string, a ...any) *ConfigError { return &ConfigError{fmt.Sprintf(format, a...)} }
func (e *ConfigError) Error() string                      { return "config error: " + e.msg }
func (e *ConfigError) ExitCode() int                       { return ExitInval }

func NewTransportError(cause error, format string, a ...any) *TransportError {
	return &TransportError{fmt.Sprintf(format, a...), cause}
}
func (e *TransportError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("transport error: %s: %v", e.msg, e.cause)
	}
	return "transport error: " + e.msg
}
func (e *TransportError) Unwrap() error { return e.cause }
func (e *TransportError) ExitCode() int { return 1 }

func NewProtocolError(format string, a ...any) *ProtocolError {
	return &ProtocolError{fmt.Sprintf(format, a...)}
}
func (e *ProtocolError) Error() string { return "protocol error: " + e.msg }
func (e *ProtocolError) ExitCode() int { return ExitInval }

func NewModelError(cause error, format string, a ...any) *ModelError {
	return &ModelError{fmt.Sprintf(format, a...), cause}
}
func (e *ModelError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("model error: %s: %v", e.msg, e.cause)
	}
	return "model error: " + e.msg
}
func (e *ModelError) Unwrap() error { return e.cause }
func (e *ModelError) ExitCode() int { return 1 }

// TagGatewayBehind is the E_GATEWAYBEHIND tag from §7/§4.7.
const TagGatewayBehind = "E_GATEWAYBEHIND"

func NewGatewayBehindError(suppliedTime, modelTime float64) *TimeError {
	return &TimeError{
		msg: fmt.Sprintf("gateway behind: supplied=%f < model_time=%f", suppliedTime, modelTime),
		tag: TagGatewayBehind,
	}
}
func (e *TimeError) Error() string { return e.msg }
func (e *TimeError) Tag() string   { return e.tag }
func (e *TimeError) ExitCode() int { return 0 } // never fatal

func NewCancelled(format string, a ...any) *Cancelled { return &Cancelled{fmt.Sprintf(format, a...)} }
func (e *Cancelled) Error() string                    { return "cancelled: " + e.msg }
func (e *Cancelled) ExitCode() int                    { return ExitCanceled }

// IsGatewayBehind reports whether err is (or wraps) a gateway-behind TimeError.
func IsGatewayBehind(err error) bool {
	var te *TimeError
	return pkgerrors.As(err, &te) && te.tag == TagGatewayBehind
}

// Errs collects up to maxErrs distinct errors and joins them on demand,
// mirroring the teacher's cmn/cos.Errs.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

const maxErrs = 4

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Cnt() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

func (e *Errs) JoinErr() (cnt int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cnt = len(e.errs)
	if cnt == 0 {
		return 0, nil
	}
	return cnt, pkgerrors.WithStack(joinErrs(e.errs))
}

func joinErrs(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	s := errs[0].Error()
	for _, e := range errs[1:] {
		s += "; " + e.Error()
	}
	return fmt.Errorf("%s", s)
}

// ExitCoder is implemented by every error kind above.
type ExitCoder interface {
	error
	ExitCode() int
}

// CodeOf maps any error to a CLI exit code, defaulting to 1 for unknown kinds.
func CodeOf(err error) int {
	var ec ExitCoder
	if pkgerrors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 1
}
