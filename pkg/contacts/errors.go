package contacts

import (
	"errors"
	"strings"

	"github.com/davisshaver/audiencesync/pkg/provider"
)

// Error codes attached to engine failures. Provider-native codes pass
// through the aggregate verbatim alongside these.
const (
	CodeInvalidProvider       = "invalid_provider"
	CodeInvalidProviderMethod = "invalid_provider_method"
	CodeInvalidUser           = "invalid_user"
	CodeInvalidList           = "invalid_list"
	CodeNotSupported          = "not_supported"
	CodeAddContact            = "subscription_add_contact"
	CodeUpsertContact         = "upsert_contact_error"
)

// Error is a coded engine failure.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ErrorCode extracts the code from an engine or provider error, or ""
// for plain errors.
func ErrorCode(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	var pe *provider.Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// ErrorList aggregates coded errors across one operation. Validation and
// resolution failures accumulate here instead of aborting, so one bad
// list ID never blocks the valid ones.
//
// The zero value is ready to use. By construction, Err returns nil iff
// the list is empty: an operation succeeds exactly when nothing was
// aggregated.
type ErrorList struct {
	errs []*Error
}

// Add appends a coded error.
func (l *ErrorList) Add(code, message string) {
	l.errs = append(l.errs, newError(code, message))
}

// AddError appends err, preserving a provider-native or engine code when
// one is present. Plain errors are filed under fallbackCode.
func (l *ErrorList) AddError(err error, fallbackCode string) {
	if err == nil {
		return
	}
	var pe *provider.Error
	if errors.As(err, &pe) {
		l.errs = append(l.errs, newError(pe.Code, pe.Message))
		return
	}
	var ce *Error
	if errors.As(err, &ce) {
		l.errs = append(l.errs, ce)
		return
	}
	l.errs = append(l.errs, newError(fallbackCode, err.Error()))
}

// HasErrors reports whether anything was aggregated.
func (l *ErrorList) HasErrors() bool {
	return len(l.errs) > 0
}

// Codes returns the aggregated codes in insertion order.
func (l *ErrorList) Codes() []string {
	out := make([]string, len(l.errs))
	for i, e := range l.errs {
		out[i] = e.Code
	}
	return out
}

// Messages returns the aggregated messages in insertion order.
func (l *ErrorList) Messages() []string {
	out := make([]string, len(l.errs))
	for i, e := range l.errs {
		out[i] = e.Message
	}
	return out
}

// Err returns the list as an error, or nil when nothing was aggregated.
func (l *ErrorList) Err() error {
	if !l.HasErrors() {
		return nil
	}
	return l
}

// Error implements error with every aggregated entry, for debug mode and
// operator-facing logs.
func (l *ErrorList) Error() string {
	parts := make([]string, len(l.errs))
	for i, e := range l.errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
