package queryspec

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes compilation failures.
type ErrorCode string

const (
	// ErrCodeConfiguration is a user-fixable misconfiguration: an unresolved
	// member, an identifier over the engine's length ceiling, an unknown
	// granularity or operator.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeUnsupported means the query needs a capability the selected
	// dialect does not provide (interval arithmetic, OFFSET, ...).
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED_FEATURE"

	// ErrCodeInvariant is a malformed QuerySpec shape. It is a programmer
	// error on the caller side and is never worth retrying.
	ErrCodeInvariant ErrorCode = "INVARIANT"
)

// Error is the single error type returned by QuerySpec validation and SQL
// compilation. Member, Identifier and Limit are filled when relevant so
// callers can surface the offending name verbatim.
type Error struct {
	Code    ErrorCode
	Message string

	// Member is the member reference involved, if any.
	Member string

	// Identifier is the physical identifier involved, if any.
	Identifier string

	// Limit is the violated ceiling for identifier-length errors.
	Limit int
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Member != "":
		return fmt.Sprintf("%s: %s (member=%s)", e.Code, e.Message, e.Member)
	case e.Identifier != "" && e.Limit > 0:
		return fmt.Sprintf("%s: %s (identifier=%s, limit=%d)", e.Code, e.Message, e.Identifier, e.Limit)
	case e.Identifier != "":
		return fmt.Sprintf("%s: %s (identifier=%s)", e.Code, e.Message, e.Identifier)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConfigurationError creates a CONFIGURATION error.
func NewConfigurationError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewMemberError creates a CONFIGURATION error naming a member.
func NewMemberError(member, format string, args ...any) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: fmt.Sprintf(format, args...), Member: member}
}

// NewIdentifierLengthError reports an identifier longer than the engine allows.
func NewIdentifierLengthError(dialect, identifier string, length, limit int) *Error {
	return &Error{
		Code: ErrCodeConfiguration,
		Message: fmt.Sprintf("%s can not work with identifiers longer than %d characters, got %d; "+
			"consider a shorter sql_alias", dialect, limit, length),
		Identifier: identifier,
		Limit:      limit,
	}
}

// NewUnsupportedError creates an UNSUPPORTED_FEATURE error.
func NewUnsupportedError(dialect, feature string) *Error {
	return &Error{
		Code:    ErrCodeUnsupported,
		Message: fmt.Sprintf("dialect %s does not support %s", dialect, feature),
	}
}

// NewInvariantError creates an INVARIANT error.
func NewInvariantError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvariant, Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError returns true if err wraps a CONFIGURATION error.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsUnsupportedError returns true if err wraps an UNSUPPORTED_FEATURE error.
func IsUnsupportedError(err error) bool {
	return hasCode(err, ErrCodeUnsupported)
}

// IsInvariantError returns true if err wraps an INVARIANT error.
func IsInvariantError(err error) bool {
	return hasCode(err, ErrCodeInvariant)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
