// Package ooxerr defines the unified error taxonomy used throughout the
// decoding engine. Every exported parse function returns a plain error;
// callers that need to distinguish failure classes type-assert or use
// errors.As against *Error.
package ooxerr

import "fmt"

// Kind classifies the failure so callers can react without parsing text.
type Kind int

const (
	KindUnknown Kind = iota
	KindIo
	KindParseError
	KindInvalidFormat
	KindCorruptedFile
	KindComponentNotFound
	KindXmlError
	KindInvalidContentType
	KindZipError
	KindUnsupported
	KindFeatureDisabled
	KindUnexpectedEOF
	KindInsufficientData
)

func (k Kind) String() string {
	switch k {
	case KindIo:
		return "io"
	case KindParseError:
		return "parse_error"
	case KindInvalidFormat:
		return "invalid_format"
	case KindCorruptedFile:
		return "corrupted_file"
	case KindComponentNotFound:
		return "component_not_found"
	case KindXmlError:
		return "xml_error"
	case KindInvalidContentType:
		return "invalid_content_type"
	case KindZipError:
		return "zip_error"
	case KindUnsupported:
		return "unsupported"
	case KindFeatureDisabled:
		return "feature_disabled"
	case KindUnexpectedEOF:
		return "unexpected_eof"
	case KindInsufficientData:
		return "insufficient_data"
	default:
		return "unknown"
	}
}

// Error is the library's single error type. Message carries a
// human-readable description; Cause, if present, is the wrapped
// underlying error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// InsufficientData reports a short buffer at a known cursor position.
func InsufficientData(expected, available int) *Error {
	return New(KindInsufficientData, "expected %d bytes, have %d", expected, available)
}

// UnexpectedEOF reports a read that ran past the end of a buffer without
// a more specific expected/available accounting.
func UnexpectedEOF() *Error {
	return New(KindUnexpectedEOF, "unexpected end of input")
}
