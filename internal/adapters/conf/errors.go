package conf

import "fmt"

// ParseErrorKind classifies structural errors found by the line lexer.
type ParseErrorKind int

const (
	UnexpectedChar ParseErrorKind = iota + 1
	UnexpectedToken
	UnterminatedQuote
	MissingSeparator
	MissingValue
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnexpectedChar:
		return "unexpected character"
	case UnexpectedToken:
		return "unexpected token"
	case UnterminatedQuote:
		return "unterminated quote"
	case MissingSeparator:
		return "missing separator"
	case MissingValue:
		return "missing value"
	default:
		return fmt.Sprintf("ParseErrorKind(%d)", int(k))
	}
}

// ParseError is a structural error. Column is 1-based and zero for errors
// detected at the end of a line.
type ParseError struct {
	Line   int
	Column int
	Kind   ParseErrorKind
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// SemanticErrorKind classifies well-formed lines that do not bind.
type SemanticErrorKind int

const (
	UnknownEnumValue SemanticErrorKind = iota + 1
	KeyPathMalformed
	CodeOutOfRange
	ReservedClass
	InvalidNumber
	UnknownKey
)

func (k SemanticErrorKind) String() string {
	switch k {
	case UnknownEnumValue:
		return "unknown enum value"
	case KeyPathMalformed:
		return "malformed key path"
	case CodeOutOfRange:
		return "code out of range"
	case ReservedClass:
		return "reserved class"
	case InvalidNumber:
		return "invalid number"
	case UnknownKey:
		return "unknown key"
	default:
		return fmt.Sprintf("SemanticErrorKind(%d)", int(k))
	}
}

type SemanticError struct {
	Line int
	Key  string
	Kind SemanticErrorKind
	Msg  string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Key, e.Msg)
}
