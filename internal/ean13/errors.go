package ean13

import "fmt"

// ErrorKind classifies a decode failure.
type ErrorKind int

const (
	BadLength ErrorKind = iota
	BadGuard
	UnknownPattern
	UnknownParity
	BadCheckDigit
	InvalidCode
)

func (k ErrorKind) String() string {
	switch k {
	case BadLength:
		return "bad_length"
	case BadGuard:
		return "bad_guard"
	case UnknownPattern:
		return "unknown_pattern"
	case UnknownParity:
		return "unknown_parity"
	case BadCheckDigit:
		return "bad_check_digit"
	case InvalidCode:
		return "invalid_code"
	default:
		return "unknown"
	}
}

// Side names the part of the symbol an error refers to.
type Side string

const (
	SideLeft   Side = "left"
	SideCenter Side = "center"
	SideRight  Side = "right"
)

// DecodeError describes the first gate a signature failed. Only the fields
// relevant to Kind are set.
type DecodeError struct {
	Kind     ErrorKind
	Side     Side
	Position int    // digit index within the half, for UnknownPattern
	Pattern  string // offending bits
	Expected int    // check digit computed from the first 12 digits
	Actual   int    // check digit read from the symbol
	Length   int    // signature length, for BadLength
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case BadLength:
		return fmt.Sprintf("invalid signature length: got %d, want %d", e.Length, SignatureLength)
	case BadGuard:
		return fmt.Sprintf("invalid %s guard pattern %q", e.Side, e.Pattern)
	case UnknownPattern:
		return fmt.Sprintf("unknown %s pattern %q at digit %d", e.Side, e.Pattern, e.Position)
	case UnknownParity:
		return fmt.Sprintf("unknown parity pattern %q", e.Pattern)
	case BadCheckDigit:
		return fmt.Sprintf("invalid check digit (expected %d, got %d)", e.Expected, e.Actual)
	case InvalidCode:
		return fmt.Sprintf("invalid EAN-13 code %q", e.Pattern)
	default:
		return "ean13 decode error"
	}
}
