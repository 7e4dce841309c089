package ean13

import (
	"strings"
)

// CheckDigit computes the check digit for the first 12 digits of a code.
func CheckDigit(first12 string) (int, error) {
	if len(first12) != Digits-1 || !allDigits(first12) {
		return 0, &DecodeError{Kind: InvalidCode, Pattern: first12}
	}
	return checksum(first12), nil
}

// Validate reports whether code is 13 digits with a correct check digit.
func Validate(code string) error {
	if len(code) != Digits || !allDigits(code) {
		return &DecodeError{Kind: InvalidCode, Pattern: code}
	}
	expected := checksum(code[:Digits-1])
	if actual := int(code[Digits-1] - '0'); actual != expected {
		return &DecodeError{Kind: BadCheckDigit, Expected: expected, Actual: actual}
	}
	return nil
}

// Encode returns the canonical 95-module pattern of a valid code. A 12-digit
// input gets its check digit appended.
func Encode(code string) ([]uint8, error) {
	if len(code) == Digits-1 {
		d, err := CheckDigit(code)
		if err != nil {
			return nil, err
		}
		code += string(rune('0' + d))
	}
	if err := Validate(code); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.Grow(SignatureLength)
	sb.WriteString(guardLeft)
	parity := parityTable[code[0]-'0']
	for i := range 6 {
		d := code[1+i] - '0'
		if parity[i] == parityG {
			sb.WriteString(codeG[d])
		} else {
			sb.WriteString(codeL[d])
		}
	}
	sb.WriteString(guardCenter)
	for i := range 6 {
		sb.WriteString(codeR[code[7+i]-'0'])
	}
	sb.WriteString(guardRight)

	return ParseBits(sb.String())
}

// ParseBits converts a string of '0' and '1' into a bit slice.
func ParseBits(s string) ([]uint8, error) {
	bits := make([]uint8, len(s))
	for i := range len(s) {
		switch s[i] {
		case '0':
		case '1':
			bits[i] = 1
		default:
			return nil, &DecodeError{Kind: InvalidCode, Pattern: s}
		}
	}
	return bits, nil
}

// FormatBits is the inverse of ParseBits.
func FormatBits(bits []uint8) string { return bitString(bits) }

func allDigits(s string) bool {
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
