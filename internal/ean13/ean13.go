// Package ean13 converts between 95-module EAN-13 bit signatures and
// 13-digit codes.
package ean13

import (
	"strings"
)

const (
	// SignatureLength is the number of modules in an EAN-13 symbol.
	SignatureLength = 95
	// Digits is the number of digits in a code, check digit included.
	Digits = 13

	digitWidth  = 7
	leftOffset  = 3
	rightOffset = 50
)

var (
	guardLeft   = "101"
	guardCenter = "01010"
	guardRight  = "101"
)

// Decode validates a 95-bit signature and returns its 13-digit code. The
// first failing check determines the returned *DecodeError.
func Decode(bits []uint8) (string, error) {
	if len(bits) != SignatureLength {
		return "", &DecodeError{Kind: BadLength, Length: len(bits)}
	}
	s := bitString(bits)

	if err := checkGuards(s); err != nil {
		return "", err
	}

	var digits strings.Builder
	digits.Grow(Digits)

	left := make([]byte, 0, 6)
	var parity strings.Builder
	for i := range 6 {
		off := leftOffset + digitWidth*i
		pattern := s[off : off+digitWidth]
		if d, ok := lookupL[pattern]; ok {
			left = append(left, byte('0'+d))
			parity.WriteByte(parityL)
			continue
		}
		if d, ok := lookupG[pattern]; ok {
			left = append(left, byte('0'+d))
			parity.WriteByte(parityG)
			continue
		}
		return "", &DecodeError{Kind: UnknownPattern, Side: SideLeft, Position: i, Pattern: pattern}
	}

	first, ok := lookupParity[parity.String()]
	if !ok {
		return "", &DecodeError{Kind: UnknownParity, Pattern: parity.String()}
	}
	digits.WriteByte(byte('0' + first))
	digits.Write(left)

	for i := range 6 {
		off := rightOffset + digitWidth*i
		pattern := s[off : off+digitWidth]
		d, ok := lookupR[pattern]
		if !ok {
			return "", &DecodeError{Kind: UnknownPattern, Side: SideRight, Position: i, Pattern: pattern}
		}
		digits.WriteByte(byte('0' + d))
	}

	code := digits.String()
	expected := checksum(code[:Digits-1])
	actual := int(code[Digits-1] - '0')
	if expected != actual {
		return "", &DecodeError{Kind: BadCheckDigit, Expected: expected, Actual: actual}
	}
	return code, nil
}

func checkGuards(s string) error {
	if g := s[0:3]; g != guardLeft {
		return &DecodeError{Kind: BadGuard, Side: SideLeft, Pattern: g}
	}
	if g := s[45:50]; g != guardCenter {
		return &DecodeError{Kind: BadGuard, Side: SideCenter, Pattern: g}
	}
	if g := s[92:95]; g != guardRight {
		return &DecodeError{Kind: BadGuard, Side: SideRight, Pattern: g}
	}
	return nil
}

// checksum returns the check digit for 12 ASCII digits.
func checksum(first12 string) int {
	total := 0
	for i := range len(first12) {
		d := int(first12[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		total += d
	}
	return (10 - total%10) % 10
}

// bitString renders bits as '0'/'1'. Any non-zero value counts as 1.
func bitString(bits []uint8) string {
	b := make([]byte, len(bits))
	for i, v := range bits {
		if v != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
