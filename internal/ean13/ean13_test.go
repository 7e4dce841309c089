package ean13

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sampleCode = "4006381333931"
	sampleBits = "101" +
		"0001101" + "0100111" + "0101111" + "0111101" + "0001001" + "0110011" +
		"01010" +
		"1000010" + "1000010" + "1000010" + "1110100" + "1000010" + "1100110" +
		"101"
)

func mustBits(t *testing.T, s string) []uint8 {
	t.Helper()
	bits, err := ParseBits(s)
	require.NoError(t, err)
	return bits
}

func decodeErr(t *testing.T, err error) *DecodeError {
	t.Helper()
	var de *DecodeError
	require.True(t, errors.As(err, &de), "expected *DecodeError, got %v", err)
	return de
}

func TestDecode_KnownSignature(t *testing.T) {
	code, err := Decode(mustBits(t, sampleBits))
	require.NoError(t, err)
	assert.Equal(t, sampleCode, code)
}

func TestEncode_KnownCode(t *testing.T) {
	bits, err := Encode(sampleCode)
	require.NoError(t, err)
	assert.Equal(t, sampleBits, FormatBits(bits))

	// 12 digits get the check digit appended.
	bits12, err := Encode(sampleCode[:12])
	require.NoError(t, err)
	assert.Equal(t, bits, bits12)
}

func TestDecode_Length(t *testing.T) {
	for _, n := range []int{0, 94, 96, 190} {
		_, err := Decode(make([]uint8, n))
		de := decodeErr(t, err)
		assert.Equal(t, BadLength, de.Kind)
		assert.Equal(t, n, de.Length)
	}
}

func TestDecode_Guards(t *testing.T) {
	tests := []struct {
		name  string
		start int
		end   int
		side  Side
	}{
		{"left", 0, 3, SideLeft},
		{"center", 45, 50, SideCenter},
		{"right", 92, 95, SideRight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bits := mustBits(t, sampleBits)
			for i := tt.start; i < tt.end; i++ {
				bits[i] = 0
			}
			_, err := Decode(bits)
			de := decodeErr(t, err)
			assert.Equal(t, BadGuard, de.Kind)
			assert.Equal(t, tt.side, de.Side)
			assert.Contains(t, err.Error(), string(tt.side))
		})
	}
}

func TestDecode_UnknownLeftPattern(t *testing.T) {
	s := []byte(sampleBits)
	// Third left digit: 1111111 is in neither L nor G.
	copy(s[3+7*2:], "1111111")
	_, err := Decode(mustBits(t, string(s)))
	de := decodeErr(t, err)
	assert.Equal(t, UnknownPattern, de.Kind)
	assert.Equal(t, SideLeft, de.Side)
	assert.Equal(t, 2, de.Position)
	assert.Equal(t, "1111111", de.Pattern)
}

func TestDecode_UnknownRightPattern(t *testing.T) {
	s := []byte(sampleBits)
	copy(s[50+7*4:], "0001101") // an L pattern is not valid on the right
	_, err := Decode(mustBits(t, string(s)))
	de := decodeErr(t, err)
	assert.Equal(t, UnknownPattern, de.Kind)
	assert.Equal(t, SideRight, de.Side)
	assert.Equal(t, 4, de.Position)
}

func TestDecode_UnknownParity(t *testing.T) {
	// GGGGGG is not a parity sequence: encode every left digit with G.
	s := []byte(sampleBits)
	left := "006381"
	for i := range 6 {
		copy(s[3+7*i:], codeG[left[i]-'0'])
	}
	_, err := Decode(mustBits(t, string(s)))
	de := decodeErr(t, err)
	assert.Equal(t, UnknownParity, de.Kind)
	assert.Equal(t, "GGGGGG", de.Pattern)
}

func TestDecode_CheckDigitRejected(t *testing.T) {
	s := []byte(sampleBits)
	copy(s[50+7*5:], codeR[2])
	_, err := Decode(mustBits(t, string(s)))
	de := decodeErr(t, err)
	assert.Equal(t, BadCheckDigit, de.Kind)
	assert.Equal(t, 1, de.Expected)
	assert.Equal(t, 2, de.Actual)
	assert.Equal(t, "invalid check digit (expected 1, got 2)", err.Error())
}

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"400638133393", 1},
		{"590123412345", 7},
		{"000000000000", 0},
		{"978020137962", 4},
	}
	for _, tt := range tests {
		got, err := CheckDigit(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := CheckDigit("12345")
	assert.Error(t, err)
	_, err = CheckDigit("40063813339x")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(sampleCode))
	assert.Error(t, Validate("4006381333932"))
	assert.Error(t, Validate("400638133393"))
	assert.Error(t, Validate("40063813339a1"))
}

func TestParseBits_Invalid(t *testing.T) {
	_, err := ParseBits("0120")
	assert.Error(t, err)
}

func TestTables_GIsReversedR(t *testing.T) {
	for d := range 10 {
		r := []byte(codeR[d])
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		assert.Equal(t, codeG[d], string(r), "digit %d", d)
		assert.Equal(t, strings.Map(func(c rune) rune {
			if c == '0' {
				return '1'
			}
			return '0'
		}, codeL[d]), codeR[d], "digit %d", d)
	}
}

// TestEncodeDecode_RoundTrip verifies every valid code decodes to itself.
func TestEncodeDecode_RoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("decode(encode(code)) == code", prop.ForAll(
		func(digits []int) bool {
			var sb strings.Builder
			for _, d := range digits {
				sb.WriteByte(byte('0' + d))
			}
			bits, err := Encode(sb.String())
			if err != nil || len(bits) != SignatureLength {
				return false
			}
			code, err := Decode(bits)
			return err == nil && code[:12] == sb.String()
		},
		gen.SliceOfN(12, gen.IntRange(0, 9)),
	))

	properties.TestingRun(t)
}
