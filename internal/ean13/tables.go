package ean13

// Encoding sets for the left half of the symbol.
const (
	parityL = 'L'
	parityG = 'G'
)

// Module patterns indexed by digit. G patterns are the bit-reversed R
// patterns; R patterns are the complement of L.
var (
	codeL = [10]string{
		"0001101", "0011001", "0010011", "0111101", "0100011",
		"0110001", "0101111", "0111011", "0110111", "0001011",
	}
	codeG = [10]string{
		"0100111", "0110011", "0011011", "0100001", "0011101",
		"0111001", "0000101", "0010001", "0001001", "0010111",
	}
	codeR = [10]string{
		"1110010", "1100110", "1101100", "1000010", "1011100",
		"1001110", "1010000", "1000100", "1001000", "1110100",
	}
	// parityTable[d] is the L/G sequence of the left half when the first
	// digit is d.
	parityTable = [10]string{
		"LLLLLL", "LLGLGG", "LLGGLG", "LLGGGL", "LGLLGG",
		"LGGLLG", "LGGGLL", "LGLGLG", "LGLGGL", "LGGLGL",
	}
)

var (
	lookupL      = invert(codeL)
	lookupG      = invert(codeG)
	lookupR      = invert(codeR)
	lookupParity = invert(parityTable)
)

func invert(table [10]string) map[string]int {
	m := make(map[string]int, len(table))
	for d, p := range table {
		m[p] = d
	}
	return m
}
