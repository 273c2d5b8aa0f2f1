package lexer

import (
	"strconv"
)

// parseIntLiteral parses a decimal, 0x, 0b, or 0o integer literal (already
// stripped of digit separators and type suffix) into its int64 value.
func parseIntLiteral(text string) (int64, error) {
	switch {
	case hasPrefixFold(text, "0x"):
		return strconv.ParseInt(text[2:], 16, 64)
	case hasPrefixFold(text, "0b"):
		return strconv.ParseInt(text[2:], 2, 64)
	case hasPrefixFold(text, "0o"):
		return strconv.ParseInt(text[2:], 8, 64)
	default:
		return strconv.ParseInt(text, 10, 64)
	}
}

func parseFloat(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := range prefix {
		a, b := s[i], prefix[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

func decodeHexByte(h string) string {
	n, err := strconv.ParseUint(h, 16, 8)
	if err != nil {
		return ""
	}
	return string([]byte{byte(n)})
}

func decodeUnicodeEscape(h string) string {
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return ""
	}
	return string(rune(n))
}
