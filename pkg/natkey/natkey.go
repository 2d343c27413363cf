// Package natkey builds natural-order sort keys for file names, so that
// "file2" sorts before "file10" the way a human expects.
package natkey

import (
	"math/big"
	"strings"
	"unicode"
)

type tokenKind uint8

const (
	kindNumber tokenKind = iota
	kindText
)

// token is one run of a tokenized name. A numeric run carries its
// magnitude, everything else (including collapsed whitespace, which
// compares as the single text " ") carries case-folded text.
type token struct {
	kind tokenKind
	num  *big.Int
	text string
}

// Key is the comparable form of one name. Ordering is lexicographic over
// the token sequence with the original, case-sensitive string as the
// final tiebreaker.
type Key struct {
	tokens   []token
	original string
}

// Of tokenizes a name into its natural-order key. Leading whitespace is
// skipped; digit runs become numbers (leading zeros stripped, magnitude
// kept arbitrary-precision so long runs compare correctly); whitespace
// runs collapse to a single space marker; any other run becomes
// case-folded text.
func Of(name string) Key {
	runes := []rune(name)
	i := 0
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	var tokens []token
	for i < len(runes) {
		switch {
		case unicode.IsSpace(runes[i]):
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: kindText, text: " "})
		case isDigit(runes[i]):
			for i < len(runes) && runes[i] == '0' {
				i++
			}
			start := i
			for i < len(runes) && isDigit(runes[i]) {
				i++
			}
			num := new(big.Int)
			if start < i {
				// Cannot fail: the run is all ASCII digits.
				num.SetString(string(runes[start:i]), 10)
			}
			tokens = append(tokens, token{kind: kindNumber, num: num})
		default:
			start := i
			for i < len(runes) && !unicode.IsSpace(runes[i]) && !isDigit(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: kindText, text: strings.ToLower(string(runes[start:i]))})
		}
	}
	return Key{tokens: tokens, original: name}
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// Original returns the name the key was built from.
func (k Key) Original() string {
	return k.original
}

// Compare orders two keys: token sequences element-wise (numbers by
// magnitude, text case-folded, a number sorts before text at the same
// position), a shorter sequence with a common prefix first, and equal
// sequences by case-sensitive original string.
func Compare(a, b Key) int {
	n := len(a.tokens)
	if len(b.tokens) < n {
		n = len(b.tokens)
	}
	for i := 0; i < n; i++ {
		at, bt := a.tokens[i], b.tokens[i]
		if at.kind != bt.kind {
			if at.kind == kindNumber {
				return -1
			}
			return 1
		}
		if at.kind == kindNumber {
			if c := at.num.Cmp(bt.num); c != 0 {
				return c
			}
		} else if c := strings.Compare(at.text, bt.text); c != 0 {
			return c
		}
	}
	if len(a.tokens) != len(b.tokens) {
		if len(a.tokens) < len(b.tokens) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.original, b.original)
}

// Less reports whether a orders before b.
func Less(a, b Key) bool {
	return Compare(a, b) < 0
}
