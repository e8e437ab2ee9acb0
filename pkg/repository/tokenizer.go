package repository

import (
	"strings"
	"unicode"
)

type Token string

type Tokenizer struct {
	MaxTokens int
}

var commonIssues = map[rune]rune{
	'ö': 'o',
	'ä': 'a',
	'å': 'a',
	'é': 'e',
	'è': 'e',
	'ê': 'e',
	'ë': 'e',
	'ï': 'i',
	'î': 'i',
	'ô': 'o',
	'ü': 'u',
	'û': 'u',
	'ÿ': 'y',
	'ç': 'c',
	'ñ': 'n',
	'ß': 's',
	'æ': 'a',
	'ø': 'o',
	'Ø': 'o',
}

func NormalizeWord(text string) Token {
	ret := make([]rune, 0, len(text))
	var l rune
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			l = unicode.ToLower(r)
			if replacement, ok := commonIssues[l]; ok {
				l = replacement
			}
			ret = append(ret, l)
		}
	}
	return Token(ret)
}

func isSeparator(chr rune) bool {
	switch chr {
	case ' ', '\n', '\t', ',', ':', '.', '!', '?', ';', '(', ')', '[', ']', '{', '}', '"', '\'', '/', '-', '_':
		return true
	}
	return false
}

// Tokenize splits and normalizes text, returning unique tokens in order of appearance.
func (t *Tokenizer) Tokenize(text string) []Token {
	ret := make([]Token, 0)
	found := map[Token]struct{}{}
	for _, word := range strings.FieldsFunc(text, isSeparator) {
		if t.MaxTokens > 0 && len(ret) >= t.MaxTokens {
			break
		}
		normalized := NormalizeWord(word)
		if len(normalized) == 0 {
			continue
		}
		if _, ok := found[normalized]; ok {
			continue
		}
		found[normalized] = struct{}{}
		ret = append(ret, normalized)
	}
	return ret
}
