package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultExtensions are the file-extension tokens stripped from codes.
var DefaultExtensions = []string{".pdf"}

var codeShape = regexp.MustCompile(`^(\p{L}+)-?([0-9]+)$`)

const codeDigits = 3

// CodeNormalizer turns a raw code (file stem or workbook cell) into the key used to
// join documents and rows. Keys are compared, never stored as codes.
type CodeNormalizer struct {
	extensions []string
}

func NewCodeNormalizer(extensions ...string) *CodeNormalizer {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return &CodeNormalizer{extensions: exts}
}

var defaultNormalizer = NewCodeNormalizer()

// NormalizeCode normalizes raw with the default extension list.
func NormalizeCode(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// Normalize returns "" for blank input; callers treat that as an invalid code.
func (n *CodeNormalizer) Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = n.stripExtensions(s)
	s = strings.Map(canonicalDash, s)
	s = strings.Map(dropSpace, s)
	s = collapseDashes(s)
	s = strings.ToLower(s)
	s = n.stripExtensions(s)
	s = strings.Map(asciiDigit, s)

	if m := codeShape.FindStringSubmatch(s); m != nil {
		digits := strings.TrimLeft(m[2], "0")
		if len(digits) < codeDigits {
			digits = strings.Repeat("0", codeDigits-len(digits)) + digits
		}
		return m[1] + "-" + digits
	}
	return s
}

// Extensions returns the normalized extension tokens.
func (n *CodeNormalizer) Extensions() []string {
	return append([]string(nil), n.extensions...)
}

func (n *CodeNormalizer) stripExtensions(s string) string {
	for {
		stripped := false
		for _, ext := range n.extensions {
			if len(s) > len(ext) && strings.EqualFold(s[len(s)-len(ext):], ext) {
				s = strings.TrimRightFunc(s[:len(s)-len(ext)], unicode.IsSpace)
				stripped = true
			}
		}
		if !stripped {
			return s
		}
	}
}

// MatchKey is the looser key used to match document names against workbook
// names: NFKC, lower case, ASCII digits, no tatweel or combining marks, and only
// Latin/Arabic letters and digits kept.
func (n *CodeNormalizer) MatchKey(s string) string {
	s = strings.TrimSpace(s)
	s = n.stripExtensions(s)
	s = strings.ToLower(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		r = asciiDigit(r)
		switch {
		case r == '\u0640', unicode.Is(unicode.Mn, r):
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= '\u0600' && r <= '\u06ff':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func canonicalDash(r rune) rune {
	switch r {
	case '_', '\u2010', '\u2011', '\u2012', '\u2013', '\u2014', '\u2015', '\u2212', '\ufe58', '\ufe63', '\uff0d':
		return '-'
	}
	return r
}

func dropSpace(r rune) rune {
	if unicode.IsSpace(r) {
		return -1
	}
	return r
}

func collapseDashes(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

// asciiDigit maps Arabic-Indic and Extended Arabic-Indic digits to ASCII.
func asciiDigit(r rune) rune {
	switch {
	case r >= '\u0660' && r <= '\u0669':
		return '0' + (r - '\u0660')
	case r >= '\u06f0' && r <= '\u06f9':
		return '0' + (r - '\u06f0')
	}
	return r
}
