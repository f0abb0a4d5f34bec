package util

import (
	"errors"
	"strings"
	"unicode"
)

// SanitizeFileName removes path separators, quotes and control characters and
// rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r == '"' || unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// SignedFileName builds the attachment name for a signed copy of a document:
// whitespace runs become underscores and "_signed.pdf" is appended.
func SignedFileName(title string) string {
	base := strings.Join(strings.Fields(title), "_")
	if clean, err := SanitizeFileName(base); err == nil {
		base = clean
	} else {
		base = "document"
	}
	return base + "_signed.pdf"
}
