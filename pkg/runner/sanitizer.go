package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize caps a single answer in bytes. Names, phone numbers,
	// e-mail addresses and a parent's list of classes all fit well below it.
	DefaultMaxInputSize = 1024
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "LEADFORM_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput cleans an answer before it reaches the session.
// Every field of the lead form holds one line, so line breaks and other control
// characters are dropped and a tab becomes a space. Surrounding whitespace is
// kept: answers are stored as entered. Oversized answers and invalid UTF-8 are
// rejected, never truncated.
//
// The terminal runner, the HTTP API and the Telegram bot all go through it.
func SanitizeInput(input string) (string, error) {
	if limit := maxInputSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	// strings.Map hands back input itself when no rune changes.
	return strings.Map(answerRune, input), nil
}

// answerRune maps a rune of an answer; a negative result drops it.
func answerRune(r rune) rune {
	switch {
	case r == '\t':
		return ' '
	case unicode.IsControl(r):
		return -1
	default:
		return r
	}
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
