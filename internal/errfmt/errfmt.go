// Package errfmt bounds error text before it is shown to a user or logged.
package errfmt

import "unicode/utf8"

// MaxLen caps error content to prevent unbounded propagation.
const MaxLen = 4096

// MessagePrefix starts every conversational error message.
const MessagePrefix = "Error: "

// TruncateTo caps s at limit bytes, backtracking to a valid UTF-8 boundary.
func TruncateTo(s string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if len(s) <= limit {
		return s
	}
	end := limit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}

// Truncate caps a string at MaxLen bytes with UTF-8-safe truncation.
func Truncate(s string) string {
	return TruncateTo(s, MaxLen)
}

// TailUTF8 returns at most the last limit bytes of s, advancing past any
// partial rune at the cut.
func TailUTF8(s string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if len(s) <= limit {
		return s
	}
	start := len(s) - limit
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

// Message renders err as a conversational message: MessagePrefix followed
// by the bounded error text.
func Message(err error) string {
	if err == nil {
		return MessagePrefix + "unknown error"
	}
	return MessagePrefix + Truncate(err.Error())
}

