// Package validation checks and normalizes the individual answers of the flow.
//
// Every validator is a pure function. Failure messages are shown to the user
// verbatim and are part of the observable contract.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CountryCode is the prefix accepted on 12-digit phone numbers and used in the
// normalized display format.
const CountryCode = "91"

// MessageOK is the message carried by a successful Result.
const MessageOK = "OK"

// Result is the outcome of validating one answer.
type Result struct {
	Valid      bool   `json:"valid"`
	Message    string `json:"message"`
	Normalized string `json:"normalized,omitempty"`
}

// Func validates a single answer.
type Func func(text string) Result

var (
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s\-']{2,50}$`)
	emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9-]+(?:\\.[a-zA-Z0-9-]+)+$")
	nonDigits    = regexp.MustCompile(`\D`)
)

func fail(msg string) Result {
	return Result{Message: msg}
}

func ok(normalized string) Result {
	return Result{Valid: true, Message: MessageOK, Normalized: normalized}
}

// Name accepts 2 to 50 letters, spaces, hyphens or apostrophes and
// capitalizes each word ("JOHN smith" -> "John Smith").
func Name(text string) Result {
	if text == "" {
		return fail("Name is required")
	}
	name := strings.TrimSpace(text)
	if utf8.RuneCountInString(name) < 2 {
		return fail("Name must be at least 2 characters")
	}
	if !namePattern.MatchString(name) {
		return fail("Only letters, spaces, hyphens, apostrophes allowed")
	}

	words := strings.Fields(name)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return ok(strings.Join(words, " "))
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}

// Email accepts a local@domain.tld address and lower-cases it.
func Email(text string) Result {
	if text == "" {
		return fail("Email is required")
	}
	email := strings.ToLower(strings.TrimSpace(text))
	if !emailPattern.MatchString(email) {
		return fail("Invalid email format")
	}
	return ok(email)
}

// Phone accepts a 10-digit mobile number starting with 6-9, optionally
// prefixed by CountryCode, and formats it as "+91 XXXXX XXXXX".
func Phone(text string) Result {
	if text == "" {
		return fail("Phone number is required")
	}
	digits := nonDigits.ReplaceAllString(text, "")

	switch {
	case len(digits) == 10 && isMobileLead(digits[0]):
	case len(digits) == 12 && strings.HasPrefix(digits, CountryCode) && isMobileLead(digits[2]):
		digits = digits[2:]
	default:
		return fail("Enter a valid 10-digit Indian mobile number")
	}
	return ok(fmt.Sprintf("+%s %s %s", CountryCode, digits[:5], digits[5:]))
}

func isMobileLead(b byte) bool {
	return b >= '6' && b <= '9'
}

// Service accepts one of options, compared case-insensitively, and returns it
// lower-cased.
func Service(text string, options []string) Result {
	choices := strings.Join(options, ", ")
	if text == "" {
		return fail("Choose one: " + choices)
	}
	s := strings.ToLower(strings.TrimSpace(text))
	for _, opt := range options {
		if s == strings.ToLower(opt) {
			return ok(s)
		}
	}
	return fail("Invalid service. Choose one: " + choices)
}

// ServiceFunc binds Service to a fixed option list.
func ServiceFunc(options []string) Func {
	opts := append([]string(nil), options...)
	return func(text string) Result {
		return Service(text, opts)
	}
}
