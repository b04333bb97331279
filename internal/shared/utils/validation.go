package utils

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Size limits (in bytes)
const (
	MaxJSONSize   = 1 * 1024 * 1024 // admin request bodies
	MaxAssetSize  = 8 * 1024 * 1024 // single proxied asset
	MaxIDLength   = 128
	MaxPathLength = 1024
)

// Regular expressions for validation
var (
	// SafeIDPattern allows alphanumeric, hyphens, underscores, dots
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	// TagPattern matches custom element names: lowercase, starts with a letter, contains a hyphen
	TagPattern = regexp.MustCompile(`^[a-z][a-z0-9._]*-[a-z0-9._-]*$`)
)

var (
	ErrEmpty       = errors.New("value is empty")
	ErrTooLong     = errors.New("value is too long")
	ErrInvalidChar = errors.New("value contains invalid characters")
	ErrEscape      = errors.New("path escapes its root")
)

// ValidateID checks a plugin id is safe to use as a single path segment
func ValidateID(id string) error {
	switch {
	case id == "":
		return ErrEmpty
	case len(id) > MaxIDLength:
		return fmt.Errorf("%w: %d > %d", ErrTooLong, len(id), MaxIDLength)
	case !SafeIDPattern.MatchString(id), strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidChar, id)
	}
	return nil
}

// ValidateTag checks a component tag name
func ValidateTag(tag string) error {
	if tag == "" {
		return ErrEmpty
	}
	if !TagPattern.MatchString(tag) {
		return fmt.Errorf("%w: %q", ErrInvalidChar, tag)
	}
	return nil
}

// ValidateRelativePath rejects paths that could leave a namespace:
// parent segments, absolute paths in either separator style, NUL and
// control bytes, and query or fragment markers. Percent-encoded forms
// are checked after decoding too.
func ValidateRelativePath(p string) error {
	switch {
	case p == "":
		return ErrEmpty
	case len(p) > MaxPathLength:
		return fmt.Errorf("%w: %d > %d", ErrTooLong, len(p), MaxPathLength)
	}
	if err := checkRelative(p); err != nil {
		return err
	}
	if !strings.Contains(p, "%") {
		return nil
	}
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return fmt.Errorf("%w: bad escape", ErrInvalidChar)
	}
	if decoded == "" {
		return ErrEmpty
	}
	return checkRelative(decoded)
}

func checkRelative(p string) error {
	switch {
	case !utf8.ValidString(p):
		return fmt.Errorf("%w: not utf-8", ErrInvalidChar)
	case strings.HasPrefix(p, "/"), strings.HasPrefix(p, "\\"):
		return fmt.Errorf("%w: absolute path", ErrEscape)
	}

	for _, r := range p {
		if r < 0x20 || r == 0x7f || r == '?' || r == '#' {
			return fmt.Errorf("%w: %q", ErrInvalidChar, r)
		}
	}

	// Windows drive letters are absolute too
	if len(p) >= 2 && p[1] == ':' {
		return fmt.Errorf("%w: absolute path", ErrEscape)
	}

	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return fmt.Errorf("%w: parent segment", ErrEscape)
		}
	}
	return nil
}
