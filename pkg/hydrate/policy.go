package hydrate

import (
	"fmt"
	"strings"
)

// ErrorPolicy decides what happens to a binding whose source reports an
// error.
type ErrorPolicy uint8

const (
	// PolicyIgnore logs the error and keeps the binding alive.
	PolicyIgnore ErrorPolicy = iota
	// PolicyDetach disposes the binding after the first error.
	PolicyDetach
)

// String returns the string representation of the policy.
func (p ErrorPolicy) String() string {
	switch p {
	case PolicyIgnore:
		return "ignore"
	case PolicyDetach:
		return "detach"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", uint8(p))
	}
}

// ParseErrorPolicy parses "ignore" or "detach". The empty string is ignore.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return PolicyIgnore, nil
	case "detach":
		return PolicyDetach, nil
	}
	return PolicyIgnore, fmt.Errorf("hydrate: unknown error policy %q", s)
}
