package coord

import (
	"strings"

	"github.com/matzehuels/depfetch/pkg/errors"
)

// Scope declares when a dependency is needed.
// The zero value is [ScopeCompile].
type Scope int

const (
	ScopeCompile Scope = iota
	ScopeProvided
	ScopeRuntime
	ScopeTest
	ScopeSystem
	ScopeImport
)

var scopeNames = [...]string{
	ScopeCompile:  "compile",
	ScopeProvided: "provided",
	ScopeRuntime:  "runtime",
	ScopeTest:     "test",
	ScopeSystem:   "system",
	ScopeImport:   "import",
}

// String returns the lowercase descriptor spelling of the scope.
func (s Scope) String() string {
	if s < 0 || int(s) >= len(scopeNames) {
		return "unknown"
	}
	return scopeNames[s]
}

// MustDownload reports whether artifacts in this scope are fetched at runtime.
// Only compile and runtime scopes are.
func (s Scope) MustDownload() bool {
	return s == ScopeCompile || s == ScopeRuntime
}

// ParseScope parses a scope name case-insensitively. An empty string is
// compile scope.
func ParseScope(s string) (Scope, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return ScopeCompile, nil
	}
	for i, n := range scopeNames {
		if n == name {
			return Scope(i), nil
		}
	}
	return ScopeCompile, errors.New(errors.ErrCodeConfiguration, "unknown dependency scope %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so scopes decode from
// TOML and JSON.
func (s *Scope) UnmarshalText(text []byte) error {
	parsed, err := ParseScope(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
