// Package relocation defines package relocation (repackaging) rules and the
// collaborator that applies them to a downloaded artifact.
//
// A [Rule] rewrites class names under Pattern to Target, optionally limited
// by Includes and Excludes. A [Set] collects rules concurrently and
// deduplicates them by value. [Set.Key] is a stable digest of the set's
// contents; the cache path layer prefixes relocated artifact file names with
// it so that distinct rule sets never share a file.
//
// The relocation engine itself is external. [Provider] is its interface;
// [Exec] runs an external command and [Func] adapts a plain function.
package relocation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/depfetch/pkg/errors"
)

// KeyLength is the number of hex characters in [Set.Key].
const KeyLength = 16

// Rule relocates classes under Pattern to Target.
type Rule struct {
	Pattern  string   `json:"pattern" toml:"pattern"`
	Target   string   `json:"target" toml:"target"`
	Includes []string `json:"includes,omitempty" toml:"includes"`
	Excludes []string `json:"excludes,omitempty" toml:"excludes"`
}

// Validate reports a configuration error for rules without a pattern or target.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return errors.New(errors.ErrCodeConfiguration, "relocation pattern cannot be empty")
	}
	if strings.TrimSpace(r.Target) == "" {
		return errors.New(errors.ErrCodeConfiguration, "relocation target cannot be empty for pattern %q", r.Pattern)
	}
	return nil
}

// canonical returns a copy with sorted, deduplicated includes and excludes.
func (r Rule) canonical() Rule {
	return Rule{
		Pattern:  r.Pattern,
		Target:   r.Target,
		Includes: sortedUnique(r.Includes),
		Excludes: sortedUnique(r.Excludes),
	}
}

func (r Rule) id() string {
	data, _ := json.Marshal(r.canonical())
	return string(data)
}

func (r Rule) String() string {
	return r.Pattern + " -> " + r.Target
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// Set is an unordered, value-deduplicated collection of rules.
// It is safe for concurrent use. The zero value is an empty set.
type Set struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewSet returns a set holding rules.
func NewSet(rules ...Rule) *Set {
	s := &Set{}
	s.Add(rules...)
	return s
}

// Add inserts rules and returns how many were not already present.
func (s *Set) Add(rules ...Rule) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rules == nil {
		s.rules = make(map[string]Rule)
	}
	added := 0
	for _, r := range rules {
		id := r.id()
		if _, ok := s.rules[id]; ok {
			continue
		}
		s.rules[id] = r.canonical()
		added++
	}
	return added
}

// Len returns the number of distinct rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// Rules returns a snapshot of the rules sorted by pattern, then target.
func (s *Set) Rules() []Rule {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	out := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Rule) int {
		if c := strings.Compare(a.Pattern, b.Pattern); c != 0 {
			return c
		}
		if c := strings.Compare(a.Target, b.Target); c != 0 {
			return c
		}
		return strings.Compare(a.id(), b.id())
	})
	return out
}

// Key returns the first [KeyLength] hex characters of the SHA-256 of the
// canonical JSON encoding of [Set.Rules]. It is empty for an empty set.
func (s *Set) Key() string {
	return Key(s.Rules())
}

// Key computes the stable digest of rules independent of their order.
func Key(rules []Rule) string {
	if len(rules) == 0 {
		return ""
	}
	set := NewSet(rules...)
	data, _ := json.Marshal(set.Rules())
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:KeyLength]
}
