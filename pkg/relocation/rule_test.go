package relocation

import (
	"sync"
	"testing"
)

func TestSetDeduplicates(t *testing.T) {
	s := NewSet()
	r := Rule{Pattern: "com.google", Target: "shaded.com.google", Includes: []string{"b", "a"}}

	if n := s.Add(r); n != 1 {
		t.Errorf("first Add() = %d, want 1", n)
	}
	// Same value with includes in another order.
	if n := s.Add(Rule{Pattern: "com.google", Target: "shaded.com.google", Includes: []string{"a", "b"}}); n != 0 {
		t.Errorf("duplicate Add() = %d, want 0", n)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSetConcurrentAdd(t *testing.T) {
	s := NewSet()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(Rule{Pattern: "p", Target: "t"}, Rule{Pattern: "q", Target: string(rune('a' + i%5))})
		}(i)
	}
	wg.Wait()
	if s.Len() != 6 {
		t.Errorf("Len() = %d, want 6", s.Len())
	}
}

func TestKey(t *testing.T) {
	a := Rule{Pattern: "com.google", Target: "x.com.google"}
	b := Rule{Pattern: "org.slf4j", Target: "x.org.slf4j", Excludes: []string{"org.slf4j.impl"}}
	c := Rule{Pattern: "org.slf4j", Target: "y.org.slf4j"}

	tests := []struct {
		name  string
		left  []Rule
		right []Rule
		same  bool
	}{
		{"order independent", []Rule{a, b}, []Rule{b, a}, true},
		{"duplicates ignored", []Rule{a, a, b}, []Rule{a, b}, true},
		{"different target", []Rule{a, b}, []Rule{a, c}, false},
		{"subset", []Rule{a}, []Rule{a, b}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, r := Key(tt.left), Key(tt.right)
			if (l == r) != tt.same {
				t.Errorf("Key(%v) = %s, Key(%v) = %s, same = %v", tt.left, l, tt.right, r, tt.same)
			}
			if len(l) != KeyLength {
				t.Errorf("len(Key) = %d, want %d", len(l), KeyLength)
			}
		})
	}

	if Key(nil) != "" {
		t.Error("Key of empty rules should be empty")
	}
	if NewSet(a, b).Key() != Key([]Rule{b, a}) {
		t.Error("Set.Key should match Key over the same rules")
	}
}

func TestRulesSorted(t *testing.T) {
	s := NewSet(
		Rule{Pattern: "z", Target: "1"},
		Rule{Pattern: "a", Target: "2"},
		Rule{Pattern: "a", Target: "1"},
	)
	rules := s.Rules()
	want := []string{"a -> 1", "a -> 2", "z -> 1"}
	for i, r := range rules {
		if r.String() != want[i] {
			t.Errorf("Rules()[%d] = %s, want %s", i, r, want[i])
		}
	}
}

func TestRuleValidate(t *testing.T) {
	if err := (Rule{Pattern: "a", Target: "b"}).Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if err := (Rule{Target: "b"}).Validate(); err == nil {
		t.Error("Validate() should reject empty pattern")
	}
	if err := (Rule{Pattern: "a"}).Validate(); err == nil {
		t.Error("Validate() should reject empty target")
	}
}

func TestNilSet(t *testing.T) {
	var s *Set
	if s.Len() != 0 || s.Rules() != nil || s.Key() != "" {
		t.Error("nil set should behave as empty")
	}
}
