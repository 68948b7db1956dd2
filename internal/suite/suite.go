// Package suite holds the end-to-end test cases and the runner that
// executes them per project with retries, concurrency and failure
// artifacts.
package suite

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Case is one test. Run returns a hard failure; soft failures go to
// env.Soft and fail the test once it returns.
type Case struct {
	Name string
	Run  func(ctx context.Context, env *Env) error
}

// Suite groups cases sharing a BeforeEach.
type Suite struct {
	Name       string
	BeforeEach func(ctx context.Context, env *Env) error
	Cases      []Case
}

// Test is a selected case of a suite.
type Test struct {
	Suite *Suite
	Case  Case
}

// ID is "suite/case".
func (t Test) ID() string {
	return t.Suite.Name + "/" + t.Case.Name
}

// Registry returns every suite in run order.
func Registry() []*Suite {
	return []*Suite{
		navigationSuite(),
		homeSuite(),
		tradingSuite(),
		companySuite(),
	}
}

// Filter selects the tests whose ID matches grep, a case-insensitive
// regular expression. A grep that does not compile is matched as a plain
// substring. An empty grep selects everything.
func Filter(suites []*Suite, grep string) []Test {
	match := func(string) bool { return true }
	if grep != "" {
		if re, err := regexp.Compile("(?i)" + grep); err == nil {
			match = re.MatchString
		} else {
			lower := strings.ToLower(grep)
			match = func(id string) bool { return strings.Contains(strings.ToLower(id), lower) }
		}
	}

	var out []Test
	for _, s := range suites {
		for _, c := range s.Cases {
			t := Test{Suite: s, Case: c}
			if match(t.ID()) {
				out = append(out, t)
			}
		}
	}
	return out
}

// Lookup returns the suite named name.
func Lookup(suites []*Suite, name string) (*Suite, error) {
	for _, s := range suites {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown suite %q", name)
}
