package browser

import (
	"fmt"
	"strconv"
	"strings"
)

// Step kinds understood by every binding.
const (
	stepCSS       = "css"
	stepRole      = "role"
	stepText      = "text"
	stepHasText   = "hasText"
	stepVisible   = "visible"
	stepFollowing = "following"
	stepNth       = "nth"
)

// Step is one stage of a locator pipeline. Each step maps the current set
// of elements (initially the document) to a new set in document order.
type Step struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	Name  string `json:"name,omitempty"`
	Exact bool   `json:"exact,omitempty"`
	Index int    `json:"index"`
}

// Locator is a deferred element query. It holds no element handles and is
// resolved again by every action or assertion that uses it.
type Locator struct {
	steps []Step
}

// Locate starts a locator matching css within the document.
func Locate(css string) Locator {
	return Locator{}.Locate(css)
}

// Role starts a locator matching elements by ARIA role. A non-empty name
// must be contained in the accessible name, ignoring case.
func Role(role, name string) Locator {
	return Locator{}.Role(role, name)
}

// RoleExact starts a locator matching role with an exact accessible name.
func RoleExact(role, name string) Locator {
	return Locator{}.RoleExact(role, name)
}

// Text starts a locator matching the smallest elements whose normalized
// text is exactly s.
func Text(s string) Locator {
	return Locator{}.Text(s)
}

func (l Locator) with(s Step) Locator {
	steps := make([]Step, len(l.steps), len(l.steps)+1)
	copy(steps, l.steps)
	return Locator{steps: append(steps, s)}
}

// Steps returns a copy of the pipeline.
func (l Locator) Steps() []Step {
	return append([]Step(nil), l.steps...)
}

// Locate narrows to descendants matching css.
func (l Locator) Locate(css string) Locator {
	return l.with(Step{Kind: stepCSS, Value: css})
}

// IDSuffix narrows to descendants whose id ends with suffix.
func (l Locator) IDSuffix(suffix string) Locator {
	return l.Locate(`[id$="` + strings.ReplaceAll(suffix, `"`, `\"`) + `"]`)
}

// Role narrows to descendants with the given role and accessible name
// containing name (any name when empty).
func (l Locator) Role(role, name string) Locator {
	return l.with(Step{Kind: stepRole, Value: role, Name: name})
}

// RoleExact is Role with an exact, case-sensitive accessible name.
func (l Locator) RoleExact(role, name string) Locator {
	return l.with(Step{Kind: stepRole, Value: role, Name: name, Exact: true})
}

// Text narrows to the smallest descendants whose normalized text is s.
func (l Locator) Text(s string) Locator {
	return l.with(Step{Kind: stepText, Value: s})
}

// HasText keeps elements whose normalized text contains s, ignoring case.
func (l Locator) HasText(s string) Locator {
	return l.with(Step{Kind: stepHasText, Value: s})
}

// Visible keeps rendered elements.
func (l Locator) Visible() Locator {
	return l.with(Step{Kind: stepVisible})
}

// Following maps each element to the first element named tag after it in
// document order, excluding its own descendants.
func (l Locator) Following(tag string) Locator {
	return l.with(Step{Kind: stepFollowing, Value: strings.ToLower(tag)})
}

// Nth keeps the i-th element. Negative i counts from the end.
func (l Locator) Nth(i int) Locator {
	return l.with(Step{Kind: stepNth, Index: i})
}

// First keeps the first element.
func (l Locator) First() Locator {
	return l.Nth(0)
}

func (l Locator) String() string {
	if len(l.steps) == 0 {
		return "document"
	}
	parts := make([]string, 0, len(l.steps))
	for _, s := range l.steps {
		switch s.Kind {
		case stepCSS:
			parts = append(parts, s.Value)
		case stepRole:
			switch {
			case s.Name == "":
				parts = append(parts, "role="+s.Value)
			case s.Exact:
				parts = append(parts, fmt.Sprintf("role=%s[name=%q]", s.Value, s.Name))
			default:
				parts = append(parts, fmt.Sprintf("role=%s[name~=%q]", s.Value, s.Name))
			}
		case stepText:
			parts = append(parts, "text="+strconv.Quote(s.Value))
		case stepHasText:
			parts = append(parts, "has-text="+strconv.Quote(s.Value))
		case stepVisible:
			parts = append(parts, "visible")
		case stepFollowing:
			parts = append(parts, "following::"+s.Value)
		case stepNth:
			parts = append(parts, "nth="+strconv.Itoa(s.Index))
		}
	}
	return strings.Join(parts, " >> ")
}
