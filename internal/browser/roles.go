package browser

import (
	"strings"
	"unicode"
)

// RoleSelectors maps ARIA roles to the CSS selecting elements that carry
// the role implicitly or explicitly. Roles not listed only match an
// explicit role attribute.
var RoleSelectors = map[string]string{
	"link":    `a[href], area[href], [role="link"]`,
	"button":  `button, input[type="button"], input[type="submit"], input[type="reset"], summary, [role="button"]`,
	"heading": `h1, h2, h3, h4, h5, h6, [role="heading"]`,
	"img":     `img[alt], [role="img"]`,
	"textbox": `input:not([type]), input[type="text"], input[type="email"], input[type="tel"], input[type="url"], textarea, [role="textbox"]`,
	"tab":     `[role="tab"]`,
	"row":     `tr, [role="row"]`,
	"cell":    `td, [role="cell"]`,
	"table":   `table, [role="table"]`,
	"banner":  `header, [role="banner"]`,
}

// RoleSelector returns the CSS for role.
func RoleSelector(role string) string {
	if sel, ok := RoleSelectors[role]; ok {
		return sel
	}
	return `[role="` + role + `"]`
}

// NormalizeText collapses runs of whitespace to one space and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// NameMatches reports whether an accessible name satisfies a role step.
func NameMatches(accessibleName, want string, exact bool) bool {
	if want == "" {
		return true
	}
	if exact {
		return accessibleName == want
	}
	return strings.Contains(strings.ToLower(accessibleName), strings.ToLower(want))
}
