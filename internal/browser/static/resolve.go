package static

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/tomyan/sitecheck/internal/browser"
)

var skippedTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true, "noscript": true,
}

// resolver evaluates locator steps over a parsed document.
type resolver struct {
	doc   *goquery.Document
	root  *html.Node
	all   []*html.Node // element nodes in document order
	order map[*html.Node]int
}

func newResolver(doc *goquery.Document) *resolver {
	r := &resolver{doc: doc, root: doc.Nodes[0], order: make(map[*html.Node]int)}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			r.order[n] = len(r.all)
			r.all = append(r.all, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(r.root)
	return r
}

func (r *resolver) sorted(nodes []*html.Node) []*html.Node {
	seen := make(map[*html.Node]bool, len(nodes))
	out := nodes[:0:0]
	for _, n := range nodes {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.order[out[i]] < r.order[out[j]] })
	return out
}

func (r *resolver) find(scopes []*html.Node, css string) ([]*html.Node, error) {
	if _, err := cascadia.Compile(css); err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", css, err)
	}
	var out []*html.Node
	for _, scope := range scopes {
		if scope == r.root {
			out = append(out, r.doc.Find(css).Nodes...)
			continue
		}
		out = append(out, r.doc.FindNodes(scope).Find(css).Nodes...)
	}
	return out, nil
}

func (r *resolver) resolve(l browser.Locator) ([]*html.Node, error) {
	set := []*html.Node{r.root}

	for _, step := range l.Steps() {
		var next []*html.Node
		switch step.Kind {
		case "css":
			found, err := r.find(set, step.Value)
			if err != nil {
				return nil, err
			}
			next = found
		case "role":
			found, err := r.find(set, browser.RoleSelector(step.Value))
			if err != nil {
				return nil, err
			}
			for _, n := range found {
				if explicit, ok := attr(n, "role"); ok && explicit != step.Value {
					continue
				}
				if browser.NameMatches(r.accessibleName(n), step.Name, step.Exact) {
					next = append(next, n)
				}
			}
		case "text":
			for _, scope := range set {
				var hits []*html.Node
				for _, n := range r.descendants(scope) {
					if !skippedTags[n.Data] && textContent(n) == step.Value {
						hits = append(hits, n)
					}
				}
				for _, n := range hits {
					if !containsAny(n, hits) {
						next = append(next, n)
					}
				}
			}
		case "hasText":
			want := strings.ToLower(step.Value)
			for _, n := range set {
				if n != r.root && strings.Contains(strings.ToLower(textContent(n)), want) {
					next = append(next, n)
				}
			}
		case "visible":
			for _, n := range set {
				if n != r.root && visible(n) {
					next = append(next, n)
				}
			}
		case "following":
			for _, n := range set {
				if n == r.root {
					continue
				}
				if hit := r.following(n, step.Value); hit != nil {
					next = append(next, hit)
				}
			}
		case "nth":
			i := step.Index
			if i < 0 {
				i += len(set)
			}
			if i >= 0 && i < len(set) {
				next = []*html.Node{set[i]}
			}
		default:
			return nil, fmt.Errorf("unknown locator step %q", step.Kind)
		}
		set = r.sorted(next)
	}

	out := set[:0:0]
	for _, n := range set {
		if n != r.root {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *resolver) descendants(scope *html.Node) []*html.Node {
	if scope == r.root {
		return r.all
	}
	var out []*html.Node
	for i := r.order[scope] + 1; i < len(r.all) && isAncestor(scope, r.all[i]); i++ {
		out = append(out, r.all[i])
	}
	return out
}

func (r *resolver) following(n *html.Node, tag string) *html.Node {
	for i := r.order[n] + 1; i < len(r.all); i++ {
		c := r.all[i]
		if c.Data == tag && !isAncestor(n, c) {
			return c
		}
	}
	return nil
}

func (r *resolver) byID(id string) *html.Node {
	for _, n := range r.all {
		if v, ok := attr(n, "id"); ok && v == id {
			return n
		}
	}
	return nil
}

// accessibleName approximates the accessible name computation: labels,
// then text content, then the title attribute.
func (r *resolver) accessibleName(n *html.Node) string {
	if v, ok := attr(n, "aria-label"); ok && browser.NormalizeText(v) != "" {
		return browser.NormalizeText(v)
	}
	if v, ok := attr(n, "aria-labelledby"); ok {
		var parts []string
		for _, id := range strings.Fields(v) {
			if ref := r.byID(id); ref != nil {
				parts = append(parts, textContent(ref))
			}
		}
		if name := browser.NormalizeText(strings.Join(parts, " ")); name != "" {
			return name
		}
	}
	switch n.Data {
	case "input":
		if v, ok := attr(n, "value"); ok && v != "" {
			return browser.NormalizeText(v)
		}
	case "img":
		v, _ := attr(n, "alt")
		return browser.NormalizeText(v)
	}
	if t := textContent(n); t != "" {
		return t
	}
	v, _ := attr(n, "title")
	return browser.NormalizeText(v)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// textContent is the normalized concatenation of all descendant text.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return browser.NormalizeText(b.String())
}

func isAncestor(a, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

func containsAny(n *html.Node, others []*html.Node) bool {
	for _, o := range others {
		if o != n && isAncestor(n, o) {
			return true
		}
	}
	return false
}

// visible reports whether n would be rendered, judged from markup alone:
// hidden attributes, inline display/visibility styles and non-rendered
// containers on n or any ancestor.
func visible(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if skippedTags[cur.Data] {
			return false
		}
		if _, ok := attr(cur, "hidden"); ok {
			return false
		}
		if cur.Data == "input" {
			if v, _ := attr(cur, "type"); strings.EqualFold(v, "hidden") {
				return false
			}
		}
		if style, ok := attr(cur, "style"); ok && hiddenByStyle(style) {
			return false
		}
	}
	return true
}

func hiddenByStyle(style string) bool {
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important")))
		switch {
		case prop == "display" && val == "none":
			return true
		case prop == "visibility" && (val == "hidden" || val == "collapse"):
			return true
		}
	}
	return false
}
