package fixture

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"sort"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		_, err := Pattern(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks field constraints and the cross-file invariants, and
// compiles the route patterns.
func (s *Store) Validate() error {
	v := newValidator()

	docs := []struct {
		name string
		doc  interface{}
	}{
		{"environment.json", s.Environment},
		{"ui-selectors.json", s.UISelectors},
		{"download.json", s.Download},
		{"navigation.json", s.Navigation},
		{"trading.json", s.Trading},
		{"company.json", s.Company},
	}

	var errs []error
	for _, d := range docs {
		if err := v.Struct(d.doc); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
		}
	}
	if err := v.Var(s.Routes, "min=1,dive,keys,required,endkeys,required,regexp"); err != nil {
		errs = append(errs, fmt.Errorf("routes.json: %w", err))
	}

	if u, err := url.Parse(s.Environment.BaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("environment.json: baseUrl %q is not an absolute URL", s.Environment.BaseURL))
	}

	labels := sortedKeys(s.Routes)
	for _, label := range labels {
		if label != s.Navigation.SignUp && !slices.Contains(s.Navigation.Items, label) {
			errs = append(errs, fmt.Errorf("routes.json: %q is not a navigation item", label))
		}
	}
	if s.Navigation.SignUp != "" && !slices.Contains(s.Navigation.Items, s.Navigation.SignUp) {
		errs = append(errs, fmt.Errorf("navigation.json: signUp %q is not a navigation item", s.Navigation.SignUp))
	}
	if ext := s.Navigation.Component.External.Label; ext != "" && !slices.Contains(s.Navigation.Component.Items, ext) {
		errs = append(errs, fmt.Errorf("navigation.json: external label %q is not a component item", ext))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.routes = make(map[string]*regexp.Regexp, len(s.Routes))
	for _, label := range labels {
		re, err := Pattern(s.Routes[label])
		if err != nil {
			return fmt.Errorf("routes.json: %q: %w", label, err)
		}
		s.routes[label] = re
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
