package domain

import (
	"fmt"
	"sort"
)

// BuildTargets flattens a project -> URLs mapping. Projects are visited in
// sorted order and URLs in configured order so the result is stable.
func BuildTargets(urls map[string][]string) []StreamTarget {
	projects := make([]string, 0, len(urls))
	for p := range urls {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	out := make([]StreamTarget, 0)
	for _, p := range projects {
		for _, u := range urls[p] {
			out = append(out, NewStreamTarget(p, u))
		}
	}
	return out
}

// DuplicateNameError reports two configured URLs deriving the same name.
type DuplicateNameError struct {
	Name   string
	First  string
	Second string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("stream name %q derived from both %q and %q", e.Name, e.First, e.Second)
}

// CheckUnique returns one *DuplicateNameError per colliding name.
func CheckUnique(targets []StreamTarget) []error {
	seen := make(map[string]string, len(targets))
	var errs []error
	for _, t := range targets {
		if first, ok := seen[t.Name]; ok {
			errs = append(errs, &DuplicateNameError{Name: t.Name, First: first, Second: t.URL})
			continue
		}
		seen[t.Name] = t.URL
	}
	return errs
}
