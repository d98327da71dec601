package system

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kraken-build/kraken/pkg/address"
)

// ResolveTasks resolves selector strings into a task set.
//
// A selector is an address pattern. Absolute selectors and selectors starting
// with "." or ".." are resolved against relativeTo; any other relative
// selector is promoted to match at every depth within relativeTo's subtree,
// so "lint" finds every task named lint below the current project. Container
// selectors (trailing colon) select the default tasks of the matched
// projects. A selector without glob characters that matches nothing is an
// error; a glob that matches nothing is not.
//
// With no selectors, the defaults of relativeTo and all its descendants are
// selected under the "." partition.
func ResolveTasks(root *Project, relativeTo *Project, selectors []string) (*TaskSet, error) {
	if relativeTo == nil {
		relativeTo = root
	}
	set := NewTaskSet()

	if len(selectors) == 0 {
		relativeTo.Walk(func(p *Project) {
			set.AddPartition(".", p.DefaultTasks()...)
		})
		return set, nil
	}

	for _, selector := range selectors {
		addr, err := address.Parse(selector)
		if err != nil {
			return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
		}
		// Literal-ness is a property of what the user wrote: promotion adds
		// "**" to bare names, which must not turn a miss into a silent empty
		// match.
		literal := !addr.HasGlob()
		resolved := resolveSelectorAddress(addr, relativeTo)

		var matched []Task
		hit := false
		if resolved.IsContainer() {
			for _, p := range matchProjects(root, resolved) {
				matched = append(matched, p.DefaultTasks()...)
				hit = true
			}
		} else {
			matched = matchTasks(root, resolved)
			hit = len(matched) > 0
			// A plain address naming a project selects its defaults, so
			// "." and "sub" work without the trailing colon.
			for _, p := range matchProjects(root, resolved) {
				matched = append(matched, p.DefaultTasks()...)
				hit = true
			}
		}
		if !hit && literal {
			return nil, &TaskNotFoundError{Selector: selector}
		}
		set.AddPartition(selector, matched...)
	}
	return set, nil
}

// resolveSelectorAddress turns a selector address into a normalized absolute
// pattern. Relative selectors anchored with "." or ".." resolve against the
// current project; all other relative selectors match at any depth within the
// current project's subtree.
func resolveSelectorAddress(addr address.Address, relativeTo *Project) address.Address {
	if addr.IsAbsolute() {
		return addr.Normalize()
	}
	elems := addr.Elements()
	if len(elems) > 0 && (elems[0] == "." || elems[0] == "..") {
		return relativeTo.Address().Concat(addr).Normalize()
	}
	if addr.IsEmpty() {
		// Only the empty selector string parses to an empty address; "." is
		// handled by the anchored branch above.
		return relativeTo.Address().Normalize()
	}
	promoted := relativeTo.Address().Append("**").Concat(addr)
	return promoted.Normalize()
}

// matchTasks collects all tasks in the tree whose absolute address matches
// the pattern.
func matchTasks(root *Project, pattern address.Address) []Task {
	var out []Task
	root.Walk(func(p *Project) {
		for _, task := range p.Tasks() {
			if matchElements(pattern.Elements(), task.Spec().Address().Elements(), false) {
				out = append(out, task)
			}
		}
	})
	return out
}

// matchProjects collects all projects whose address matches the container
// pattern. A trailing "**" in a container pattern requires at least one
// matched element, so ":**:" selects strict descendants of the root.
func matchProjects(root *Project, pattern address.Address) []*Project {
	elems := pattern.Elements()
	trailingAll := len(elems) > 0 && elems[len(elems)-1] == "**"
	var out []*Project
	root.Walk(func(p *Project) {
		if matchElements(elems, p.Address().Elements(), trailingAll) {
			out = append(out, p)
		}
	})
	return out
}

// matchElements matches pattern elements against address elements. Elements
// are joined with "/" and matched with doublestar so that "**" spans
// multiple levels. When requireTrailing is set, a trailing "**" must consume
// at least one element.
func matchElements(pattern, elems []string, requireTrailing bool) bool {
	pat := strings.Join(pattern, "/")
	if requireTrailing {
		pat += "/*"
	}
	if pat == "" {
		return len(elems) == 0
	}
	ok, err := doublestar.Match(pat, strings.Join(elems, "/"))
	return err == nil && ok
}
