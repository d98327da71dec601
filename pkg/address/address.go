// Package address implements the colon-delimited addressing scheme used to
// identify projects and tasks in a build tree.
//
// An address is an ordered sequence of elements separated by ":". A leading
// ":" marks the address as absolute, a trailing ":" marks it as a container
// (something that holds other addressable objects, i.e. a project). The
// special elements "." and ".." refer to the current and parent container,
// and elements may contain the glob tokens "*", "?" and the recursive
// wildcard "**".
package address

import (
	"fmt"
	"strings"
)

const (
	// Separator splits address elements.
	Separator = ":"

	// validChars is the set of characters allowed in an address element.
	validChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789/_-.*?[]"
)

// Root is the absolute address of the root project (":").
var Root = Address{absolute: true, container: true}

// Current is the relative address of the current project (".").
var Current = Address{elements: []string{"."}}

// Address is an immutable value identifying a project or task. The zero
// value is the empty relative address.
type Address struct {
	absolute  bool
	container bool
	elements  []string
}

// Parse parses an address from its string form.
func Parse(s string) (Address, error) {
	if s == "" {
		return Address{}, nil
	}
	if s == Separator {
		return Root, nil
	}
	addr := Address{}
	if strings.HasPrefix(s, Separator) {
		addr.absolute = true
		s = s[1:]
	}
	if strings.HasSuffix(s, Separator) {
		addr.container = true
		s = s[:len(s)-1]
	}
	for _, elem := range strings.Split(s, Separator) {
		if err := validateElement(elem); err != nil {
			return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
		}
		addr.elements = append(addr.elements, elem)
	}
	return addr, nil
}

// MustParse parses an address and panics on invalid input. Intended for
// address literals in build code and tests.
func MustParse(s string) Address {
	addr, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func validateElement(elem string) error {
	if elem == "" {
		return fmt.Errorf("address element must not be empty")
	}
	for _, r := range elem {
		if !strings.ContainsRune(validChars, r) {
			return fmt.Errorf("invalid character %q in address element %q", r, elem)
		}
	}
	return nil
}

// String returns the canonical string form of the address.
func (a Address) String() string {
	if len(a.elements) == 0 {
		if a.absolute {
			return Separator
		}
		return ""
	}
	var sb strings.Builder
	if a.absolute {
		sb.WriteString(Separator)
	}
	sb.WriteString(strings.Join(a.elements, Separator))
	if a.container {
		sb.WriteString(Separator)
	}
	return sb.String()
}

// IsAbsolute reports whether the address has a leading separator.
func (a Address) IsAbsolute() bool { return a.absolute }

// IsContainer reports whether the address has a trailing separator.
func (a Address) IsContainer() bool { return a.container || a.IsRoot() }

// IsRoot reports whether the address is the absolute root address ":".
func (a Address) IsRoot() bool { return a.absolute && len(a.elements) == 0 }

// IsEmpty reports whether the address has no elements and is not absolute.
func (a Address) IsEmpty() bool { return !a.absolute && len(a.elements) == 0 }

// Elements returns a copy of the address elements.
func (a Address) Elements() []string {
	out := make([]string, len(a.elements))
	copy(out, a.elements)
	return out
}

// Len returns the number of elements.
func (a Address) Len() int { return len(a.elements) }

// Name returns the last element of the address. It panics on an address
// without elements.
func (a Address) Name() string {
	if len(a.elements) == 0 {
		panic("address has no name: " + a.String())
	}
	return a.elements[len(a.elements)-1]
}

// Equal reports structural equality.
func (a Address) Equal(other Address) bool {
	if a.absolute != other.absolute || a.IsContainer() != other.IsContainer() || len(a.elements) != len(other.elements) {
		return false
	}
	for i := range a.elements {
		if a.elements[i] != other.elements[i] {
			return false
		}
	}
	return true
}

// HasGlob reports whether any element contains a wildcard token.
func (a Address) HasGlob() bool {
	for _, elem := range a.elements {
		if strings.ContainsAny(elem, "*?[") {
			return true
		}
	}
	return false
}

// Append returns a new address with name appended as a final element. The
// result is never a container.
func (a Address) Append(name string) Address {
	if err := validateElement(name); err != nil {
		panic(err)
	}
	elements := make([]string, 0, len(a.elements)+1)
	elements = append(elements, a.elements...)
	elements = append(elements, name)
	return Address{absolute: a.absolute, elements: elements}
}

// Concat joins two addresses. If other is absolute, it replaces the receiver
// entirely. The container flag of the result is taken from other.
func (a Address) Concat(other Address) Address {
	if other.absolute {
		return other
	}
	elements := make([]string, 0, len(a.elements)+len(other.elements))
	elements = append(elements, a.elements...)
	elements = append(elements, other.elements...)
	return Address{absolute: a.absolute, container: other.container, elements: elements}
}

// Parent returns the address of the enclosing container. The parent is never
// a container address. Calling Parent on the root address panics.
func (a Address) Parent() Address {
	if len(a.elements) == 0 {
		panic("root address has no parent")
	}
	last := a.elements[len(a.elements)-1]
	switch last {
	case "..":
		elements := make([]string, 0, len(a.elements)+1)
		elements = append(elements, a.elements...)
		elements = append(elements, "..")
		return Address{absolute: a.absolute, elements: elements}
	case ".":
		elements := make([]string, 0, len(a.elements))
		elements = append(elements, a.elements[:len(a.elements)-1]...)
		elements = append(elements, "..")
		return Address{absolute: a.absolute, elements: elements}
	default:
		elements := make([]string, len(a.elements)-1)
		copy(elements, a.elements[:len(a.elements)-1])
		return Address{absolute: a.absolute, elements: elements}
	}
}

// Normalize folds "." and ".." elements. A relative address that folds down
// to nothing normalizes to ".", an absolute one to ":". Leading ".." elements
// of a relative address are preserved; ".." directly under the root is
// preserved as well since it cannot be resolved statically.
func (a Address) Normalize() Address {
	var stack []string
	for _, elem := range a.elements {
		switch elem {
		case ".":
			// no-op
		case "..":
			if len(stack) > 0 && stack[len(stack)-1] != ".." {
				stack = stack[:len(stack)-1]
			} else {
				// Nothing to pop; ".." under the root cannot be resolved
				// statically and is preserved.
				stack = append(stack, "..")
			}
		default:
			stack = append(stack, elem)
		}
	}
	if len(stack) == 0 {
		if a.absolute {
			return Root
		}
		return Current
	}
	return Address{absolute: a.absolute, container: a.container, elements: stack}
}

// SetContainer returns a copy of the address with the container flag set to
// the given value.
func (a Address) SetContainer(container bool) Address {
	return Address{absolute: a.absolute, container: container, elements: a.elements}
}
