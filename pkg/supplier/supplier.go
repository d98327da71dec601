// Package supplier provides lazily evaluated value providers. Suppliers form
// the transport for property values between tasks: nothing is computed until
// a consumer calls Get, and chains of suppliers propagate the Empty and
// Deferred conditions of their upstreams instead of masking them.
package supplier

// Any is the untyped view of a supplier. It is what lineage traversal and
// generic tooling operate on when the value type is not statically known.
type Any interface {
	// GetAny evaluates the supplier and returns its value untyped.
	GetAny() (any, error)

	// Derived returns the upstream suppliers this supplier is derived from.
	// The slice may be empty for leaf suppliers.
	Derived() []Any
}

// Supplier is a lazily evaluated provider of a value of type T.
type Supplier[T any] interface {
	Any

	// Get evaluates the supplier. It returns an *Empty error if no value is
	// available and a *Deferred error if the value will only become
	// available later (an unpopulated task output).
	Get() (T, error)
}

// All constructors return pointers so that suppliers have a stable identity:
// lineage traversal deduplicates nodes by interface equality, which requires
// hashable dynamic types. Func fields and slice-typed constants would make
// the value forms unhashable.

type constant[T any] struct {
	value T
}

// Of returns a supplier that always yields the given value.
func Of[T any](value T) Supplier[T] {
	return &constant[T]{value: value}
}

func (c *constant[T]) Get() (T, error)      { return c.value, nil }
func (c *constant[T]) GetAny() (any, error) { return c.value, nil }
func (c *constant[T]) Derived() []Any       { return nil }

type void[T any] struct {
	source string
}

// Void returns a supplier that always signals Empty. The source names the
// origin of the supplier in error messages.
func Void[T any](source string) Supplier[T] {
	return &void[T]{source: source}
}

func (v *void[T]) Get() (T, error) {
	var zero T
	return zero, &Empty{Source: v.source}
}

func (v *void[T]) GetAny() (any, error) { return nil, &Empty{Source: v.source} }
func (v *void[T]) Derived() []Any       { return nil }

type callable[T any] struct {
	fn      func() (T, error)
	derived []Any
}

// OfCallable returns a supplier that evaluates fn on every Get. The derived
// suppliers declare which upstreams the callable reads so that lineage
// traversal can see through it.
func OfCallable[T any](fn func() (T, error), derived ...Any) Supplier[T] {
	return &callable[T]{fn: fn, derived: derived}
}

func (c *callable[T]) Get() (T, error)      { return c.fn() }
func (c *callable[T]) GetAny() (any, error) { return c.fn() }
func (c *callable[T]) Derived() []Any {
	out := make([]Any, len(c.derived))
	copy(out, c.derived)
	return out
}

type mapped[T, U any] struct {
	upstream Supplier[T]
	fn       func(T) (U, error)
}

// Map returns a supplier that applies fn to the value of upstream. Empty and
// Deferred conditions of the upstream pass through untouched.
func Map[T, U any](upstream Supplier[T], fn func(T) (U, error)) Supplier[U] {
	return &mapped[T, U]{upstream: upstream, fn: fn}
}

func (m *mapped[T, U]) Get() (U, error) {
	value, err := m.upstream.Get()
	if err != nil {
		var zero U
		return zero, err
	}
	return m.fn(value)
}

func (m *mapped[T, U]) GetAny() (any, error) { return m.Get() }
func (m *mapped[T, U]) Derived() []Any       { return []Any{m.upstream} }

// Index returns a supplier for the i-th element of a slice-valued supplier.
// The element is not materialized until Get is called.
func Index[T any](upstream Supplier[[]T], i int) Supplier[T] {
	return Map(upstream, func(values []T) (T, error) {
		if i < 0 || i >= len(values) {
			var zero T
			return zero, &Empty{Source: "index out of range"}
		}
		return values[i], nil
	})
}

// Key returns a supplier for the value under k of a map-valued supplier.
func Key[K comparable, V any](upstream Supplier[map[K]V], k K) Supplier[V] {
	return Map(upstream, func(values map[K]V) (V, error) {
		value, ok := values[k]
		if !ok {
			var zero V
			return zero, &Empty{Source: "key not present"}
		}
		return value, nil
	})
}
