package system

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/kraken-build/kraken/pkg/supplier"
)

// Slot is the untyped view of a task property. Tasks hold their properties as
// slots so that generic tooling (graph building, state restoration, the
// describe command) can operate on them without knowing the value type.
type Slot interface {
	// Name returns the declared property name.
	Name() string

	// IsOutput reports whether the property is an output of its task.
	IsOutput() bool

	// IsSet reports whether a value or supplier has been assigned, or a
	// default exists. It does not imply that evaluation will succeed.
	IsSet() bool

	// ValueAny evaluates the property untyped.
	ValueAny() (any, error)

	// SetAny assigns an untyped value, decoding it into the declared value
	// type. A nil value clears the property. Used when restoring persisted
	// output values.
	SetAny(value any) error

	// Clear resets the property to unset.
	Clear()

	// Finalize freezes the property against further assignment.
	Finalize()

	// Lineage returns the supplier chain roots the property currently reads
	// from. Empty for unconnected properties.
	Lineage() []supplier.Any

	// Provides reports whether evaluation can yield a value assignable to
	// the target type, either directly or as a slice element.
	Provides(target reflect.Type) bool

	// GetOfType evaluates the property and returns all contained values
	// assignable to target, flattening slice values. Properties that are
	// empty or deferred contribute nothing.
	GetOfType(target reflect.Type) []any

	// Describe renders the current value for human consumption, tolerating
	// Empty and Deferred conditions.
	Describe() string
}

// Property is a typed, named slot on a task. It may hold a constant, be
// connected to a supplier (including another task's output property, which is
// how inter-task dependencies are inferred), or be unset.
//
// A Property is itself a Supplier so that connecting one property to another
// is just SetSupplier.
type Property[T any] struct {
	owner     Task
	name      string
	output    bool
	value     supplier.Supplier[T]
	def       supplier.Supplier[T]
	finalized bool
}

var _ Slot = (*Property[string])(nil)
var _ supplier.Supplier[string] = (*Property[string])(nil)

// NewProperty declares an input property on the given task.
func NewProperty[T any](owner Task, name string) *Property[T] {
	p := &Property[T]{owner: owner, name: name}
	owner.Spec().registerSlot(p)
	return p
}

// NewPropertyDefault declares an input property with a default value.
func NewPropertyDefault[T any](owner Task, name string, def T) *Property[T] {
	p := &Property[T]{owner: owner, name: name, def: supplier.Of(def)}
	owner.Spec().registerSlot(p)
	return p
}

// NewOutput declares an output property on the given task. Reading it before
// the task has executed yields a Deferred condition instead of Empty.
func NewOutput[T any](owner Task, name string) *Property[T] {
	p := &Property[T]{owner: owner, name: name, output: true}
	owner.Spec().registerSlot(p)
	return p
}

func (p *Property[T]) Name() string   { return p.name }
func (p *Property[T]) IsOutput() bool { return p.output }
func (p *Property[T]) Owner() Task    { return p.owner }

func (p *Property[T]) path() string {
	spec := p.owner.Spec()
	if spec.bound {
		return spec.addr.String() + "." + p.name
	}
	return p.name
}

// Set assigns a constant value. Assigning to a finalized property is a
// programming error and panics.
func (p *Property[T]) Set(value T) {
	p.checkMutable()
	p.value = supplier.Of(value)
}

// SetSupplier connects the property to a value source. Connecting to another
// task's output property makes the owning task depend on that task.
func (p *Property[T]) SetSupplier(s supplier.Supplier[T]) {
	p.checkMutable()
	p.value = s
}

// SetMap replaces the property value with a lazily mapped view of itself.
func (p *Property[T]) SetMap(fn func(T) T) {
	p.checkMutable()
	current := p.currentSupplier()
	p.value = supplier.Map(current, func(v T) (T, error) { return fn(v), nil })
}

// Clear resets the property to unset; a default, if declared, applies again.
func (p *Property[T]) Clear() {
	p.checkMutable()
	p.value = nil
}

func (p *Property[T]) checkMutable() {
	if p.finalized {
		panic(fmt.Sprintf("property %s is finalized and cannot be modified", p.path()))
	}
}

// currentSupplier returns the supplier the property reads from, falling back
// to a Void supplier that reports the right condition when unset.
func (p *Property[T]) currentSupplier() supplier.Supplier[T] {
	if p.value != nil {
		return p.value
	}
	if p.def != nil {
		return p.def
	}
	path := p.path()
	if p.output {
		return supplier.OfCallable(func() (T, error) {
			var zero T
			return zero, &supplier.Deferred{Source: path}
		})
	}
	return supplier.Void[T](path)
}

// Get evaluates the property. An unset required property yields Empty, an
// unpopulated output property yields Deferred, and conditions of connected
// upstream suppliers propagate unchanged.
func (p *Property[T]) Get() (T, error) {
	return p.currentSupplier().Get()
}

// GetOr evaluates the property and falls back to the given value on Empty or
// Deferred.
func (p *Property[T]) GetOr(fallback T) T {
	value, err := p.Get()
	if err != nil {
		return fallback
	}
	return value
}

func (p *Property[T]) IsSet() bool {
	return p.value != nil || p.def != nil
}

func (p *Property[T]) Finalize() { p.finalized = true }

func (p *Property[T]) GetAny() (any, error) { return p.Get() }

func (p *Property[T]) ValueAny() (any, error) { return p.Get() }

func (p *Property[T]) Derived() []supplier.Any {
	if p.value != nil {
		return []supplier.Any{p.value}
	}
	if p.def != nil {
		return []supplier.Any{p.def}
	}
	return nil
}

func (p *Property[T]) Lineage() []supplier.Any { return p.Derived() }

// SetAny decodes an untyped value into the property. Values of the exact
// type are assigned directly; everything else goes through mapstructure so
// that persisted state (maps, numbers from YAML) round-trips into structured
// value types. Type mismatches are errors, never silent coercions.
func (p *Property[T]) SetAny(value any) error {
	p.checkMutable()
	if value == nil {
		p.value = nil
		return nil
	}
	if typed, ok := value.(T); ok {
		p.value = supplier.Of(typed)
		return nil
	}
	var decoded T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &decoded,
		ErrorUnused: false,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(value); err != nil {
		return fmt.Errorf("cannot assign %T to property %s: %w", value, p.path(), err)
	}
	p.value = supplier.Of(decoded)
	return nil
}

func (p *Property[T]) Provides(target reflect.Type) bool {
	valueType := reflect.TypeOf((*T)(nil)).Elem()
	if valueType.AssignableTo(target) {
		return true
	}
	if valueType.Kind() == reflect.Slice && valueType.Elem().AssignableTo(target) {
		return true
	}
	// Interface-typed properties can hold anything; decide at Get time.
	return valueType.Kind() == reflect.Interface
}

func (p *Property[T]) GetOfType(target reflect.Type) []any {
	value, err := p.Get()
	if err != nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return nil
	}
	// An exact type match returns the value whole; slices are otherwise
	// flattened so that "find outputs of type T" sees their elements.
	if rv.Type() == target {
		return []any{value}
	}
	if rv.Kind() == reflect.Slice {
		var out []any
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i)
			if elem.Kind() == reflect.Interface {
				elem = elem.Elem()
			}
			if elem.IsValid() && elem.Type().AssignableTo(target) {
				out = append(out, elem.Interface())
			}
		}
		return out
	}
	if rv.Type().AssignableTo(target) {
		return []any{value}
	}
	return nil
}

func (p *Property[T]) Describe() string {
	value, err := p.Get()
	switch {
	case supplier.IsDeferred(err):
		return "<deferred>"
	case supplier.IsEmpty(err):
		return "<empty>"
	case err != nil:
		return "<error: " + err.Error() + ">"
	}
	return fmt.Sprintf("%v", value)
}
