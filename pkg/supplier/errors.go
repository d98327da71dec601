package supplier

import "errors"

// Empty signals that a supplier has no value and no default. It is fatal to
// the caller of Get.
type Empty struct {
	// Source names the supplier or property that was empty.
	Source string
}

func (e *Empty) Error() string {
	if e.Source == "" {
		return "supplier is empty"
	}
	return "no value set for " + e.Source
}

// Deferred signals that an output value has not been populated yet because
// its producing task has not executed. Unlike Empty, a Deferred condition is
// recoverable: re-reading after the producer completed yields the value.
type Deferred struct {
	// Source names the output property that is not populated yet.
	Source string
}

func (d *Deferred) Error() string {
	if d.Source == "" {
		return "value is not available yet"
	}
	return "value of " + d.Source + " is not available yet"
}

// IsEmpty reports whether err is an Empty condition.
func IsEmpty(err error) bool {
	var empty *Empty
	return errors.As(err, &empty)
}

// IsDeferred reports whether err is a Deferred condition.
func IsDeferred(err error) bool {
	var deferred *Deferred
	return errors.As(err, &deferred)
}
