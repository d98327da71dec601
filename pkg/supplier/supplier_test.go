package supplier_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraken-build/kraken/pkg/supplier"
)

func TestOf(t *testing.T) {
	s := supplier.Of("hello")
	value, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "hello", value)
	assert.Empty(t, s.Derived())
}

func TestVoid(t *testing.T) {
	s := supplier.Void[int]("myProp")
	_, err := s.Get()
	assert.True(t, supplier.IsEmpty(err))
	assert.Contains(t, err.Error(), "myProp")
}

func TestMapIsLazy(t *testing.T) {
	calls := 0
	s := supplier.Map(supplier.Of("hello"), func(v string) (string, error) {
		calls++
		return strings.ToUpper(v), nil
	})
	assert.Zero(t, calls, "map must not evaluate before Get")

	value, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "HELLO", value)
	assert.Equal(t, 1, calls)
}

func TestMapPropagatesEmptyAndDeferred(t *testing.T) {
	empty := supplier.Map(supplier.Void[string]("src"), func(v string) (int, error) {
		t.Fatal("map function must not run on empty upstream")
		return 0, nil
	})
	_, err := empty.Get()
	assert.True(t, supplier.IsEmpty(err))

	deferred := supplier.OfCallable(func() (string, error) {
		return "", &supplier.Deferred{Source: "taskA.out"}
	})
	chained := supplier.Map(supplier.Map(deferred, func(v string) (string, error) {
		return v + "!", nil
	}), func(v string) (int, error) {
		return len(v), nil
	})
	_, err = chained.Get()
	assert.True(t, supplier.IsDeferred(err), "deferred must survive the whole chain")
	assert.False(t, supplier.IsEmpty(err))
}

func TestOfCallableDerived(t *testing.T) {
	upstream := supplier.Of(21)
	s := supplier.OfCallable(func() (int, error) {
		v, err := upstream.Get()
		return v * 2, err
	}, upstream)

	value, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	require.Len(t, s.Derived(), 1)
}

func TestIndex(t *testing.T) {
	s := supplier.Index(supplier.Of([]string{"a", "b", "c"}), 1)
	value, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "b", value)

	_, err = supplier.Index(supplier.Of([]string{"a"}), 3).Get()
	assert.True(t, supplier.IsEmpty(err))
}

func TestKey(t *testing.T) {
	s := supplier.Key(supplier.Of(map[string]int{"answer": 42}), "answer")
	value, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, value)

	_, err = supplier.Key(supplier.Of(map[string]int{}), "missing").Get()
	assert.True(t, supplier.IsEmpty(err))
}
