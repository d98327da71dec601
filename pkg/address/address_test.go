package address_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraken-build/kraken/pkg/address"
)

func TestParseEmptyAddress(t *testing.T) {
	addr, err := address.Parse("")
	require.NoError(t, err)
	assert.False(t, addr.IsAbsolute())
	assert.Empty(t, addr.Elements())
	assert.Equal(t, "", addr.String())
}

func TestParseRootAddress(t *testing.T) {
	addr, err := address.Parse(":")
	require.NoError(t, err)
	assert.True(t, addr.IsAbsolute())
	assert.True(t, addr.IsRoot())
	assert.True(t, addr.IsContainer())
	assert.Empty(t, addr.Elements())
	assert.Equal(t, ":", addr.String())
	assert.True(t, addr.Equal(address.Root))
}

func TestParseContainerAddress(t *testing.T) {
	assert.False(t, address.MustParse(".").IsAbsolute())
	assert.False(t, address.MustParse(".").IsContainer())
	assert.True(t, address.MustParse(".:").IsContainer())
	assert.True(t, address.MustParse(".").Equal(address.Current))

	assert.True(t, address.MustParse(":a:b").IsAbsolute())
	assert.False(t, address.MustParse(":a:b").IsContainer())

	assert.True(t, address.MustParse(":a:b:").IsAbsolute())
	assert.True(t, address.MustParse(":a:b:").IsContainer())

	assert.False(t, address.MustParse("a:b").IsAbsolute())
	assert.False(t, address.MustParse("a:b").IsContainer())

	assert.False(t, address.MustParse("a:b:").IsAbsolute())
	assert.True(t, address.MustParse("a:b:").IsContainer())

	assert.True(t, address.MustParse(":a:..").Normalize().Equal(address.Root))
	assert.True(t, address.MustParse("a:..:").Normalize().Equal(address.Current))
}

func TestString(t *testing.T) {
	for _, s := range []string{":a", ":a:..:b", ":a?:c", "a?:..", ":**:foo", ":"} {
		assert.Equal(t, s, address.MustParse(s).String())
	}
}

func TestParseErrors(t *testing.T) {
	_, err := address.Parse(":a::b")
	assert.Error(t, err, "empty elements are invalid")

	_, err = address.Parse(":a:\u00d6")
	assert.Error(t, err, "non-ASCII characters are invalid")
}

func TestConcat(t *testing.T) {
	tests := []struct {
		left, right, want string
	}{
		{".", "foo:bar", ".:foo:bar"},
		{":", "foo:bar", ":foo:bar"},
		{"a:b", ":c", ":c"},
		{":a:", "b", ":a:b"},
		{":a", "b:", ":a:b:"},
	}
	for _, tc := range tests {
		got := address.MustParse(tc.left).Concat(address.MustParse(tc.right))
		assert.Equal(t, tc.want, got.String(), "%s + %s", tc.left, tc.right)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"foo:..", "."},
		{"foo:bar:..", "foo"},
		{".:foo:bar", "foo:bar"},
		{".", "."},
		{"..", ".."},
		{":", ":"},
		{":..", ":.."},
		{":foo:bar:..", ":foo"},
		{"b:..:a:..", "."},
		{":b:..:a:..", ":"},
		{":**:a", ":**:a"},
	}
	for _, tc := range tests {
		got := address.MustParse(tc.input).Normalize()
		assert.Equal(t, tc.want, got.String(), "normalize(%s)", tc.input)
	}
}

func TestParentOfRootPanics(t *testing.T) {
	assert.Panics(t, func() { address.Root.Parent() })
}

func TestParent(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{":a:b", ":a"},
		{".", ".."},
		{"..", "..:.."},
		{"..:a", ".."},
		{"b:..:a", "b:.."},
		{"b:..", "b:..:.."},
	}
	for _, tc := range tests {
		got := address.MustParse(tc.input).Parent()
		assert.Equal(t, tc.want, got.String(), "parent(%s)", tc.input)
	}
	// Parent addresses are never containers.
	assert.False(t, address.MustParse(":a:b").Parent().IsContainer())
}

func TestSetContainer(t *testing.T) {
	assert.Equal(t, ":a:b:", address.MustParse(":a:b").SetContainer(true).String())
	assert.Equal(t, ":a:b:", address.MustParse(":a:b:").SetContainer(true).String())
	assert.Equal(t, ":a:b", address.MustParse(":a:b:").SetContainer(false).String())
	assert.Equal(t, ":a:..", address.MustParse(":a:..:").SetContainer(false).String())
}

func TestAppend(t *testing.T) {
	assert.Equal(t, ":a:b", address.Root.Append("a").Append("b").String())
	assert.Equal(t, "b", address.MustParse(":a:b").Name())
}

func TestHasGlob(t *testing.T) {
	assert.True(t, address.MustParse("**:lint").HasGlob())
	assert.True(t, address.MustParse("defa*").HasGlob())
	assert.True(t, address.MustParse(":a?:c").HasGlob())
	assert.False(t, address.MustParse(":a:b").HasGlob())
}
