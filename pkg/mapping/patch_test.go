package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	base := NewRegistry(
		NewField("a", KindString, "a"),
		NewField("b", KindString, "b"),
		NewField("c", KindString, "c"),
	)

	patched, err := Apply(base,
		Remove("a"),
		Replace(NewField("b", KindInt, "other")),
		Append(NewField("d", KindString, "d")),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c", "d"}, patched.Names())
	b, ok := patched.Get("b")
	require.True(t, ok)
	assert.Equal(t, KindInt, b.Kind)
	assert.Equal(t, []string{"other"}, b.Paths)

	// the base registry is untouched
	assert.Equal(t, []string{"a", "b", "c"}, base.Names())
	original, _ := base.Get("b")
	assert.Equal(t, KindString, original.Kind)
}

func TestApply_ReplaceUnknown(t *testing.T) {
	t.Run("should skip a field that was never there", func(t *testing.T) {
		patched, err := Apply(NewRegistry(NewField("a", KindString, "a")), Replace(NewField("missing", KindString)))
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, patched.Names())
	})

	t.Run("should skip a field removed by an earlier patch", func(t *testing.T) {
		base := NewRegistry(NewField("a", KindString, "a"), NewField("b", KindString, "b"))

		patched, err := Apply(base, Remove("b"), Replace(NewField("b", KindInt, "other")))
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, patched.Names())
	})

	t.Run("should still fail on an unknown op", func(t *testing.T) {
		_, err := Apply(NewRegistry(), Patch{Op: "rename"})
		assert.Error(t, err)
	})
}
