package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/domain"
)

// TestDiff_Basics exercises add, remove, and replace generation.
func TestDiff_Basics(t *testing.T) {
	pre := map[string]any{"status": "pending", "notes": "x", "gone": 1}
	post := map[string]any{"status": "in_progress", "notes": "x", "assigned_to": "alice"}

	ops, err := Diff(pre, post)
	require.NoError(t, err)

	byPath := make(map[string]domain.DiffOp, len(ops))
	for _, op := range ops {
		byPath[op.Path] = op
	}

	require.Len(t, ops, 3)
	assert.Equal(t, "add", byPath["/assigned_to"].Op)
	assert.Equal(t, "remove", byPath["/gone"].Op)
	assert.Equal(t, "replace", byPath["/status"].Op)
	assert.Equal(t, "pending", byPath["/status"].From)
	assert.Equal(t, "in_progress", byPath["/status"].Value)
}

// TestDiff_Unchanged returns an empty, non-nil delta.
func TestDiff_Unchanged(t *testing.T) {
	v := map[string]any{"a": 1, "b": []any{1, 2}}
	ops, err := Diff(v, v)
	require.NoError(t, err)
	require.NotNil(t, ops)
	assert.Empty(t, ops)
}

// TestDiff_ArraysReplaceWholesale verifies array changes replace the whole
// array at its path.
func TestDiff_ArraysReplaceWholesale(t *testing.T) {
	pre := map[string]any{"list": []any{1, 2}}
	post := map[string]any{"list": []any{1, 2, 3}}

	ops, err := Diff(pre, post)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "replace", ops[0].Op)
	assert.Equal(t, "/list", ops[0].Path)
}

// TestDiff_PointerEscaping verifies RFC 6901 escaping of / and ~ in keys.
func TestDiff_PointerEscaping(t *testing.T) {
	pre := map[string]any{"a/b": 1, "c~d": 2}
	post := map[string]any{"a/b": 9, "c~d": 2}

	ops, err := Diff(pre, post)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "/a~1b", ops[0].Path)
}

// TestApplyDiff_RoundTrip verifies ApplyDiff(pre, Diff(pre, post))
// canonicalizes to post.
func TestApplyDiff_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pre  any
		post any
	}{
		{
			"nested object change",
			map[string]any{"a": map[string]any{"x": 1, "y": 2}, "b": "keep"},
			map[string]any{"a": map[string]any{"x": 5, "z": 3}, "b": "keep"},
		},
		{
			"field addition into empty",
			map[string]any{},
			map[string]any{"status": "done", "nested": map[string]any{"k": "v"}},
		},
		{
			"array replacement",
			map[string]any{"list": []any{1}},
			map[string]any{"list": []any{2, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := Diff(tt.pre, tt.post)
			require.NoError(t, err)

			patched, err := ApplyDiff(tt.pre, ops)
			require.NoError(t, err)

			wantBytes, err := Marshal(tt.post)
			require.NoError(t, err)
			gotBytes, err := Marshal(patched)
			require.NoError(t, err)
			assert.Equal(t, string(wantBytes), string(gotBytes))
		})
	}
}

// TestApplyDiff_RootReplace verifies whole-document replacement.
func TestApplyDiff_RootReplace(t *testing.T) {
	patched, err := ApplyDiff("old", []domain.DiffOp{{Op: "replace", Path: "", Value: "new"}})
	require.NoError(t, err)
	assert.Equal(t, "new", patched)
}
