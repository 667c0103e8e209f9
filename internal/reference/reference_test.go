package reference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	t.Run("full path", func(t *testing.T) {
		ref, ok := Parse("${{ steps.fetch.result.body.token }}")
		require.True(t, ok)
		assert.Equal(t, ScopeSteps, ref.Scope)
		assert.Equal(t, "fetch", ref.StepID)
		assert.Equal(t, "body.token", ref.FieldPath)
	})

	t.Run("whole result", func(t *testing.T) {
		ref, ok := Parse("${{ group.fetch.result }}")
		require.True(t, ok)
		assert.Equal(t, ScopeGroup, ref.Scope)
		assert.Equal(t, "fetch", ref.StepID)
		assert.Empty(t, ref.FieldPath)
	})

	t.Run("whitespace tolerated", func(t *testing.T) {
		ref, ok := Parse("${{steps.login.result.url}}")
		require.True(t, ok)
		assert.Equal(t, "login", ref.StepID)
		assert.Equal(t, "url", ref.FieldPath)
	})

	t.Run("rejects non-references", func(t *testing.T) {
		for _, s := range []string{
			"plain string",
			"${{ steps.fetch }}",          // missing result segment
			"${{ env.fetch.result }}",     // unknown scope
			"${{ steps..result }}",        // empty id
			"prefix ${{ steps.a.result }}", // embedded, not a pure reference
		} {
			_, ok := Parse(s)
			assert.False(t, ok, "input %q", s)
		}
	})
}

func TestParseStructured(t *testing.T) {
	t.Run("with field path", func(t *testing.T) {
		ref, ok := Parse(map[string]any{"ref": "steps.fetch.body.token"})
		require.True(t, ok)
		assert.Equal(t, ScopeSteps, ref.Scope)
		assert.Equal(t, "fetch", ref.StepID)
		// The structured form has no `result` segment; everything after the
		// step id is the field path.
		assert.Equal(t, "body.token", ref.FieldPath)
	})

	t.Run("without field path", func(t *testing.T) {
		ref, ok := Parse(map[string]any{"ref": "group.fetch"})
		require.True(t, ok)
		assert.Equal(t, ScopeGroup, ref.Scope)
		assert.Empty(t, ref.FieldPath)
	})

	t.Run("rejects malformed maps", func(t *testing.T) {
		_, ok := Parse(map[string]any{"ref": "fetch"})
		assert.False(t, ok, "missing scope")

		_, ok = Parse(map[string]any{"ref": "steps.fetch", "extra": true})
		assert.False(t, ok, "extra keys")

		_, ok = Parse(map[string]any{"other": "steps.fetch"})
		assert.False(t, ok, "wrong key")
	})
}

func TestFormatAlwaysEmitsTemplateForm(t *testing.T) {
	ref := &Ref{Scope: ScopeGroup, StepID: "fetch", FieldPath: "body"}
	assert.Equal(t, "${{ group.fetch.result.body }}", Format(ref))

	ref = &Ref{Scope: ScopeSteps, StepID: "login"}
	assert.Equal(t, "${{ steps.login.result }}", Format(ref))
}

func TestRoundTripBothForms(t *testing.T) {
	// Template and structured encodings of the same reference normalize to
	// the same Ref, and the Ref formats back to the template string.
	tmpl, ok := Parse("${{ steps.fetch.result.body }}")
	require.True(t, ok)
	structured, ok := Parse(map[string]any{"ref": "steps.fetch.body"})
	require.True(t, ok)
	assert.Equal(t, tmpl, structured)
	assert.Equal(t, "${{ steps.fetch.result.body }}", Format(structured))
}

func TestRewrite(t *testing.T) {
	assert.Equal(t, "${{ steps.a.result }}",
		Rewrite(map[string]any{"ref": "steps.a"}))
	assert.Equal(t, 42, Rewrite(42))
	assert.Equal(t, "hello", Rewrite("hello"))
}

func TestResolveDangling(t *testing.T) {
	known := func(id string) bool { return id == "fetch" }

	ref := &Ref{Scope: ScopeSteps, StepID: "fetch"}
	assert.NoError(t, Resolve(ref, known))

	ref = &Ref{Scope: ScopeSteps, StepID: "missing"}
	err := Resolve(ref, known)
	require.Error(t, err)
	var dangling *DanglingError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, "missing", dangling.Ref.StepID)
}
