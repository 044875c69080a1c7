package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Allowed_Descendant(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "worktree", "agent", "file.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(child), 0o755))

	p := New(filepath.Join(root, "worktree"))
	ok, err := p.Allowed(child)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPolicy_RejectsPrefixBypass(t *testing.T) {
	root := t.TempDir()
	allowed := filepath.Join(root, "worktree")
	evil := filepath.Join(root, "worktree-evil", "file.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(evil), 0o755))
	require.NoError(t, os.MkdirAll(allowed, 0o755))

	p := New(allowed)
	ok, err := p.Allowed(evil)
	require.NoError(t, err)
	assert.False(t, ok, "prefix-bypass path must be rejected")
}

func TestPolicy_RejectsEscapeViaDotDot(t *testing.T) {
	root := t.TempDir()
	allowed := filepath.Join(root, "worktree")
	require.NoError(t, os.MkdirAll(allowed, 0o755))
	escape := filepath.Join(allowed, "..", "outside", "file.go")

	p := New(allowed)
	ok, err := p.Allowed(escape)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPolicy_RejectsRootItself(t *testing.T) {
	root := t.TempDir()
	p := New(root)
	ok, err := p.Allowed(root)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPolicy_Unsafe_AllowsEverything(t *testing.T) {
	p := NewUnsafe()
	ok, err := p.Allowed("/anything/at/all")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPolicy_NonexistentPathStillChecked(t *testing.T) {
	root := t.TempDir()
	allowed := filepath.Join(root, "worktree")
	require.NoError(t, os.MkdirAll(allowed, 0o755))

	p := New(allowed)
	ok, err := p.Allowed(filepath.Join(allowed, "not-yet-created", "out.txt"))
	require.NoError(t, err)
	assert.True(t, ok)
}
