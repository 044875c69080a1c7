// Package sandbox enforces path-confinement for agent-produced file
// changes: every path an agent is allowed to touch must resolve to a
// descendant of one of the run's configured allowed roots.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mode selects strict canonical-path confinement or an explicit bypass.
type Mode string

const (
	ModeStrict Mode = "strict"
	ModeUnsafe Mode = "unsafe"
)

// Policy enforces that candidate paths stay within a fixed set of allowed
// roots. Unsafe mode must be opted into explicitly per run; it is never the
// default.
type Policy struct {
	mode  Mode
	roots []string
}

// New builds a strict-mode policy over the given allowed roots.
func New(allowedRoots ...string) *Policy {
	return &Policy{mode: ModeStrict, roots: allowedRoots}
}

// NewUnsafe builds a policy that accepts every path unconditionally. Callers
// must gate this behind an explicit per-run opt-in flag.
func NewUnsafe() *Policy {
	return &Policy{mode: ModeUnsafe}
}

// Allowed reports whether candidate is confined to one of the policy's
// allowed roots. In unsafe mode every candidate is allowed.
func (p *Policy) Allowed(candidate string) (bool, error) {
	if p.mode == ModeUnsafe {
		return true, nil
	}

	canonCandidate, err := canonicalize(candidate)
	if err != nil {
		return false, fmt.Errorf("sandbox: resolving candidate path: %w", err)
	}

	for _, root := range p.roots {
		canonRoot, err := canonicalize(root)
		if err != nil {
			continue
		}
		if isDescendant(canonCandidate, canonRoot) {
			return true, nil
		}
	}
	return false, nil
}

// canonicalize resolves symlinks for paths that exist, and otherwise falls
// back to lexical normalization (eliminating ".." and "." components) so a
// not-yet-created path can still be checked.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// isDescendant reports whether candidate is a path strictly beneath root,
// comparing full path segments so "/tmp/worktree-evil" is never mistaken for
// a descendant of "/tmp/worktree". The root itself is not a descendant of
// itself: an agent is confined to files inside its worktree, not the
// worktree directory entry.
func isDescendant(candidate, root string) bool {
	if candidate == root {
		return false
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(candidate, prefix)
}
