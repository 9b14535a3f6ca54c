// Package sandbox confines filesystem and process operations requested by the
// model to a single working root.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox is a working root plus the limits applied to operations inside it.
type Sandbox struct {
	root     string
	realRoot string
	limits   Limits
}

// New creates a Sandbox rooted at root, which must be an existing directory.
func New(root string, limits Limits) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve working root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("working root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working root %s is not a directory", abs)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("evaluate working root %s: %w", abs, err)
	}
	return &Sandbox{root: abs, realRoot: real, limits: limits.withDefaults()}, nil
}

// Root returns the absolute working root.
func (s *Sandbox) Root() string { return s.root }

// Limits returns the limits in effect.
func (s *Sandbox) Limits() Limits { return s.limits }

// Resolve returns the absolute path of rel inside the working root. Besides
// the lexical containment check, the deepest existing ancestor of the target
// is symlink-evaluated so a link cannot lead outside the root.
func (s *Sandbox) Resolve(rel string) (string, error) {
	target, err := Resolve(s.root, rel)
	if err != nil {
		return "", err
	}
	existing := target
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return target, nil
		}
		existing = parent
	}
	real, err := filepath.EvalSymlinks(existing)
	// A dangling link could still be written through, so it is rejected
	// like any other link that leaves the root.
	if err != nil || !within(s.realRoot, real) {
		return "", containmentError(rel)
	}
	return target, nil
}

// Rel returns abs relative to the working root, for messages.
func (s *Sandbox) Rel(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return abs
	}
	return rel
}

// Resolve computes the absolute forms of root and root/rel independently and
// fails with a KindContainment error when the target is not inside root.
// An absolute rel replaces root entirely, so absolute paths are only
// accepted when they already point into root.
func Resolve(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", Wrap(KindInternal, rel, err, "resolve working directory")
	}
	var target string
	if filepath.IsAbs(rel) {
		target = filepath.Clean(rel)
	} else {
		target, err = filepath.Abs(filepath.Join(root, rel))
		if err != nil {
			return "", Wrap(KindInternal, rel, err, "resolve %q", rel)
		}
	}
	if !within(absRoot, target) {
		return "", containmentError(rel)
	}
	return target, nil
}

func within(root, target string) bool {
	if target == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}
