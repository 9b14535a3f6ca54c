package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RefusedMessage is returned when a delete arrives without confirmation.
const RefusedMessage = "Refused: deletion requires confirm=true."

// Trash performs confirmed deletes inside a sandbox. By default targets are
// moved under <root>/.trash; permanent deletes remove them outright.
type Trash struct {
	sb *Sandbox
}

// NewTrash creates a Trash for sb.
func NewTrash(sb *Sandbox) *Trash {
	return &Trash{sb: sb}
}

// Dir returns the absolute trash directory.
func (t *Trash) Dir() string {
	return filepath.Join(t.sb.Root(), TrashDir)
}

// Delete removes path. Without confirm nothing is touched. A permanent delete
// is best-effort: partial removal of a directory is not rolled back.
func (t *Trash) Delete(path string, confirm, permanent bool) (string, error) {
	if !confirm {
		return RefusedMessage, nil
	}

	abs, err := t.sb.Resolve(path)
	if err != nil {
		return "", err
	}
	if abs == t.sb.Root() {
		return "", Errorf(KindValidation, path, "refusing to delete the working directory")
	}
	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", Errorf(KindNotFound, path, "%q does not exist", path)
		}
		return "", Wrap(KindInternal, path, err, "stat %q", path)
	}

	if permanent {
		if info.IsDir() {
			err = os.RemoveAll(abs)
		} else {
			err = os.Remove(abs)
		}
		if err != nil {
			return "", Wrap(KindInternal, path, err, "deleting %q", path)
		}
		return fmt.Sprintf("Permanently deleted %q", path), nil
	}

	trashDir := t.Dir()
	if abs == trashDir {
		return "", Errorf(KindValidation, path, "cannot move the trash directory into itself")
	}
	if err := os.MkdirAll(trashDir, 0755); err != nil {
		return "", Wrap(KindInternal, path, err, "creating %s", TrashDir)
	}
	target, err := freeTrashName(trashDir, filepath.Base(abs))
	if err != nil {
		return "", Wrap(KindInternal, path, err, "trashing %q", path)
	}
	if err := os.Rename(abs, target); err != nil {
		return "", Wrap(KindInternal, path, err, "trashing %q", path)
	}
	return fmt.Sprintf("Moved %q to %s/%s", path, TrashDir, filepath.Base(target)), nil
}

// freeTrashName returns dir/base, or dir/<name>_<n><ext> with the smallest
// n >= 1 that does not exist yet.
func freeTrashName(dir, base string) (string, error) {
	target := filepath.Join(dir, base)
	name, ext := splitExt(base)
	for n := 1; ; n++ {
		_, err := os.Lstat(target)
		if os.IsNotExist(err) {
			return target, nil
		}
		if err != nil {
			return "", err
		}
		target = filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, n, ext))
	}
}

// splitExt splits base into name and extension. Leading dots belong to the
// name, so ".env" has no extension and ".env.local" has ".local".
func splitExt(base string) (string, string) {
	trimmed := strings.TrimLeft(base, ".")
	i := strings.LastIndex(trimmed, ".")
	if i <= 0 {
		return base, ""
	}
	i += len(base) - len(trimmed)
	return base[:i], base[i:]
}
