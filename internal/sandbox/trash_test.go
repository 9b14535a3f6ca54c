package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestTrash(t *testing.T) (*Trash, string) {
	t.Helper()
	root := t.TempDir()
	sb, err := New(root, Limits{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return NewTrash(sb), sb.Root()
}

func TestTrash_RequiresConfirm(t *testing.T) {
	trash, root := newTestTrash(t)
	target := filepath.Join(root, "keep.txt")
	os.WriteFile(target, []byte("data"), 0644)

	for _, permanent := range []bool{false, true} {
		result, err := trash.Delete("keep.txt", false, permanent)
		if err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if result != RefusedMessage {
			t.Errorf("expected refusal, got %q", result)
		}
		if _, err := os.Stat(target); err != nil {
			t.Errorf("file must survive unconfirmed delete (permanent=%v): %v", permanent, err)
		}
	}
	if _, err := os.Stat(trash.Dir()); !os.IsNotExist(err) {
		t.Error("unconfirmed delete must not create the trash directory")
	}
}

func TestTrash_CollisionNaming(t *testing.T) {
	trash, root := newTestTrash(t)

	os.MkdirAll(filepath.Join(root, "a"), 0755)
	os.MkdirAll(filepath.Join(root, "b"), 0755)
	os.WriteFile(filepath.Join(root, "a", "x.txt"), []byte("first"), 0644)
	os.WriteFile(filepath.Join(root, "b", "x.txt"), []byte("second"), 0644)

	if _, err := trash.Delete("a/x.txt", true, false); err != nil {
		t.Fatalf("Delete(a/x.txt) error: %v", err)
	}
	result, err := trash.Delete("b/x.txt", true, false)
	if err != nil {
		t.Fatalf("Delete(b/x.txt) error: %v", err)
	}
	if !strings.Contains(result, "x_1.txt") {
		t.Errorf("expected second entry to be x_1.txt, got %q", result)
	}

	first, _ := os.ReadFile(filepath.Join(root, TrashDir, "x.txt"))
	second, _ := os.ReadFile(filepath.Join(root, TrashDir, "x_1.txt"))
	if string(first) != "first" || string(second) != "second" {
		t.Errorf("unexpected trash contents: %q, %q", first, second)
	}
	for _, p := range []string{"a/x.txt", "b/x.txt"} {
		if _, err := os.Stat(filepath.Join(root, p)); !os.IsNotExist(err) {
			t.Errorf("expected %s to be moved away", p)
		}
	}
}

func TestTrash_MovesDirectory(t *testing.T) {
	trash, root := newTestTrash(t)
	os.MkdirAll(filepath.Join(root, "pkg", "sub"), 0755)
	os.WriteFile(filepath.Join(root, "pkg", "sub", "f.py"), []byte("print(1)"), 0644)

	if _, err := trash.Delete("pkg", true, false); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, TrashDir, "pkg", "sub", "f.py")); err != nil {
		t.Errorf("expected directory tree inside trash: %v", err)
	}
}

func TestTrash_Permanent(t *testing.T) {
	trash, root := newTestTrash(t)
	os.MkdirAll(filepath.Join(root, "dir", "nested"), 0755)
	os.WriteFile(filepath.Join(root, "dir", "nested", "f"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0644)

	for _, p := range []string{"dir", "file.txt"} {
		result, err := trash.Delete(p, true, true)
		if err != nil {
			t.Fatalf("Delete(%s) error: %v", p, err)
		}
		if !strings.Contains(result, "Permanently deleted") {
			t.Errorf("unexpected result %q", result)
		}
		if _, err := os.Stat(filepath.Join(root, p)); !os.IsNotExist(err) {
			t.Errorf("expected %s to be removed", p)
		}
	}
	if _, err := os.Stat(trash.Dir()); !os.IsNotExist(err) {
		t.Error("permanent delete must not use the trash directory")
	}
}

func TestTrash_Errors(t *testing.T) {
	trash, _ := newTestTrash(t)

	if _, err := trash.Delete("missing.txt", true, false); !IsKind(err, KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := trash.Delete("../outside.txt", true, true); !IsKind(err, KindContainment) {
		t.Errorf("expected containment error, got %v", err)
	}
	if _, err := trash.Delete(".", true, true); !IsKind(err, KindValidation) {
		t.Errorf("expected refusal to delete the root, got %v", err)
	}

	os.MkdirAll(trash.Dir(), 0755)
	if _, err := trash.Delete(TrashDir, true, false); !IsKind(err, KindValidation) {
		t.Errorf("expected refusal to trash the trash, got %v", err)
	}
	if _, err := trash.Delete(TrashDir, true, true); err != nil {
		t.Errorf("expected permanent delete of trash to succeed, got %v", err)
	}
}

func TestSplitExt(t *testing.T) {
	cases := []struct {
		in, name, ext string
	}{
		{"x.txt", "x", ".txt"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"Makefile", "Makefile", ""},
		{".env", ".env", ""},
		{".env.local", ".env", ".local"},
	}
	for _, tc := range cases {
		name, ext := splitExt(tc.in)
		if name != tc.name || ext != tc.ext {
			t.Errorf("splitExt(%q) = (%q, %q), want (%q, %q)", tc.in, name, ext, tc.name, tc.ext)
		}
	}
}

func TestFreeTrashName_DotFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ".env"), nil, 0644)
	os.WriteFile(filepath.Join(dir, ".env_1"), nil, 0644)

	got, err := freeTrashName(dir, ".env")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != ".env_2" {
		t.Errorf("expected .env_2, got %s", filepath.Base(got))
	}
}
