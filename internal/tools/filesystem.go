package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/boxcoder/boxcoder/internal/sandbox"
)

// ListFilesTool lists the immediate children of a directory.
type ListFilesTool struct {
	sb *sandbox.Sandbox
}

// NewListFilesTool creates the get_files_info tool.
func NewListFilesTool(sb *sandbox.Sandbox) *ListFilesTool { return &ListFilesTool{sb: sb} }

func (t *ListFilesTool) Kind() Kind { return KindListFiles }

func (t *ListFilesTool) Description() string {
	return "Lists files in the specified directory along with their sizes, constrained to the working directory."
}

func (t *ListFilesTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"directory": stringProp("The directory to list files from, relative to the working directory. Defaults to the working directory itself."),
	})
}

type listArgs struct {
	Directory *string `json:"directory"`
}

func (t *ListFilesTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	args, err := decodeArgs[listArgs](params)
	if err != nil {
		return "", err
	}
	dir := "."
	if args.Directory != nil && *args.Directory != "" {
		dir = *args.Directory
	}

	abs, err := t.sb.Resolve(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", sandbox.Errorf(sandbox.KindNotFound, dir, "%q does not exist", dir)
		}
		return "", sandbox.Wrap(sandbox.KindInternal, dir, err, "stat %q", dir)
	}
	if !info.IsDir() {
		return "", sandbox.Errorf(sandbox.KindValidation, dir, "%q is not a directory", dir)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", sandbox.Wrap(sandbox.KindInternal, dir, err, "list %q", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		var size int64
		if fi, err := os.Stat(filepath.Join(abs, e.Name())); err == nil {
			size = fi.Size()
		} else if fi, err := e.Info(); err == nil {
			size = fi.Size()
		}
		lines = append(lines, fmt.Sprintf("- %s: file_size=%d bytes, is_directory=%t", e.Name(), size, e.IsDir()))
	}
	return strings.Join(lines, "\n"), nil
}

// ReadTool returns the contents of a file, truncated at MaxChars.
type ReadTool struct {
	sb *sandbox.Sandbox
}

// NewReadTool creates the read tool.
func NewReadTool(sb *sandbox.Sandbox) *ReadTool { return &ReadTool{sb: sb} }

func (t *ReadTool) Kind() Kind { return KindRead }

func (t *ReadTool) Description() string {
	return fmt.Sprintf("Reads the contents of a file, constrained to the working directory. Files longer than %d characters are truncated.", t.sb.Limits().MaxChars)
}

func (t *ReadTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"file_path": stringProp("The file to read, relative to the working directory."),
	}, "file_path")
}

type readArgs struct {
	FilePath string `json:"file_path"`
}

func (a *readArgs) validate() error {
	if a.FilePath == "" {
		return missingArg("file_path")
	}
	return nil
}

func (t *ReadTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	args, err := decodeArgs[readArgs](params)
	if err != nil {
		return "", err
	}
	path := args.FilePath

	abs, err := t.sb.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", sandbox.Errorf(sandbox.KindNotFound, path, "File not found or is not a regular file: %q", path)
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", sandbox.Wrap(sandbox.KindInternal, path, err, "open %q", path)
	}
	defer f.Close()

	maxChars := t.sb.Limits().MaxChars
	data, err := io.ReadAll(io.LimitReader(f, int64(maxChars)*utf8.UTFMax))
	if err != nil {
		return "", sandbox.Wrap(sandbox.KindInternal, path, err, "read %q", path)
	}

	content, truncated := firstChars(string(data), maxChars)
	if truncated {
		content += t.sb.Limits().TruncationMarker(path)
	}
	return content, nil
}

// firstChars returns the first n characters of s and whether s had at
// least n of them.
func firstChars(s string, n int) (string, bool) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, count >= n
}

// WriteTool creates or overwrites a file.
type WriteTool struct {
	sb *sandbox.Sandbox
}

// NewWriteTool creates the write tool.
func NewWriteTool(sb *sandbox.Sandbox) *WriteTool { return &WriteTool{sb: sb} }

func (t *WriteTool) Kind() Kind { return KindWrite }

func (t *WriteTool) Description() string {
	return "Writes content to a file, constrained to the working directory. Creates parent directories if needed and overwrites existing files."
}

func (t *WriteTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"file_path": stringProp("The file to write, relative to the working directory."),
		"content":   stringProp("The content to write."),
	}, "file_path", "content")
}

type writeArgs struct {
	FilePath string  `json:"file_path"`
	Content  *string `json:"content"`
}

func (a *writeArgs) validate() error {
	if a.FilePath == "" {
		return missingArg("file_path")
	}
	if a.Content == nil {
		return missingArg("content")
	}
	return nil
}

func (t *WriteTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	args, err := decodeArgs[writeArgs](params)
	if err != nil {
		return "", err
	}
	path, content := args.FilePath, *args.Content

	abs, err := t.sb.Resolve(path)
	if err != nil {
		return "", err
	}
	limit := t.sb.Limits().MaxWriteChars
	if n := utf8.RuneCountInString(content); n > limit {
		return "", sandbox.Errorf(sandbox.KindResourceLimit, path, "content too large (%d > %d characters)", n, limit)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return "", sandbox.Errorf(sandbox.KindValidation, path, "%q is a directory", path)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", sandbox.Wrap(sandbox.KindInternal, path, err, "create parent of %q", path)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return "", sandbox.Wrap(sandbox.KindInternal, path, err, "write %q", path)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %q", len(content), path), nil
}
