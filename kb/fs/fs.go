// Package fs is the on-disk skill tree. Every skill file declares its
// description on the first line; files are written only under the root.
package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/snow-ghost/sleuth/core"
	"go.uber.org/zap"
)

// maxHeaderLine bounds how much of a file is read to find its description.
const maxHeaderLine = 4096

// Entry is one described file of the tree.
type Entry struct {
	RelPath     string // slash separated, relative to the root
	Description string
	Code        string
}

// Tree scans and writes skill files under one root directory.
type Tree struct {
	root   string
	logger *zap.Logger
	mu     sync.Mutex // serializes writes
}

func NewTree(root string, logger *zap.Logger) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree{root: filepath.Clean(root), logger: logger}
}

func (t *Tree) Root() string { return t.root }

// Find returns the first file, in lexical walk order, whose first line
// declares exactly description.
func (t *Tree) Find(description string) (Entry, bool, error) {
	var found Entry
	var ok bool
	err := t.walk(func(rel, abs, declared string) error {
		if declared != description {
			return nil
		}
		code, err := os.ReadFile(abs)
		if err != nil {
			return fmt.Errorf("failed to read skill file %s: %w", rel, err)
		}
		found = Entry{RelPath: rel, Description: declared, Code: string(code)}
		ok = true
		return iofs.SkipAll
	})
	if err != nil {
		return Entry{}, false, err
	}
	return found, ok, nil
}

// Scan returns every described file of the tree.
func (t *Tree) Scan() ([]Entry, error) {
	var out []Entry
	err := t.walk(func(rel, abs, declared string) error {
		code, err := os.ReadFile(abs)
		if err != nil {
			return fmt.Errorf("failed to read skill file %s: %w", rel, err)
		}
		out = append(out, Entry{RelPath: rel, Description: declared, Code: string(code)})
		return nil
	})
	return out, err
}

// walk calls fn for every regular file with a declared description.
// Hidden files and directories are skipped. A missing root is an empty tree.
func (t *Tree) walk(fn func(rel, abs, declared string) error) error {
	if _, err := os.Stat(t.root); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	err := filepath.WalkDir(t.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != t.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		line, err := firstLine(path)
		if err != nil {
			t.logger.Warn("skipping unreadable skill file", zap.String("path", path), zap.Error(err))
			return nil
		}
		declared, ok := core.DeclaredDescription(line)
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(t.root, path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), path, declared)
	})
	if errors.Is(err, iofs.SkipAll) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to scan skill tree: %w", err)
	}
	return nil
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	line, err := bufio.NewReaderSize(io.LimitReader(f, maxHeaderLine), maxHeaderLine).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Resolve validates a relative skill path and returns its absolute form.
// The path must be local to the root and its parent directory must exist.
func (t *Tree) Resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", fmt.Errorf("empty path: %w", core.ErrInvalidSkillPath)
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || !filepath.IsLocal(native) {
		return "", fmt.Errorf("%q is not a relative path inside the skill tree: %w", rel, core.ErrInvalidSkillPath)
	}
	abs := filepath.Join(t.root, native)
	info, err := os.Stat(filepath.Dir(abs))
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("parent directory of %q does not exist: %w", rel, core.ErrInvalidSkillPath)
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return "", fmt.Errorf("%q is a directory: %w", rel, core.ErrInvalidSkillPath)
	}
	return abs, nil
}

// Declared returns the description declared by the file at rel. exists is
// false when no file is there; a file without a header declares "".
func (t *Tree) Declared(rel string) (description string, exists bool, err error) {
	abs, err := t.Resolve(rel)
	if err != nil {
		return "", false, err
	}
	return declaredAt(abs)
}

func declaredAt(abs string) (string, bool, error) {
	line, err := firstLine(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read skill file header: %w", err)
	}
	declared, _ := core.DeclaredDescription(line)
	return declared, true, nil
}

// Write stores code at rel after Resolve succeeds. The file is replaced
// atomically, but only when it does not exist yet or declares the same
// description as code.
func (t *Tree) Write(rel, code string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	abs, err := t.Resolve(rel)
	if err != nil {
		return "", err
	}
	head, _, _ := strings.Cut(code, "\n")
	want, _ := core.DeclaredDescription(strings.TrimRight(head, "\r"))
	existing, exists, err := declaredAt(abs)
	if err != nil {
		return "", err
	}
	if exists && (existing == "" || existing != want) {
		return "", fmt.Errorf("%q declares %q: %w", rel, existing, core.ErrSkillPathTaken)
	}
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".skill-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(code); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write skill file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close skill file: %w", err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		return "", fmt.Errorf("failed to move skill file into place: %w", err)
	}
	t.logger.Info("skill file written", zap.String("path", filepath.ToSlash(rel)))
	return abs, nil
}

// Dirs lists the existing directories of the tree, relative and sorted,
// with "." for the root itself.
func (t *Tree) Dirs() ([]string, error) {
	var out []string
	if _, err := os.Stat(t.root); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	err := filepath.WalkDir(t.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != t.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(t.root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list skill directories: %w", err)
	}
	sort.Strings(out)
	return out, nil
}
