package turbopath

import (
	"io/fs"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// AbsoluteSystemPath is a root-relative path using system separators.
type AbsoluteSystemPath string

// For interface reasons, we need a way to distinguish between
// Absolute/Anchored/Relative/System/Unix/File paths so we stamp them.
func (AbsoluteSystemPath) absolutePathStamp() {}
func (AbsoluteSystemPath) systemPathStamp()   {}
func (AbsoluteSystemPath) filePathStamp()     {}

// ToString returns a string represenation of this Path.
// Used for interfacing with APIs that require a string.
func (p AbsoluteSystemPath) ToString() string {
	return string(p)
}

// ToSystemPath called on an AbsoluteSystemPath returns itself.
// It exists to enable simpler code at call sites.
func (p AbsoluteSystemPath) ToSystemPath() SystemPathInterface {
	return p
}

// ToUnixPath converts an AbsoluteSystemPath to an AbsoluteUnixPath.
func (p AbsoluteSystemPath) ToUnixPath() UnixPathInterface {
	return AbsoluteUnixPath(filepath.ToSlash(p.ToString()))
}

// RelativeTo calculates the relative path between two `AbsoluteSystemPath`s.
func (p AbsoluteSystemPath) RelativeTo(basePath AbsoluteSystemPath) (AnchoredSystemPath, error) {
	processed, err := filepath.Rel(basePath.ToString(), p.ToString())
	return AnchoredSystemPath(processed), err
}

// Join appends relative path segments to this AbsoluteSystemPath.
func (p AbsoluteSystemPath) Join(additional ...RelativeSystemPath) AbsoluteSystemPath {
	cast := RelativeSystemPathArray(additional)
	return AbsoluteSystemPath(filepath.Join(p.ToString(), filepath.Join(cast.ToStringArray()...)))
}

// UntypedJoin appends undistinguished path segments to this AbsoluteSystemPath.
// It exists for callers (and tests) that have plain strings on hand rather than
// a RelativeSystemPath, e.g. when walking tar path components one at a time.
func (p AbsoluteSystemPath) UntypedJoin(additional ...string) AbsoluteSystemPath {
	return AbsoluteSystemPath(filepath.Join(p.ToString(), filepath.Join(additional...)))
}

// Dir returns the parent directory of this AbsoluteSystemPath.
func (p AbsoluteSystemPath) Dir() AbsoluteSystemPath {
	return AbsoluteSystemPath(filepath.Dir(p.ToString()))
}

// Base implements filepath.Base for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Base() string {
	return filepath.Base(p.ToString())
}

// Lstat implements os.Lstat for an AbsoluteSystemPath, and does not follow symlinks.
func (p AbsoluteSystemPath) Lstat() (os.FileInfo, error) {
	return os.Lstat(p.ToString())
}

// Stat implements os.Stat for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Stat() (os.FileInfo, error) {
	return os.Stat(p.ToString())
}

// FileExists returns true if there is a filesystem entry (of any kind) at this path.
func (p AbsoluteSystemPath) FileExists() bool {
	_, err := p.Lstat()
	return err == nil
}

// DirExists returns true if this path points at an existing directory.
func (p AbsoluteSystemPath) DirExists() bool {
	info, err := p.Lstat()
	return err == nil && info.IsDir()
}

// MkdirAll implements os.MkdirAll(p, mode) for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) MkdirAll(mode os.FileMode) error {
	return os.MkdirAll(p.ToString(), mode)
}

// MkdirAllMode creates every directory component of this path, and then forces
// the leaf directory to exactly the requested mode, even if it already existed
// with a different one. If a non-directory entry already occupies the leaf,
// it is removed first: restoring a cache entry takes priority over whatever
// was there before. The one exception is a symlink that resolves to a
// directory: it is left in place, treated as that directory, and the mode of
// its target is not changed.
func (p AbsoluteSystemPath) MkdirAllMode(mode os.FileMode) error {
	if info, err := p.Lstat(); err == nil && !info.IsDir() {
		if target, statErr := p.Stat(); statErr == nil && target.IsDir() {
			return nil
		}
		if err := p.Remove(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(p.ToString(), mode); err != nil {
		return err
	}
	return os.Chmod(p.ToString(), mode)
}

// Mkdir implements os.Mkdir(p, mode) for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Mkdir(mode os.FileMode) error {
	return os.Mkdir(p.ToString(), mode)
}

// Open implements os.Open(p) for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Open() (*os.File, error) {
	return os.Open(p.ToString())
}

// OpenFile implements os.OpenFile for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) OpenFile(flags int, mode os.FileMode) (*os.File, error) {
	return os.OpenFile(p.ToString(), flags, mode)
}

// Create is the AbsoluteSystemPath wrapper for os.Create.
func (p AbsoluteSystemPath) Create() (*os.File, error) {
	return os.Create(p.ToString())
}

// ReadFile reads the contents of the file at this path.
func (p AbsoluteSystemPath) ReadFile() ([]byte, error) {
	return ioutil.ReadFile(p.ToString())
}

// WriteFile writes contents to the file at this path, creating it if necessary.
func (p AbsoluteSystemPath) WriteFile(contents []byte, mode os.FileMode) error {
	return ioutil.WriteFile(p.ToString(), contents, mode)
}

// Symlink implements os.Symlink(target, p) for an AbsoluteSystemPath: it creates
// p as a symlink pointing at target. target is stored byte-for-byte, unmodified.
func (p AbsoluteSystemPath) Symlink(target string) error {
	return os.Symlink(target, p.ToString())
}

// Readlink implements os.Readlink(p) for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) Readlink() (string, error) {
	return os.Readlink(p.ToString())
}

// Remove removes the file or empty directory at this path.
func (p AbsoluteSystemPath) Remove() error {
	return os.Remove(p.ToString())
}

// RemoveAll implements os.RemoveAll for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) RemoveAll() error {
	return os.RemoveAll(p.ToString())
}

// EvalSymlinks implements filepath.EvalSymlinks for an AbsoluteSystemPath.
func (p AbsoluteSystemPath) EvalSymlinks() (AbsoluteSystemPath, error) {
	processed, err := filepath.EvalSymlinks(p.ToString())
	return AbsoluteSystemPath(processed), err
}

// ContainsPath returns true if this absolute path is an ancestor of other.
// It relies on filepath.Rel rather than filesystem lookups, so neither path
// needs to exist.
func (p AbsoluteSystemPath) ContainsPath(other AbsoluteSystemPath) (bool, error) {
	rel, err := filepath.Rel(p.ToString(), other.ToString())
	if err != nil {
		return false, err
	}
	sentinel := ".." + string(filepath.Separator)
	return rel != ".." && !strings.HasPrefix(rel, sentinel), nil
}

// Findup searches upward from this directory, and each of its parents in turn,
// for a file or directory named name. It returns the empty path (and
// os.ErrNotExist) if it reaches the root without finding one.
func (p AbsoluteSystemPath) Findup(name RelativeSystemPath) (AbsoluteSystemPath, error) {
	current := p
	for {
		candidate := current.UntypedJoin(name.ToString())
		if candidate.FileExists() {
			return candidate, nil
		}
		parent := current.Dir()
		if parent == current {
			return "", os.ErrNotExist
		}
		current = parent
	}
}

// isSymlink reports whether the file at this path is a symlink, without
// following it.
func (p AbsoluteSystemPath) isSymlink() (bool, fs.FileMode, error) {
	info, err := p.Lstat()
	if err != nil {
		return false, 0, err
	}
	return info.Mode()&os.ModeSymlink != 0, info.Mode(), nil
}
