// Package admins keeps the admin list in a plain text file: one numeric chat
// user id or @username per line, '#' comments allowed. The file is re-read on
// every check so hand edits apply without a restart.
package admins

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
)

const header = "# Admins: one user id or @username per line\n"

var (
	ErrExists   = errors.New("already an admin")
	ErrNotAdmin = errors.New("not an admin")
	ErrInvalid  = errors.New("admin entry must be a numeric id or @username")
)

// File is the admin list backed by a text file.
type File struct {
	path string
	mu   sync.Mutex
}

// Open returns a File for path, creating it with a header if missing.
func Open(path string) (*File, error) {
	f := &File{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
			return nil, fmt.Errorf("create admins file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat admins file: %w", err)
	}
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// List returns entries sorted.
func (f *File) List() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// IsAdmin matches by numeric id or by @username (case-insensitive).
func (f *File) IsAdmin(userID int64, username string) bool {
	entries, err := f.List()
	if err != nil {
		return false
	}
	id := strconv.FormatInt(userID, 10)
	handle := ""
	if username != "" {
		handle = "@" + strings.ToLower(strings.TrimPrefix(username, "@"))
	}
	for _, e := range entries {
		if e == id || (handle != "" && strings.ToLower(e) == handle) {
			return true
		}
	}
	return false
}

// Add appends an entry.
func (f *File) Add(entry string) error {
	entry, err := Normalize(entry)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return err
	}
	if slices.Contains(entries, entry) {
		return fmt.Errorf("%s: %w", entry, ErrExists)
	}
	return f.save(append(entries, entry))
}

// Remove deletes an entry.
func (f *File) Remove(entry string) error {
	entry, err := Normalize(entry)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return err
	}
	i := slices.Index(entries, entry)
	if i < 0 {
		return fmt.Errorf("%s: %w", entry, ErrNotAdmin)
	}
	return f.save(slices.Delete(entries, i, i+1))
}

// Normalize validates an entry: digits, or @ followed by a handle.
func Normalize(entry string) (string, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return "", ErrInvalid
	}
	if _, err := strconv.ParseInt(entry, 10, 64); err == nil {
		return entry, nil
	}
	if len(entry) > 1 && entry[0] == '@' && !strings.ContainsAny(entry, " \t") {
		return entry, nil
	}
	return "", fmt.Errorf("%q: %w", entry, ErrInvalid)
}

func (f *File) load() ([]string, error) {
	fh, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open admins file: %w", err)
	}
	defer fh.Close()

	var out []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !slices.Contains(out, line) {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read admins file: %w", err)
	}
	slices.Sort(out)
	return out, nil
}

func (f *File) save(entries []string) error {
	slices.Sort(entries)
	var b strings.Builder
	b.WriteString(header)
	for _, e := range entries {
		b.WriteString(e)
		b.WriteByte('\n')
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write admins file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace admins file: %w", err)
	}
	return nil
}
