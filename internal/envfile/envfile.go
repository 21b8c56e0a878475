// Package envfile parses dotenv-style environment files into an ordered
// set of entries. Order matters: the diff report is emitted in the order
// variables are first declared in the file.
package envfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// nameRe matches the identifier pattern for variable names.
var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Entry is a single NAME=VALUE declaration.
type Entry struct {
	Name  string
	Value string
	Quote byte // surrounding quote character in the source, 0 when unquoted
}

// String renders the entry as an environment-file line, re-quoting the
// value only when the original was quoted.
func (e Entry) String() string {
	if e.Quote != 0 {
		return fmt.Sprintf("%s=%c%s%c", e.Name, e.Quote, e.Value, e.Quote)
	}
	return e.Name + "=" + e.Value
}

// File holds the parsed entries of one environment file.
type File struct {
	entries []Entry
	index   map[string]int
}

// Parse reads dotenv-style text and returns the declared variables.
//
// Lines are processed independently: blank lines and #-comments are
// skipped, as are lines without "=" or with a name that is not an
// identifier. One bad line never aborts the parse. A duplicated name takes
// the later value but keeps its first-seen position.
func Parse(r io.Reader) (*File, error) {
	f := &File{index: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			// Malformed line, skip and continue.
			continue
		}

		name := strings.TrimSpace(parts[0])
		if !nameRe.MatchString(name) {
			continue
		}

		value, quote := unquote(strings.TrimSpace(parts[1]))

		if i, ok := f.index[name]; ok {
			f.entries[i].Value = value
			f.entries[i].Quote = quote
			continue
		}
		f.index[name] = len(f.entries)
		f.entries = append(f.entries, Entry{Name: name, Value: value, Quote: quote})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading environment file: %w", err)
	}

	return f, nil
}

// ParseFile parses the environment file at path. A missing file is an
// error; the caller decides how fatal that is.
func ParseFile(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return f, nil
}

// Entries returns the parsed entries in first-seen order.
func (f *File) Entries() []Entry {
	return f.entries
}

// Get returns the value declared for name.
func (f *File) Get(name string) (string, bool) {
	i, ok := f.index[name]
	if !ok {
		return "", false
	}
	return f.entries[i].Value, true
}

// Len returns the number of distinct variables.
func (f *File) Len() int {
	return len(f.entries)
}

// unquote strips one pair of matching surrounding single or double quotes
// from a trimmed raw value and reports which quote was used. Only a true
// wrapped-in-quotes case is unquoted; the inner text is kept verbatim, with
// no escape processing and no interpolation.
func unquote(raw string) (string, byte) {
	if len(raw) >= 2 {
		q := raw[0]
		if (q == '"' || q == '\'') && raw[len(raw)-1] == q {
			return raw[1 : len(raw)-1], q
		}
	}
	return raw, 0
}
