// Package scanner discovers env() references in declarative PHP
// configuration sources and records the config path that owns each one.
//
// Files are scanned textually, not parsed as PHP: an explicit state machine
// tracks string and comment spans, a bracket-depth counter and the last key
// seen at each depth. That is accurate for the flat and shallowly nested
// structures these files use in practice; deeply irregular formatting
// (anonymous nested arrays, array() syntax, expression keys) can be
// mis-attributed. That boundary is deliberate and covered by tests.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// maxWorkers bounds the per-file scanning pool.
const maxWorkers = 10

// envNameRe matches the identifier pattern for captured variable names.
var envNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Reference is one syntactic env('NAME', …) occurrence in a config source.
type Reference struct {
	Name string   // environment variable name
	Path []string // [section, enclosing keys…, owning key]
	File string   // base name of the source file
	Line int      // 1-indexed line of the occurrence
}

// Dotted returns the config path in dotted form.
func (r Reference) Dotted() string {
	return strings.Join(r.Path, ".")
}

// Scanner walks a configuration directory and extracts references.
type Scanner struct {
	debug  bool
	silent bool
}

// NewScanner creates a new scanner with default settings.
func NewScanner() *Scanner {
	return &Scanner{}
}

// SetDebug enables tracing of every discovered reference to stderr.
func (s *Scanner) SetDebug(debug bool) {
	s.debug = debug
}

// SetSilent suppresses per-file warnings.
func (s *Scanner) SetSilent(silent bool) {
	s.silent = silent
}

// ScanDir scans every .php file in dir, one top-level section per file,
// the section named after the file. References come back in file order
// (per-file scans run concurrently behind a barrier). An unreadable file
// is skipped with a warning; a file with no matches contributes nothing.
func (s *Scanner) ScanDir(dir string) ([]Reference, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".php" {
			continue
		}
		files = append(files, entry.Name())
	}

	results := make([][]Reference, len(files))
	var wg sync.WaitGroup
	workers := make(chan struct{}, maxWorkers)

	for i, name := range files {
		wg.Add(1)
		workers <- struct{}{} // Acquire worker

		go func(i int, name string) {
			defer wg.Done()
			defer func() { <-workers }() // Release worker

			content, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				if !s.silent {
					fmt.Fprintf(os.Stderr, "Warning: failed to read %s: %v\n", name, err)
				}
				return
			}
			section := strings.TrimSuffix(name, filepath.Ext(name))
			results[i] = s.ScanFile(section, name, content)
		}(i, name)
	}
	wg.Wait()

	var refs []Reference
	for _, fileRefs := range results {
		refs = append(refs, fileRefs...)
	}
	return refs, nil
}

// ScanFile scans one configuration source. Every occurrence is retained,
// repeats of the same name included: each one is a candidate path for the
// reconciliation step.
func (s *Scanner) ScanFile(section, file string, content []byte) []Reference {
	fs := &fileScan{
		section: section,
		file:    file,
		src:     string(content),
		keyAt:   []string{""},
		line:    1,
	}
	fs.run()

	if s.debug {
		for _, ref := range fs.refs {
			fmt.Fprintf(os.Stderr, "[DEBUG] %s:%d: %s -> %s\n", ref.File, ref.Line, ref.Name, ref.Dotted())
		}
	}
	return fs.refs
}

// fileScan is the per-file state machine: a cursor over the source, the
// bracket depth, the key owning each open bracket, and the last key seen
// at the current depth.
type fileScan struct {
	section string
	file    string
	src     string
	i       int
	line    int

	depth  int
	owners []string // key that owned each opened bracket, "" for anonymous
	keyAt  []string // last key seen per depth, len == depth+1

	lastLit string // most recent completed string literal
	litOK   bool   // lastLit immediately precedes the cursor

	refs []Reference
}

func (fs *fileScan) run() {
	for fs.i < len(fs.src) {
		c := fs.src[fs.i]
		switch {
		case c == '\n':
			fs.line++
			fs.i++
		case c == ' ' || c == '\t' || c == '\r':
			fs.i++
		case c == '/' && fs.peek(1) == '/':
			fs.skipLineComment()
		case c == '#':
			fs.skipLineComment()
		case c == '/' && fs.peek(1) == '*':
			fs.skipBlockComment()
		case c == '\'' || c == '"':
			fs.lastLit = fs.readString(c)
			fs.litOK = true
		case c == '=' && fs.peek(1) == '>':
			if fs.litOK {
				fs.keyAt[fs.depth] = fs.lastLit
				fs.litOK = false
			}
			fs.i += 2
		case c == '[':
			fs.pushBracket()
			fs.litOK = false
			fs.i++
		case c == ']':
			fs.popBracket()
			fs.litOK = false
			fs.i++
		case isIdentStart(c):
			if fs.readIdent() == "env" {
				fs.scanEnvCall()
			}
			fs.litOK = false
		default:
			fs.litOK = false
			fs.i++
		}
	}
}

func (fs *fileScan) peek(n int) byte {
	if fs.i+n >= len(fs.src) {
		return 0
	}
	return fs.src[fs.i+n]
}

func (fs *fileScan) skipLineComment() {
	for fs.i < len(fs.src) && fs.src[fs.i] != '\n' {
		fs.i++
	}
}

func (fs *fileScan) skipBlockComment() {
	fs.i += 2
	for fs.i < len(fs.src) {
		if fs.src[fs.i] == '\n' {
			fs.line++
		}
		if fs.src[fs.i] == '*' && fs.peek(1) == '/' {
			fs.i += 2
			return
		}
		fs.i++
	}
}

func (fs *fileScan) skipSpaces() {
	for fs.i < len(fs.src) {
		switch fs.src[fs.i] {
		case '\n':
			fs.line++
		case ' ', '\t', '\r':
		default:
			return
		}
		fs.i++
	}
}

// readString consumes the quoted literal starting at the cursor and returns
// its content with escape pairs collapsed. An unterminated literal swallows
// the rest of the file; scanning recovers at the next file, never aborts.
func (fs *fileScan) readString(quote byte) string {
	fs.i++ // opening quote
	var sb strings.Builder
	for fs.i < len(fs.src) {
		c := fs.src[fs.i]
		if c == '\\' && fs.i+1 < len(fs.src) {
			if fs.src[fs.i+1] == '\n' {
				fs.line++
			}
			sb.WriteByte(fs.src[fs.i+1])
			fs.i += 2
			continue
		}
		if c == quote {
			fs.i++
			return sb.String()
		}
		if c == '\n' {
			fs.line++
		}
		sb.WriteByte(c)
		fs.i++
	}
	return sb.String()
}

func (fs *fileScan) readIdent() string {
	start := fs.i
	for fs.i < len(fs.src) && isIdentChar(fs.src[fs.i]) {
		fs.i++
	}
	return fs.src[start:fs.i]
}

// scanEnvCall runs right after the identifier "env". Only a quoted first
// argument is a capturable reference; a dynamic expression is skipped.
func (fs *fileScan) scanEnvCall() {
	fs.skipSpaces()
	if fs.i >= len(fs.src) || fs.src[fs.i] != '(' {
		return
	}
	fs.i++
	fs.skipSpaces()
	if fs.i >= len(fs.src) || (fs.src[fs.i] != '\'' && fs.src[fs.i] != '"') {
		return
	}

	line := fs.line
	name := fs.readString(fs.src[fs.i])
	if !envNameRe.MatchString(name) {
		return
	}
	fs.refs = append(fs.refs, Reference{
		Name: name,
		Path: fs.path(),
		File: fs.file,
		Line: line,
	})
}

func (fs *fileScan) pushBracket() {
	fs.owners = append(fs.owners, fs.keyAt[fs.depth])
	fs.depth++
	fs.keyAt = append(fs.keyAt[:fs.depth], "")
}

func (fs *fileScan) popBracket() {
	if fs.depth == 0 {
		return
	}
	fs.depth--
	fs.owners = fs.owners[:len(fs.owners)-1]
	fs.keyAt = fs.keyAt[:fs.depth+1]
}

// path composes [section, enclosing keys…, current key]. Anonymous
// brackets (sequence literals, the outermost return) contribute nothing.
func (fs *fileScan) path() []string {
	path := make([]string, 0, len(fs.owners)+2)
	path = append(path, fs.section)
	for _, owner := range fs.owners {
		if owner != "" {
			path = append(path, owner)
		}
	}
	if key := fs.keyAt[fs.depth]; key != "" {
		path = append(path, key)
	}
	return path
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
