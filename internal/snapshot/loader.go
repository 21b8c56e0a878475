package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNotFound reports that the cache artifact does not exist. Callers
// match it with errors.Is and point the user at the materialization step.
var ErrNotFound = errors.New("config cache not found")

// Loader produces the resolved configuration tree from a cache artifact.
type Loader interface {
	Load(path string) (Node, error)
}

// phpScript evaluates the cache file and prints it as JSON. Objects
// collapse to their class name and resources to the string "resource",
// which is all the cache can legally hold besides arrays and scalars.
const phpScript = `
function sanitize($data) {
    if (is_array($data)) {
        return array_map('sanitize', $data);
    } elseif (is_object($data)) {
        return get_class($data);
    } elseif (is_resource($data)) {
        return 'resource';
    }
    return $data;
}
echo json_encode(sanitize(include '%s'), JSON_UNESCAPED_SLASHES);
`

// PHPLoader loads a config.php cache by evaluating it with the PHP
// interpreter and decoding the JSON it prints. It never materializes the
// cache itself; producing the artifact stays an external step.
type PHPLoader struct {
	Bin string
}

var _ Loader = (*PHPLoader)(nil)

// NewPHPLoader returns a loader using bin as the interpreter, defaulting
// to "php" from PATH.
func NewPHPLoader(bin string) *PHPLoader {
	if bin == "" {
		bin = "php"
	}
	return &PHPLoader{Bin: bin}
}

// Load evaluates the cache artifact at path into a Node tree. A missing
// artifact wraps ErrNotFound; any other failure carries the interpreter
// or decoder diagnostic.
func (l *PHPLoader) Load(path string) (Node, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	code := fmt.Sprintf(phpScript, escapeSingleQuoted(path))
	out, err := exec.Command(l.Bin, "-r", code).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("failed to evaluate %s: %s", path, firstLine(exitErr.Stderr))
		}
		return nil, fmt.Errorf("failed to run %s: %w", l.Bin, err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		// json_encode prints nothing when it cannot serialize the result.
		return nil, fmt.Errorf("evaluating %s produced no output; the cache may be malformed", path)
	}

	tree, err := DecodeTree(out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if _, ok := tree.(*Mapping); !ok {
		return nil, fmt.Errorf("%s did not evaluate to a configuration array", path)
	}
	return tree, nil
}

// escapeSingleQuoted makes path safe inside a PHP single-quoted string.
func escapeSingleQuoted(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
