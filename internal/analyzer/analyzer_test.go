package analyzer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/rnovak/envdrift/internal/config"
	"github.com/rnovak/envdrift/internal/envfile"
	"github.com/rnovak/envdrift/internal/scanner"
	"github.com/rnovak/envdrift/internal/snapshot"
)

func parseEnv(t *testing.T, content string) *envfile.File {
	t.Helper()
	env, err := envfile.Parse(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return env
}

func decodeTree(t *testing.T, doc string) snapshot.Node {
	t.Helper()
	tree, err := snapshot.DecodeTree([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeTree failed: %v", err)
	}
	return tree
}

func ref(name string, path ...string) scanner.Reference {
	return scanner.Reference{Name: name, Path: path}
}

func diffNames(result Result) []string {
	names := make([]string, len(result.Diffs))
	for i, diff := range result.Diffs {
		names[i] = diff.Name
	}
	return names
}

func TestAnalyze_ValueDrift(t *testing.T) {
	env := parseEnv(t, "DB_HOST=db.internal\nDB_PORT=3306\n")
	refs := []scanner.Reference{
		ref("DB_HOST", "database", "connections", "mysql", "host"),
		ref("DB_PORT", "database", "connections", "mysql", "port"),
	}
	tree := decodeTree(t, `{
		"database": {
			"connections": {
				"mysql": {"host": "127.0.0.1", "port": "3306"}
			}
		}
	}`)

	result := Analyze(env, refs, tree, &config.Config{})

	if len(result.Diffs) != 1 {
		t.Fatalf("Expected 1 diff, got %d: %v", len(result.Diffs), diffNames(result))
	}
	diff := result.Diffs[0]
	if diff.Name != "DB_HOST" {
		t.Errorf("Expected DB_HOST, got %s", diff.Name)
	}
	if diff.Value != "db.internal" {
		t.Errorf("Expected declared value db.internal, got %s", diff.Value)
	}
	want := []string{"database.connections.mysql.host"}
	if !reflect.DeepEqual(diff.Paths, want) {
		t.Errorf("Expected paths %v, got %v", want, diff.Paths)
	}
	if result.Checked != 2 {
		t.Errorf("Expected 2 checked variables, got %d", result.Checked)
	}
}

func TestAnalyze_SkipsUnreferencedVariables(t *testing.T) {
	env := parseEnv(t, "APP_NAME=demo\nEDITOR_THEME=dark\n")
	refs := []scanner.Reference{
		ref("APP_NAME", "app", "name"),
	}
	tree := decodeTree(t, `{"app": {"name": "demo"}}`)

	result := Analyze(env, refs, tree, &config.Config{})

	if len(result.Diffs) != 0 {
		t.Errorf("Expected no diffs, got %v", diffNames(result))
	}
	if result.Checked != 1 {
		t.Errorf("Expected 1 checked variable, got %d", result.Checked)
	}
	if result.Skipped != 1 {
		t.Errorf("Expected 1 skipped variable, got %d", result.Skipped)
	}
}

func TestAnalyze_AnyMatchingPathSuppresses(t *testing.T) {
	env := parseEnv(t, "APP_URL=https://example.test\n")
	refs := []scanner.Reference{
		ref("APP_URL", "app", "url"),
		ref("APP_URL", "services", "callback"),
	}
	// The first path disagrees, the second holds the declared value.
	tree := decodeTree(t, `{
		"app": {"url": "http://localhost"},
		"services": {"callback": "https://example.test"}
	}`)

	result := Analyze(env, refs, tree, &config.Config{})

	if len(result.Diffs) != 0 {
		t.Errorf("Expected no diffs, got %v", diffNames(result))
	}
}

func TestAnalyze_ReportedOncePerVariable(t *testing.T) {
	env := parseEnv(t, "APP_URL=https://example.test\n")
	refs := []scanner.Reference{
		ref("APP_URL", "app", "url"),
		ref("APP_URL", "services", "callback"),
	}
	tree := decodeTree(t, `{
		"app": {"url": "http://localhost"},
		"services": {"callback": "http://stale"}
	}`)

	result := Analyze(env, refs, tree, &config.Config{})

	if len(result.Diffs) != 1 {
		t.Fatalf("Expected 1 diff, got %d", len(result.Diffs))
	}
	want := []string{"app.url", "services.callback"}
	if !reflect.DeepEqual(result.Diffs[0].Paths, want) {
		t.Errorf("Expected paths %v, got %v", want, result.Diffs[0].Paths)
	}
}

func TestAnalyze_UnresolvedPathIsDrift(t *testing.T) {
	env := parseEnv(t, "MAIL_HOST=smtp.example.test\n")
	refs := []scanner.Reference{
		ref("MAIL_HOST", "mail", "mailers", "smtp", "host"),
	}
	// The cache predates the mail section entirely.
	tree := decodeTree(t, `{"app": {"name": "demo"}}`)

	result := Analyze(env, refs, tree, &config.Config{})

	if len(result.Diffs) != 1 || result.Diffs[0].Name != "MAIL_HOST" {
		t.Fatalf("Expected MAIL_HOST diff, got %v", diffNames(result))
	}
}

func TestAnalyze_NonScalarLeafIsDrift(t *testing.T) {
	env := parseEnv(t, "DB_OPTIONS=persistent\n")
	refs := []scanner.Reference{
		ref("DB_OPTIONS", "database", "options"),
	}
	tree := decodeTree(t, `{"database": {"options": {"persistent": "true"}}}`)

	result := Analyze(env, refs, tree, &config.Config{})

	if len(result.Diffs) != 1 || result.Diffs[0].Name != "DB_OPTIONS" {
		t.Fatalf("Expected DB_OPTIONS diff, got %v", diffNames(result))
	}
}

func TestAnalyze_OrderFollowsEnvFile(t *testing.T) {
	env := parseEnv(t, "ZEBRA=1\nALPHA=2\nMIKE=3\n")
	refs := []scanner.Reference{
		ref("ALPHA", "app", "alpha"),
		ref("MIKE", "app", "mike"),
		ref("ZEBRA", "app", "zebra"),
	}
	tree := decodeTree(t, `{"app": {"alpha": "stale", "mike": "stale", "zebra": "stale"}}`)

	result := Analyze(env, refs, tree, &config.Config{})

	want := []string{"ZEBRA", "ALPHA", "MIKE"}
	if got := diffNames(result); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected diff order %v, got %v", want, got)
	}
}

func TestAnalyze_NullEquivalence(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		cached   string // JSON fragment for the cached value
		match    bool
	}{
		{"empty file value vs cached null", "", `null`, true},
		{"literal null vs cached empty", "null", `""`, true},
		{"uppercase NULL vs cached null", "NULL", `null`, true},
		{"false vs cached empty", "false", `""`, true},
		{"quoted empty vs cached null", `""`, `null`, true},
		{"false vs cached false", "false", `false`, true},
		{"zero vs cached empty", "0", `""`, false},
		{"empty vs cached value", "", `"set"`, false},
		{"value vs cached null", "secret", `null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := parseEnv(t, "DB_PASSWORD="+tt.envValue+"\n")
			refs := []scanner.Reference{
				ref("DB_PASSWORD", "database", "password"),
			}
			tree := decodeTree(t, `{"database": {"password": `+tt.cached+`}}`)

			result := Analyze(env, refs, tree, &config.Config{})

			if tt.match && len(result.Diffs) != 0 {
				t.Errorf("Expected values to match, got diff %v", diffNames(result))
			}
			if !tt.match && len(result.Diffs) != 1 {
				t.Errorf("Expected a diff, got %v", diffNames(result))
			}
		})
	}
}

func TestAnalyze_IgnoredDiffs(t *testing.T) {
	env := parseEnv(t, "APP_KEY=rotated\nAPP_NAME=renamed\n")
	refs := []scanner.Reference{
		ref("APP_KEY", "app", "key"),
		ref("APP_NAME", "app", "name"),
	}
	tree := decodeTree(t, `{"app": {"key": "stale", "name": "stale"}}`)

	cfg := &config.Config{
		Ignores: config.IgnoresConfig{
			Diffs: []string{"APP_KEY"},
		},
	}
	result := Analyze(env, refs, tree, cfg)

	if len(result.Diffs) != 1 {
		t.Fatalf("Expected 1 diff, got %d", len(result.Diffs))
	}
	if result.Diffs[0].Name != "APP_NAME" {
		t.Errorf("Expected APP_NAME, got %s", result.Diffs[0].Name)
	}
	if result.Ignored != 1 {
		t.Errorf("Expected 1 ignored difference, got %d", result.Ignored)
	}
}

func TestAnalyze_DuplicatePathsCollapsed(t *testing.T) {
	env := parseEnv(t, "APP_DEBUG=true\n")
	refs := []scanner.Reference{
		ref("APP_DEBUG", "app", "debug"),
		ref("APP_DEBUG", "app", "debug"),
	}
	tree := decodeTree(t, `{"app": {"debug": "stale"}}`)

	result := Analyze(env, refs, tree, &config.Config{})

	if len(result.Diffs) != 1 {
		t.Fatalf("Expected 1 diff, got %d", len(result.Diffs))
	}
	want := []string{"app.debug"}
	if !reflect.DeepEqual(result.Diffs[0].Paths, want) {
		t.Errorf("Expected paths %v, got %v", want, result.Diffs[0].Paths)
	}
}

func TestAnalyze_MatchingNumbersAndBooleans(t *testing.T) {
	env := parseEnv(t, "DB_PORT=3306\nAPP_DEBUG=true\n")
	refs := []scanner.Reference{
		ref("DB_PORT", "database", "port"),
		ref("APP_DEBUG", "app", "debug"),
	}
	// php -r emits native JSON types for numeric and boolean values.
	tree := decodeTree(t, `{"database": {"port": 3306}, "app": {"debug": true}}`)

	result := Analyze(env, refs, tree, &config.Config{})

	if len(result.Diffs) != 0 {
		t.Errorf("Expected no diffs, got %v", diffNames(result))
	}
}

func TestResult_HasDiffs(t *testing.T) {
	if (Result{}).HasDiffs() {
		t.Error("Empty result should not report diffs")
	}
	if !(Result{Diffs: []Diff{{Name: "X"}}}).HasDiffs() {
		t.Error("Result with a diff should report diffs")
	}
}
