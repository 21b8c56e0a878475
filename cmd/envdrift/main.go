package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rnovak/envdrift/internal/analyzer"
	"github.com/rnovak/envdrift/internal/config"
	"github.com/rnovak/envdrift/internal/envfile"
	"github.com/rnovak/envdrift/internal/output"
	"github.com/rnovak/envdrift/internal/scanner"
	"github.com/rnovak/envdrift/internal/snapshot"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Default project layout, matching a stock Laravel checkout.
const (
	defaultEnvFile   = ".env"
	defaultConfigDir = "config"
	defaultCache     = "bootstrap/cache/config.php"
)

var (
	rootCmd = &cobra.Command{
		Use:   "envdrift",
		Short: "Check environment files against the compiled config cache",
		Long:  "A CLI tool that reconciles a project's .env file with the configuration cache PHP actually serves, reporting variables whose values drifted apart.",
	}

	checkCmd = &cobra.Command{
		Use:   "check [path]",
		Short: "Check a project for configuration drift",
		Long:  "Parse the project's environment file, discover env() references in its config sources and compare each declared value with the compiled cache.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCheck,
	}

	initConfigCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Create a .envdrift.yml file in the current directory",
		Long:  "Creates a .envdrift.yml file with default configuration in the current directory.",
		RunE:  runInitConfig,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "Print the version number of envdrift",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}

	// Flags
	envFilePath   string
	configDirPath string
	cachePath     string
	phpBin        string
	jsonOutput    bool
	silent        bool
	noHeader      bool
	failOnDiff    bool
	debug         bool
)

func init() {
	checkCmd.Flags().StringVar(&envFilePath, "env-file", "", "Environment file to check (default: .env)")
	checkCmd.Flags().StringVar(&configDirPath, "config-dir", "", "Directory holding the PHP config sources (default: config)")
	checkCmd.Flags().StringVar(&cachePath, "cache", "", "Compiled configuration cache (default: bootstrap/cache/config.php)")
	checkCmd.Flags().StringVar(&phpBin, "php", "php", "PHP interpreter used to evaluate the cache")
	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	checkCmd.Flags().BoolVar(&silent, "silent", false, "Suppress progress output and warnings")
	checkCmd.Flags().BoolVar(&noHeader, "no-header", false, "Skip printing the report header")
	checkCmd.Flags().BoolVar(&failOnDiff, "fail-on-diff", false, "Exit with status 1 when differences are found")
	checkCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(versionCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", absPath)
	}

	if !noHeader && !jsonOutput && !silent {
		printBanner()
	}

	cfg, err := config.LoadConfig(absPath)
	if err != nil {
		if !silent {
			fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", config.FileName, err)
		}
		// Continue with default config
		cfg = &config.Config{}
	}

	// A flag beats the config file, the config file beats the default.
	envRel := firstNonEmpty(envFilePath, cfg.Paths.EnvFile, defaultEnvFile)
	configRel := firstNonEmpty(configDirPath, cfg.Paths.ConfigDir, defaultConfigDir)
	cacheRel := firstNonEmpty(cachePath, cfg.Paths.Cache, defaultCache)

	envAbs := resolvePath(absPath, envRel)
	configAbs := resolvePath(absPath, configRel)
	cacheAbs := resolvePath(absPath, cacheRel)

	if !silent {
		fmt.Fprintf(os.Stderr, "Checking %s against %s...\n", envRel, cacheRel)
	}

	env, err := envfile.ParseFile(envAbs)
	if err != nil {
		return fmt.Errorf("failed to read environment file: %w", err)
	}

	refScanner := scanner.NewScanner()
	refScanner.SetDebug(debug)
	refScanner.SetSilent(silent)
	refs, err := refScanner.ScanDir(configAbs)
	if err != nil {
		return fmt.Errorf("failed to scan config directory: %w", err)
	}

	if !silent {
		fmt.Fprintf(os.Stderr, "Found %d env() references in %s\n", len(refs), configRel)
	}

	loader := snapshot.NewPHPLoader(phpBin)
	tree, err := loader.Load(cacheAbs)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return fmt.Errorf("%w; run `php artisan config:cache` to generate it", err)
		}
		return fmt.Errorf("failed to load config cache: %w", err)
	}

	result := analyzer.Analyze(env, refs, tree, cfg)

	if err := output.Format(os.Stdout, result, envRel, cacheRel, jsonOutput, noHeader); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if !silent {
		fmt.Fprintf(os.Stderr, "Checked %d variable(s), skipped %d without references\n", result.Checked, result.Skipped)
	}

	if failOnDiff && result.HasDiffs() {
		os.Exit(1)
	}

	return nil
}

// resolvePath anchors a configured path at the project root unless it is
// already absolute.
func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	// Check if file already exists
	if _, err := os.Stat(config.FileName); err == nil {
		return fmt.Errorf("%s already exists in the current directory", config.FileName)
	}

	// Default config content
	configContent := `# .envdrift.yml
# Configuration file for envdrift

ignores:
  # Variables whose drift is expected (rotated secrets, per-machine overrides)
  # These will not be reported as differences
  diffs:
    # - APP_KEY
    # - XDEBUG_MODE
    # Add more variable names here as needed

# Override the default project layout if yours differs
paths:
  # env_file: .env
  # config_dir: config
  # cache: bootstrap/cache/config.php
`

	// Write the config file
	if err := os.WriteFile(config.FileName, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to create %s: %w", config.FileName, err)
	}

	fmt.Printf("Created %s in the current directory\n", config.FileName)
	return nil
}

func printBanner() {
	fmt.Fprintf(os.Stderr, "envdrift %s\n\n", Version)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
