// Package config loads server settings from command-line flags, environment
// variables and a .env file.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/ratelimit"
	"github.com/kobink/kobink-server/internal/scanner"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Library LibraryConfig
	Server  ServerConfig
	Kobo    KoboConfig
	Auth    AuthConfig
	Covers  CoversConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// LibraryConfig describes the book directory and how it is scanned.
type LibraryConfig struct {
	Path           string
	Fingerprint    scanner.FingerprintMode
	History        int           // Retained snapshots (default: 64)
	RescanInterval time.Duration // Minimum age before a sync rescans; 0 rescans every sync
	ScanWorkers    int
	Watch          bool
	WatchSettle    time.Duration
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	HostURL      string        // Advertised base URL; derived per request when empty
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 5m, downloads are large)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	TLSCertFile  string
	TLSKeyFile   string
}

// KoboConfig holds device protocol settings.
type KoboConfig struct {
	// APIKey, when set, must match the {key} path segment of every device URL.
	APIKey        string
	ResourcesFile string
	SyncPageSize  int
}

// AuthConfig holds device authentication limits.
type AuthConfig struct {
	RateLimitCount    int
	RateLimitInterval time.Duration
}

// CoversConfig holds cover rendering settings.
type CoversConfig struct {
	// CacheDir stores resized covers; empty disables the cache.
	CacheDir string
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("kobink", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	libraryPath := fs.String("library-path", "", "Path to the book library")
	fingerprint := fs.String("fingerprint", "", "Change detection: hash or stat (default: hash)")
	history := fs.String("library-history", "", "Catalog snapshots kept for deltas (default: 64)")
	rescanInterval := fs.String("rescan-interval", "", "Minimum time between rescans (default: 0)")
	scanWorkers := fs.String("scan-workers", "", "Concurrent file readers during a scan (default: 4)")
	watch := fs.String("watch", "", "Rescan when the library changes (default: true)")
	watchSettle := fs.String("watch-settle", "", "Quiet period before a change triggers a rescan (default: 2s)")

	hostURL := fs.String("host-url", "", "Base URL advertised to devices")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 5m)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	tlsCert := fs.String("tls-cert", "", "TLS certificate file")
	tlsKey := fs.String("tls-key", "", "TLS key file")

	apiKey := fs.String("api-key", "", "Required {key} segment in device URLs")
	resourcesFile := fs.String("resources-file", "", "YAML or JSON file overriding Kobo resources")
	pageSize := fs.String("sync-page-size", "", "Sync events per response (default: 100)")
	authRate := fs.String("auth-rate-limit", "", "Device auth requests per client (default: 10/min)")
	coverCache := fs.String("cover-cache", "", "Directory for resized covers")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeConfig, "parse flags")
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Library: LibraryConfig{
			Path:        getConfigValue(*libraryPath, "LIBRARY_PATH", ""),
			History:     getIntConfigValue(*history, "LIBRARY_HISTORY", 64),
			ScanWorkers: getIntConfigValue(*scanWorkers, "SCAN_WORKERS", 4),
			Watch:       getBoolConfigValue(*watch, "WATCH_LIBRARY", true),
		},
		Server: ServerConfig{
			HostURL:     strings.TrimRight(getConfigValue(*hostURL, "HOST_URL", ""), "/"),
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			TLSCertFile: getConfigValue(*tlsCert, "TLS_CERT_FILE", ""),
			TLSKeyFile:  getConfigValue(*tlsKey, "TLS_KEY_FILE", ""),
		},
		Kobo: KoboConfig{
			APIKey:        getConfigValue(*apiKey, "KOBO_API_KEY", ""),
			ResourcesFile: getConfigValue(*resourcesFile, "KOBO_RESOURCES_FILE", ""),
			SyncPageSize:  getIntConfigValue(*pageSize, "KOBO_SYNC_PAGE_SIZE", 100),
		},
		Covers: CoversConfig{
			CacheDir: getConfigValue(*coverCache, "COVER_CACHE_DIR", ""),
		},
	}

	mode, err := scanner.ParseFingerprintMode(getConfigValue(*fingerprint, "LIBRARY_FINGERPRINT", "hash"))
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeConfig, "invalid LIBRARY_FINGERPRINT")
	}
	cfg.Library.Fingerprint = mode

	durations := []struct {
		dst      *time.Duration
		flag     string
		env      string
		fallback string
	}{
		{&cfg.Library.RescanInterval, *rescanInterval, "LIBRARY_RESCAN_INTERVAL", "0s"},
		{&cfg.Library.WatchSettle, *watchSettle, "WATCH_SETTLE", "2s"},
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "5m"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		if *d.dst, err = getDurationConfigValue(d.flag, d.env, d.fallback); err != nil {
			return nil, err
		}
	}

	rateStr := getConfigValue(*authRate, "AUTH_RATE_LIMIT", "10/min")
	cfg.Auth.RateLimitCount, cfg.Auth.RateLimitInterval, err = ratelimit.ParseRate(rateStr)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeConfig, "invalid AUTH_RATE_LIMIT")
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
// Every failure carries CodeConfig.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return domainerrors.Configf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return domainerrors.Configf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Library.Path == "" {
		return domainerrors.Configf("LIBRARY_PATH is required")
	}
	if err := scanner.CheckRoot(c.Library.Path); err != nil {
		return err
	}

	if c.Server.HostURL != "" {
		u, err := url.Parse(c.Server.HostURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domainerrors.Configf("HOST_URL must be an absolute http(s) URL, got %q", c.Server.HostURL)
		}
	}

	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return domainerrors.Configf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	if c.Kobo.SyncPageSize <= 0 {
		return domainerrors.Configf("KOBO_SYNC_PAGE_SIZE must be positive")
	}
	if c.Library.History <= 0 {
		return domainerrors.Configf("LIBRARY_HISTORY must be positive")
	}
	if c.Library.ScanWorkers <= 0 {
		return domainerrors.Configf("SCAN_WORKERS must be positive")
	}
	if c.Library.RescanInterval < 0 {
		return domainerrors.Configf("LIBRARY_RESCAN_INTERVAL cannot be negative")
	}

	return nil
}

// TLSEnabled reports whether both TLS files are configured and present on disk.
func (c *Config) TLSEnabled() bool {
	if c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "" {
		return false
	}
	return fileExists(c.Server.TLSCertFile) && fileExists(c.Server.TLSKeyFile)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// expandPaths expands ~ and makes configured paths absolute.
func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.Library.Path,
		&c.Server.TLSCertFile,
		&c.Server.TLSKeyFile,
		&c.Kobo.ResourcesFile,
		&c.Covers.CacheDir,
	} {
		expanded, err := expandPath(*p, "")
		if err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeConfig, "invalid path %q", *p)
		}
		*p = expanded
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, domainerrors.Wrapf(err, domainerrors.CodeConfig, "invalid %s %q", envKey, strValue)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Env vars take precedence over the .env file.
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
