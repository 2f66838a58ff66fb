package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/scanner"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Library: LibraryConfig{
			Path:        t.TempDir(),
			Fingerprint: scanner.FingerprintHash,
			History:     64,
			ScanWorkers: 4,
		},
		Kobo: KoboConfig{SyncPageSize: 100},
	}
}

// isolateEnv clears every variable Load reads so the host environment cannot leak in.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "LIBRARY_PATH", "LIBRARY_FINGERPRINT", "LIBRARY_HISTORY",
		"LIBRARY_RESCAN_INTERVAL", "SCAN_WORKERS", "WATCH_LIBRARY", "WATCH_SETTLE",
		"HOST_URL", "SERVER_PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT",
		"SERVER_IDLE_TIMEOUT", "TLS_CERT_FILE", "TLS_KEY_FILE", "KOBO_API_KEY",
		"KOBO_RESOURCES_FILE", "KOBO_SYNC_PAGE_SIZE", "AUTH_RATE_LIMIT", "COVER_CACHE_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig(t).Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domainerrors.ErrConfig)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_LibraryPath(t *testing.T) {
	cfg := validConfig(t)
	cfg.Library.Path = ""
	err := cfg.Validate()
	assert.ErrorIs(t, err, domainerrors.ErrConfig)
	assert.Contains(t, err.Error(), "LIBRARY_PATH is required")

	cfg.Library.Path = filepath.Join(t.TempDir(), "missing")
	assert.ErrorIs(t, cfg.Validate(), domainerrors.ErrConfig)

	file := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg.Library.Path = file
	assert.ErrorIs(t, cfg.Validate(), domainerrors.ErrConfig)
}

func TestValidate_HostURL(t *testing.T) {
	cfg := validConfig(t)

	cfg.Server.HostURL = "https://books.lan:8443"
	assert.NoError(t, cfg.Validate())

	cfg.Server.HostURL = "books.lan"
	assert.ErrorIs(t, cfg.Validate(), domainerrors.ErrConfig)
}

func TestValidate_TLSPair(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.TLSCertFile = "/etc/cert.pem"
	assert.ErrorIs(t, cfg.Validate(), domainerrors.ErrConfig)
}

func TestTLSEnabled(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")

	cfg := validConfig(t)
	cfg.Server.TLSCertFile = cert
	cfg.Server.TLSKeyFile = key
	assert.False(t, cfg.TLSEnabled(), "files do not exist yet")

	require.NoError(t, os.WriteFile(cert, []byte("c"), 0o600))
	require.NoError(t, os.WriteFile(key, []byte("k"), 0o600))
	assert.True(t, cfg.TLSEnabled())

	cfg.Server.TLSKeyFile = ""
	assert.False(t, cfg.TLSEnabled())
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)
	library := t.TempDir()

	cfg, err := Load([]string{"-library-path", library, "-env-file", filepath.Join(t.TempDir(), "none")})
	require.NoError(t, err)

	assert.Equal(t, library, cfg.Library.Path)
	assert.Equal(t, scanner.FingerprintHash, cfg.Library.Fingerprint)
	assert.Equal(t, 64, cfg.Library.History)
	assert.Equal(t, 4, cfg.Library.ScanWorkers)
	assert.Equal(t, time.Duration(0), cfg.Library.RescanInterval)
	assert.True(t, cfg.Library.Watch)
	assert.Equal(t, 2*time.Second, cfg.Library.WatchSettle)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 100, cfg.Kobo.SyncPageSize)
	assert.Equal(t, 10, cfg.Auth.RateLimitCount)
	assert.Equal(t, time.Minute, cfg.Auth.RateLimitInterval)
	assert.False(t, cfg.TLSEnabled())
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LIBRARY_PATH", t.TempDir())
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LIBRARY_FINGERPRINT", "stat")
	t.Setenv("HOST_URL", "http://books.lan/")

	cfg, err := Load([]string{"-port", "9100", "-env-file", filepath.Join(t.TempDir(), "none")})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, scanner.FingerprintStat, cfg.Library.Fingerprint)
	assert.Equal(t, "http://books.lan", cfg.Server.HostURL)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"fingerprint", "LIBRARY_FINGERPRINT", "md5"},
		{"duration", "SERVER_READ_TIMEOUT", "soon"},
		{"rate", "AUTH_RATE_LIMIT", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			t.Setenv("LIBRARY_PATH", t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "none")})
			assert.ErrorIs(t, err, domainerrors.ErrConfig)
		})
	}
}

func TestLoad_MissingLibraryIsConfigError(t *testing.T) {
	isolateEnv(t)

	_, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "none")})
	assert.ErrorIs(t, err, domainerrors.ErrConfig)
}

func TestExpandPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup

	got, err := expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "books"), got)

	got, err = expandPath("relative/path", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))

	got, err = expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	result := getConfigValue("flag-value", "ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	t.Setenv("TEST_ENV_KEY", "env-value")
	result = getConfigValue("", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetDurationConfigValue(t *testing.T) {
	d, err := getDurationConfigValue("90s", "UNUSED", "1s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = getDurationConfigValue("", "UNUSED_DURATION", "never")
	assert.ErrorIs(t, err, domainerrors.ErrConfig)
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	// Create temp .env file.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug
LIBRARY_PATH=/test/path
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	// Clear any existing env vars.
	os.Unsetenv("ENV")           //nolint:errcheck // Test cleanup
	os.Unsetenv("LOG_LEVEL")     //nolint:errcheck // Test cleanup
	os.Unsetenv("LIBRARY_PATH")  //nolint:errcheck // Test cleanup
	os.Unsetenv("QUOTED_VALUE")  //nolint:errcheck // Test cleanup
	os.Unsetenv("SINGLE_QUOTED") //nolint:errcheck // Test cleanup
	defer func() {
		os.Unsetenv("ENV")           //nolint:errcheck // Test cleanup
		os.Unsetenv("LOG_LEVEL")     //nolint:errcheck // Test cleanup
		os.Unsetenv("LIBRARY_PATH")  //nolint:errcheck // Test cleanup
		os.Unsetenv("QUOTED_VALUE")  //nolint:errcheck // Test cleanup
		os.Unsetenv("SINGLE_QUOTED") //nolint:errcheck // Test cleanup
	}()

	// Load the file.
	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Verify values were loaded.
	assert.Equal(t, "staging", os.Getenv("ENV"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "/test/path", os.Getenv("LIBRARY_PATH"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	// Create temp .env file with invalid format.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
ANOTHER_VALID=value
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	// Should return error.
	err = loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	err := loadEnvFile("/nonexistent/file/.env")
	assert.Error(t, err)
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	// Set env var first.
	os.Setenv("TEST_VAR", "original-value") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_VAR")           //nolint:errcheck // Test cleanup

	// Create temp .env file that tries to override it.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `TEST_VAR=new-value`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	// Load the file.
	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Original value should be preserved.
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestLoadEnvFile_EmptyLines(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `
KEY1=value1


KEY2=value2

# Comment

KEY3=value3
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	os.Unsetenv("KEY1") //nolint:errcheck // Test cleanup
	os.Unsetenv("KEY2") //nolint:errcheck // Test cleanup
	os.Unsetenv("KEY3") //nolint:errcheck // Test cleanup
	defer func() {
		os.Unsetenv("KEY1") //nolint:errcheck // Test cleanup
		os.Unsetenv("KEY2") //nolint:errcheck // Test cleanup
		os.Unsetenv("KEY3") //nolint:errcheck // Test cleanup
	}()

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	assert.Equal(t, "value1", os.Getenv("KEY1"))
	assert.Equal(t, "value2", os.Getenv("KEY2"))
	assert.Equal(t, "value3", os.Getenv("KEY3"))
}

func TestLoadEnvFile_Whitespace(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `  KEY_WITH_SPACES  =  value with spaces  `
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	os.Unsetenv("KEY_WITH_SPACES")       //nolint:errcheck // Test cleanup
	defer os.Unsetenv("KEY_WITH_SPACES") //nolint:errcheck // Test cleanup

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Whitespace should be trimmed.
	assert.Equal(t, "value with spaces", os.Getenv("KEY_WITH_SPACES"))
}
