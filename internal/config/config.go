package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/deploymenttheory/go-api-runner/internal/errors"
	"github.com/deploymenttheory/go-api-runner/internal/fsutil"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "go-api-runner"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "API_RUNNER"

	// ConfigName is the base name of the settings file searched for when no file is given
	ConfigName = "settings"

	// DefaultTimeout bounds every HTTP request when api.timeout is not set
	DefaultTimeout = 10 * time.Second
)

// AppConfig holds the typed view of the settings file
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=human json"`
	LogFile   string `mapstructure:"log_file"`

	// Optional JSON file receiving the run report
	ReportFile string `mapstructure:"report_file"`

	// API settings
	API struct {
		BaseURL   string            `mapstructure:"base_url" validate:"required,url"`
		Endpoints map[string]string `mapstructure:"endpoints"`
	} `mapstructure:"api"`

	// Credentials used for registration and login
	Auth struct {
		Username string `mapstructure:"username" validate:"required"`
		Password string `mapstructure:"password" validate:"required"`
	} `mapstructure:"auth"`

	// Device handshake settings
	Devices struct {
		HandshakeDelay time.Duration `mapstructure:"handshake_delay" validate:"gte=0"`

		SSH struct {
			Host     string   `mapstructure:"host"`
			User     string   `mapstructure:"user"`
			Password string   `mapstructure:"password"`
			Commands []string `mapstructure:"commands"`
		} `mapstructure:"ssh"`

		RDP struct {
			Host string `mapstructure:"host"`
		} `mapstructure:"rdp"`
	} `mapstructure:"devices"`
}

// Config resolves dotted keys against a loaded settings document
type Config struct {
	Settings AppConfig

	v      *viper.Viper
	file   string
	format string
	raw    []byte
}

// Load reads the settings file. An empty cfgFile falls back to the API_RUNNER_CONFIG
// environment variable and then to the standard search paths.
func Load(cfgFile string) (*Config, error) {
	v := newViper()

	if cfgFile == "" {
		cfgFile = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if cfgFile != "" {
		if !fsutil.FileExists(cfgFile) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrConfigFileNotFound, cfgFile)
		}
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s.yaml not found in search paths", apperrors.ErrConfigFileNotFound, ConfigName)
		}
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConfigParseError, err.Error())
	}

	file := v.ConfigFileUsed()
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConfigParseError, err.Error())
	}

	return newConfig(v, file, strings.TrimPrefix(filepath.Ext(file), "."), raw)
}

// Parse reads a settings document of the given format ("yaml", "json", "toml") from r
func Parse(r io.Reader, format string) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConfigParseError, err.Error())
	}

	v := newViper()
	v.SetConfigType(format)

	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConfigParseError, err.Error())
	}

	return newConfig(v, "", format, raw)
}

func newConfig(v *viper.Viper, file, format string, raw []byte) (*Config, error) {
	cfg := &Config{v: v, file: file, format: strings.ToLower(format), raw: raw}
	if err := v.Unmarshal(&cfg.Settings); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConfigParseError, err.Error())
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	return v
}

// envKeys are bound explicitly so an environment variable reaches Settings even when
// the settings file leaves the key out
var envKeys = []string{
	"api.base_url",
	"api.timeout",
	"auth.username",
	"auth.password",
	"devices.ssh.user",
	"devices.ssh.password",
}

func bindEnvs(v *viper.Viper) {
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Core settings
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")
	v.SetDefault("report_file", "")

	// API defaults
	v.SetDefault("api.timeout", DefaultTimeout.Seconds())

	// Device defaults
	v.SetDefault("devices.handshake_delay", "500ms")
	v.SetDefault("devices.ssh.host", "mock-host-ssh")
	v.SetDefault("devices.rdp.host", "mock-host-rdp")
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	if configDir, err := fsutil.GetConfigDir(AppName); err == nil {
		v.AddConfigPath(configDir)
	}

	v.AddConfigPath(fsutil.GetSystemConfigDir(AppName))
}

// File returns the settings file that was read, if any
func (c *Config) File() string {
	return c.file
}

// Get resolves a dotted key such as "api.endpoints.users". It returns def when any
// segment is missing, null, or traverses a non-mapping value.
func (c *Config) Get(key string, def interface{}) interface{} {
	if !c.v.IsSet(key) {
		return def
	}

	value := c.v.Get(key)
	if value == nil {
		return def
	}
	return value
}

// GetString resolves a dotted key to a string, returning def when the key is absent
// or cannot be represented as a string.
func (c *Config) GetString(key, def string) string {
	value := c.Get(key, nil)
	if value == nil {
		return def
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		return def
	}
	return s
}

// Raw returns a top-level value exactly as written in a YAML or JSON settings document.
// Unlike Get it keeps the case of nested keys, which matters for request payloads, and
// ignores environment overrides. Other formats fall back to Get.
func (c *Config) Raw(key string) interface{} {
	switch c.format {
	case "yaml", "yml", "json":
	default:
		return c.Get(key, nil)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(c.raw, &doc); err != nil {
		return c.Get(key, nil)
	}
	return doc[key]
}

// Endpoint returns the API path configured for a resource type, or "" if there is none
func (c *Config) Endpoint(resource string) string {
	return c.GetString("api.endpoints."+resource, "")
}

// RequestTimeout returns api.timeout as a duration. Bare numbers are seconds;
// strings may also use Go duration syntax ("1500ms").
func (c *Config) RequestTimeout() time.Duration {
	raw := c.Get("api.timeout", nil)
	if raw == nil {
		return DefaultTimeout
	}

	if s, ok := raw.(string); ok {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}

	seconds, err := cast.ToFloat64E(raw)
	if err != nil || seconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(seconds * float64(time.Second))
}

// Validate checks the typed settings and returns every problem found
func (c *Config) Validate() error {
	var result *multierror.Error

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c.Settings); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fe := range fieldErrors {
				result = multierror.Append(result, fmt.Errorf("%w: %s failed on the '%s' rule",
					apperrors.ErrConfigInvalid, fe.Namespace(), fe.Tag()))
			}
		} else {
			result = multierror.Append(result, fmt.Errorf("%w: %s", apperrors.ErrConfigInvalid, err.Error()))
		}
	}

	if c.Endpoint("login") == "" {
		result = multierror.Append(result, fmt.Errorf("%w: api.endpoints.login is required", apperrors.ErrConfigInvalid))
	}

	return result.ErrorOrNil()
}
