// Package config loads layersync settings from flags, LAYERSYNC_*
// environment variables, .env files and a YAML config file.
package config

import (
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agentstation/layersync/internal/portal"
	"github.com/agentstation/layersync/internal/storage"
	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LAYERSYNC"

// Config holds the resolved settings.
type Config struct {
	// Portal
	PortalURL string `mapstructure:"portal_url" yaml:"portal_url"`
	Username  string `mapstructure:"username" yaml:"username"`
	Password  string `mapstructure:"password" yaml:"-"`
	APIKey    string `mapstructure:"api_key" yaml:"-"`
	Referer   string `mapstructure:"referer" yaml:"referer,omitempty"`
	LayerID   string `mapstructure:"layer_id" yaml:"layer_id,omitempty"`

	// TokenHeader sends the token in a header rather than the URL.
	TokenHeader bool `mapstructure:"token_header" yaml:"token_header,omitempty"`

	// Input and merge
	KeyColumn  string `mapstructure:"key_column" yaml:"key_column,omitempty"`
	SchemaFile string `mapstructure:"schema_file" yaml:"schema_file,omitempty"`
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	Strategy   string `mapstructure:"strategy" yaml:"strategy"`
	Ordering   string `mapstructure:"ordering" yaml:"ordering"`
	Policy     string `mapstructure:"on_malformed" yaml:"on_malformed"`

	// Output
	OutputDir  string `mapstructure:"output_dir" yaml:"output_dir"`
	OutputName string `mapstructure:"output_name" yaml:"output_name,omitempty"`
	ArchiveURI string `mapstructure:"archive_uri" yaml:"archive_uri,omitempty"`

	// Run bookkeeping
	HistoryPath     string `mapstructure:"history_path" yaml:"history_path"`
	MetricsTextfile string `mapstructure:"metrics_textfile" yaml:"metrics_textfile,omitempty"`
	PushgatewayURL  string `mapstructure:"pushgateway_url" yaml:"pushgateway_url,omitempty"`

	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	OverwriteTimeout time.Duration `mapstructure:"overwrite_timeout" yaml:"overwrite_timeout"`

	// Object stores
	S3Region          string `mapstructure:"s3_region" yaml:"s3_region,omitempty"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id" yaml:"-"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key" yaml:"-"`
	S3Endpoint        string `mapstructure:"s3_endpoint" yaml:"s3_endpoint,omitempty"`
	S3UsePathStyle    bool   `mapstructure:"s3_use_path_style" yaml:"s3_use_path_style,omitempty"`
	GCSCredentials    string `mapstructure:"gcs_credentials_file" yaml:"gcs_credentials_file,omitempty"`
	GCSEnabled        bool   `mapstructure:"gcs_enabled" yaml:"gcs_enabled,omitempty"`
	AzureAccountName  string `mapstructure:"azure_account_name" yaml:"azure_account_name,omitempty"`
	AzureAccountKey   string `mapstructure:"azure_account_key" yaml:"-"`
	AzureServiceURL   string `mapstructure:"azure_service_url" yaml:"azure_service_url,omitempty"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// keys lists every setting. Flags named like the key with dashes instead
// of underscores are bound automatically.
var keys = []string{
	"portal_url", "username", "password", "api_key", "referer", "layer_id", "token_header",
	"key_column", "schema_file", "delimiter", "strategy", "ordering", "on_malformed",
	"output_dir", "output_name", "archive_uri",
	"history_path", "metrics_textfile", "pushgateway_url",
	"poll_interval", "overwrite_timeout",
	"s3_region", "s3_access_key_id", "s3_secret_access_key", "s3_endpoint", "s3_use_path_style",
	"gcs_credentials_file", "gcs_enabled",
	"azure_account_name", "azure_account_key", "azure_service_url",
}

// Options control where Load looks.
type Options struct {
	// File is an explicit config file. When empty, .layersync.yaml is
	// searched for in the home and working directories.
	File string

	// Flags are bound over every other source.
	Flags *pflag.FlagSet

	// EnvFiles are loaded before reading the environment. Defaults to
	// .env and .env.local.
	EnvFiles []string
}

// Load resolves settings in order of precedence: flags, LAYERSYNC_*
// environment variables (including those from .env files), the config
// file, and defaults.
func Load(opts Options) (*Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env", ".env.local"}
	}
	loadEnvFiles(envFiles)

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		// Unmarshal only sees env values for keys viper knows about.
		if err := v.BindEnv(key); err != nil {
			return nil, errors.NewConfigError("config", "bind env "+key, err)
		}
	}

	if opts.Flags != nil {
		for _, key := range keys {
			if f := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.NewConfigError("config", "bind flag "+f.Name, err)
				}
			}
		}
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".layersync")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !stderrors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "read config file", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewConfigError("config", "decode settings", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal_url", constants.DefaultPortalURL)
	v.SetDefault("delimiter", ",")
	v.SetDefault("strategy", "last-write-wins")
	v.SetDefault("ordering", "first-seen")
	v.SetDefault("on_malformed", "reject")
	v.SetDefault("output_dir", constants.DefaultOutputDir)
	v.SetDefault("history_path", constants.DefaultHistoryPath)
	v.SetDefault("poll_interval", constants.DefaultPollInterval)
	v.SetDefault("overwrite_timeout", constants.OverwriteTimeout)
}

func loadEnvFiles(files []string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Credentials returns the portal credentials.
func (c *Config) Credentials() portal.Credentials {
	return portal.Credentials{
		Username: c.Username,
		Password: c.Password,
		APIKey:   c.APIKey,
		Referer:  c.Referer,
	}
}

// Storage returns the object store settings.
func (c *Config) Storage() storage.Config {
	return storage.Config{
		S3: storage.S3Config{
			Region:          c.S3Region,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			Endpoint:        c.S3Endpoint,
			UsePathStyle:    c.S3UsePathStyle,
		},
		GCS:       storage.GCSConfig{CredentialsFile: c.GCSCredentials},
		EnableGCS: c.GCSEnabled,
		Azure: storage.AzureConfig{
			AccountName: c.AzureAccountName,
			AccountKey:  c.AzureAccountKey,
			ServiceURL:  c.AzureServiceURL,
		},
	}
}
