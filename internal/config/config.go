package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bstardust/image-metadata-extractor/internal/utils"
	"github.com/bstardust/image-metadata-extractor/pkg/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. IMAGEMETA_SOURCE_TIMEOUT
const EnvPrefix = "IMAGEMETA"

// Config represents the application configuration
type Config struct {
	LogLevel string
	Source   SourceConfig
	Export   ExportConfig
	S3       S3Config
}

// SourceConfig controls how images are retrieved
type SourceConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	Retries   int
	UserAgent string
}

// ExportConfig controls where extracted metadata goes
type ExportConfig struct {
	JSON      bool
	OutputDir string
	FileName  string
}

// S3Config represents the optional S3 destination for exported JSON
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Enabled reports whether an S3 upload was requested
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// New creates a new configuration with default values
func New() *Config {
	return &Config{
		LogLevel: "info",
		Source: SourceConfig{
			Timeout:   30 * time.Second,
			MaxBytes:  64 << 20,
			Retries:   3,
			UserAgent: "image-metadata-extractor/1.0",
		},
		Export: ExportConfig{
			OutputDir: ".",
			FileName:  "metadata.json",
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
		},
	}
}

// flagKeys maps command-line flag names to configuration keys
var flagKeys = map[string]string{
	"log-level":     "log-level",
	"timeout":       "source.timeout",
	"max-bytes":     "source.max-bytes",
	"retries":       "source.retries",
	"user-agent":    "source.user-agent",
	"json":          "export.json",
	"output-dir":    "export.output-dir",
	"file-name":     "export.file-name",
	"s3-endpoint":   "s3.endpoint",
	"s3-region":     "s3.region",
	"s3-bucket":     "s3.bucket",
	"s3-access-key": "s3.access-key",
	"s3-secret-key": "s3.secret-key",
	"s3-use-ssl":    "s3.use-ssl",
	"s3-prefix":     "s3.prefix",
}

// Load builds the configuration from defaults, an optional config file,
// IMAGEMETA_* environment variables and any flags set on the command line,
// in increasing order of precedence.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, New())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, common.NewConfigError(fmt.Sprintf("failed to read config file %s: %v", path, err))
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, common.NewConfigError(fmt.Sprintf("failed to bind flag %s: %v", name, err))
			}
		}
	}

	cfg := &Config{
		LogLevel: v.GetString("log-level"),
		Source: SourceConfig{
			Timeout:   v.GetDuration("source.timeout"),
			MaxBytes:  v.GetInt64("source.max-bytes"),
			Retries:   v.GetInt("source.retries"),
			UserAgent: v.GetString("source.user-agent"),
		},
		Export: ExportConfig{
			JSON:      v.GetBool("export.json"),
			OutputDir: v.GetString("export.output-dir"),
			FileName:  v.GetString("export.file-name"),
		},
		S3: S3Config{
			Endpoint:  v.GetString("s3.endpoint"),
			Region:    v.GetString("s3.region"),
			Bucket:    v.GetString("s3.bucket"),
			AccessKey: v.GetString("s3.access-key"),
			SecretKey: v.GetString("s3.secret-key"),
			UseSSL:    v.GetBool("s3.use-ssl"),
			Prefix:    v.GetString("s3.prefix"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log-level", cfg.LogLevel)
	v.SetDefault("source.timeout", cfg.Source.Timeout)
	v.SetDefault("source.max-bytes", cfg.Source.MaxBytes)
	v.SetDefault("source.retries", cfg.Source.Retries)
	v.SetDefault("source.user-agent", cfg.Source.UserAgent)
	v.SetDefault("export.json", cfg.Export.JSON)
	v.SetDefault("export.output-dir", cfg.Export.OutputDir)
	v.SetDefault("export.file-name", cfg.Export.FileName)
	v.SetDefault("s3.endpoint", cfg.S3.Endpoint)
	v.SetDefault("s3.region", cfg.S3.Region)
	v.SetDefault("s3.bucket", cfg.S3.Bucket)
	v.SetDefault("s3.access-key", cfg.S3.AccessKey)
	v.SetDefault("s3.secret-key", cfg.S3.SecretKey)
	v.SetDefault("s3.use-ssl", cfg.S3.UseSSL)
	v.SetDefault("s3.prefix", cfg.S3.Prefix)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Source.Timeout <= 0 {
		errs = append(errs, common.NewConfigError("source.timeout must be positive"))
	}
	if c.Source.MaxBytes <= 0 {
		errs = append(errs, common.NewConfigError("source.max-bytes must be positive"))
	}
	if c.Source.Retries < 0 {
		errs = append(errs, common.NewConfigError("source.retries cannot be negative"))
	}
	if c.Export.FileName == "" {
		errs = append(errs, common.NewConfigError("export.file-name cannot be empty"))
	}
	if c.S3.Enabled() {
		if err := utils.ValidateBucketName(c.S3.Bucket); err != nil {
			errs = append(errs, common.NewConfigError("s3.bucket: "+err.Error()))
		}
		if c.S3.Endpoint == "" {
			errs = append(errs, common.NewConfigError("s3.endpoint is required when s3.bucket is set"))
		} else if err := utils.ValidateEndpoint(c.S3.Endpoint); err != nil {
			errs = append(errs, common.NewConfigError("s3.endpoint: "+err.Error()))
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			errs = append(errs, common.NewConfigError("s3.access-key and s3.secret-key are required when s3.bucket is set"))
		}
	}

	return errors.Join(errs...)
}
