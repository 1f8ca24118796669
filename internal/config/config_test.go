package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bstardust/image-metadata-extractor/pkg/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log-level: debug
source:
  timeout: 5s
  retries: 1
export:
  output-dir: /tmp/out
`), 0644))

	t.Setenv("IMAGEMETA_SOURCE_RETRIES", "7")
	t.Setenv("IMAGEMETA_EXPORT_FILE_NAME", "exif.json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.Bool("json", false, "")
	flags.String("output-dir", ".", "")
	require.NoError(t, flags.Parse([]string{"--json", "--output-dir", "/srv/meta"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	// file beats defaults
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	// env beats file
	assert.Equal(t, 7, cfg.Source.Retries)
	assert.Equal(t, "exif.json", cfg.Export.FileName)
	// changed flags beat everything
	assert.True(t, cfg.Export.JSON)
	assert.Equal(t, "/srv/meta", cfg.Export.OutputDir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)

	var cfgErr *common.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestValidate(t *testing.T) {
	cfg := New()
	assert.NoError(t, cfg.Validate())

	cfg.Source.Timeout = 0
	cfg.Export.FileName = ""
	cfg.S3.Bucket = "photos"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.timeout")
	assert.Contains(t, err.Error(), "export.file-name")
	assert.Contains(t, err.Error(), "s3.endpoint")
	assert.Contains(t, err.Error(), "s3.access-key")
}

func TestValidate_S3(t *testing.T) {
	cfg := New()
	cfg.S3.Bucket = "photos"
	cfg.S3.Endpoint = "localhost:9000"
	cfg.S3.AccessKey = "minio"
	cfg.S3.SecretKey = "minio123"
	assert.NoError(t, cfg.Validate())

	cfg.S3.Bucket = "Bad_Bucket"
	cfg.S3.Endpoint = "ftp://localhost"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3.bucket: bucket name must be DNS compliant")
	assert.Contains(t, err.Error(), "s3.endpoint: endpoint must use http or https")
}
