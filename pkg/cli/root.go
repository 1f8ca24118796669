// pkg/cli/root.go
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bstardust/image-metadata-extractor/internal/config"
	"github.com/bstardust/image-metadata-extractor/internal/logger"
	"github.com/spf13/cobra"
)

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interruption signals
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		logger.Info("Received interrupt signal, shutting down...")
		cancel()
	}()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		logger.Error("Error executing command: %v", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the image-metadata command
func NewRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "image-metadata [flags] <file-path-or-url>",
		Short: "Extract metadata from an image file",
		Long: `Reads the EXIF metadata of a local image or an image URL and reports
camera make and model, image size, F-stop, focal length, shutter speed and ISO.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runExtract(cmd.Context(), cmd, cfg, args[0])
		},
	}

	defaults := config.New()
	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Path to a configuration file (yaml, json or toml)")
	flags.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")

	// Output options
	flags.BoolP("json", "j", false, "Export metadata as JSON")
	flags.String("output-dir", defaults.Export.OutputDir, "Directory for the exported JSON file")
	flags.String("file-name", defaults.Export.FileName, "Name of the exported JSON file")

	// Retrieval options
	flags.Duration("timeout", defaults.Source.Timeout, "Timeout for downloading remote images")
	flags.Int64("max-bytes", defaults.Source.MaxBytes, "Maximum image size in bytes")
	flags.Int("retries", defaults.Source.Retries, "Retries for transient download failures")
	flags.String("user-agent", defaults.Source.UserAgent, "User-Agent header for remote images")

	// S3 upload of the exported JSON
	flags.String("s3-endpoint", "", "S3 endpoint URL")
	flags.String("s3-region", defaults.S3.Region, "S3 region")
	flags.String("s3-bucket", "", "S3 bucket for the exported JSON (enables upload)")
	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")
	flags.Bool("s3-use-ssl", defaults.S3.UseSSL, "Use SSL for S3 connection")
	flags.String("s3-prefix", "", "Prefix for S3 object keys")

	return cmd
}
