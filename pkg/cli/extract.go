package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bstardust/image-metadata-extractor/internal/config"
	"github.com/bstardust/image-metadata-extractor/internal/export"
	"github.com/bstardust/image-metadata-extractor/internal/logger"
	"github.com/bstardust/image-metadata-extractor/internal/metadata"
	"github.com/bstardust/image-metadata-extractor/internal/source"
	"github.com/bstardust/image-metadata-extractor/pkg/common"
	"github.com/bstardust/image-metadata-extractor/pkg/s3client"
	"github.com/spf13/cobra"
)

func runExtract(ctx context.Context, cmd *cobra.Command, cfg *config.Config, location string) error {
	logger.SetLevel(cfg.LogLevel)
	out := cmd.OutOrStdout()

	if source.IsURL(location) {
		fmt.Fprintln(out, "Retrieving image from URL...")
	}

	img, err := source.New(cfg.Source).Fetch(ctx, location)
	if err != nil {
		// retrieval failures are reported, not raised
		var retrievalErr *common.RetrievalError
		if errors.As(err, &retrievalErr) {
			logger.Debug("Retrieval of %s failed: %v", location, err)
			fmt.Fprintf(out, "Error: %s\n", retrievalErr.Message)
			return nil
		}
		return err
	}

	result := metadata.Normalize(img.Tags, &img.Dimensions)

	presenter, err := newPresenter(ctx, cfg, out, location)
	if err != nil {
		return err
	}
	return presenter.Present(ctx, result)
}

func newPresenter(ctx context.Context, cfg *config.Config, out io.Writer, location string) (export.Presenter, error) {
	if !cfg.Export.JSON {
		return export.NewConsole(out), nil
	}

	presenter := export.NewJSONFile(cfg.Export.OutputDir, cfg.Export.FileName, out)
	if !cfg.S3.Enabled() {
		return presenter, nil
	}

	client, err := s3client.New(ctx, s3client.Config{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		Bucket:    cfg.S3.Bucket,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
		Prefix:    cfg.S3.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	return presenter.WithUploader(client, export.ObjectKey(location)), nil
}
