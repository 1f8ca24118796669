// cmd/image-metadata/main.go
package main

import (
	"github.com/bstardust/image-metadata-extractor/internal/logger"
	"github.com/bstardust/image-metadata-extractor/pkg/cli"
)

func main() {
	// Initialize logger
	logger.Init()

	// Execute CLI
	cli.Execute()
}
