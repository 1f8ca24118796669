package s3client

import (
	"mime"
	"path/filepath"
	"strings"
)

// Content types for the documents this tool uploads
var commonMimeTypes = map[string]string{
	".json": "application/json",
	".txt":  "text/plain",
}

// DetectContentType determines the content type of a file based on its extension
func DetectContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	if mimeType, ok := commonMimeTypes[ext]; ok {
		return mimeType
	}

	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}

	return "application/octet-stream"
}
