package history

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultDownloadName is suggested when the output path has no trailing segment.
const DefaultDownloadName = "video.mp4"

// DownloadFilename returns the last path segment of outputFile.
func DownloadFilename(outputFile string) string {
	if i := strings.LastIndex(outputFile, "/"); i >= 0 {
		outputFile = outputFile[i+1:]
	}
	if outputFile == "" {
		return DefaultDownloadName
	}
	return outputFile
}

// DownloadURL joins outputFile onto origin. outputFile is treated as rooted
// at the origin, so any path or query already on origin is discarded.
func DownloadURL(origin, outputFile string) (string, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid origin %q: scheme and host required", origin)
	}
	if !strings.HasPrefix(outputFile, "/") {
		outputFile = "/" + outputFile
	}
	rel, err := url.Parse(outputFile)
	if err != nil {
		return "", fmt.Errorf("invalid output path %q: %w", outputFile, err)
	}
	return base.ResolveReference(rel).String(), nil
}
