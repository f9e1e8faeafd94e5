package richtext

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// maxSourceSize caps a Markdown source file (1MB).
const maxSourceSize = 1 << 20

var textByExt = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
}

// DetectMIME returns the MIME type for a file path.
// It uses the extension map first, then falls back to reading file header bytes.
func DetectMIME(path string) string {
	if mime, ok := textByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}

	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return "text/plain"
	}
	return http.DetectContentType(buf[:n])
}

// ReadSource reads a Markdown source file after checking that it is a
// regular text file within the size limit.
func ReadSource(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", filepath.Base(path), err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", filepath.Base(path))
	}
	if info.Size() > maxSourceSize {
		return "", fmt.Errorf("%s exceeds maximum size of 1MB", filepath.Base(path))
	}
	if mime := DetectMIME(path); !strings.HasPrefix(mime, "text/") {
		return "", fmt.Errorf("%s is not a text file (%s)", filepath.Base(path), mime)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s is not readable: %w", filepath.Base(path), err)
	}
	return string(b), nil
}
