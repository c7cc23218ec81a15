package errors

import (
	"strings"
	"unicode"
)

// ValidateSegment validates one coordinate segment (group, artifact, version,
// classifier or snapshot qualifier). Segments become directory and file names
// in the cache, so anything that could escape the cache root is rejected:
//   - No empty segments
//   - No control characters or null bytes
//   - No path separators (/ or \)
//   - No path traversal sequences (..)
//   - Maximum length of 256 characters
func ValidateSegment(kind, value string) error {
	if value == "" {
		return New(ErrCodeConfiguration, "%s cannot be empty", kind)
	}

	if len(value) > 256 {
		return New(ErrCodeConfiguration, "%s too long (max 256 characters)", kind)
	}

	for _, r := range value {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeConfiguration, "%s contains invalid characters: %q", kind, value)
		}
	}

	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(value, pattern) {
			return New(ErrCodeConfiguration, "%s contains invalid characters: %q", kind, pattern)
		}
	}

	return nil
}

// ValidatePath validates a slash-separated request path for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a repository host URL.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeConfiguration, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeConfiguration, "URL must use http or https scheme: %q", rawURL)
	}

	return nil
}
