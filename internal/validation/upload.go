package validation

import (
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^\w.-]`)

// FileExtension returns the lowercased extension without the leading dot,
// or "" when the filename has none.
func FileExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return strings.TrimPrefix(ext, ".")
}

// AllowedExtension checks a filename's extension against an allow-list.
func AllowedExtension(filename string, allowed []string) bool {
	ext := FileExtension(filename)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == strings.ToLower(strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

// AllowedMimeType checks a declared MIME type against an allowed set,
// matching either exactly or via a category wildcard ("image/*").
func AllowedMimeType(mimeType string, allowed []string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		return false
	}
	category, _, found := strings.Cut(mimeType, "/")
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == mimeType {
			return true
		}
		if found && a == category+"/*" {
			return true
		}
	}
	return false
}

// SanitizeFilename strips path components and unsafe characters so the stored
// original filename cannot traverse outside the upload root.
func SanitizeFilename(filename string) string {
	base := filepath.Base(filepath.ToSlash(filename))
	return unsafeFilenameChars.ReplaceAllString(base, "_")
}
