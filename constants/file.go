package constants

import "strings"

// Output directory names for the per-document output triple.
const (
	TextDirName       = "text"
	JSONDirName       = "json"
	ValidationDirName = "validation"
)

// File extensions of inputs and outputs, with the dot.
const (
	ExtPDF  = ".pdf"
	ExtText = ".txt"
	ExtJSON = ".json"
	ExtXLSX = ".xlsx"
)

// AllowedExtensions holds the file extensions accepted as invoice input.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without a dot) is an accepted input extension.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
