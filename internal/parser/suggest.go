package parser

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kimhsiao/infovault/backend/internal/models"
)

// codeExtensions maps source file extensions to the code item type.
// Content sniffing cannot tell source code apart from plain text, so
// the extension is checked first.
var codeExtensions = map[string]bool{
	".go":    true,
	".js":    true,
	".ts":    true,
	".tsx":   true,
	".jsx":   true,
	".py":    true,
	".rb":    true,
	".rs":    true,
	".java":  true,
	".c":     true,
	".h":     true,
	".cpp":   true,
	".cs":    true,
	".php":   true,
	".sh":    true,
	".sql":   true,
	".css":   true,
	".scss":  true,
	".json":  true,
	".yaml":  true,
	".yml":   true,
	".toml":  true,
	".swift": true,
	".kt":    true,
}

// archiveTypes are MIME types mapped to the archive item type.
var archiveTypes = map[string]bool{
	"application/zip":              true,
	"application/x-tar":            true,
	"application/gzip":             true,
	"application/x-7z-compressed":  true,
	"application/x-rar-compressed": true,
	"application/x-bzip2":          true,
	"application/x-xz":             true,
}

// documentTypes are MIME types mapped to the document item type.
var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"application/vnd.ms-powerpoint":                                           true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/rtf": true,
	"application/epub+zip": true,
}

// SuggestItemType sniffs a local file and suggests the catalog item
// type for it. Unknown content falls back to the reference type.
func SuggestItemType(path string) string {
	if codeExtensions[strings.ToLower(filepath.Ext(path))] {
		return models.TypeCode
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return models.TypeReference
	}
	return suggestFromMIME(mtype)
}

// SuggestItemTypeFromBytes is the in-memory variant used when the file
// content is already loaded, for example on import.
func SuggestItemTypeFromBytes(name string, data []byte) string {
	if codeExtensions[strings.ToLower(filepath.Ext(name))] {
		return models.TypeCode
	}
	return suggestFromMIME(mimetype.Detect(data))
}

func suggestFromMIME(mtype *mimetype.MIME) string {
	base := mtype.String()
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}

	switch {
	case strings.HasPrefix(base, "image/"):
		return models.TypeImage
	case strings.HasPrefix(base, "video/"):
		return models.TypeVideo
	case archiveTypes[base]:
		return models.TypeArchive
	case documentTypes[base]:
		return models.TypeDocument
	case base == "text/plain" || base == "text/markdown":
		return models.TypeNote
	case base == "text/html":
		return models.TypeURL
	}
	return models.TypeReference
}
