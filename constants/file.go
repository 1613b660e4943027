package constants

import "strings"

const (
	// MIMETypePDF is the only accepted upload type.
	MIMETypePDF = "application/pdf"

	// PDFMagic prefixes every PDF file.
	PDFMagic = "%PDF-"

	// MaxUploadSizeDefault is the default upload cap, 50MB.
	MaxUploadSizeDefault int64 = 50 << 20

	// SnippetMaxLen caps evidence snippets.
	SnippetMaxLen = 200
)

// AllowedExtensions holds the file extensions accepted for intake.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeMIME drops parameters ("; charset=...") and lowercases the type.
func NormalizeMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}
