package meta

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

// sniffSize is the number of leading bytes read to classify a file,
// matching spec.md §4.1 ("sniff MIME by reading the first 1 KiB").
const sniffSize = 1024

// sniffMimeType classifies buf (a file's first sniffSize bytes, or
// fewer for a short file). filetype.Match recognises binary formats
// by signature (images, archives, documents, audio/video); for
// anything it can't place, a small JSON-by-content-shape heuristic
// runs next so a decompressed .json stream classifies as
// application/json per spec.md §4.1's worked example rather than
// generic text/plain, and everything else falls back to
// http.DetectContentType for markup/XML/plain-text disambiguation.
func sniffMimeType(buf []byte) string {
	if len(buf) == 0 {
		return "inode/x-empty"
	}

	if kind, err := filetype.Match(buf); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}

	if looksLikeJSON(buf) {
		return "application/json"
	}

	detected := http.DetectContentType(buf)
	// Strip the "; charset=..." suffix DetectContentType appends; the
	// rest of the scanner matches MIME types, not full Content-Type
	// header values.
	if idx := strings.IndexByte(detected, ';'); idx >= 0 {
		detected = detected[:idx]
	}
	return detected
}

func looksLikeJSON(buf []byte) bool {
	if !utf8.Valid(buf) {
		return false
	}
	trimmed := strings.TrimLeft(string(buf), " \t\r\n")
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
