package domain

import (
	"path"
	"strings"
)

// mimeByExt is the fixed extension-to-MIME table used for HTML-derived
// candidates. MIME types are never sniffed from content.
var mimeByExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"svg":  "image/svg+xml",
	"mp3":  "audio/mpeg",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
}

// extByMime mirrors mimeByExt for the download path: inferring a filename
// extension from a Content-Type header.
var extByMime = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/bmp":       ".bmp",
	"image/svg+xml":   ".svg",
	"audio/mpeg":      ".mp3",
	"audio/ogg":       ".ogg",
	"audio/mp4":       ".m4a",
	"audio/wav":       ".wav",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
}

// MimeForURL infers a MIME type from the extension of a URL path.
// Unknown extensions yield the empty string.
func MimeForURL(rawurl string) string {
	p := rawurl
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	return mimeByExt[ext]
}

// HasMediaExt reports whether a URL path ends in a known media or document
// extension. pdf is recognized as a document link even though no MIME type
// is inferred for it.
func HasMediaExt(p string) bool {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if ext == "pdf" {
		return true
	}
	_, ok := mimeByExt[ext]
	return ok
}

// ExtForMime returns the filename extension for a Content-Type header value,
// ignoring any parameters. Unknown types yield the empty string.
func ExtForMime(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return extByMime[strings.ToLower(strings.TrimSpace(base))]
}

// TypeClass is a coarse MIME-class filter applied to results for display.
type TypeClass string

const (
	TypeAll       TypeClass = "all"
	TypeImages    TypeClass = "images"
	TypeMedia     TypeClass = "media"
	TypeDocuments TypeClass = "documents"
)

// Matches reports whether a mimetype belongs to the class.
func (t TypeClass) Matches(mimetype string) bool {
	m := strings.ToLower(mimetype)
	switch t {
	case TypeImages:
		return strings.HasPrefix(m, "image/")
	case TypeMedia:
		return strings.HasPrefix(m, "audio/") || strings.HasPrefix(m, "video/")
	case TypeDocuments:
		return strings.Contains(m, "pdf") || strings.HasPrefix(m, "text/")
	default:
		return true
	}
}
