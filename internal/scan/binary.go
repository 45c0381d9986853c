package scan

import (
	"bytes"
	"path"
	"strings"
	"unicode/utf8"
)

// sniffLen is how many leading bytes are inspected when classifying content.
const sniffLen = 8000

// IsBinary reports whether a file should be treated as binary. The decision is
// a pure function of the path extension and the leading bytes:
//   - known binary extensions are always binary;
//   - otherwise a NUL byte in the first 8000 bytes marks the file binary;
//   - otherwise bytes that are not valid UTF-8 mark the file binary (a rune cut
//     by the 8000 byte window is tolerated).
func IsBinary(rel string, data []byte) bool {
	if binaryExt(rel) {
		return true
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	if utf8.Valid(head) {
		return false
	}
	if len(data) > sniffLen {
		// Allow a multi-byte rune that straddles the window edge.
		for trim := 1; trim < utf8.UTFMax && trim < len(head); trim++ {
			if utf8.Valid(head[:len(head)-trim]) {
				return false
			}
		}
	}
	return true
}

func binaryExt(rel string) bool {
	switch strings.ToLower(path.Ext(rel)) {
	// images
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".bmp", ".tiff", ".psd":
		return true
	// video
	case ".mp4", ".m4v", ".mov", ".mkv", ".webm", ".avi":
		return true
	// audio
	case ".mp3", ".wav", ".ogg", ".flac", ".m4a":
		return true
	// archives / compiled artifacts / fonts
	case ".pdf", ".zip", ".jar", ".war", ".gz", ".tgz", ".bz2", ".xz", ".7z", ".rar",
		".exe", ".dll", ".dylib", ".so", ".a", ".o", ".obj", ".lib", ".pdb", ".class", ".pyc",
		".woff", ".woff2", ".ttf", ".otf", ".eot", ".nupkg", ".snk":
		return true
	}
	return false
}
