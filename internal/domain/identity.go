package domain

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// FallbackPath is the path part used when a URL has no usable directory.
const FallbackPath = "STREAM"

// DeriveIdentity turns a project label and stream URL into a stable name and
// a human readable description. It never fails: URLs that cannot be split
// fall back to a hash of the whole string.
func DeriveIdentity(project, rawURL string) (name, description string) {
	pathPart, streamID := extractPathAndID(rawURL)
	name = project + "_" + pathPart + "_" + streamID
	description = "Stream " + streamID + " of project " + project
	return name, description
}

func extractPathAndID(rawURL string) (pathPart, streamID string) {
	i := strings.Index(rawURL, "://")
	if i < 0 || i+3 >= len(rawURL) {
		return FallbackPath, hashID(rawURL)
	}
	rest := rawURL[i+3:]

	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		segs := splitPath(rest[slash+1:])
		if len(segs) >= 2 {
			id := stripExt(segs[len(segs)-1])
			if id != "" {
				return segs[len(segs)-2], id
			}
		}
	}

	id := stripExt(rawURL[strings.LastIndexByte(rawURL, '/')+1:])
	if id == "" {
		return FallbackPath, hashID(rawURL)
	}
	return FallbackPath, id
}

// splitPath splits on "/" and drops trailing empty segments.
func splitPath(p string) []string {
	segs := strings.Split(p, "/")
	for len(segs) > 0 && segs[len(segs)-1] == "" {
		segs = segs[:len(segs)-1]
	}
	return segs
}

func stripExt(file string) string {
	if dot := strings.LastIndexByte(file, '.'); dot >= 0 {
		return file[:dot]
	}
	return file
}

// hashID renders the absolute 32-bit polynomial hash (s[0]*31^(n-1) + ...)
// over UTF-16 code units, the same value older deployments used for names.
func hashID(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 10)
}
