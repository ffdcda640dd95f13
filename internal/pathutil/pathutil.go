// Package pathutil implements the small set of string manipulations the
// filesystem layer needs to translate between projected (.mp3) paths and
// the real (.flac) paths they alias, without touching the filesystem.
package pathutil

import "strings"

// ParseName returns the final '/'-separated component of s.
func ParseName(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ParseExtension returns the substring of s's final path component that
// follows its final '.', or the empty string if that component has no '.'.
func ParseExtension(s string) string {
	name := ParseName(s)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// ReplaceExtension replaces the extension of s's final path component with
// newExt. If the final component has no '.', s is returned unchanged. The
// directory prefix, if any, is preserved verbatim.
func ReplaceExtension(s, newExt string) string {
	name := ParseName(s)
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return s
	}

	dir := s[:len(s)-len(name)]
	return dir + name[:dot+1] + newExt
}
