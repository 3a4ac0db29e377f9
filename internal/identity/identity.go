// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity maps source filenames to stable, ASCII-safe identifiers
// that the remote store accepts as upload names.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Prefix namespaces every identifier.
const Prefix = "wiki_"

// hashLen is the number of hex characters kept (64 bits).
const hashLen = 16

// MapIdentifier returns Prefix + the first 16 hex characters of MD5(title)
// + ext. Only the title is hashed, so the same title always maps to the same
// identifier regardless of directory or content. MD5 keeps identifiers
// compatible with ledgers written by earlier versions of this tool; the
// value is a name, not a security boundary.
func MapIdentifier(title, ext string) string {
	sum := md5.Sum([]byte(title))
	return Prefix + hex.EncodeToString(sum[:])[:hashLen] + asciiExt(ext)
}

// SplitFilename splits a base filename into its stem (the logical title)
// and extension, e.g. "機械学習.md" -> ("機械学習", ".md").
func SplitFilename(name string) (title, ext string) {
	name = filepath.Base(name)
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// FromFilename maps a filename directly.
func FromFilename(name string) string {
	return MapIdentifier(SplitFilename(name))
}

// asciiExt drops any byte outside [A-Za-z0-9._-] from the extension.
func asciiExt(ext string) string {
	clean := true
	for i := 0; i < len(ext); i++ {
		if !safeByte(ext[i]) {
			clean = false
			break
		}
	}
	if clean {
		return ext
	}
	var b strings.Builder
	for i := 0; i < len(ext); i++ {
		if safeByte(ext[i]) {
			b.WriteByte(ext[i])
		}
	}
	return b.String()
}

func safeByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '_', c == '-':
		return true
	}
	return false
}
