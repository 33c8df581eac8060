// Package encoding provides text encoding utilities for EverQuest file formats.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// hashKey is the rolling XOR key applied to WLD string hashes.
var hashKey = [8]byte{0x95, 0x3A, 0xC5, 0x2A, 0x95, 0x7A, 0x95, 0x6A}

// Windows1252ToUTF8 converts Windows-1252 encoded bytes to a UTF-8 string.
// Returns the original bytes as a string if conversion fails.
func Windows1252ToUTF8(data []byte) string {
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToWindows1252 converts a UTF-8 string to Windows-1252 bytes.
// Returns the original bytes if the string has unmappable runes.
func UTF8ToWindows1252(s string) []byte {
	result, _, err := transform.Bytes(charmap.Windows1252.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// DecodeStringHash reverses the XOR obfuscation of a WLD string hash.
// The input is not modified.
func DecodeStringHash(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ hashKey[i%len(hashKey)]
	}
	return out
}

// EncodeStringHash applies the WLD string hash obfuscation. It is its own
// inverse, so this is DecodeStringHash under a clearer name for writers.
func EncodeStringHash(data []byte) []byte {
	return DecodeStringHash(data)
}

// CString returns the NUL-terminated string starting at offset in data,
// decoded from Windows-1252. Out of range offsets yield "".
func CString(data []byte, offset int) string {
	if offset < 0 || offset >= len(data) {
		return ""
	}
	data = data[offset:]
	if idx := bytes.IndexByte(data, 0); idx >= 0 {
		data = data[:idx]
	}
	return Windows1252ToUTF8(data)
}

// NormalizeArchivePath normalizes an archive member name for case-insensitive
// lookup.
func NormalizeArchivePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}

// TrimNullString removes trailing null bytes and converts to string.
func TrimNullString(data []byte) string {
	return Windows1252ToUTF8(bytes.TrimRight(data, "\x00"))
}
