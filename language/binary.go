package language

import "unicode/utf8"

// IsBinaryContent checks if the given byte slice appears to be binary content.
// It checks the first 512 bytes (or less) for null bytes, which indicates binary data.
func IsBinaryContent(data []byte) bool {
	checkSize := 512
	if len(data) < checkSize {
		checkSize = len(data)
	}

	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}

// IsEditableText reports whether data can be opened as a text buffer:
// not binary and valid UTF-8.
func IsEditableText(data []byte) bool {
	return !IsBinaryContent(data) && utf8.Valid(data)
}
