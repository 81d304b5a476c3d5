package label

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// plainTextThreshold is the length above which undecodable text is
// assumed to be an already-decoded label payload rather than garbage.
const plainTextThreshold = 50

// Decode normalizes a label payload that may arrive base64 encoded, as
// raw bytes, or as already-decoded label text. It never fails: when the
// payload cannot be interpreted it is returned unchanged.
func Decode(value []byte) []byte {
	if len(value) == 0 {
		return value
	}

	// Binary payloads pass through untouched.
	if !utf8.Valid(value) {
		return value
	}

	text := strings.TrimSpace(string(value))

	// Already-decoded label language, keep as-is.
	if isLabelText(text) {
		return []byte(text)
	}

	if decoded, err := base64.StdEncoding.DecodeString(text); err == nil {
		return decoded
	}

	// Decode failed: sufficiently long text is assumed to be the label
	// content itself.
	if len(text) > plainTextThreshold {
		return []byte(text)
	}

	return value
}

// isLabelText reports whether the text is recognizably ZPL.
func isLabelText(text string) bool {
	if strings.HasPrefix(text, "^XA") {
		return true
	}
	return strings.HasPrefix(text, "^") && len(text) > plainTextThreshold
}
