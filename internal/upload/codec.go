package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrDecodeFailed reports a chunk or payload that was not valid base64.
// Declared here rather than on the manager because the single-shot save
// path decodes the same wire format.
var ErrDecodeFailed = errors.New("malformed base64 payload")

// DecodePayload decodes the text-safe wire encoding the UI sends for file
// bytes: standard base64, optionally prefixed with a data-URL descriptor
// ("data:video/webm;base64,....") that is stripped before decoding.
func DecodePayload(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		i := strings.IndexByte(encoded, ',')
		if i < 0 {
			return nil, fmt.Errorf("%w: data URL without payload separator", ErrDecodeFailed)
		}
		encoded = encoded[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return data, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename reduces an untrusted client filename to its base name
// with every character outside [A-Za-z0-9._-] replaced by an underscore.
// Path separators from either platform are stripped first, so a name can
// never escape its destination directory.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if name == "." || name == ".." || name == "" {
		return "_"
	}
	return name
}
