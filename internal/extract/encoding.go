package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

const (
	// DefaultEncodingName is the encoding assumed when none is requested.
	DefaultEncodingName = "utf-8"

	// errorUnknownEncodingFormat reports an encoding name the IANA index cannot resolve.
	errorUnknownEncodingFormat = "unknown encoding %q"
	// errorInvalidUTF8 reports bytes that fail strict UTF-8 validation.
	errorInvalidUTF8 = "data is not valid utf-8"
)

// textDecoder decodes raw file bytes into a string for a fixed encoding.
// UTF-8 is validated strictly; every other name is resolved through the IANA
// encoding index.
type textDecoder struct {
	name     string
	encoding encoding.Encoding
}

// newTextDecoder resolves encodingName into a decoder. An empty name selects
// UTF-8. Unknown names are an error, surfaced before any traversal begins.
func newTextDecoder(encodingName string) (*textDecoder, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(encodingName))
	if normalizedName == "" {
		normalizedName = DefaultEncodingName
	}
	if normalizedName == "utf-8" || normalizedName == "utf8" {
		return &textDecoder{name: DefaultEncodingName}, nil
	}
	resolvedEncoding, resolveError := ianaindex.IANA.Encoding(normalizedName)
	if resolveError != nil || resolvedEncoding == nil {
		return nil, fmt.Errorf(errorUnknownEncodingFormat, encodingName)
	}
	return &textDecoder{name: normalizedName, encoding: resolvedEncoding}, nil
}

// Name returns the normalized encoding name.
func (decoder *textDecoder) Name() string {
	return decoder.name
}

// Decode converts data into a string, failing on bytes the encoding cannot
// represent.
func (decoder *textDecoder) Decode(data []byte) (string, error) {
	if decoder.encoding == nil {
		if !utf8.Valid(data) {
			return "", fmt.Errorf(errorInvalidUTF8)
		}
		return string(data), nil
	}
	decodedBytes, decodeError := decoder.encoding.NewDecoder().Bytes(data)
	if decodeError != nil {
		return "", decodeError
	}
	return string(decodedBytes), nil
}
