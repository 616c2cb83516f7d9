package utils

import (
	"net/http"
)

// DetectMimeType sniffs the MIME type of the provided content sample using
// http.DetectContentType. At most sniffLength bytes are considered.
func DetectMimeType(data []byte) string {
	if len(data) > sniffLength {
		data = data[:sniffLength]
	}
	return http.DetectContentType(data)
}
