package utils

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"
)

// sniffLength is the number of leading bytes sampled for binary and MIME
// detection.
const sniffLength = 8000

// nonTextByteRatioThreshold is the fraction of sampled bytes allowed outside
// the printable-text set before content is classified binary.
const nonTextByteRatioThreshold = 0.30

// IsBinary reports whether the provided byte sample appears to contain
// binary data. The heuristic is deterministic: a NUL byte anywhere in the
// sample means binary; valid UTF-8 without NUL bytes is always text;
// otherwise the sample is binary when more than 30% of its bytes fall
// outside the printable-text set (ASCII 32-126 plus BEL, BS, TAB, LF, FF,
// CR, ESC). Callers should pass at most the first sniffLength bytes.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if len(data) > sniffLength {
		data = data[:sniffLength]
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	if utf8.Valid(data) {
		return false
	}
	nonTextCount := 0
	for _, byteValue := range data {
		if !isTextByte(byteValue) {
			nonTextCount++
		}
	}
	return float64(nonTextCount)/float64(len(data)) > nonTextByteRatioThreshold
}

func isTextByte(byteValue byte) bool {
	if byteValue >= 32 && byteValue < 127 {
		return true
	}
	switch byteValue {
	case '\a', '\b', '\t', '\n', '\f', '\r', 0x1b:
		return true
	}
	return false
}

// IsFileBinary reads up to sniffLength bytes from the file at path and
// applies IsBinary. Unreadable files are reported as text so that the read
// error surfaces later with proper context.
func IsFileBinary(path string) bool {
	fileHandle, openError := os.Open(path)
	if openError != nil {
		return false
	}
	defer fileHandle.Close()

	buffer := make([]byte, sniffLength)
	bytesRead, readError := fileHandle.Read(buffer)
	if readError != nil && readError != io.EOF {
		return false
	}
	return IsBinary(buffer[:bytesRead])
}
