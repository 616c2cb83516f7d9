package extract

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/treesnap/treesnap/internal/walk"
)

// writeTestFile creates a file with the specified content, failing the test on error.
func writeTestFile(testingHandle *testing.T, filePath string, content []byte) {
	testingHandle.Helper()
	if writeError := os.WriteFile(filePath, content, 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write %s: %v", filePath, writeError)
	}
}

// makeTestDirectory creates a directory, failing the test on error.
func makeTestDirectory(testingHandle *testing.T, directoryPath string) {
	testingHandle.Helper()
	if makeDirError := os.MkdirAll(directoryPath, 0o755); makeDirError != nil {
		testingHandle.Fatalf("failed to create %s: %v", directoryPath, makeDirError)
	}
}

// TestCollectBundleFormat verifies the exact bundle bytes: marker framing,
// one blank line between records, and a trailing newline after the last
// record.
func TestCollectBundleFormat(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	makeTestDirectory(testingHandle, filepath.Join(rootDirectory, "src"))
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "README.md"), []byte("hi"))
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "src", "app.py"), []byte("print(1)"))

	bundle, collectError := Collect(rootDirectory, Options{})
	if collectError != nil {
		testingHandle.Fatalf("Collect failed: %v", collectError)
	}

	expected := "===== FILE: src/app.py =====\n" +
		"print(1)\n" +
		"===== END FILE =====\n" +
		"\n" +
		"===== FILE: README.md =====\n" +
		"hi\n" +
		"===== END FILE =====\n"
	if bundle.String() != expected {
		testingHandle.Fatalf("unexpected bundle:\ngot:\n%q\nwant:\n%q", bundle.String(), expected)
	}
}

// TestCollectEmptySelection verifies that no selected files yields the empty
// string.
func TestCollectEmptySelection(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()

	bundle, collectError := Collect(rootDirectory, Options{})
	if collectError != nil {
		testingHandle.Fatalf("Collect failed: %v", collectError)
	}
	if bundle.String() != "" {
		testingHandle.Fatalf("expected empty output, got %q", bundle.String())
	}
}

// TestCollectSkipsBinaryWithMarker verifies the binary skip marker record.
func TestCollectSkipsBinaryWithMarker(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "blob.bin"), []byte{0x00, 0x01, 0x02, 0xff})

	bundle, collectError := Collect(rootDirectory, Options{})
	if collectError != nil {
		testingHandle.Fatalf("Collect failed: %v", collectError)
	}
	if len(bundle.Records) != 1 {
		testingHandle.Fatalf("expected one record, got %d", len(bundle.Records))
	}
	record := bundle.Records[0]
	if !record.Skipped || record.Reason != "(binary content omitted)" {
		testingHandle.Fatalf("unexpected record: %+v", record)
	}
	expected := "===== FILE: blob.bin =====\n(binary content omitted)\n===== END FILE =====\n"
	if bundle.String() != expected {
		testingHandle.Fatalf("unexpected bundle: %q", bundle.String())
	}
}

// TestCollectIncludeBinaryDisablesSkip verifies that IncludeBinary feeds
// binary bytes through the decoder instead of skipping them.
func TestCollectIncludeBinaryDisablesSkip(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "blob.bin"), []byte{0x00, 0x01, 0x02, 0xff})

	_, collectError := Collect(rootDirectory, Options{IncludeBinary: true})
	if collectError == nil {
		testingHandle.Fatalf("expected a decode error for binary bytes under utf-8")
	}
	var decodeError *DecodeError
	if !errors.As(collectError, &decodeError) {
		testingHandle.Fatalf("expected a DecodeError, got %v", collectError)
	}
}

// TestCollectRevealsBinaryContent verifies that reveal patterns embed binary
// content as base64 instead of skipping it.
func TestCollectRevealsBinaryContent(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	binaryBytes := []byte{0x00, 0x10, 0x20, 0xfe}
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "logo.png"), binaryBytes)

	bundle, collectError := Collect(rootDirectory, Options{BinaryContentPatterns: []string{"*.png"}})
	if collectError != nil {
		testingHandle.Fatalf("Collect failed: %v", collectError)
	}
	if len(bundle.Records) != 1 {
		testingHandle.Fatalf("expected one record, got %d", len(bundle.Records))
	}
	record := bundle.Records[0]
	if record.Skipped || record.ContentEncoding != "base64" {
		testingHandle.Fatalf("expected a revealed base64 record, got %+v", record)
	}
	if record.Content != base64.StdEncoding.EncodeToString(binaryBytes) {
		testingHandle.Fatalf("unexpected base64 content: %q", record.Content)
	}
}

// TestCollectDecodeFailureRaises verifies that invalid bytes abort the
// extraction under the raise policy with a typed error.
func TestCollectDecodeFailureRaises(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	invalidUTF8 := []byte("valid prefix \x80\x81 suffix")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "broken.txt"), invalidUTF8)

	_, collectError := Collect(rootDirectory, Options{Errors: ErrorPolicyRaise})
	if collectError == nil {
		testingHandle.Fatalf("expected a decode error")
	}
	var decodeError *DecodeError
	if !errors.As(collectError, &decodeError) {
		testingHandle.Fatalf("expected a DecodeError, got %v", collectError)
	}
	if !strings.HasSuffix(decodeError.Path, "broken.txt") || decodeError.Encoding != "utf-8" {
		testingHandle.Fatalf("unexpected decode error fields: %+v", decodeError)
	}
}

// TestCollectDecodeFailureIgnored verifies that the ignore policy replaces
// undecodable content with a marker record and continues.
func TestCollectDecodeFailureIgnored(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "broken.txt"), []byte("bad \x80 bytes"))
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "clean.txt"), []byte("clean"))

	bundle, collectError := Collect(rootDirectory, Options{Errors: ErrorPolicyIgnore})
	if collectError != nil {
		testingHandle.Fatalf("Collect failed: %v", collectError)
	}
	if len(bundle.Records) != 2 {
		testingHandle.Fatalf("expected two records, got %d", len(bundle.Records))
	}
	brokenRecord := bundle.Records[0]
	if brokenRecord.RelativePath != "broken.txt" || !brokenRecord.Skipped {
		testingHandle.Fatalf("unexpected first record: %+v", brokenRecord)
	}
	if brokenRecord.Reason != "(content omitted: not valid utf-8)" {
		testingHandle.Fatalf("unexpected skip reason: %q", brokenRecord.Reason)
	}
	if bundle.Records[1].Content != "clean" {
		testingHandle.Fatalf("expected the clean file to survive, got %+v", bundle.Records[1])
	}
}

// TestCollectUnknownEncodingFailsEarly verifies that an unresolvable
// encoding name fails before any traversal output.
func TestCollectUnknownEncodingFailsEarly(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "a.txt"), []byte("a"))

	_, collectError := Collect(rootDirectory, Options{Encoding: "no-such-encoding"})
	if collectError == nil || !strings.Contains(collectError.Error(), "unknown encoding") {
		testingHandle.Fatalf("expected an unknown encoding error, got %v", collectError)
	}
}

// TestCollectInvalidErrorPolicy verifies that an unrecognized policy value
// is rejected up front.
func TestCollectInvalidErrorPolicy(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()

	_, collectError := Collect(rootDirectory, Options{Errors: ErrorPolicy("explode")})
	if collectError == nil || !strings.Contains(collectError.Error(), "invalid error policy") {
		testingHandle.Fatalf("expected an invalid policy error, got %v", collectError)
	}
}

// TestStreamHonorsPredicate verifies that excluded directories contribute no
// records.
func TestStreamHonorsPredicate(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	makeTestDirectory(testingHandle, filepath.Join(rootDirectory, "vendor"))
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "vendor", "dep.go"), []byte("package dep"))
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "main.go"), []byte("package main"))

	include := func(node walk.Node) bool { return node.Name != "vendor" }
	var relativePaths []string
	streamError := Stream(rootDirectory, Options{Include: include}, func(record Record) error {
		relativePaths = append(relativePaths, record.RelativePath)
		return nil
	})
	if streamError != nil {
		testingHandle.Fatalf("Stream failed: %v", streamError)
	}
	if len(relativePaths) != 1 || relativePaths[0] != "main.go" {
		testingHandle.Fatalf("unexpected records: %v", relativePaths)
	}
}

// TestStreamLatin1Decoding verifies decoding with a non-UTF-8 encoding name
// resolved through the IANA index.
func TestStreamLatin1Decoding(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	// "café" encoded in ISO 8859-1: the é is the single byte 0xe9.
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "cafe.txt"), []byte{'c', 'a', 'f', 0xe9})

	bundle, collectError := Collect(rootDirectory, Options{Encoding: "iso-8859-1"})
	if collectError != nil {
		testingHandle.Fatalf("Collect failed: %v", collectError)
	}
	if len(bundle.Records) != 1 || bundle.Records[0].Content != "café" {
		testingHandle.Fatalf("unexpected decoded content: %+v", bundle.Records)
	}
}

// TestCollectPreservesTrailingNewlines verifies that file content is
// embedded verbatim, so a trailing newline yields a blank line before the
// closing marker.
func TestCollectPreservesTrailingNewlines(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "note.txt"), []byte("line\n"))

	bundle, collectError := Collect(rootDirectory, Options{})
	if collectError != nil {
		testingHandle.Fatalf("Collect failed: %v", collectError)
	}
	expected := "===== FILE: note.txt =====\nline\n\n===== END FILE =====\n"
	if bundle.String() != expected {
		testingHandle.Fatalf("unexpected bundle: %q", bundle.String())
	}
}
