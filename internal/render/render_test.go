package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/treesnap/treesnap/internal/walk"
)

// writeTestFile creates a file with the specified content, failing the test on error.
func writeTestFile(testingHandle *testing.T, filePath string, content string) {
	testingHandle.Helper()
	if writeError := os.WriteFile(filePath, []byte(content), 0o644); writeError != nil {
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

// renderTree renders rootPath with the provided options and returns the text.
func renderTree(testingHandle *testing.T, rootPath string, walkOptions walk.Options, renderOptions Options) string {
	testingHandle.Helper()
	var builder strings.Builder
	if renderError := WriteTree(&builder, rootPath, walkOptions, renderOptions); renderError != nil {
		testingHandle.Fatalf("WriteTree failed: %v", renderError)
	}
	return builder.String()
}

// TestWriteTreeGlyphLayout verifies connector and continuation glyphs across
// nested directories, including the blank continuation under a last sibling.
func TestWriteTreeGlyphLayout(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	makeTestDirectory(testingHandle, filepath.Join(rootDirectory, "src", "app"))
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "src", "app", "main.go"), "package main")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "src", "util.go"), "package src")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "README.md"), "readme")

	rendered := renderTree(testingHandle, rootDirectory, walk.Options{}, Options{RootLabel: "root"})

	expected := strings.Join([]string{
		"root",
		"├── src",
		"│   ├── app",
		"│   │   └── main.go",
		"│   └── util.go",
		"└── README.md",
		"",
	}, "\n")
	if rendered != expected {
		testingHandle.Fatalf("unexpected tree:\ngot:\n%s\nwant:\n%s", rendered, expected)
	}
}

// TestWriteTreeBlankContinuationUnderLastSibling verifies that descendants
// of a last-sibling directory are padded with spaces, not pipes.
func TestWriteTreeBlankContinuationUnderLastSibling(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	makeTestDirectory(testingHandle, filepath.Join(rootDirectory, "zeta", "inner"))
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "zeta", "inner", "deep.txt"), "deep")

	rendered := renderTree(testingHandle, rootDirectory, walk.Options{}, Options{RootLabel: "root"})

	expected := strings.Join([]string{
		"root",
		"└── zeta",
		"    └── inner",
		"        └── deep.txt",
		"",
	}, "\n")
	if rendered != expected {
		testingHandle.Fatalf("unexpected tree:\ngot:\n%s\nwant:\n%s", rendered, expected)
	}
}

// TestWriteTreeEmptyDirectory verifies that an empty root renders only the
// root line.
func TestWriteTreeEmptyDirectory(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()

	rendered := renderTree(testingHandle, rootDirectory, walk.Options{}, Options{RootLabel: "empty"})

	if rendered != "empty\n" {
		testingHandle.Fatalf("expected only the root line, got %q", rendered)
	}
}

// TestWriteTreeFileRoot verifies that a file root renders as a single line.
func TestWriteTreeFileRoot(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	filePath := filepath.Join(rootDirectory, "solo.txt")
	writeTestFile(testingHandle, filePath, "solo")

	rendered := renderTree(testingHandle, filePath, walk.Options{}, Options{RootLabel: "solo.txt"})

	if rendered != "solo.txt\n" {
		testingHandle.Fatalf("expected a single line, got %q", rendered)
	}
}

// TestWriteTreeDefaultRootLabel verifies that the absolute root path is used
// when no label is configured.
func TestWriteTreeDefaultRootLabel(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()

	rendered := renderTree(testingHandle, rootDirectory, walk.Options{}, Options{})

	firstLine := strings.SplitN(rendered, "\n", 2)[0]
	if !filepath.IsAbs(firstLine) {
		testingHandle.Fatalf("expected an absolute path root line, got %q", firstLine)
	}
}

// TestWriteTreePruningKeepsGlyphsConsistent verifies that filtered siblings
// do not leave dangling branch connectors.
func TestWriteTreePruningKeepsGlyphsConsistent(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	makeTestDirectory(testingHandle, filepath.Join(rootDirectory, "keep"))
	makeTestDirectory(testingHandle, filepath.Join(rootDirectory, "skip"))
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "keep", "kept.txt"), "kept")

	walkOptions := walk.Options{Include: func(node walk.Node) bool {
		return node.Name != "skip"
	}}
	rendered := renderTree(testingHandle, rootDirectory, walkOptions, Options{RootLabel: "root"})

	expected := strings.Join([]string{
		"root",
		"└── keep",
		"    └── kept.txt",
		"",
	}, "\n")
	if rendered != expected {
		testingHandle.Fatalf("unexpected tree:\ngot:\n%s\nwant:\n%s", rendered, expected)
	}
}
