package config

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/treesnap/treesnap/internal/utils"
	"github.com/treesnap/treesnap/internal/walk"
)

// writeTestFile creates a file with the specified content, failing the test on error.
func writeTestFile(testingHandle *testing.T, filePath string, content string) {
	testingHandle.Helper()
	if writeError := os.WriteFile(filePath, []byte(content), 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write %s: %v", filePath, writeError)
	}
}

// TestLoadIgnoreFilePatternsSections verifies that [ignore] and [binary]
// sections are separated and comments are dropped.
func TestLoadIgnoreFilePatternsSections(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	ignoreFilePath := filepath.Join(rootDirectory, utils.IgnoreFileName)
	writeTestFile(testingHandle, ignoreFilePath, "# build outputs\ndist/\n*.log\n\n[binary]\n*.png\n\n[ignore]\nvendor/\n")

	ignorePatterns, binaryPatterns, loadError := LoadIgnoreFilePatterns(ignoreFilePath)
	if loadError != nil {
		testingHandle.Fatalf("LoadIgnoreFilePatterns failed: %v", loadError)
	}

	expectedIgnore := []string{"dist/", "*.log", "vendor/"}
	if !reflect.DeepEqual(ignorePatterns, expectedIgnore) {
		testingHandle.Fatalf("unexpected ignore patterns: got %v want %v", ignorePatterns, expectedIgnore)
	}
	expectedBinary := []string{"*.png"}
	if !reflect.DeepEqual(binaryPatterns, expectedBinary) {
		testingHandle.Fatalf("unexpected binary patterns: got %v want %v", binaryPatterns, expectedBinary)
	}
}

// TestLoadIgnoreFilePatternsMissingFile verifies that a missing ignore file
// yields empty results without error.
func TestLoadIgnoreFilePatternsMissingFile(testingHandle *testing.T) {
	missingPath := filepath.Join(testingHandle.TempDir(), utils.IgnoreFileName)

	ignorePatterns, binaryPatterns, loadError := LoadIgnoreFilePatterns(missingPath)
	if loadError != nil {
		testingHandle.Fatalf("expected no error for a missing file, got %v", loadError)
	}
	if ignorePatterns != nil || binaryPatterns != nil {
		testingHandle.Fatalf("expected empty results, got %v and %v", ignorePatterns, binaryPatterns)
	}
}

// TestLoadRecursiveIgnorePatternsPrefixesNestedPatterns verifies that
// patterns from nested directories are scoped with their relative path.
func TestLoadRecursiveIgnorePatternsPrefixesNestedPatterns(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, utils.IgnoreFileName), "root.txt\n")

	nestedDirectoryPath := filepath.Join(rootDirectory, "nested")
	if makeDirError := os.MkdirAll(nestedDirectoryPath, 0o755); makeDirError != nil {
		testingHandle.Fatalf("failed to create nested directory: %v", makeDirError)
	}
	writeTestFile(testingHandle, filepath.Join(nestedDirectoryPath, utils.IgnoreFileName), "nested.txt\n[binary]\n*.ico\n")

	patternList, binaryPatternList, loadError := LoadRecursiveIgnorePatterns(rootDirectory, nil, false, true, false)
	if loadError != nil {
		testingHandle.Fatalf("LoadRecursiveIgnorePatterns failed: %v", loadError)
	}

	sort.Strings(patternList)
	expectedPatterns := []string{"root.txt", "nested/nested.txt", gitDirectoryPattern}
	sort.Strings(expectedPatterns)
	if !reflect.DeepEqual(patternList, expectedPatterns) {
		testingHandle.Fatalf("unexpected patterns: got %v want %v", patternList, expectedPatterns)
	}
	expectedBinary := []string{"nested/*.ico"}
	if !reflect.DeepEqual(binaryPatternList, expectedBinary) {
		testingHandle.Fatalf("unexpected binary patterns: got %v want %v", binaryPatternList, expectedBinary)
	}
}

// TestLoadRecursiveIgnorePatternsAppendsExclusions verifies that caller
// exclusions are appended without duplication.
func TestLoadRecursiveIgnorePatternsAppendsExclusions(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, utils.IgnoreFileName), "dist/\n")

	patternList, _, loadError := LoadRecursiveIgnorePatterns(rootDirectory, []string{"dist/", "extra/", " "}, false, true, false)
	if loadError != nil {
		testingHandle.Fatalf("LoadRecursiveIgnorePatterns failed: %v", loadError)
	}

	sort.Strings(patternList)
	expectedPatterns := []string{"dist/", "extra/", gitDirectoryPattern}
	sort.Strings(expectedPatterns)
	if !reflect.DeepEqual(patternList, expectedPatterns) {
		testingHandle.Fatalf("unexpected patterns: got %v want %v", patternList, expectedPatterns)
	}
}

// TestBuildIncludePredicate verifies predicate behavior for the root, plain
// nodes, and ignored nodes.
func TestBuildIncludePredicate(testingHandle *testing.T) {
	predicate := BuildIncludePredicate([]string{"vendor/"})

	rootNode := walk.Node{RelativePath: ".", Depth: 0, Name: "vendor"}
	if !predicate(rootNode) {
		testingHandle.Fatalf("the root node must always be included")
	}
	vendorNode := walk.Node{RelativePath: "vendor", Depth: 1, Name: "vendor", Kind: walk.KindDirectory}
	if predicate(vendorNode) {
		testingHandle.Fatalf("expected vendor to be excluded")
	}
	sourceNode := walk.Node{RelativePath: "src", Depth: 1, Name: "src", Kind: walk.KindDirectory}
	if !predicate(sourceNode) {
		testingHandle.Fatalf("expected src to be included")
	}
	serviceNode := walk.Node{RelativePath: utils.IgnoreFileName, Depth: 1, Name: utils.IgnoreFileName, Kind: walk.KindFile}
	if predicate(serviceNode) {
		testingHandle.Fatalf("expected the ignore file itself to be excluded")
	}
}
