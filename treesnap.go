// Package treesnap renders directory trees and extracts file contents as
// delimited text bundles. Both operations share one deterministic,
// symlink-aware traversal: directories sort before files, siblings sort
// case-insensitively, and excluded directories are never descended into.
package treesnap

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/treesnap/treesnap/internal/extract"
	"github.com/treesnap/treesnap/internal/render"
	"github.com/treesnap/treesnap/internal/walk"
)

// Node describes one filesystem entry seen by a traversal.
type Node = walk.Node

// Predicate filters traversal nodes. Returning false for a directory prunes
// its entire subtree.
type Predicate = walk.Predicate

// Record is one extracted file in a content bundle.
type Record = extract.Record

// Bundle is the ordered result of a content extraction.
type Bundle = extract.Bundle

// ErrorPolicy selects what happens when a file cannot be read or decoded.
type ErrorPolicy = extract.ErrorPolicy

const (
	// ErrorPolicyRaise aborts the extraction on the first failing file.
	ErrorPolicyRaise = extract.ErrorPolicyRaise
	// ErrorPolicyIgnore replaces a failing file's content with a marker record.
	ErrorPolicyIgnore = extract.ErrorPolicyIgnore
)

// TreeOptions controls tree rendering.
type TreeOptions struct {
	// FollowSymlinks resolves symbolic links during traversal.
	FollowSymlinks bool
	// Include filters traversal nodes. A nil predicate includes everything.
	Include Predicate
	// OnError receives recoverable traversal failures.
	OnError func(path string, failure error)
}

// ContentOptions controls content extraction.
type ContentOptions struct {
	// FollowSymlinks resolves symbolic links during traversal.
	FollowSymlinks bool
	// Include filters traversal nodes. A nil predicate includes everything.
	Include Predicate
	// IncludeBinary decodes binary files as text instead of skipping them.
	IncludeBinary bool
	// Encoding names the text encoding used to decode file bytes. Empty
	// selects UTF-8.
	Encoding string
	// Errors selects the failure policy. Empty selects ErrorPolicyRaise.
	Errors ErrorPolicy
	// OnError receives recoverable traversal and read failures.
	OnError func(path string, failure error)
}

// WriteTree renders the box-glyph tree of rootPath to writer. The root line
// shows rootPath as given.
func WriteTree(writer io.Writer, rootPath string, options TreeOptions) error {
	walkOptions := walk.Options{
		FollowSymlinks: options.FollowSymlinks,
		Include:        options.Include,
		OnError:        options.OnError,
	}
	return render.WriteTree(writer, rootPath, walkOptions, render.Options{RootLabel: filepath.Clean(rootPath)})
}

// PrintTree renders the box-glyph tree of rootPath to standard output.
func PrintTree(rootPath string, options TreeOptions) error {
	return WriteTree(os.Stdout, rootPath, options)
}

// PathTree renders the box-glyph tree of rootPath as a string.
func PathTree(rootPath string, options TreeOptions) (string, error) {
	var builder strings.Builder
	if err := WriteTree(&builder, rootPath, options); err != nil {
		return "", err
	}
	return builder.String(), nil
}

// PathContent extracts every selected regular file under rootPath and
// renders the delimited bundle. An empty selection yields the empty string.
func PathContent(rootPath string, options ContentOptions) (string, error) {
	bundle, err := Collect(rootPath, options)
	if err != nil {
		return "", err
	}
	return bundle.String(), nil
}

// Collect extracts every selected regular file under rootPath into a Bundle.
func Collect(rootPath string, options ContentOptions) (Bundle, error) {
	return extract.Collect(rootPath, extractOptions(options))
}

// Stream extracts files one at a time, invoking visit per record in
// traversal order.
func Stream(rootPath string, options ContentOptions, visit func(Record) error) error {
	return extract.Stream(rootPath, extractOptions(options), visit)
}

func extractOptions(options ContentOptions) extract.Options {
	return extract.Options{
		FollowSymlinks: options.FollowSymlinks,
		Include:        options.Include,
		IncludeBinary:  options.IncludeBinary,
		Encoding:       options.Encoding,
		Errors:         options.Errors,
		OnError:        options.OnError,
	}
}
