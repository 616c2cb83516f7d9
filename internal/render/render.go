// Package render turns traversal events into the Unicode box-drawing tree
// representation.
package render

import (
	"bufio"
	"io"
	"strings"

	"github.com/treesnap/treesnap/internal/walk"
)

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "
)

// Options configures tree rendering.
type Options struct {
	// RootLabel is printed for the root line. When empty the root node's
	// absolute path is used.
	RootLabel string
}

// TreeWriter consumes walk events and writes one line per node. Ancestor
// continuation segments are tracked on a stack that grows on directory enter
// events and shrinks on leave events, so memory stays proportional to depth.
type TreeWriter struct {
	writer        *bufio.Writer
	options       Options
	continuations []string
}

// NewTreeWriter returns a TreeWriter printing to writer. Output is buffered;
// call Flush after the walk completes.
func NewTreeWriter(writer io.Writer, options Options) *TreeWriter {
	return &TreeWriter{writer: bufio.NewWriter(writer), options: options}
}

// Handle renders a single traversal event.
func (treeWriter *TreeWriter) Handle(event walk.Event) error {
	switch event.Kind {
	case walk.EventEnterDirectory:
		if event.Node.Depth == 0 {
			return treeWriter.writeRootLine(event.Node)
		}
		if err := treeWriter.writeNodeLine(event.Node, event.LastSibling); err != nil {
			return err
		}
		treeWriter.pushContinuation(event.LastSibling)
		return nil
	case walk.EventFile:
		if event.Node.Depth == 0 {
			return treeWriter.writeRootLine(event.Node)
		}
		return treeWriter.writeNodeLine(event.Node, event.LastSibling)
	case walk.EventLeaveDirectory:
		if event.Node.Depth > 0 {
			treeWriter.popContinuation()
		}
		return nil
	default:
		return nil
	}
}

// Flush drains buffered lines to the underlying writer.
func (treeWriter *TreeWriter) Flush() error {
	return treeWriter.writer.Flush()
}

func (treeWriter *TreeWriter) writeRootLine(node walk.Node) error {
	label := treeWriter.options.RootLabel
	if label == "" {
		label = node.Path
	}
	_, writeError := treeWriter.writer.WriteString(label + "\n")
	return writeError
}

func (treeWriter *TreeWriter) writeNodeLine(node walk.Node, lastSibling bool) error {
	connector := treeBranchConnector
	if lastSibling {
		connector = treeLastConnector
	}
	line := strings.Join(treeWriter.continuations, "") + connector + node.Name + "\n"
	_, writeError := treeWriter.writer.WriteString(line)
	return writeError
}

func (treeWriter *TreeWriter) pushContinuation(lastSibling bool) {
	padding := treeBranchPadding
	if lastSibling {
		padding = treeLastPadding
	}
	treeWriter.continuations = append(treeWriter.continuations, padding)
}

func (treeWriter *TreeWriter) popContinuation() {
	if len(treeWriter.continuations) > 0 {
		treeWriter.continuations = treeWriter.continuations[:len(treeWriter.continuations)-1]
	}
}

// WriteTree walks rootPath and renders the tree to writer in one call.
func WriteTree(writer io.Writer, rootPath string, walkOptions walk.Options, renderOptions Options) error {
	treeWriter := NewTreeWriter(writer, renderOptions)
	walkError := walk.Walk(rootPath, walkOptions, treeWriter.Handle)
	flushError := treeWriter.Flush()
	if walkError != nil {
		return walkError
	}
	return flushError
}
