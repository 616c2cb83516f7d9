// Package walk implements the deterministic, prunable, symlink-aware
// depth-first traversal that the tree and content operations share.
package walk

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/treesnap/treesnap/internal/utils"
)

// Kind classifies a filesystem node encountered during traversal.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindFile      Kind = "file"
	KindSymlink   Kind = "symlink"
	KindOther     Kind = "other"
)

// EventKind identifies the traversal phase an event belongs to.
type EventKind int

const (
	// EventEnterDirectory is emitted before a directory's children.
	EventEnterDirectory EventKind = iota
	// EventFile is emitted for every leaf node.
	EventFile
	// EventLeaveDirectory is emitted after a directory's children.
	EventLeaveDirectory
)

const (
	// errorRootMissingFormat reports a root path that does not exist.
	errorRootMissingFormat = "path %q does not exist"
	// errorRootStatFormat reports a root path that cannot be inspected.
	errorRootStatFormat = "stat failed for %q: %w"
	// errorNilHandler reports a missing event handler.
	errorNilHandler = "walk: event handler is nil"

	// currentDirectoryRelativePath is the relative path assigned to the root node.
	currentDirectoryRelativePath = "."
)

// Node describes one filesystem entry discovered during a walk.
type Node struct {
	// Path is the absolute path of the entry.
	Path string
	// RelativePath is the slash-separated path from the walk root, "." for the root itself.
	RelativePath string
	// Name is the entry's base name.
	Name string
	// Kind reports the entry's classification. With FollowSymlinks enabled a
	// link takes its resolved target's kind; a cycle-closing link keeps KindSymlink.
	Kind Kind
	// Depth is the distance from the root; the root has depth zero.
	Depth int
}

// Event is the traversal's unit of output: a node plus the positional
// metadata consumers need to render it.
type Event struct {
	Kind EventKind
	Node Node
	// LastSibling reports whether the node is the final entry emitted for its
	// parent directory. The root is always a last sibling.
	LastSibling bool
}

// Predicate decides whether a discovered node is visited. Returning false
// for a directory prunes its entire subtree; returning false for a leaf
// omits that leaf only. The predicate is never consulted for the root.
type Predicate func(Node) bool

// Handler consumes traversal events. Returning an error abandons the walk
// and surfaces the error to the Walk caller unchanged.
type Handler func(Event) error

// Options configures a single walk. The zero value follows no symlinks,
// includes every node, and drops per-node failures silently.
type Options struct {
	// FollowSymlinks enables descending into symlinked directories with
	// per-branch cycle avoidance.
	FollowSymlinks bool
	// Include filters non-root nodes; nil includes everything.
	Include Predicate
	// OnError observes recoverable per-node failures (unreadable directory,
	// vanished entry, unresolvable link). The affected subtree is skipped and
	// the walk continues.
	OnError func(path string, failure error)
}

type walker struct {
	root    string
	options Options
	handler Handler
}

type childEntry struct {
	node      Node
	directory bool
}

// Walk traverses rootPath depth-first in pre-order and feeds every event to
// handler. Within a directory, subdirectories are visited before files and
// each group is ordered case-insensitively by name. The traversal is a
// single pass: no state survives the call and events cannot be replayed.
func Walk(rootPath string, options Options, handler Handler) error {
	if handler == nil {
		return fmt.Errorf(errorNilHandler)
	}

	absoluteRoot, absolutePathError := filepath.Abs(rootPath)
	if absolutePathError != nil {
		return fmt.Errorf("abs failed for %q: %w", rootPath, absolutePathError)
	}
	absoluteRoot = filepath.Clean(absoluteRoot)

	rootInfo, rootStatError := os.Stat(absoluteRoot)
	if rootStatError != nil {
		if os.IsNotExist(rootStatError) {
			return fmt.Errorf(errorRootMissingFormat, rootPath)
		}
		return fmt.Errorf(errorRootStatFormat, rootPath, rootStatError)
	}

	walkState := &walker{root: absoluteRoot, options: options, handler: handler}

	rootNode := Node{
		Path:         absoluteRoot,
		RelativePath: currentDirectoryRelativePath,
		Name:         filepath.Base(absoluteRoot),
		Depth:        0,
	}

	if !rootInfo.IsDir() {
		rootNode.Kind = kindFromMode(rootInfo.Mode())
		return handler(Event{Kind: EventFile, Node: rootNode, LastSibling: true})
	}

	rootNode.Kind = KindDirectory
	var ancestors map[string]struct{}
	if options.FollowSymlinks {
		ancestors = make(map[string]struct{})
	}
	return walkState.walkDirectory(rootNode, true, ancestors)
}

// walkDirectory emits the enter event for node, visits its ordered children,
// and closes with the leave event. The ancestors set holds the canonical
// identities of every directory open on the current descent path and is nil
// unless symlink following is enabled.
func (walkState *walker) walkDirectory(node Node, lastSibling bool, ancestors map[string]struct{}) error {
	if err := walkState.handler(Event{Kind: EventEnterDirectory, Node: node, LastSibling: lastSibling}); err != nil {
		return err
	}

	if ancestors != nil {
		identity := canonicalIdentity(node.Path)
		ancestors[identity] = struct{}{}
		defer delete(ancestors, identity)
	}

	directoryEntries, readDirectoryError := os.ReadDir(node.Path)
	if readDirectoryError != nil {
		walkState.warn(node.Path, readDirectoryError)
		directoryEntries = nil
	}

	children := make([]childEntry, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		childPath := filepath.Join(node.Path, directoryEntry.Name())
		childNode := Node{
			Path:         childPath,
			RelativePath: utils.RelativePathOrSelf(childPath, walkState.root),
			Name:         directoryEntry.Name(),
			Depth:        node.Depth + 1,
		}
		kind, isDirectory := walkState.classify(childPath, directoryEntry)
		childNode.Kind = kind
		if walkState.options.Include != nil && !walkState.options.Include(childNode) {
			continue
		}
		children = append(children, childEntry{node: childNode, directory: isDirectory})
	}

	sortChildren(children)

	for childIndex, child := range children {
		childLast := childIndex == len(children)-1
		if !child.directory {
			if err := walkState.handler(Event{Kind: EventFile, Node: child.node, LastSibling: childLast}); err != nil {
				return err
			}
			continue
		}
		if ancestors != nil {
			identity := canonicalIdentity(child.node.Path)
			if _, open := ancestors[identity]; open {
				// Cycle-closing link: emit as a leaf instead of descending.
				leafNode := child.node
				leafNode.Kind = KindSymlink
				if err := walkState.handler(Event{Kind: EventFile, Node: leafNode, LastSibling: childLast}); err != nil {
					return err
				}
				continue
			}
		}
		if err := walkState.walkDirectory(child.node, childLast, ancestors); err != nil {
			return err
		}
	}

	return walkState.handler(Event{Kind: EventLeaveDirectory, Node: node, LastSibling: lastSibling})
}

// classify determines a directory entry's kind and whether the walk should
// descend into it. Symlinks resolve to their target's kind only when
// following is enabled; a link whose target cannot be inspected stays a leaf.
func (walkState *walker) classify(childPath string, directoryEntry fs.DirEntry) (Kind, bool) {
	entryType := directoryEntry.Type()
	switch {
	case entryType&fs.ModeSymlink != 0:
		if !walkState.options.FollowSymlinks {
			return KindSymlink, false
		}
		targetInfo, targetStatError := os.Stat(childPath)
		if targetStatError != nil {
			walkState.warn(childPath, targetStatError)
			return KindSymlink, false
		}
		resolvedKind := kindFromMode(targetInfo.Mode())
		return resolvedKind, resolvedKind == KindDirectory
	case directoryEntry.IsDir():
		return KindDirectory, true
	case entryType.IsRegular():
		return KindFile, false
	default:
		return KindOther, false
	}
}

func (walkState *walker) warn(path string, failure error) {
	if walkState.options.OnError != nil {
		walkState.options.OnError(path, failure)
	}
}

// sortChildren orders directories before files and each group
// case-insensitively by name, with the exact name as a deterministic
// tie-breaker for names differing only in case.
func sortChildren(children []childEntry) {
	sort.SliceStable(children, func(leftIndex, rightIndex int) bool {
		left, right := children[leftIndex], children[rightIndex]
		if left.directory != right.directory {
			return left.directory
		}
		leftName := strings.ToLower(left.node.Name)
		rightName := strings.ToLower(right.node.Name)
		if leftName != rightName {
			return leftName < rightName
		}
		return left.node.Name < right.node.Name
	})
}

// canonicalIdentity resolves every symlink in path to obtain a stable
// identity for cycle detection, falling back to the cleaned path itself when
// resolution fails.
func canonicalIdentity(path string) string {
	resolved, resolveError := filepath.EvalSymlinks(path)
	if resolveError != nil {
		return filepath.Clean(path)
	}
	return resolved
}

func kindFromMode(mode fs.FileMode) Kind {
	switch {
	case mode.IsDir():
		return KindDirectory
	case mode.IsRegular():
		return KindFile
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}
