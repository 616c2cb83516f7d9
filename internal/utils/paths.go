// Package utils contains general helper functions shared across the tool.
package utils

import (
	"path/filepath"
)

// RelativePathOrSelf calculates the slash-separated path from root to
// fullPath. It returns the cleaned fullPath if relative calculation fails and
// "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, absolutePathError := filepath.Abs(root)
	if absolutePathError != nil {
		return cleanPath
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)

	if cleanPath == cleanAbsoluteRoot {
		return "."
	}

	relativePath, relativePathError := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relativePathError != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}
