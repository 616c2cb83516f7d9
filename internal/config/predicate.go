package config

import (
	"github.com/treesnap/treesnap/internal/utils"
	"github.com/treesnap/treesnap/internal/walk"
)

// BuildIncludePredicate converts collected ignore patterns into a traversal
// predicate. The root node is always included; every other node is matched
// by its root-relative path. An empty pattern list still filters service
// files such as the ignore files themselves.
func BuildIncludePredicate(ignorePatterns []string) walk.Predicate {
	return func(node walk.Node) bool {
		if node.Depth == 0 {
			return true
		}
		return !utils.ShouldIgnoreByPath(node.RelativePath, ignorePatterns)
	}
}
