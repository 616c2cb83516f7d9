package utils

import (
	"path/filepath"
	"strings"
)

const pathSegmentSeparator = "/"

// serviceFiles are never included in output regardless of patterns.
var serviceFiles = map[string]struct{}{
	IgnoreFileName:    {},
	GitIgnoreFileName: {},
	ConfigFileName:    {},
}

// DeduplicatePatterns removes duplicate patterns from a slice while
// preserving order. The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// ContainsString checks if a slice of strings contains a specific target string.
func ContainsString(stringSlice []string, targetString string) bool {
	for _, currentString := range stringSlice {
		if currentString == targetString {
			return true
		}
	}
	return false
}

// ShouldIgnoreByPath reports whether a path relative to the processing root
// should be excluded. The candidate path and every pattern are converted to
// forward-slash form before evaluation. Patterns split into hierarchical
// segments, so nested prefixes such as "subdir/node_modules/" and
// "subdir/.clasp.json" match. A pattern ending with a trailing slash matches
// the named directory and all of its descendants. A single-segment pattern
// matches the path's base name with filepath.Match semantics; multi-segment
// patterns must match the whole path segment by segment. Patterns carrying
// the ExclusionPrefix match the named path prefix.
func ShouldIgnoreByPath(relativePath string, ignorePatterns []string) bool {
	normalizedPath := strings.ReplaceAll(relativePath, "\\", pathSegmentSeparator)
	pathSegments := strings.Split(normalizedPath, pathSegmentSeparator)
	lastSegment := ""
	if len(pathSegments) > 0 {
		lastSegment = pathSegments[len(pathSegments)-1]
	}

	if _, isServiceFile := serviceFiles[lastSegment]; isServiceFile {
		return true
	}

	for _, patternValue := range ignorePatterns {
		normalizedPattern := strings.ReplaceAll(patternValue, "\\", pathSegmentSeparator)

		if strings.HasPrefix(normalizedPattern, ExclusionPrefix) {
			exclusionPattern := strings.TrimPrefix(normalizedPattern, ExclusionPrefix)
			exclusionSegments := strings.Split(exclusionPattern, pathSegmentSeparator)
			if len(pathSegments) >= len(exclusionSegments) && segmentsMatch(pathSegments[:len(exclusionSegments)], exclusionSegments) {
				return true
			}
			continue
		}

		isDirectoryPattern := strings.HasSuffix(normalizedPattern, pathSegmentSeparator)
		trimmedPattern := strings.TrimSuffix(normalizedPattern, pathSegmentSeparator)
		patternSegments := strings.Split(trimmedPattern, pathSegmentSeparator)

		if isDirectoryPattern {
			if len(pathSegments) >= len(patternSegments) && segmentsMatch(pathSegments[:len(patternSegments)], patternSegments) {
				return true
			}
			continue
		}

		if len(patternSegments) == 1 {
			isMatched, matchError := filepath.Match(patternSegments[0], lastSegment)
			if matchError == nil && isMatched {
				return true
			}
			continue
		}

		if len(pathSegments) == len(patternSegments) && segmentsMatch(pathSegments, patternSegments) {
			return true
		}
	}

	return false
}

// segmentsMatch reports whether each pattern segment matches the
// corresponding path segment using filepath.Match semantics.
func segmentsMatch(pathSegments, patternSegments []string) bool {
	for segmentIndex, patternSegment := range patternSegments {
		isMatched, matchError := filepath.Match(patternSegment, pathSegments[segmentIndex])
		if matchError != nil || !isMatched {
			return false
		}
	}
	return true
}

// ShouldRevealBinaryContent reports whether a binary file's content should be
// embedded base64-encoded instead of replaced by the skip marker, based on
// the reveal patterns collected from [binary] ignore-file sections.
func ShouldRevealBinaryContent(relativePath string, revealPatterns []string) bool {
	normalizedPath := filepath.ToSlash(relativePath)
	for _, patternValue := range revealPatterns {
		trimmedPattern := strings.TrimSuffix(patternValue, pathSegmentSeparator)
		if strings.HasSuffix(patternValue, pathSegmentSeparator) {
			if normalizedPath == trimmedPattern || strings.HasPrefix(normalizedPath, trimmedPattern+pathSegmentSeparator) {
				return true
			}
			continue
		}
		isMatched, _ := filepath.Match(patternValue, normalizedPath)
		if isMatched {
			return true
		}
	}
	return false
}
