package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxSearchWorkers bounds how many directories search_files walks concurrently; unbounded
// recursion over a large tree would otherwise spawn one goroutine per subdirectory at once.
const maxSearchWorkers = 50

// fsEntry is one node of a directory_tree response.
type fsEntry struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"` // "file" or "directory"
	Children []fsEntry `json:"children,omitempty"`
}

// validatePath resolves requestedPath to an absolute, symlink-free path and confirms it (or,
// for a not-yet-created file, its parent) falls under one of allowedDirectories. Every
// filesystem tool routes through this before touching disk.
func validatePath(requestedPath string, allowedDirectories []string) (string, error) {
	absolute, err := filepath.Abs(filepath.FromSlash(os.ExpandEnv(requestedPath)))
	if err != nil {
		return "", err
	}

	if !anyContains(allowedDirectories, filepath.Clean(absolute)) {
		return "", fmt.Errorf("access denied - path %s outside allowed directories %s",
			requestedPath, strings.Join(allowedDirectories, ", "))
	}

	realPath, err := filepath.EvalSymlinks(absolute)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		return validateNewFileParent(absolute, allowedDirectories)
	}

	if !anyContains(allowedDirectories, filepath.Clean(realPath)) {
		return "", fmt.Errorf("access denied - real path %s outside allowed directories %s",
			realPath, strings.Join(allowedDirectories, ", "))
	}
	return realPath, nil
}

// validateNewFileParent handles the not-yet-created case: the target itself doesn't exist
// yet, so containment is checked against its nearest existing (real) ancestor instead.
func validateNewFileParent(target string, allowedDirectories []string) (string, error) {
	parentDir := filepath.Dir(target)
	realParent, err := filepath.EvalSymlinks(parentDir)
	if err != nil {
		if os.IsNotExist(err) && parentDir != target {
			if _, err := validateNewFileParent(parentDir, allowedDirectories); err != nil {
				return "", err
			}
			return target, nil
		}
		return "", err
	}

	if !anyContains(allowedDirectories, filepath.Clean(realParent)) {
		return "", fmt.Errorf("access denied - parent directory %s outside allowed directories %s",
			parentDir, strings.Join(allowedDirectories, ", "))
	}
	return target, nil
}

// anyContains reports whether path is base or a descendant of any entry in bases.
func anyContains(bases []string, path string) bool {
	for _, base := range bases {
		if isSubpath(path, base) {
			return true
		}
	}
	return false
}

func isSubpath(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != ".."
}

func normalizeLineEndings(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
}

// applyFileEdits reads filePath, applies edits in order, and returns a fenced unified diff of
// the change. When dryRun is false the file is rewritten with the edited content.
func applyFileEdits(filePath string, edits []EditOperation, dryRun bool) (string, error) {
	original, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	edited, err := applyEdits(string(original), edits)
	if err != nil {
		return "", err
	}

	diff := fenceDiff(unifiedDiff(filePath, string(original), edited))

	if !dryRun {
		if err := os.WriteFile(filePath, []byte(edited), 0600); err != nil {
			return "", fmt.Errorf("failed to write file: %w", err)
		}
	}
	return diff, nil
}

// applyEdits replaces each edit's OldText with its NewText, exactly if possible and otherwise
// via a whitespace-tolerant line-by-line match.
func applyEdits(content string, edits []EditOperation) (string, error) {
	result := normalizeLineEndings(content)

	for _, edit := range edits {
		oldText := normalizeLineEndings(edit.OldText)
		newText := normalizeLineEndings(edit.NewText)

		if strings.Contains(result, oldText) {
			result = strings.Replace(result, oldText, newText, 1)
			continue
		}

		matched, ok := matchAndReplaceLines(result, oldText, newText)
		if !ok {
			return "", fmt.Errorf("could not find exact match for edit:\n%s", edit.OldText)
		}
		result = matched
	}
	return result, nil
}

// matchAndReplaceLines finds a contiguous run of lines matching oldText up to leading
// whitespace and swaps it for newText, re-indenting newText to the matched block's indent.
func matchAndReplaceLines(content, oldText, newText string) (string, bool) {
	oldLines := strings.Split(oldText, "\n")
	lines := strings.Split(content, "\n")

	for start := 0; start+len(oldLines) <= len(lines); start++ {
		if !blockMatches(lines[start:start+len(oldLines)], oldLines) {
			continue
		}
		replacement := reindent(leadingWhitespace(lines[start]), oldLines, strings.Split(newText, "\n"))

		merged := make([]string, 0, len(lines)-len(oldLines)+len(replacement))
		merged = append(merged, lines[:start]...)
		merged = append(merged, replacement...)
		merged = append(merged, lines[start+len(oldLines):]...)
		return strings.Join(merged, "\n"), true
	}
	return content, false
}

func blockMatches(block, oldLines []string) bool {
	for i, oldLine := range oldLines {
		if strings.TrimSpace(oldLine) != strings.TrimSpace(block[i]) {
			return false
		}
	}
	return true
}

// reindent applies indent to newLines' first line and preserves each subsequent line's indent
// relative to the corresponding line it replaced.
func reindent(indent string, oldLines, newLines []string) []string {
	out := make([]string, 0, len(newLines))
	for i, line := range newLines {
		switch {
		case i == 0:
			out = append(out, indent+strings.TrimLeft(line, " \t"))
		case strings.TrimSpace(line) == "":
			out = append(out, indent)
		default:
			oldIndent := ""
			if i < len(oldLines) {
				oldIndent = leadingWhitespace(oldLines[i])
			}
			delta := len(leadingWhitespace(line)) - len(oldIndent)
			if delta < 0 {
				delta = 0
			}
			out = append(out, indent+strings.Repeat(" ", delta)+strings.TrimLeft(line, " \t"))
		}
	}
	return out
}

func leadingWhitespace(s string) string {
	return strings.TrimRight(s[:len(s)-len(strings.TrimLeft(s, " \t"))], "\n\r")
}

func unifiedDiff(path, before, after string) string {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lines := dmp.DiffLinesToChars(normalizeLineEndings(before), normalizeLineEndings(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lines)

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s (original)\n", path)
	fmt.Fprintf(&b, "+++ %s (modified)\n", path)
	for _, patch := range dmp.PatchMake(diffs) {
		b.WriteString(dmp.PatchToText([]diffmatchpatch.Patch{patch}))
	}
	return b.String()
}

// fenceDiff wraps diff in a markdown code fence, widening the fence if diff itself contains
// one so it can't prematurely close the block.
func fenceDiff(diff string) string {
	fence := "```"
	for strings.Contains(diff, fence) {
		fence += "`"
	}
	return fmt.Sprintf("%s\ndiff\n%s%s\n\n", fence, diff, fence)
}

// buildTree walks currentPath (validated against rootPaths at every level) and returns its
// directory_tree representation, skipping .git.
func buildTree(rootPaths []string, currentPath string) ([]fsEntry, error) {
	validPath, err := validatePath(currentPath, rootPaths)
	if err != nil {
		return nil, fmt.Errorf("path validation failed: %w", err)
	}

	entries, err := os.ReadDir(validPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	result := make([]fsEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}

		node := fsEntry{Name: entry.Name(), Type: "file"}
		if entry.IsDir() {
			node.Type = "directory"
			subPath := filepath.Join(currentPath, entry.Name())
			children, err := buildTree(rootPaths, subPath)
			if err != nil {
				return nil, fmt.Errorf("failed to build subtree for %s: %w", subPath, err)
			}
			node.Children = children
		}
		result = append(result, node)
	}
	return result, nil
}

// searchFilesWithPattern walks rootPath looking for entries whose name contains pattern
// (case-insensitive), skipping anything matched by excludePatterns, and bounding fan-out to
// maxSearchWorkers concurrent directory listings.
func searchFilesWithPattern(rootPath, pattern string, rootPaths, excludePatterns []string) ([]string, error) {
	excludes, err := compileExcludes(excludePatterns)
	if err != nil {
		return nil, err
	}

	pattern = strings.ToLower(pattern)
	type job struct{ path string }

	var (
		mu      sync.Mutex
		results []string
		wg      sync.WaitGroup
	)
	tokens := make(chan struct{}, maxSearchWorkers)

	var walk func(job)
	walk = func(j job) {
		defer wg.Done()

		validPath, err := validatePath(j.path, rootPaths)
		if err != nil {
			return
		}
		entries, err := os.ReadDir(validPath)
		if err != nil {
			return
		}

		for _, entry := range entries {
			fullPath := filepath.Join(j.path, entry.Name())
			if _, err := validatePath(fullPath, rootPaths); err != nil {
				continue
			}

			relativePath, err := filepath.Rel(rootPath, fullPath)
			if err != nil || matchesAny(excludes, relativePath) {
				continue
			}

			if strings.Contains(strings.ToLower(entry.Name()), pattern) {
				mu.Lock()
				results = append(results, fullPath)
				mu.Unlock()
			}

			if entry.IsDir() {
				wg.Add(1)
				go func(sub job) {
					tokens <- struct{}{}
					defer func() { <-tokens }()
					walk(sub)
				}(job{path: fullPath})
			}
		}
	}

	wg.Add(1)
	walk(job{path: rootPath})
	wg.Wait()

	return results, nil
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		if !strings.Contains(p, "*") {
			p = "{" + p + ",**/" + p + "," + p + "/**,**/" + p + "/**}"
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

func matchesAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
