package filesystem

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/arborwell/mcprelay"
)

var toolList = mcp.ListToolsResult{
	Tools: []mcp.Tool{
		{
			Name: "read_file",
			Description: `
Read the complete contents of a file from the file system.
Handles various text encodings and provides detailed error messages
if the file cannot be read. Use this tool when you need to examine
the contents of a single file. Only works within allowed directories.,
        `,
			InputSchema: readFileSchema,
		},
		{
			Name: "read_multiple_files",
			Description: `
Read the contents of multiple files simultaneously. This is more
efficient than reading files one by one when you need to analyze
or compare multiple files. Each file's content is returned with its
path as a reference. Failed reads for individual files won't stop
the entire operation. Only works within allowed directories.
        `,
			InputSchema: readMultipleFilesSchema,
		},
		{
			Name: "write_file",
			Description: `
Create a new file or completely overwrite an existing file with new content.
Use with caution as it will overwrite existing files without warning.
Handles text content with proper encoding. Only works within allowed directories.
        `,
			InputSchema: writeFileSchema,
		},
		{
			Name: "edit_file",
			Description: `
Make line-based edits to a text file. Each edit replaces exact line sequences
with new content. Returns a git-style diff showing the changes made.
Only works within allowed directories.
        `,
			InputSchema: editFileSchema,
		},
		{
			Name: "create_directory",
			Description: `
Create a new directory or ensure a directory exists. Can create multiple
nested directories in one operation. If the directory already exists,
this operation will succeed silently. Perfect for setting up directory
structures for projects or ensuring required paths exist. Only works within allowed directories.
        `,
			InputSchema: createDirectorySchema,
		},
		{
			Name: "list_directory",
			Description: `
Get a detailed listing of all files and directories in a specified path.
Results clearly distinguish between files and directories with [FILE] and [DIR]
prefixes. This tool is essential for understanding directory structure and
finding specific files within a directory. Only works within allowed directories.
        `,
			InputSchema: listDirectorySchema,
		},
		{
			Name: "directory_tree",
			Description: `
Get a recursive tree view of files and directories as a JSON structure.
Each entry includes 'name', 'type' (file/directory), and 'children' for directories.
Non-empty directories have a children array; files and empty directories have none.
The output is formatted with 2-space indentation for readability. Only works within allowed directories.
        `,
			InputSchema: directoryTreeSchema,
		},
		{
			Name: "move_file",
			Description: `Move or rename files and directories. Can move files between directories
and rename them in a single operation. If the destination exists, the
operation will fail. Works across different directories and can be used
for simple renaming within the same directory. Both source and destination must be within allowed directories.
        `,
			InputSchema: moveFileSchema,
		},
		{
			Name: "search_files",
			Description: `Recursively search for files and directories matching a pattern.
Searches through all subdirectories from the starting path. The search
is case-insensitive and matches partial names. Returns full paths to all
matching items. Great for finding files when you don't know their exact location.
Only searches within allowed directories.
        `,
			InputSchema: searchFilesSchema,
		},
		{
			Name: "get_file_info",
			Description: `Retrieve detailed metadata about a file or directory. Returns comprehensive
information including size, last modified time, permissions,
and type. This tool is perfect for understanding file characteristics
without reading the actual content. Only works within allowed directories.
        `,
			InputSchema: getFileInfoSchema,
		},
		{
			Name: "list_allowed_directories",
			Description: `Returns the list of directories this server is allowed to access.
Use this to understand which parts of the filesystem are reachable before
attempting other operations.
        `,
		},
	},
}

func readFile(rootPaths []string, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args ReadFileArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	validPath, err := validatePath(args.Path, rootPaths)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	info, err := os.Stat(validPath)
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to stat file with path %s: %w", validPath, err)
	}
	if info.IsDir() {
		return mcp.CallToolResult{}, fmt.Errorf("path %s is a directory, not a file", validPath)
	}

	bs, err := os.ReadFile(validPath)
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to read file with path %s: %w", validPath, err)
	}

	return mcp.CallToolResult{
		Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: string(bs)}},
	}, nil
}

func readMultipleFiles(rootPaths []string, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args ReadMultipleFilesArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	var result []mcp.Content

	for _, path := range args.Paths {
		validPath, err := validatePath(path, rootPaths)
		if err != nil {
			result = append(result, mcp.Content{
				Type: mcp.ContentTypeText,
				Text: fmt.Sprintf("%s: error - %v", path, err),
			})
			continue
		}

		bs, err := os.ReadFile(validPath)
		if err != nil {
			result = append(result, mcp.Content{
				Type: mcp.ContentTypeText,
				Text: fmt.Sprintf("%s: error - %v", path, err),
			})
			continue
		}

		result = append(result, mcp.Content{
			Type: mcp.ContentTypeText,
			Text: fmt.Sprintf("File content of %s:\n%s\n", path, string(bs)),
		})
	}

	return mcp.CallToolResult{Content: result}, nil
}

func writeFile(rootPaths []string, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args WriteFileArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	validPath, err := validatePath(args.Path, rootPaths)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	if err := os.WriteFile(validPath, []byte(args.Content), 0600); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to write file with path %s: %w", validPath, err)
	}

	return mcp.CallToolResult{
		Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: fmt.Sprintf("File %s written successfully", args.Path)}},
	}, nil
}

func editFile(rootPaths []string, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args EditFileArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	validPath, err := validatePath(args.Path, rootPaths)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	diff, err := applyFileEdits(validPath, args.Edits, args.DryRun)
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to edit file with path %s: %w", validPath, err)
	}

	return mcp.CallToolResult{
		Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: diff}},
	}, nil
}

func createDirectory(rootPaths []string, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args CreateDirectoryArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	validPath, err := validatePath(args.Path, rootPaths)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	if err := os.MkdirAll(validPath, 0700); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to create directory with path %s: %w", validPath, err)
	}

	return mcp.CallToolResult{
		Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: fmt.Sprintf("Directory %s created successfully", args.Path)}},
	}, nil
}

func listDirectory(rootPaths []string, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args ListDirectoryArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	validPath, err := validatePath(args.Path, rootPaths)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	files, err := os.ReadDir(validPath)
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to read directory with path %s: %w", validPath, err)
	}

	var result []mcp.Content
	for _, file := range files {
		prefix := "[FILE] "
		if file.IsDir() {
			prefix = "[DIR] "
		}
		result = append(result, mcp.Content{Type: mcp.ContentTypeText, Text: prefix + file.Name()})
	}

	return mcp.CallToolResult{Content: result}, nil
}

func directoryTree(rootPaths []string, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args DirectoryTreeArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	if _, err := validatePath(args.Path, rootPaths); err != nil {
		return mcp.CallToolResult{}, err
	}

	tree, err := buildTree(rootPaths, args.Path)
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to build directory tree for %s: %w", args.Path, err)
	}

	bs, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to marshal directory tree: %w", err)
	}

	return mcp.CallToolResult{
		Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: string(bs)}},
	}, nil
}

func moveFile(rootPaths []string, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args MoveFileArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	validSource, err := validatePath(args.Source, rootPaths)
	if err != nil {
		return mcp.CallToolResult{}, err
	}
	validDest, err := validatePath(args.Destination, rootPaths)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	if _, err := os.Stat(validDest); err == nil {
		return mcp.CallToolResult{}, fmt.Errorf("destination %s already exists", args.Destination)
	}

	if err := os.Rename(validSource, validDest); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to move file with path %s: %w", validSource, err)
	}

	return mcp.CallToolResult{
		Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: fmt.Sprintf("File %s moved to %s successfully", args.Source, args.Destination)}},
	}, nil
}

func searchFiles(rootPaths []string, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args SearchFilesArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	validPath, err := validatePath(args.Path, rootPaths)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	// searchFilesWithPattern matches by substring, not glob syntax, so reduce a
	// glob-style pattern like "test*.txt" to its leading literal segment "test".
	pattern := strings.SplitN(args.Pattern, "*", 2)[0]

	matches, err := searchFilesWithPattern(validPath, pattern, rootPaths, args.Exclude)
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to search files: %w", err)
	}

	if len(matches) == 0 {
		return mcp.CallToolResult{
			Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: "No files found"}},
		}, nil
	}

	var result []mcp.Content
	for _, m := range matches {
		result = append(result, mcp.Content{Type: mcp.ContentTypeText, Text: m})
	}

	return mcp.CallToolResult{Content: result}, nil
}

func getFileInfo(rootPaths []string, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args GetFileInfoArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, err
	}

	validPath, err := validatePath(args.Path, rootPaths)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	info, err := os.Stat(validPath)
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to stat file with path %s: %w", validPath, err)
	}

	fileInfo := struct {
		Size        int64       `json:"size"`
		ModTime     string      `json:"modifiedTime"`
		IsDirectory bool        `json:"isDirectory"`
		IsFile      bool        `json:"isFile"`
		Permissions os.FileMode `json:"permissions"`
	}{
		Size:        info.Size(),
		ModTime:     info.ModTime().String(),
		IsDirectory: info.IsDir(),
		IsFile:      !info.IsDir(),
		Permissions: info.Mode().Perm(),
	}

	bs, err := json.MarshalIndent(fileInfo, "", "  ")
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to marshal file info: %w", err)
	}

	return mcp.CallToolResult{
		Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: string(bs)}},
	}, nil
}

func listAllowedDirectories(rootPaths []string, _ mcp.CallToolParams) (mcp.CallToolResult, error) {
	var result []mcp.Content
	for _, p := range rootPaths {
		result = append(result, mcp.Content{Type: mcp.ContentTypeText, Text: p})
	}
	return mcp.CallToolResult{Content: result}, nil
}
