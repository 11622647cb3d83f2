package filesystem

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arborwell/mcprelay"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test content"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	args, _ := json.Marshal(ReadFileArgs{Path: testFile})
	result, err := readFile([]string{dir}, mcp.CallToolParams{Arguments: args})
	if err != nil {
		t.Fatalf("readFile() error = %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "test content" {
		t.Errorf("Content = %+v, want one block saying 'test content'", result.Content)
	}

	args, _ = json.Marshal(ReadFileArgs{Path: filepath.Join(dir, "nonexistent.txt")})
	if _, err := readFile([]string{dir}, mcp.CallToolParams{Arguments: args}); err == nil {
		t.Error("readFile() of a missing file: want error, got nil")
	}
}

func TestReadFileRejectsPathOutsideAllowedDirectories(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	outsideFile := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(outsideFile, []byte("nope"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	args, _ := json.Marshal(ReadFileArgs{Path: outsideFile})
	if _, err := readFile([]string{dir}, mcp.CallToolParams{Arguments: args}); err == nil {
		t.Error("readFile() outside the allowed root: want error, got nil")
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "write_test.txt")

	args, _ := json.Marshal(WriteFileArgs{Path: testFile, Content: "test content"})
	if _, err := writeFile([]string{dir}, mcp.CallToolParams{Arguments: args}); err != nil {
		t.Fatalf("writeFile() error = %v", err)
	}

	got, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "test content" {
		t.Errorf("file content = %q, want %q", got, "test content")
	}
}

func TestListDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"file1.txt", "file2.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("test"), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	for _, name := range []string{"dir1", "dir2"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0700); err != nil {
			t.Fatalf("Mkdir() error = %v", err)
		}
	}

	args, _ := json.Marshal(ListDirectoryArgs{Path: dir})
	result, err := listDirectory([]string{dir}, mcp.CallToolParams{Arguments: args})
	if err != nil {
		t.Fatalf("listDirectory() error = %v", err)
	}
	if len(result.Content) != 4 {
		t.Errorf("Content = %+v, want 4 entries", result.Content)
	}
	for _, c := range result.Content {
		if !strings.HasPrefix(c.Text, "[FILE] ") && !strings.HasPrefix(c.Text, "[DIR] ") {
			t.Errorf("entry %q missing [FILE]/[DIR] tag", c.Text)
		}
	}
}

func TestReadMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{"file1.txt": "content1", "file2.txt": "content2"}
	var paths []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		paths = append(paths, path)
	}

	args, _ := json.Marshal(ReadMultipleFilesArgs{Paths: paths})
	result, err := readMultipleFiles([]string{dir}, mcp.CallToolParams{Arguments: args})
	if err != nil {
		t.Fatalf("readMultipleFiles() error = %v", err)
	}
	if len(result.Content) != len(files) {
		t.Errorf("Content = %+v, want %d entries", result.Content, len(files))
	}
}

func TestEditFile(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "edit_test.txt")
	if err := os.WriteFile(testFile, []byte("line1\nline2\nline3\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	args, _ := json.Marshal(EditFileArgs{
		Path:  testFile,
		Edits: []EditOperation{{OldText: "line2", NewText: "modified line2"}},
	})
	if _, err := editFile([]string{dir}, mcp.CallToolParams{Arguments: args}); err != nil {
		t.Fatalf("editFile() error = %v", err)
	}

	got, _ := os.ReadFile(testFile)
	if !strings.Contains(string(got), "modified line2") {
		t.Errorf("file content = %q, want it to contain %q", got, "modified line2")
	}
}

func TestEditFileDryRunLeavesFileUnchanged(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "edit_test.txt")
	original := "line1\nline2\nline3\n"
	if err := os.WriteFile(testFile, []byte(original), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	args, _ := json.Marshal(EditFileArgs{
		Path:   testFile,
		Edits:  []EditOperation{{OldText: "line2", NewText: "modified line2"}},
		DryRun: true,
	})
	result, err := editFile([]string{dir}, mcp.CallToolParams{Arguments: args})
	if err != nil {
		t.Fatalf("editFile() error = %v", err)
	}
	if len(result.Content) != 1 || !strings.Contains(result.Content[0].Text, "modified line2") {
		t.Errorf("Content = %+v, want a diff mentioning the edit", result.Content)
	}

	got, _ := os.ReadFile(testFile)
	if string(got) != original {
		t.Errorf("file content = %q, want it unchanged by a dry run", got)
	}
}

func TestCreateDirectory(t *testing.T) {
	dir := t.TempDir()
	newDir := filepath.Join(dir, "new_dir", "nested_dir")

	args, _ := json.Marshal(CreateDirectoryArgs{Path: newDir})
	if _, err := createDirectory([]string{dir}, mcp.CallToolParams{Arguments: args}); err != nil {
		t.Fatalf("createDirectory() error = %v", err)
	}

	if info, err := os.Stat(newDir); err != nil || !info.IsDir() {
		t.Error("nested directory was not created")
	}
}

func TestDirectoryTree(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "dir1", "subdir"), 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dir1", "file1.txt"), []byte("test"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	args, _ := json.Marshal(DirectoryTreeArgs{Path: dir})
	result, err := directoryTree([]string{dir}, mcp.CallToolParams{Arguments: args})
	if err != nil {
		t.Fatalf("directoryTree() error = %v", err)
	}

	var tree []fsEntry
	if err := json.Unmarshal([]byte(result.Content[0].Text), &tree); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(tree) != 1 || tree[0].Name != "dir1" || len(tree[0].Children) != 2 {
		t.Errorf("tree = %+v, want one directory entry with 2 children", tree)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.txt")
	destPath := filepath.Join(dir, "dest.txt")
	if err := os.WriteFile(sourcePath, []byte("test content"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	args, _ := json.Marshal(MoveFileArgs{Source: sourcePath, Destination: destPath})
	if _, err := moveFile([]string{dir}, mcp.CallToolParams{Arguments: args}); err != nil {
		t.Fatalf("moveFile() error = %v", err)
	}

	if _, err := os.Stat(sourcePath); !os.IsNotExist(err) {
		t.Error("source file still exists after move")
	}
	if _, err := os.Stat(destPath); os.IsNotExist(err) {
		t.Error("destination file missing after move")
	}
}

func TestSearchFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"test1.txt", "test2.txt", "other.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("test"), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	args, _ := json.Marshal(SearchFilesArgs{Path: dir, Pattern: "test"})
	result, err := searchFiles([]string{dir}, mcp.CallToolParams{Arguments: args})
	if err != nil {
		t.Fatalf("searchFiles() error = %v", err)
	}
	if len(result.Content) != 2 {
		t.Errorf("Content = %+v, want 2 matches", result.Content)
	}
}

func TestSearchFilesHonorsExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"test1.txt", "test2.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("test"), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	args, _ := json.Marshal(SearchFilesArgs{Path: dir, Pattern: "test", Exclude: []string{"test2.txt"}})
	result, err := searchFiles([]string{dir}, mcp.CallToolParams{Arguments: args})
	if err != nil {
		t.Fatalf("searchFiles() error = %v", err)
	}
	if len(result.Content) != 1 || !strings.HasSuffix(result.Content[0].Text, "test1.txt") {
		t.Errorf("Content = %+v, want only test1.txt", result.Content)
	}
}

func TestGetFileInfo(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "info_test.txt")
	if err := os.WriteFile(testFile, []byte("test content"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	args, _ := json.Marshal(GetFileInfoArgs{Path: testFile})
	result, err := getFileInfo([]string{dir}, mcp.CallToolParams{Arguments: args})
	if err != nil {
		t.Fatalf("getFileInfo() error = %v", err)
	}

	var info struct {
		Size        int64       `json:"size"`
		IsDirectory bool        `json:"isDirectory"`
		IsFile      bool        `json:"isFile"`
		Permissions os.FileMode `json:"permissions"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &info); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if info.Size != int64(len("test content")) {
		t.Errorf("Size = %d, want %d", info.Size, len("test content"))
	}
	if info.IsDirectory || !info.IsFile {
		t.Errorf("IsDirectory/IsFile = %v/%v, want false/true", info.IsDirectory, info.IsFile)
	}
}

func TestListAllowedDirectories(t *testing.T) {
	roots := []string{"/path1", "/path2"}
	result, err := listAllowedDirectories(roots, mcp.CallToolParams{})
	if err != nil {
		t.Fatalf("listAllowedDirectories() error = %v", err)
	}
	if len(result.Content) != len(roots) {
		t.Fatalf("Content = %+v, want %d entries", result.Content, len(roots))
	}
	for i, c := range result.Content {
		if c.Text != roots[i] {
			t.Errorf("Content[%d] = %q, want %q", i, c.Text, roots[i])
		}
	}
}
