package filesystem

import "encoding/json"

// ReadFileArgs is an argument struct for the read_file tool.
type ReadFileArgs struct {
	Path string `json:"path"`
}

// ReadMultipleFilesArgs is an argument struct for the read_multiple_files tool.
type ReadMultipleFilesArgs struct {
	Paths []string `json:"paths"`
}

// WriteFileArgs is an argument struct for the write_file tool.
type WriteFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// EditFileArgs is an argument struct for the edit_file tool.
type EditFileArgs struct {
	Path   string          `json:"path"`
	Edits  []EditOperation `json:"edits"`
	DryRun bool            `json:"dryRun"`
}

// EditOperation is a struct representing an edit operation.
type EditOperation struct {
	OldText string `json:"oldText"`
	NewText string `json:"newText"`
}

// CreateDirectoryArgs is an argument struct for the create_directory tool.
type CreateDirectoryArgs struct {
	Path string `json:"path"`
}

// ListDirectoryArgs is an argument struct for the list_directory tool.
type ListDirectoryArgs struct {
	Path string `json:"path"`
}

// DirectoryTreeArgs is an argument struct for the directory_tree tool.
type DirectoryTreeArgs struct {
	Path string `json:"path"`
}

// MoveFileArgs is an argument struct for the move_file tool.
type MoveFileArgs struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// SearchFilesArgs is an argument struct for the search_files tool.
type SearchFilesArgs struct {
	Path    string   `json:"path"`
	Pattern string   `json:"pattern"`
	Exclude []string `json:"excludePatterns"`
}

// GetFileInfoArgs is an argument struct for the get_file_info tool.
type GetFileInfoArgs struct {
	Path string `json:"path"`
}

// jsonSchemaProp is a single property entry within an inputSchema object, general enough to
// describe a nested object (Properties/Required) or an array of one (Items).
type jsonSchemaProp struct {
	Type       string                    `json:"type"`
	Items      *jsonSchemaProp           `json:"items,omitempty"`
	Properties map[string]jsonSchemaProp `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

var stringProp = jsonSchemaProp{Type: "string"}
var boolProp = jsonSchemaProp{Type: "boolean"}
var stringArrayProp = jsonSchemaProp{Type: "array", Items: &stringProp}

var editOperationProp = jsonSchemaProp{
	Type: "object",
	Properties: map[string]jsonSchemaProp{
		"oldText": stringProp,
		"newText": stringProp,
	},
	Required: []string{"oldText", "newText"},
}

// objectSchema renders the JSON Schema for a tool's inputSchema field: an object with the
// given named properties, required marking a subset of them.
func objectSchema(props map[string]jsonSchemaProp, required ...string) []byte {
	schema := struct {
		Type       string                    `json:"type"`
		Properties map[string]jsonSchemaProp `json:"properties"`
		Required   []string                  `json:"required,omitempty"`
	}{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
	bs, err := json.Marshal(schema)
	if err != nil {
		// props above are always the fixed literals declared in this file; a marshal
		// failure here would mean one of them stopped being JSON-representable.
		panic("filesystem: failed to render tool schema: " + err.Error())
	}
	return bs
}

var (
	readFileSchema = objectSchema(map[string]jsonSchemaProp{
		"path": stringProp,
	}, "path")

	readMultipleFilesSchema = objectSchema(map[string]jsonSchemaProp{
		"paths": stringArrayProp,
	}, "paths")

	writeFileSchema = objectSchema(map[string]jsonSchemaProp{
		"path":    stringProp,
		"content": stringProp,
	}, "path", "content")

	editFileSchema = objectSchema(map[string]jsonSchemaProp{
		"path":   stringProp,
		"edits":  {Type: "array", Items: &editOperationProp},
		"dryRun": boolProp,
	}, "path", "edits")

	createDirectorySchema = objectSchema(map[string]jsonSchemaProp{
		"path": stringProp,
	}, "path")

	listDirectorySchema = objectSchema(map[string]jsonSchemaProp{
		"path": stringProp,
	}, "path")

	directoryTreeSchema = objectSchema(map[string]jsonSchemaProp{
		"path": stringProp,
	}, "path")

	moveFileSchema = objectSchema(map[string]jsonSchemaProp{
		"source":      stringProp,
		"destination": stringProp,
	}, "source", "destination")

	searchFilesSchema = objectSchema(map[string]jsonSchemaProp{
		"path":            stringProp,
		"pattern":         stringProp,
		"excludePatterns": stringArrayProp,
	}, "path", "pattern")

	getFileInfoSchema = objectSchema(map[string]jsonSchemaProp{
		"path": stringProp,
	}, "path")
)
