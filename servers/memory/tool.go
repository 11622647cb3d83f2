package memory

import "github.com/arborwell/mcprelay"

// toolSpec pairs a tool's advertised metadata with the JSON Schema for its arguments; toolList
// is built from this table instead of a literal mcp.Tool slice so each tool's shape is declared
// once, next to the schema that governs it.
type toolSpec struct {
	name        string
	description string
	schema      []byte
}

var toolSpecs = []toolSpec{
	{"create_entities", "Create new entities in the knowledge graph, skipping any whose name already exists.", createEntitiesSchema},
	{"create_relations", "Create new relations between entities in the knowledge graph. Relations should be phrased in active voice.", createRelationsSchema},
	{"add_observations", "Attach new observations to existing entities in the knowledge graph.", addObservationsSchema},
	{"delete_entities", "Delete entities and any relation touching them from the knowledge graph.", deleteEntitiesSchema},
	{"delete_observations", "Delete specific observations from entities in the knowledge graph.", deleteObservationsSchema},
	{"delete_relations", "Delete relations from the knowledge graph.", deleteRelationsSchema},
	{"read_graph", "Read the entire knowledge graph.", readGraphSchema},
	{"search_nodes", "Search the knowledge graph for entities whose name, type, or observations match a query.", searchNodesSchema},
	{"open_nodes", "Look up specific entities in the knowledge graph by name.", openNodesSchema},
}

var toolList = mcp.ListToolsResult{Tools: buildToolList(toolSpecs)}

func buildToolList(specs []toolSpec) []mcp.Tool {
	tools := make([]mcp.Tool, len(specs))
	for i, s := range specs {
		tools[i] = mcp.Tool{Name: s.name, Description: s.description, InputSchema: s.schema}
	}
	return tools
}
