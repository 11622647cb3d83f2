package memory

import "encoding/json"

type createEntitiesArgs struct {
	Entities []entity `json:"entities"`
}

type entity struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
}

type createRelationsArgs struct {
	Relations []relation `json:"relations"`
}

type relation struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

type addObservationsArgs struct {
	Observations []observation `json:"observations"`
}

type observation struct {
	EntityName string   `json:"entityName"`
	Contents   []string `json:"contents"`

	Observations []string `json:"observations,omitempty"` // For deletions.
}

type deleteEntitiesArgs struct {
	EntityNames []string `json:"entityNames"`
}

type deleteObservationsArgs struct {
	Deletions []observation `json:"deletions"`
}

type deleteRelationsArgs struct {
	Relations []relation `json:"relations"`
}

type searchNodesArgs struct {
	Query string `json:"query"`
}

type openNodesArgs struct {
	Names []string `json:"names"`
}

// prop is a single field within a tool's inputSchema, general enough to describe a scalar, an
// array of scalars, or an array of nested objects.
type prop struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Items       *prop           `json:"items,omitempty"`
	Properties  map[string]prop `json:"properties,omitempty"`
	Required    []string        `json:"required,omitempty"`
}

func stringField(desc string) prop  { return prop{Type: "string", Description: desc} }
func arrayOf(item prop, desc string) prop {
	return prop{Type: "array", Items: &item, Description: desc}
}

var entityProp = prop{
	Type: "object",
	Properties: map[string]prop{
		"name":         stringField("The name of the entity"),
		"entityType":   stringField("The type of the entity"),
		"observations": arrayOf(stringField(""), "An array of observation contents associated with the entity"),
	},
	Required: []string{"name", "entityType", "observations"},
}

var relationProp = prop{
	Type: "object",
	Properties: map[string]prop{
		"from":         stringField("The name of the entity where the relation starts"),
		"to":           stringField("The name of the entity where the relation ends"),
		"relationType": stringField("The type of the relation"),
	},
	Required: []string{"from", "to", "relationType"},
}

var observationProp = prop{
	Type: "object",
	Properties: map[string]prop{
		"entityName": stringField("The name of the entity to add the observations to"),
		"contents":   arrayOf(stringField(""), "An array of observation contents to add"),
	},
	Required: []string{"entityName", "contents"},
}

var observationDeletionProp = prop{
	Type: "object",
	Properties: map[string]prop{
		"entityName":   stringField("The name of the entity containing the observations"),
		"observations": arrayOf(stringField(""), "An array of observations to delete"),
	},
	Required: []string{"entityName", "observations"},
}

// objectSchema renders the JSON Schema for a tool's inputSchema field from a fixed set of named
// properties.
func objectSchema(properties map[string]prop, required ...string) []byte {
	schema := prop{Type: "object", Properties: properties, Required: required}
	encoded, err := json.Marshal(schema)
	if err != nil {
		panic("memory: failed to render tool schema: " + err.Error())
	}
	return encoded
}

var (
	createEntitiesSchema = objectSchema(map[string]prop{
		"entities": arrayOf(entityProp, ""),
	}, "entities")

	createRelationsSchema = objectSchema(map[string]prop{
		"relations": arrayOf(relationProp, ""),
	}, "relations")

	addObservationsSchema = objectSchema(map[string]prop{
		"observations": arrayOf(observationProp, ""),
	}, "observations")

	deleteEntitiesSchema = objectSchema(map[string]prop{
		"entityNames": arrayOf(stringField(""), "An array of entity names to delete"),
	}, "entityNames")

	deleteObservationsSchema = objectSchema(map[string]prop{
		"deletions": arrayOf(observationDeletionProp, ""),
	}, "deletions")

	deleteRelationsSchema = objectSchema(map[string]prop{
		"relations": arrayOf(relationProp, "An array of relations to delete"),
	}, "relations")

	readGraphSchema = objectSchema(map[string]prop{})

	searchNodesSchema = objectSchema(map[string]prop{
		"query": stringField("The search query to match against entity names, types, and observation content"),
	}, "query")

	openNodesSchema = objectSchema(map[string]prop{
		"names": arrayOf(stringField(""), "An array of entity names to retrieve"),
	}, "names")
)
