package catalogs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const blocksSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "solid": {"type": "boolean"},
      "breakable": {"type": "boolean"},
      "hardness": {"type": "number", "minimum": 0},
      "tags": {"type": "array", "items": {"type": "string"}},
      "drops_item": {"type": "string"}
    },
    "additionalProperties": false
  }
}`

const itemsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "kind"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "kind": {"enum": ["BLOCK", "TOOL", "MATERIAL"]},
      "display_name": {"type": "string"},
      "place_as": {"type": "string"},
      "stack_max": {"type": "integer", "minimum": 1},
      "carried": {"type": "boolean"}
    },
    "additionalProperties": false
  }
}`

const toolsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "family", "tier", "damage"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "family": {"enum": ["PICKAXE", "AXE", "SHOVEL"]},
      "tier": {"type": "integer", "minimum": 0},
      "damage": {"type": "number", "minimum": 0},
      "cluster_size": {"type": "integer", "minimum": 1}
    },
    "additionalProperties": false
  }
}`

func validate(name, schema string, raw []byte) error {
	s, err := jsonschema.CompileString(name+".schema.json", schema)
	if err != nil {
		return fmt.Errorf("%s: compile schema: %w", name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
