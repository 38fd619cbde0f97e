package kb

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// corpusSchema validates the knowledge-base source file before any record is
// touched. Loading fails fast on schema violations rather than silently
// skipping records.
const corpusSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"minProperties": 1,
	"properties": {
		"story":        {"$ref": "#/$defs/records"},
		"character":    {"$ref": "#/$defs/keyedRecords"},
		"qa":           {"$ref": "#/$defs/records"},
		"word_meaning": {"$ref": "#/$defs/keyedRecords"}
	},
	"additionalProperties": false,
	"$defs": {
		"record": {
			"type": "object",
			"required": ["text"],
			"properties": {
				"id":            {"type": "string"},
				"text":          {"type": "string", "minLength": 1},
				"language":      {"type": "string", "enum": ["bn", "en"]},
				"key":           {"type": "string", "minLength": 1},
				"source_offset": {"type": "integer", "minimum": 0}
			}
		},
		"records": {
			"type": "array",
			"items": {"$ref": "#/$defs/record"}
		},
		"keyedRecord": {
			"$ref": "#/$defs/record",
			"required": ["text", "key"]
		},
		"keyedRecords": {
			"type": "array",
			"items": {"$ref": "#/$defs/keyedRecord"}
		}
	}
}`

var compiledCorpusSchema = jsonschema.MustCompileString("corpus.schema.json", corpusSchema)

// validateCorpus checks a decoded corpus document against the schema.
func validateCorpus(doc interface{}) error {
	return compiledCorpusSchema.Validate(doc)
}
