package docset

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/groundcheck/internal/model"
)

// record is one chunk as written in a JSON or YAML document set.
// ID and SourceDocument are filled in when absent.
type record struct {
	ID             string         `json:"id" yaml:"id"`
	Text           string         `json:"text" yaml:"text"`
	SourceDocument string         `json:"source_document" yaml:"source_document"`
	Metadata       map[string]any `json:"metadata" yaml:"metadata"`
	Entities       []model.Entity `json:"entities" yaml:"entities"`
}

// envelope is the object form: {"chunks": [...]}
type envelope struct {
	Chunks []record `json:"chunks" yaml:"chunks"`
}

func isStructured(source, contentType string) bool {
	switch ext(source) {
	case ".json", ".jsonl", ".ndjson", ".yaml", ".yml":
		return true
	}
	switch mediaType(contentType) {
	case "application/json", "application/x-ndjson", "application/yaml", "application/x-yaml", "text/yaml":
		return true
	}
	return false
}

// JSONParser reads chunk records from a JSON array, a {"chunks": [...]}
// object or JSON Lines
type JSONParser struct{}

// NewJSONParser creates the JSON parser
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

// Name returns the parser name
func (p *JSONParser) Name() string {
	return "json"
}

// CanHandle checks for a JSON content type or extension
func (p *JSONParser) CanHandle(source string, contentType string) bool {
	switch ext(source) {
	case ".json", ".jsonl", ".ndjson":
		return true
	}
	mt := mediaType(contentType)
	return mt == "application/json" || mt == "application/x-ndjson"
}

// Parse decodes the records
func (p *JSONParser) Parse(document string, body []byte) ([]model.DocumentChunk, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var records []record
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, model.Inputf("docset.json", "%s: %v", document, err)
		}
	default:
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Chunks != nil {
			records = env.Chunks
			break
		}
		lines, err := jsonLines(trimmed)
		if err != nil {
			return nil, model.Inputf("docset.json", "%s: %v", document, err)
		}
		records = lines
	}
	return fromRecords(document, records)
}

// jsonLines decodes a stream of objects, one per line or concatenated
func jsonLines(body []byte) ([]record, error) {
	var out []record
	dec := json.NewDecoder(bytes.NewReader(body))
	for dec.More() {
		var r record
		if err := dec.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// YAMLParser reads chunk records from a YAML list or a chunks: mapping
type YAMLParser struct{}

// NewYAMLParser creates the YAML parser
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// Name returns the parser name
func (p *YAMLParser) Name() string {
	return "yaml"
}

// CanHandle checks for a YAML content type or extension
func (p *YAMLParser) CanHandle(source string, contentType string) bool {
	switch ext(source) {
	case ".yaml", ".yml":
		return true
	}
	switch mediaType(contentType) {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return true
	}
	return false
}

// Parse decodes the records
func (p *YAMLParser) Parse(document string, body []byte) ([]model.DocumentChunk, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(body, &node); err != nil {
		return nil, model.Inputf("docset.yaml", "%s: %v", document, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var records []record
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&records); err != nil {
			return nil, model.Inputf("docset.yaml", "%s: %v", document, err)
		}
	case yaml.MappingNode:
		var env envelope
		if err := root.Decode(&env); err != nil {
			return nil, model.Inputf("docset.yaml", "%s: %v", document, err)
		}
		records = env.Chunks
	default:
		return nil, model.Inputf("docset.yaml", "%s: expected a list of chunks or a chunks: mapping", document)
	}
	return fromRecords(document, records)
}

func fromRecords(document string, records []record) ([]model.DocumentChunk, error) {
	out := make([]model.DocumentChunk, 0, len(records))
	for i, r := range records {
		c := model.DocumentChunk{
			ID:             strings.TrimSpace(r.ID),
			Text:           r.Text,
			SourceDocument: r.SourceDocument,
			Metadata:       r.Metadata,
			Entities:       r.Entities,
		}
		if c.ID == "" {
			c.ID = chunkID(document, i)
		}
		if c.SourceDocument == "" {
			c.SourceDocument = document
		}
		if err := c.Validate(); err != nil {
			return nil, model.Inputf("docset.records", "%s record %d: %v", document, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}
